package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/forPelevin/transcut/internal/transcription"
	"github.com/forPelevin/transcut/internal/types"
)

func TestEventLogger(t *testing.T) {
	var buf bytes.Buffer
	l := eventLogger{w: &buf, mediaID: "m1", lastDownload: -1, lastPercent: -1}
	events := []transcription.Event{
		transcription.ModelLoading{ModelID: "base"},
		transcription.ModelProgress{Progress: types.ModelDownloadProgress{File: "ggml-base.bin", Progress: 3}},
		transcription.ModelProgress{Progress: types.ModelDownloadProgress{File: "ggml-base.bin", Progress: 7}},
		transcription.ModelProgress{Progress: types.ModelDownloadProgress{File: "ggml-base.bin", Progress: 12}},
		transcription.ModelReady{ModelID: "base"},
		transcription.Transcribing{MediaID: "other", Message: "Transcribing audio..."},
		transcription.Transcribing{MediaID: "m1", Message: "Transcribing audio..."},
		transcription.TranscribeProgress{MediaID: "m1", Percent: 50},
		transcription.TranscribeProgress{MediaID: "m1", Percent: 55},
		transcription.TranscribeProgress{MediaID: "other", Percent: 90},
		transcription.Completed{MediaID: "m1", Elapsed: 1500 * time.Millisecond},
	}
	for _, ev := range events {
		l.log(ev)
	}

	want := []string{
		"[transcribe] loading model base",
		"[transcribe] downloading ggml-base.bin: 3%",
		"[transcribe] downloading ggml-base.bin: 12%",
		"[transcribe] model base ready",
		"[transcribe] Transcribing audio...",
		"[transcribe] 50%",
		"[transcribe] completed in 1.50s",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(got), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLogEvents_DrainsAfterStop(t *testing.T) {
	var buf bytes.Buffer
	events := make(chan transcription.Event, 4)
	events <- transcription.Failed{MediaID: "m1", Err: "transcription cancelled"}
	stop := make(chan struct{})
	close(stop)

	logEvents(&buf, "m1", events, stop)
	if !strings.Contains(buf.String(), "failed: transcription cancelled") {
		t.Fatalf("expected buffered event to be logged, got %q", buf.String())
	}
}

func TestTranscribeModel_Events(t *testing.T) {
	cancelled := false
	m := newTranscribeModel("m1", "talk.mp4", "default", func() { cancelled = true })

	step := func(msg tea.Msg) {
		t.Helper()
		next, _ := m.Update(msg)
		m = next.(transcribeModel)
	}

	step(eventMsg{ev: transcription.ModelLoading{ModelID: "base"}})
	if m.model != "base" || m.stage != "Loading model..." {
		t.Fatalf("unexpected state after load: %q %q", m.model, m.stage)
	}
	step(eventMsg{ev: transcription.ModelProgress{Progress: types.ModelDownloadProgress{File: "ggml-base.bin", Progress: 40}}})
	if m.percent != 40 || !strings.Contains(m.stage, "ggml-base.bin") {
		t.Fatalf("unexpected download state: %v %q", m.percent, m.stage)
	}
	step(eventMsg{ev: transcription.TranscribeProgress{MediaID: "other", Percent: 90}})
	if m.percent != 40 {
		t.Fatalf("events for other media must be ignored, percent=%v", m.percent)
	}
	step(eventMsg{ev: transcription.Transcribing{MediaID: "m1", Message: "Transcribing audio..."}})
	step(eventMsg{ev: transcription.TranscribeProgress{MediaID: "m1", Percent: 65}})
	if m.stage != "Transcribing audio..." || m.percent != 65 {
		t.Fatalf("unexpected transcribe state: %q %v", m.stage, m.percent)
	}
	if !strings.Contains(m.View(), "talk.mp4") {
		t.Fatalf("view should show the file name")
	}

	step(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || m.stage != "Cancelling..." {
		t.Fatalf("expected cancel on q, cancelled=%v stage=%q", cancelled, m.stage)
	}

	next, cmd := m.Update(doneMsg{err: errors.New("transcription cancelled")})
	m = next.(transcribeModel)
	if !m.done || cmd == nil {
		t.Fatalf("expected done with quit command")
	}
	if !strings.Contains(m.View(), "Transcription failed: transcription cancelled") {
		t.Fatalf("unexpected final view: %q", m.View())
	}
}

func TestFormatDurationTUI(t *testing.T) {
	cases := map[time.Duration]string{
		4 * time.Second:                 "4s",
		1500 * time.Millisecond:         "2s",
		2*time.Minute + 5*time.Second:   "2m 5s",
		61*time.Minute + 30*time.Second: "61m 30s",
	}
	for in, want := range cases {
		if got := formatDurationTUI(in); got != want {
			t.Fatalf("formatDurationTUI(%v) = %q, want %q", in, got, want)
		}
	}
}
