package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/project"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/forPelevin/transcut/internal/wavio"
)

type fakeDecoder struct {
	info types.MediaInfo
	err  error
}

func (f fakeDecoder) Probe(_ context.Context, _ string) (types.MediaInfo, error) {
	return f.info, f.err
}

type fakeAudio struct {
	samples []float32
	inPaths []string
}

func (f *fakeAudio) ExtractAudioMono16k(_ context.Context, inPath, outWav string) error {
	f.inPaths = append(f.inPaths, inPath)
	return wavio.Write(outWav, f.samples, wavio.SampleRate)
}

type fakeTranscriber struct {
	tr        types.Transcript
	status    types.TranscriptionStatus
	errMsg    string
	submitted map[string]int
	language  string
}

func (f *fakeTranscriber) Submit(mediaID string, samples []float32, language string) error {
	if f.submitted == nil {
		f.submitted = map[string]int{}
	}
	f.submitted[mediaID] = len(samples)
	f.language = language
	return nil
}

func (f *fakeTranscriber) Wait(_ context.Context, mediaID string) (types.TranscriptionProgress, error) {
	return types.TranscriptionProgress{MediaID: mediaID, Status: f.status, Error: f.errMsg}, nil
}

func (f *fakeTranscriber) Transcript(mediaID string) (types.Transcript, bool) {
	if f.status != types.StatusComplete {
		return types.Transcript{}, false
	}
	tr := f.tr
	tr.MediaID = mediaID
	return tr, true
}

type fakeRenderer struct {
	clips []ports.RenderClip
	out   string
}

func (f *fakeRenderer) RenderTimeline(_ context.Context, clips []ports.RenderClip, outPath string) error {
	f.clips = clips
	f.out = outPath
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func testTranscript() types.Transcript {
	return types.Transcript{
		Segments: []types.TranscriptSegment{{
			ID:    "segment_0",
			Start: 0.5,
			End:   2,
			Text:  "hello big world",
			Words: []types.TranscriptWord{
				{ID: "word_0_0", Text: "hello", Start: 0.5, End: 1},
				{ID: "word_0_1", Text: "big", Start: 1.25, End: 1.5},
				{ID: "word_0_2", Text: "world", Start: 1.5, End: 2},
			},
		}},
	}
}

func newTestProject(t *testing.T) (*project.Project, types.MediaItem) {
	t.Helper()
	p := project.New("test", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := p.Library().Add(types.MediaItem{ID: "m1", Name: "talk.mp4", Path: "/media/talk.mp4", Duration: 10})
	return p, m
}

func TestImportMedia(t *testing.T) {
	t.Parallel()

	p := project.New("test", time.Now())
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	uc := New(Deps{Decoder: fakeDecoder{info: types.MediaInfo{Duration: 12.5, Width: 1280, Height: 720, FPS: 25}}, Now: func() time.Time { return now }})

	m, err := uc.ImportMedia(context.Background(), p, "clips/a.mp4")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if m.ID == "" || m.Name != "a.mp4" || m.Duration != 12.5 || m.Width != 1280 || !m.ImportedAt.Equal(now) {
		t.Fatalf("unexpected media: %+v", m)
	}
	if !filepath.IsAbs(m.Path) {
		t.Fatalf("expected absolute path, got %s", m.Path)
	}
	if got, ok := p.Library().Get(m.ID); !ok || got.Name != "a.mp4" {
		t.Fatalf("media not stored in library")
	}
}

func TestImportMedia_RejectedLeavesProjectUntouched(t *testing.T) {
	t.Parallel()

	p := project.New("test", time.Now())
	uc := New(Deps{Decoder: fakeDecoder{err: ports.ErrMediaRejected}})
	if _, err := uc.ImportMedia(context.Background(), p, "broken.mp4"); !errors.Is(err, ports.ErrMediaRejected) {
		t.Fatalf("expected ErrMediaRejected, got %v", err)
	}
	if p.Library().Len() != 0 || p.Timeline().Len() != 0 {
		t.Fatalf("rejected media must not mutate the project")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	p, m := newTestProject(t)
	audio := &fakeAudio{samples: make([]float32, 1600)}
	tx := &fakeTranscriber{tr: testTranscript(), status: types.StatusComplete}
	uc := New(Deps{Audio: audio, Transcriber: tx})

	tr, err := uc.Transcribe(context.Background(), p, TranscribeInput{MediaID: m.ID, Language: "en", CacheDir: filepath.Join(t.TempDir(), "cache")})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(audio.inPaths) != 1 || audio.inPaths[0] != m.Path {
		t.Fatalf("unexpected extraction input: %v", audio.inPaths)
	}
	if tx.submitted[m.ID] != 1600 || tx.language != "en" {
		t.Fatalf("unexpected submission: %v %q", tx.submitted, tx.language)
	}
	if tr.MediaID != m.ID {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if _, ok := p.Transcript(m.ID); !ok {
		t.Fatalf("transcript not stored on project")
	}
}

func TestTranscribe_Failures(t *testing.T) {
	t.Parallel()

	p, m := newTestProject(t)
	uc := New(Deps{
		Audio:       &fakeAudio{samples: []float32{0.1}},
		Transcriber: &fakeTranscriber{status: types.StatusError, errMsg: "Model not ready"},
	})
	cache := t.TempDir()

	if _, err := uc.Transcribe(context.Background(), p, TranscribeInput{MediaID: "ghost", CacheDir: cache}); !errors.Is(err, ErrUnknownMedia) {
		t.Fatalf("expected ErrUnknownMedia, got %v", err)
	}
	_, err := uc.Transcribe(context.Background(), p, TranscribeInput{MediaID: m.ID, CacheDir: cache})
	if err == nil || !strings.Contains(err.Error(), "Model not ready") {
		t.Fatalf("expected progress error, got %v", err)
	}
	if _, ok := p.Transcript(m.ID); ok {
		t.Fatalf("failed transcription must not store a transcript")
	}
}

func TestClipFromSelection(t *testing.T) {
	t.Parallel()

	p, m := newTestProject(t)
	tr := testTranscript()
	tr.MediaID = m.ID
	p.SetTranscript(tr)
	uc := New(Deps{})

	c, sel, err := uc.ClipFromSelection(p, m.ID, "word_0_2", "word_0_1")
	if err != nil {
		t.Fatalf("clip: %v", err)
	}
	if sel.Lo != 1 || sel.Hi != 2 {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	if c.Offset != 1.25 || c.TrimEnd != 2 || c.Duration != 0.75 || c.Start != 0 {
		t.Fatalf("unexpected clip: %+v", c)
	}

	if _, _, err := uc.ClipFromSelection(p, m.ID, "word_0_0", "nope"); !errors.Is(err, ErrUnknownWord) {
		t.Fatalf("expected ErrUnknownWord, got %v", err)
	}
	p2, m2 := newTestProject(t)
	if _, _, err := uc.ClipFromSelection(p2, m2.ID, "word_0_0", "word_0_1"); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if p.Timeline().Len() != 1 {
		t.Fatalf("failed selections must not add clips")
	}
}

func TestExport_SubtitlesToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		subtitles bool
	}{
		{name: "disabled", subtitles: false},
		{name: "enabled", subtitles: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p, m := newTestProject(t)
			tr := testTranscript()
			tr.MediaID = m.ID
			p.SetTranscript(tr)
			if _, err := p.Timeline().AddMediaRange(m, 1.25, 2); err != nil {
				t.Fatalf("add clip: %v", err)
			}
			if _, err := p.Timeline().AddMediaRange(m, 5, 8); err != nil {
				t.Fatalf("add clip: %v", err)
			}

			outDir := filepath.Join(t.TempDir(), "out")
			r := &fakeRenderer{}
			res, err := New(Deps{Renderer: r}).Export(context.Background(), p, ExportInput{OutDir: outDir, Subtitles: tc.subtitles})
			if err != nil {
				t.Fatalf("export: %v", err)
			}

			if len(r.clips) != 2 || r.out != filepath.Join(outDir, "timeline.mp4") {
				t.Fatalf("unexpected render call: %d clips to %s", len(r.clips), r.out)
			}
			if r.clips[0].SourcePath != m.Path || r.clips[1].Clip.Start != 0.75 {
				t.Fatalf("unexpected render clips: %+v", r.clips)
			}
			mc := res.Manifest.Clips
			if len(mc) != 2 || mc[0].Text != "big world" || mc[1].Text != "" {
				t.Fatalf("unexpected manifest clips: %+v", mc)
			}
			if res.Manifest.Duration != 3.75 {
				t.Fatalf("unexpected duration %v", res.Manifest.Duration)
			}

			b, err := os.ReadFile(res.ManifestPath)
			if err != nil {
				t.Fatalf("read manifest: %v", err)
			}
			var onDisk types.Manifest
			if err := json.Unmarshal(b, &onDisk); err != nil || len(onDisk.Clips) != 2 {
				t.Fatalf("unexpected manifest on disk: %v %s", err, b)
			}

			assPath := filepath.Join(outDir, "subtitles", "001.ass")
			if !tc.subtitles {
				if r.clips[0].Subtitles != "" || mc[0].Subtitles != "" {
					t.Fatalf("expected no subtitles, got %+v", r.clips[0])
				}
				if _, err := os.Stat(assPath); !os.IsNotExist(err) {
					t.Fatalf("expected no subtitle file, stat err=%v", err)
				}
				return
			}
			if r.clips[0].Subtitles != assPath || mc[0].Subtitles != "subtitles/001.ass" {
				t.Fatalf("unexpected subtitles wiring: %q %q", r.clips[0].Subtitles, mc[0].Subtitles)
			}
			ass, err := os.ReadFile(assPath)
			if err != nil || !strings.Contains(string(ass), "{\\k") {
				t.Fatalf("expected karaoke subtitles, err=%v", err)
			}
			if _, err := os.Stat(filepath.Join(outDir, "timeline.srt")); err != nil {
				t.Fatalf("expected timeline.srt: %v", err)
			}
		})
	}
}

func TestExport_Errors(t *testing.T) {
	t.Parallel()

	p, m := newTestProject(t)
	uc := New(Deps{Renderer: &fakeRenderer{}})
	if _, err := uc.Export(context.Background(), p, ExportInput{OutDir: t.TempDir()}); !errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("expected ErrEmptyTimeline, got %v", err)
	}

	if _, err := p.Timeline().AddMediaRange(m, 0, 2); err != nil {
		t.Fatalf("add clip: %v", err)
	}
	p.RemoveMedia(m.ID)
	if _, err := uc.Export(context.Background(), p, ExportInput{OutDir: t.TempDir()}); !errors.Is(err, ErrUnknownMedia) {
		t.Fatalf("expected ErrUnknownMedia, got %v", err)
	}
}
