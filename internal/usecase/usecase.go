package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/transcut/internal/domain/subtitles"
	"github.com/forPelevin/transcut/internal/domain/transcript"
	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/project"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/forPelevin/transcut/internal/wavio"
)

var (
	ErrUnknownMedia  = errors.New("unknown media item")
	ErrNoTranscript  = errors.New("no transcript available for media")
	ErrUnknownWord   = errors.New("word id not found in transcript")
	ErrEmptyTimeline = errors.New("timeline has no clips")
)

// Transcriber is the transcription coordinator as seen by the use cases.
type Transcriber interface {
	Submit(mediaID string, samples []float32, language string) error
	Wait(ctx context.Context, mediaID string) (types.TranscriptionProgress, error)
	Transcript(mediaID string) (types.Transcript, bool)
}

type Deps struct {
	Decoder     ports.MediaDecoder
	Audio       ports.AudioExtractor
	Transcriber Transcriber
	Renderer    ports.Renderer

	Logf func(format string, args ...any)
	Now  func() time.Time
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return Usecase{d: d}
}

// ImportMedia probes path and adds it to the project's media library. A file
// the decoder rejects leaves the project untouched.
func (u Usecase) ImportMedia(ctx context.Context, p *project.Project, path string) (types.MediaItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.MediaItem{}, err
	}
	info, err := u.d.Decoder.Probe(ctx, abs)
	if err != nil {
		return types.MediaItem{}, fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}
	m := p.Library().Add(types.MediaItem{
		Name:       filepath.Base(abs),
		Path:       abs,
		Duration:   info.Duration,
		Width:      info.Width,
		Height:     info.Height,
		FPS:        info.FPS,
		ImportedAt: u.d.Now().UTC(),
	})
	u.d.Logf("[import] %s: %.2fs %dx%d", m.Name, m.Duration, m.Width, m.Height)
	return m, nil
}

type TranscribeInput struct {
	MediaID  string
	Language string
	// CacheDir receives the extracted 16 kHz audio.
	CacheDir string
}

// Transcribe extracts mono 16 kHz audio, hands the samples to the
// coordinator and stores the finished transcript in the project. The model
// must already be loading or loaded on the coordinator.
func (u Usecase) Transcribe(ctx context.Context, p *project.Project, in TranscribeInput) (types.Transcript, error) {
	m, ok := p.Library().Get(in.MediaID)
	if !ok {
		return types.Transcript{}, fmt.Errorf("%w: %s", ErrUnknownMedia, in.MediaID)
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return types.Transcript{}, fmt.Errorf("mkdir cache dir: %w", err)
	}

	wav := filepath.Join(in.CacheDir, m.ID+".wav")
	if err := u.d.Audio.ExtractAudioMono16k(ctx, m.Path, wav); err != nil {
		return types.Transcript{}, err
	}
	samples, err := wavio.Read(wav)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	u.d.Logf("[transcribe] %s: %d samples (%.1fs)", m.Name, len(samples), float64(len(samples))/wavio.SampleRate)

	if err := u.d.Transcriber.Submit(m.ID, samples, in.Language); err != nil {
		return types.Transcript{}, err
	}
	prog, err := u.d.Transcriber.Wait(ctx, m.ID)
	if err != nil {
		return types.Transcript{}, err
	}
	if prog.Status != types.StatusComplete {
		return types.Transcript{}, fmt.Errorf("transcribe %s: %s", m.Name, prog.Error)
	}
	tr, ok := u.d.Transcriber.Transcript(m.ID)
	if !ok {
		return types.Transcript{}, fmt.Errorf("%w: %s", ErrNoTranscript, m.ID)
	}
	p.SetTranscript(tr)
	return tr, nil
}

// ClipFromSelection appends a clip spanning the words between two word ids,
// in either order.
func (u Usecase) ClipFromSelection(p *project.Project, mediaID, startWordID, endWordID string) (types.Clip, transcript.Selection, error) {
	m, ok := p.Library().Get(mediaID)
	if !ok {
		return types.Clip{}, transcript.Selection{}, fmt.Errorf("%w: %s", ErrUnknownMedia, mediaID)
	}
	tr, ok := p.Transcript(mediaID)
	if !ok {
		return types.Clip{}, transcript.Selection{}, fmt.Errorf("%w: %s", ErrNoTranscript, mediaID)
	}
	words := transcript.Words(tr)
	sel, ok := transcript.SelectRange(words, startWordID, endWordID)
	if !ok {
		return types.Clip{}, transcript.Selection{}, fmt.Errorf("%w: %s..%s", ErrUnknownWord, startWordID, endWordID)
	}
	c, err := p.Timeline().AddMediaRange(m, sel.Start, sel.End)
	if err != nil {
		return types.Clip{}, transcript.Selection{}, err
	}
	return c, sel, nil
}

type ExportInput struct {
	OutDir    string
	FileName  string
	Subtitles bool
}

type ExportResult struct {
	Manifest     types.Manifest
	ManifestPath string
}

// Export renders the timeline to OutDir and writes manifest.json next to it.
// With Subtitles set, each clip gets clip-local ASS subtitles burned in and
// a timeline.srt covers the whole program.
func (u Usecase) Export(ctx context.Context, p *project.Project, in ExportInput) (ExportResult, error) {
	snap := p.Timeline().Snapshot()
	if len(snap.Clips) == 0 {
		return ExportResult{}, ErrEmptyTimeline
	}
	if in.FileName == "" {
		in.FileName = "timeline.mp4"
	}
	subsDir := filepath.Join(in.OutDir, "subtitles")
	if err := os.MkdirAll(subsDir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("mkdir out dir: %w", err)
	}

	style := subtitles.Style{Width: p.Settings.Width, Height: p.Settings.Height}
	m := types.Manifest{Project: p.Name, Output: in.FileName, Duration: snap.Duration}
	render := make([]ports.RenderClip, 0, len(snap.Clips))
	transcripts := map[string]types.Transcript{}

	for i, c := range snap.Clips {
		media, ok := p.Timeline().Resolve(c)
		if !ok {
			return ExportResult{}, fmt.Errorf("%w: clip %s references %s", ErrUnknownMedia, c.ID, c.MediaID)
		}
		rc := ports.RenderClip{Clip: c, SourcePath: media.Path}
		mc := types.ManifestClip{
			ID:         c.ID,
			MediaID:    c.MediaID,
			Name:       c.Name,
			StartSec:   c.Start,
			StartFrame: c.StartFrame,
			OffsetSec:  c.Offset,
			TrimEndSec: c.TrimEnd,
			File:       filepath.ToSlash(in.FileName),
		}
		if tr, ok := p.Transcript(c.MediaID); ok {
			transcripts[c.MediaID] = tr
			mc.Text = subtitles.ClipText(tr, c)
			if in.Subtitles {
				name := fmt.Sprintf("%03d.ass", i+1)
				path := filepath.Join(subsDir, name)
				if err := writeFile(path, []byte(subtitles.ClipASS(tr, c, style))); err != nil {
					return ExportResult{}, err
				}
				rc.Subtitles = path
				mc.Subtitles = filepath.ToSlash(filepath.Join("subtitles", name))
			}
		}
		render = append(render, rc)
		m.Clips = append(m.Clips, mc)
	}

	out := filepath.Join(in.OutDir, in.FileName)
	u.d.Logf("[export] rendering %d clips (%.2fs) to %s", len(render), snap.Duration, out)
	if err := u.d.Renderer.RenderTimeline(ctx, render, out); err != nil {
		return ExportResult{}, err
	}

	if in.Subtitles && len(transcripts) > 0 {
		if err := writeFile(filepath.Join(in.OutDir, "timeline.srt"), []byte(subtitles.TimelineSRT(snap, transcripts))); err != nil {
			return ExportResult{}, err
		}
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(in.OutDir, "manifest.json")
	if err := writeFile(manifestPath, b); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Manifest: m, ManifestPath: manifestPath}, nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
