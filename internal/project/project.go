// Package project persists the media library, the timeline, transcripts and
// chat history as a single JSON document.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/domain/timeline"
	"github.com/forPelevin/transcut/internal/domain/transcript"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/google/uuid"
)

const Version = "1.0.0"

var ErrNotExist = errors.New("project file does not exist")

type Settings struct {
	Width      int `json:"width"`
	Height     int `json:"height"`
	FPS        int `json:"fps"`
	SampleRate int `json:"sample_rate"`
}

func DefaultSettings() Settings {
	return Settings{Width: 1920, Height: 1080, FPS: frames.DefaultFPS, SampleRate: 48000}
}

// document is the on-disk shape.
type document struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Version     string                      `json:"version"`
	CreatedAt   time.Time                   `json:"created_at"`
	ModifiedAt  time.Time                   `json:"modified_at"`
	Settings    Settings                    `json:"settings"`
	Media       []types.MediaItem           `json:"media"`
	Timeline    types.TimelineSnapshot      `json:"timeline"`
	Transcripts map[string]types.Transcript `json:"transcripts"`
	Chat        []types.ChatMessage         `json:"chat"`
}

type Project struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Settings   Settings

	library     *timeline.Library
	timeline    *timeline.Timeline
	transcripts map[string]types.Transcript
	chat        []types.ChatMessage
}

func New(name string, now time.Time) *Project {
	lib := timeline.NewLibrary()
	if name == "" {
		name = "Untitled Project"
	}
	return &Project{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   now.UTC(),
		ModifiedAt:  now.UTC(),
		Settings:    DefaultSettings(),
		library:     lib,
		timeline:    timeline.New(lib),
		transcripts: map[string]types.Transcript{},
	}
}

func (p *Project) Library() *timeline.Library   { return p.library }
func (p *Project) Timeline() *timeline.Timeline { return p.timeline }

// SetTranscript stores tr for its media, replacing any previous transcript.
func (p *Project) SetTranscript(tr types.Transcript) {
	p.transcripts[tr.MediaID] = tr
}

func (p *Project) Transcript(mediaID string) (types.Transcript, bool) {
	tr, ok := p.transcripts[mediaID]
	return tr, ok
}

func (p *Project) Chat() []types.ChatMessage {
	out := make([]types.ChatMessage, len(p.chat))
	copy(out, p.chat)
	return out
}

func (p *Project) AppendChat(msgs ...types.ChatMessage) {
	p.chat = append(p.chat, msgs...)
}

func (p *Project) ClearChat() { p.chat = nil }

// RemoveMedia drops a media item and its transcript. Clips that reference it
// stay on the timeline.
func (p *Project) RemoveMedia(mediaID string) bool {
	if !p.library.Remove(mediaID) {
		return false
	}
	delete(p.transcripts, mediaID)
	return true
}

// Load reads a project file. Frame numbers are recomputed from seconds.
func Load(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}

	lib := timeline.NewLibrary()
	for _, m := range doc.Media {
		lib.Add(m)
	}
	tl := timeline.New(lib, timeline.WithID(doc.Timeline.ID))
	tl.Restore(doc.Timeline)

	settings := doc.Settings
	def := DefaultSettings()
	if settings.FPS <= 0 {
		settings.FPS = def.FPS
	}
	if settings.Width <= 0 || settings.Height <= 0 {
		settings.Width, settings.Height = def.Width, def.Height
	}
	if settings.SampleRate <= 0 {
		settings.SampleRate = def.SampleRate
	}

	trs := make(map[string]types.Transcript, len(doc.Transcripts))
	for id, tr := range doc.Transcripts {
		transcript.RecomputeFrames(&tr, frames.DefaultFPS)
		if tr.MediaID == "" {
			tr.MediaID = id
		}
		trs[tr.MediaID] = tr
	}

	return &Project{
		ID:          doc.ID,
		Name:        doc.Name,
		CreatedAt:   doc.CreatedAt,
		ModifiedAt:  doc.ModifiedAt,
		Settings:    settings,
		library:     lib,
		timeline:    tl,
		transcripts: trs,
		chat:        doc.Chat,
	}, nil
}

// Save writes the project as indented JSON through a temp file and rename so
// a crash never leaves a half-written document.
func (p *Project) Save(path string, now time.Time) error {
	p.ModifiedAt = now.UTC()
	doc := document{
		ID:          p.ID,
		Name:        p.Name,
		Version:     Version,
		CreatedAt:   p.CreatedAt,
		ModifiedAt:  p.ModifiedAt,
		Settings:    p.Settings,
		Media:       p.library.List(),
		Timeline:    p.timeline.Snapshot(),
		Transcripts: p.transcripts,
		Chat:        p.chat,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir project dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".project-*.json")
	if err != nil {
		return fmt.Errorf("create temp project: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close project: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return nil
}
