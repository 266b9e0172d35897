package types

import "time"

type MediaItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FPS        float64   `json:"fps"`
	ImportedAt time.Time `json:"imported_at"`
}

// MediaInfo is what a media decoder reports for a file.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
}

type Effect struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Enabled bool           `json:"enabled"`
	Params  map[string]any `json:"params,omitempty"`
}

type Clip struct {
	ID      string `json:"id"`
	MediaID string `json:"media_id"`
	Name    string `json:"name"`

	// Timeline position
	Start          float64 `json:"start"`
	StartFrame     int     `json:"start_frame"`
	Duration       float64 `json:"duration"`
	DurationFrames int     `json:"duration_frames"`

	// Source trim
	Offset       float64 `json:"offset"`
	OffsetFrame  int     `json:"offset_frame"`
	TrimEnd      float64 `json:"trim_end"`
	TrimEndFrame int     `json:"trim_end_frame"`

	Speed   float64  `json:"speed"`
	Reverse bool     `json:"reverse"`
	Effects []Effect `json:"effects"`
}

// End is the clip's end position on the timeline.
func (c Clip) End() float64 { return c.Start + c.Duration }

// TimelineSnapshot is the persisted and rendered form of a timeline.
type TimelineSnapshot struct {
	ID             string  `json:"id"`
	Duration       float64 `json:"duration"`
	DurationFrames int     `json:"duration_frames"`
	Clips          []Clip  `json:"clips"`
	SelectedClipID string  `json:"selected_clip_id,omitempty"`
}

type Transcript struct {
	ID           string              `json:"id"`
	MediaID      string              `json:"media_id"`
	Language     string              `json:"language"`
	FullText     string              `json:"full_text"`
	Segments     []TranscriptSegment `json:"segments"`
	Speakers     []Speaker           `json:"speakers"`
	GeneratedAt  time.Time           `json:"generated_at"`
	ModelVersion string              `json:"model_version"`
}

type TranscriptSegment struct {
	ID         string           `json:"id"`
	Start      float64          `json:"start"`
	End        float64          `json:"end"`
	StartFrame int              `json:"start_frame"`
	EndFrame   int              `json:"end_frame"`
	Text       string           `json:"text"`
	Words      []TranscriptWord `json:"words"`
	SpeakerID  string           `json:"speaker_id"`
	Confidence float64          `json:"confidence"`
}

type TranscriptWord struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Confidence float64 `json:"confidence"`
}

type Speaker struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Color       string   `json:"color"`
	SegmentIDs  []string `json:"segment_ids"`
}

// WordChunk is a single timestamped word as emitted by a speech recognizer.
type WordChunk struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type RecognizerResult struct {
	Text   string      `json:"text"`
	Chunks []WordChunk `json:"chunks"`
}

type TranscriptionStatus string

const (
	StatusIdle         TranscriptionStatus = "idle"
	StatusLoading      TranscriptionStatus = "loading"
	StatusTranscribing TranscriptionStatus = "transcribing"
	StatusComplete     TranscriptionStatus = "complete"
	StatusError        TranscriptionStatus = "error"
)

type TranscriptionProgress struct {
	MediaID  string              `json:"media_id"`
	Status   TranscriptionStatus `json:"status"`
	Progress float64             `json:"progress"`
	Message  string              `json:"message"`
	Error    string              `json:"error,omitempty"`
}

type ModelDownloadProgress struct {
	File     string  `json:"file"`
	Progress float64 `json:"progress"`
	Loaded   int64   `json:"loaded"`
	Total    int64   `json:"total"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Manifest struct {
	Project  string         `json:"project"`
	Output   string         `json:"output"`
	Duration float64        `json:"duration"`
	Clips    []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID         string  `json:"id"`
	MediaID    string  `json:"media_id"`
	Name       string  `json:"name"`
	StartSec   float64 `json:"start_sec"`
	StartFrame int     `json:"start_frame"`
	OffsetSec  float64 `json:"offset_sec"`
	TrimEndSec float64 `json:"trim_end_sec"`
	Text       string  `json:"text,omitempty"`
	File       string  `json:"file"`
	Subtitles  string  `json:"subtitles,omitempty"`
}
