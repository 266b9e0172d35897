package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/transcut/internal/types"
)

// ErrMediaRejected marks files a MediaDecoder could not read. Rejected media
// never reaches the library or the timeline.
var ErrMediaRejected = errors.New("media item rejected")

type MediaDecoder interface {
	Probe(ctx context.Context, path string) (types.MediaInfo, error)
}

type AudioExtractor interface {
	ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error
}

// SpeechRecognizer runs behind the transcription worker. Samples are mono
// float PCM at 16 kHz.
type SpeechRecognizer interface {
	Load(ctx context.Context, modelID string, progress func(types.ModelDownloadProgress)) error
	Transcribe(ctx context.Context, samples []float32, language string, progress func(percent float64)) (types.RecognizerResult, error)
}

// RenderClip is one timeline clip with the file it plays from.
type RenderClip struct {
	Clip       types.Clip
	SourcePath string
	Subtitles  string
}

type Renderer interface {
	RenderTimeline(ctx context.Context, clips []RenderClip, outPath string) error
}

type ChatModel interface {
	Reply(ctx context.Context, history []types.ChatMessage, prompt string) (string, error)
}
