package transcription

import (
	"context"
	"time"

	"github.com/forPelevin/transcut/internal/types"
)

// Event is emitted by the recognizer worker and fanned out to subscribers
// in emission order.
type Event interface{ event() }

type ModelLoading struct{ ModelID string }

type ModelProgress struct{ Progress types.ModelDownloadProgress }

type ModelReady struct{ ModelID string }

type ModelFailed struct {
	ModelID string
	Err     string
}

type Transcribing struct {
	MediaID string
	Message string
}

type TranscribeProgress struct {
	MediaID string
	Percent float64
}

// Completed carries the raw recognizer output. Subscribers receive it with
// Transcript already segmented.
type Completed struct {
	MediaID    string
	Result     types.RecognizerResult
	Transcript types.Transcript
	Elapsed    time.Duration
}

type Failed struct {
	MediaID string
	Err     string
}

func (ModelLoading) event()       {}
func (ModelProgress) event()      {}
func (ModelReady) event()         {}
func (ModelFailed) event()        {}
func (Transcribing) event()       {}
func (TranscribeProgress) event() {}
func (Completed) event()          {}
func (Failed) event()             {}

// requests sent to the worker
type request interface{ request() }

type loadRequest struct {
	ctx     context.Context
	modelID string
}

type transcribeRequest struct {
	ctx      context.Context
	cancel   context.CancelFunc
	mediaID  string
	samples  []float32
	language string
}

func (loadRequest) request()       {}
func (transcribeRequest) request() {}
