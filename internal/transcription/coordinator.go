// Package transcription gates audio submissions on speech model readiness
// and runs the recognizer on a dedicated worker goroutine.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/forPelevin/transcut/internal/domain/transcript"
	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/types"
)

var (
	ErrNotInitialized = errors.New("transcription: worker not initialized")
	ErrLoadInFlight   = errors.New("transcription: model load already in progress")
	ErrNoAudio        = errors.New("transcription: no audio data provided")
	ErrNotSubmitted   = errors.New("transcription: media was never submitted")
)

type ModelState int

const (
	Unloaded ModelState = iota
	Loading
	Ready
	Error
)

func (s ModelState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unloaded"
	}
}

type ModelStatus struct {
	State   ModelState
	ModelID string
	Err     string
}

type Config struct {
	Recognizer ports.SpeechRecognizer

	// Timeout bounds a single running transcription. Zero means no limit.
	Timeout time.Duration
	// ModelWaitTimeout fails a queued submission whose model is still not
	// ready after this long. Zero waits until the model loads or fails.
	ModelWaitTimeout time.Duration

	Logf func(format string, args ...any)
	Now  func() time.Time
}

type job struct {
	mediaID  string
	samples  []float32
	language string
	timer    *time.Timer
}

// Coordinator owns per-media progress, finished transcripts and the model
// state. At most one model load and one transcription are in flight.
type Coordinator struct {
	rec              ports.SpeechRecognizer
	timeout          time.Duration
	modelWaitTimeout time.Duration
	logf             func(string, ...any)
	now              func() time.Time

	mu          sync.Mutex
	started     bool
	closing     bool
	reqs        chan request
	done        chan struct{}
	model       ModelStatus
	download    []types.ModelDownloadProgress
	progress    map[string]*types.TranscriptionProgress
	transcripts map[string]types.Transcript
	pending     []string
	jobs        map[string]*job
	active      string
	activeLang  string
	cancel      context.CancelFunc
	cancelled   map[string]string
	waiters     map[string][]chan struct{}
	listeners   map[int]chan Event
	nextID      int
}

func New(cfg Config) *Coordinator {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		rec:              cfg.Recognizer,
		timeout:          cfg.Timeout,
		modelWaitTimeout: cfg.ModelWaitTimeout,
		logf:             logf,
		now:              now,
		progress:         map[string]*types.TranscriptionProgress{},
		transcripts:      map[string]types.Transcript{},
		jobs:             map[string]*job{},
		cancelled:        map[string]string{},
		waiters:          map[string][]chan struct{}{},
		listeners:        map[int]chan Event{},
	}
}

// Initialize starts the recognizer worker. It is a no-op while one runs.
func (c *Coordinator) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.closing = false
	c.reqs = make(chan request, 4)
	c.done = make(chan struct{})
	events := make(chan Event, 64)
	go c.work(c.reqs, events)
	go c.loop(events, c.done)
	c.logf("[transcription] worker started")
}

// Close stops the worker after the current request returns. Queued
// submissions fail.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.closing = true
	if c.cancel != nil {
		c.cancel()
	}
	for _, id := range c.pending {
		c.failQueuedLocked(id, "transcription worker stopped")
	}
	c.pending = nil
	close(c.reqs)
	done := c.done
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	c.started = false
	if c.model.State == Loading || c.model.State == Ready {
		c.model.State = Unloaded
	}
	c.mu.Unlock()
}

// LoadModel asks the worker to load modelID. Only one load may be in flight.
func (c *Coordinator) LoadModel(ctx context.Context, modelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.closing {
		c.model.Err = ErrNotInitialized.Error()
		return ErrNotInitialized
	}
	if c.model.State == Loading {
		return ErrLoadInFlight
	}
	c.model = ModelStatus{State: Loading, ModelID: modelID}
	c.download = nil
	c.reqs <- loadRequest{ctx: ctx, modelID: modelID}
	return nil
}

// Submit queues samples for mediaID. It dispatches immediately when the
// model is ready and the worker idle; otherwise the request waits and is
// dispatched once the model becomes ready. Resubmitting a queued media id
// replaces its samples. After a failed load the request fails at once.
func (c *Coordinator) Submit(mediaID string, samples []float32, language string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.closing {
		return ErrNotInitialized
	}
	if len(samples) == 0 {
		c.setProgressLocked(mediaID, types.StatusError, 0, "Transcription failed", ErrNoAudio.Error())
		c.notifyLocked(mediaID)
		return ErrNoAudio
	}
	// Error is terminal until the next LoadModel; nothing would flush the queue.
	if c.model.State == Error {
		msg := "Model failed to load: " + c.model.Err
		c.setProgressLocked(mediaID, types.StatusError, 0, msg, msg)
		c.notifyLocked(mediaID)
		return nil
	}

	delete(c.cancelled, mediaID)
	if j, ok := c.jobs[mediaID]; ok {
		j.samples = samples
		j.language = language
	} else {
		j = &job{mediaID: mediaID, samples: samples, language: language}
		c.jobs[mediaID] = j
		c.pending = append(c.pending, mediaID)
		if c.model.State != Ready && c.modelWaitTimeout > 0 {
			j.timer = time.AfterFunc(c.modelWaitTimeout, func() { c.expire(j) })
		}
	}

	msg := "Preparing transcription..."
	if c.model.State != Ready {
		msg = "Waiting for model to load..."
	} else if c.active != "" {
		msg = "Queued for transcription..."
	}
	c.setProgressLocked(mediaID, types.StatusLoading, 0, msg, "")
	c.dispatchLocked()
	return nil
}

// Cancel stops a queued or running transcription. It reports false when
// nothing was pending for mediaID.
func (c *Coordinator) Cancel(mediaID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[mediaID]; ok {
		c.removePendingLocked(mediaID)
		c.failQueuedLocked(mediaID, "transcription cancelled")
		return true
	}
	if c.active == mediaID && c.cancel != nil {
		c.cancelled[mediaID] = "transcription cancelled"
		c.cancel()
		return true
	}
	return false
}

// Wait blocks until mediaID completes or fails and returns its final
// progress record.
func (c *Coordinator) Wait(ctx context.Context, mediaID string) (types.TranscriptionProgress, error) {
	for {
		c.mu.Lock()
		p := c.progressLocked(mediaID)
		_, queued := c.jobs[mediaID]
		busy := queued || c.active == mediaID
		if !busy {
			out := *p
			c.mu.Unlock()
			if out.Status == types.StatusIdle {
				return out, ErrNotSubmitted
			}
			return out, nil
		}
		ch := make(chan struct{})
		c.waiters[mediaID] = append(c.waiters[mediaID], ch)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return c.Progress(mediaID), ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe returns a channel of events and a function to detach it. Slow
// subscribers miss events rather than block the worker.
func (c *Coordinator) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 32
	}
	ch := make(chan Event, buf)
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) Model() ModelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Progress returns the record for mediaID, creating an idle one on first use.
func (c *Coordinator) Progress(mediaID string) types.TranscriptionProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.progressLocked(mediaID)
}

func (c *Coordinator) DownloadProgress() []types.ModelDownloadProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ModelDownloadProgress, len(c.download))
	copy(out, c.download)
	return out
}

func (c *Coordinator) Transcript(mediaID string) (types.Transcript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.transcripts[mediaID]
	return tr, ok
}

// work is the recognizer task. It only talks to the coordinator through
// events.
func (c *Coordinator) work(reqs <-chan request, events chan<- Event) {
	defer close(events)
	for r := range reqs {
		switch r := r.(type) {
		case loadRequest:
			events <- ModelLoading{ModelID: r.modelID}
			err := c.rec.Load(r.ctx, r.modelID, func(p types.ModelDownloadProgress) {
				events <- ModelProgress{Progress: p}
			})
			if err != nil {
				events <- ModelFailed{ModelID: r.modelID, Err: err.Error()}
				continue
			}
			events <- ModelReady{ModelID: r.modelID}

		case transcribeRequest:
			events <- Transcribing{MediaID: r.mediaID, Message: "Transcribing audio..."}
			start := time.Now()
			res, err := c.rec.Transcribe(r.ctx, r.samples, r.language, func(pct float64) {
				events <- TranscribeProgress{MediaID: r.mediaID, Percent: pct}
			})
			ctxErr := r.ctx.Err()
			r.cancel()
			switch {
			case errors.Is(ctxErr, context.DeadlineExceeded):
				events <- Failed{MediaID: r.mediaID, Err: "transcription timed out"}
			case ctxErr != nil:
				events <- Failed{MediaID: r.mediaID, Err: "transcription cancelled"}
			case err != nil:
				events <- Failed{MediaID: r.mediaID, Err: err.Error()}
			default:
				events <- Completed{MediaID: r.mediaID, Result: res, Elapsed: time.Since(start)}
			}
		}
	}
}

func (c *Coordinator) loop(events <-chan Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		c.apply(ev)
	}
}

func (c *Coordinator) apply(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case ModelLoading:
		c.logf("[transcription] loading model %s", e.ModelID)

	case ModelProgress:
		c.updateDownloadLocked(e.Progress)

	case ModelReady:
		c.model = ModelStatus{State: Ready, ModelID: e.ModelID}
		c.logf("[transcription] model %s ready", e.ModelID)
		for _, id := range c.pending {
			if j := c.jobs[id]; j != nil && j.timer != nil {
				j.timer.Stop()
				j.timer = nil
			}
		}
		c.dispatchLocked()

	case ModelFailed:
		c.model = ModelStatus{State: Error, ModelID: e.ModelID, Err: e.Err}
		c.logf("[transcription] model %s failed: %s", e.ModelID, e.Err)
		for _, id := range c.pending {
			c.failQueuedLocked(id, "Model failed to load: "+e.Err)
		}
		c.pending = nil

	case Transcribing:
		p := c.progressLocked(e.MediaID)
		p.Status = types.StatusTranscribing
		p.Message = e.Message

	case TranscribeProgress:
		p := c.progressLocked(e.MediaID)
		p.Progress = clampPercent(e.Percent)

	case Completed:
		lang := ""
		if e.MediaID == c.active {
			lang = c.activeLang
		}
		e.Transcript = transcript.Build(e.MediaID, e.Result, lang, c.model.ModelID, c.now())
		ev = e
		c.transcripts[e.MediaID] = e.Transcript
		c.setProgressLocked(e.MediaID, types.StatusComplete, 100,
			fmt.Sprintf("Completed in %.2fs", e.Elapsed.Seconds()), "")
		c.logf("[transcription] %s: %d segments", e.MediaID, len(e.Transcript.Segments))
		c.finishLocked(e.MediaID)

	case Failed:
		msg := e.Err
		if m, ok := c.cancelled[e.MediaID]; ok {
			msg = m
			delete(c.cancelled, e.MediaID)
		}
		p := c.progressLocked(e.MediaID)
		c.setProgressLocked(e.MediaID, types.StatusError, p.Progress, msg, msg)
		c.logf("[transcription] %s failed: %s", e.MediaID, msg)
		c.finishLocked(e.MediaID)
	}

	for _, l := range c.listeners {
		select {
		case l <- ev:
		default:
		}
	}
}

func (c *Coordinator) finishLocked(mediaID string) {
	if c.active == mediaID {
		c.active = ""
		c.activeLang = ""
		c.cancel = nil
	}
	c.notifyLocked(mediaID)
	c.dispatchLocked()
}

// dispatchLocked hands the oldest queued job to the worker when the model is
// ready and nothing else is running.
func (c *Coordinator) dispatchLocked() {
	if c.closing || c.model.State != Ready || c.active != "" || len(c.pending) == 0 {
		return
	}
	id := c.pending[0]
	c.pending = c.pending[1:]
	j := c.jobs[id]
	delete(c.jobs, id)
	if j.timer != nil {
		j.timer.Stop()
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	c.active = id
	c.activeLang = j.language
	c.cancel = cancel
	c.reqs <- transcribeRequest{ctx: ctx, cancel: cancel, mediaID: id, samples: j.samples, language: j.language}
}

func (c *Coordinator) expire(j *job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobs[j.mediaID] != j || c.model.State == Ready {
		return
	}
	c.removePendingLocked(j.mediaID)
	c.failQueuedLocked(j.mediaID, "Model not ready")
}

func (c *Coordinator) removePendingLocked(mediaID string) {
	for i, id := range c.pending {
		if id == mediaID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// failQueuedLocked drops a job that never reached the worker.
func (c *Coordinator) failQueuedLocked(mediaID, msg string) {
	if j := c.jobs[mediaID]; j != nil && j.timer != nil {
		j.timer.Stop()
	}
	delete(c.jobs, mediaID)
	c.setProgressLocked(mediaID, types.StatusError, 0, msg, msg)
	c.notifyLocked(mediaID)
}

func (c *Coordinator) notifyLocked(mediaID string) {
	for _, ch := range c.waiters[mediaID] {
		close(ch)
	}
	delete(c.waiters, mediaID)
}

func (c *Coordinator) progressLocked(mediaID string) *types.TranscriptionProgress {
	p, ok := c.progress[mediaID]
	if !ok {
		p = &types.TranscriptionProgress{MediaID: mediaID, Status: types.StatusIdle}
		c.progress[mediaID] = p
	}
	return p
}

func (c *Coordinator) setProgressLocked(mediaID string, st types.TranscriptionStatus, pct float64, msg, errMsg string) {
	p := c.progressLocked(mediaID)
	p.Status = st
	p.Progress = clampPercent(pct)
	p.Message = msg
	p.Error = errMsg
}

func (c *Coordinator) updateDownloadLocked(p types.ModelDownloadProgress) {
	for i := range c.download {
		if c.download[i].File == p.File {
			c.download[i] = p
			return
		}
	}
	c.download = append(c.download, p)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
