// Package timeline holds the ordered clip sequence and all position/trim
// arithmetic. Clips are always contiguous: after every mutation the start of
// clip i equals the summed durations of clips 0..i-1.
package timeline

import (
	"errors"
	"math"

	"github.com/forPelevin/transcut/internal/domain/frames"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/google/uuid"
)

// MinClipDuration is the shortest clip the model will produce, in seconds.
const MinClipDuration = 0.5

var (
	ErrInvalidMedia = errors.New("timeline: media duration must be > 0")
	ErrInvalidRange = errors.New("timeline: clip bounds must be finite")
)

// MediaLookup resolves a media id to its item. Clips reference media weakly,
// so a lookup may fail.
type MediaLookup interface {
	Get(id string) (types.MediaItem, bool)
}

type Timeline struct {
	id       string
	media    MediaLookup
	clips    []types.Clip
	selected string
	newID    func() string
}

type Option func(*Timeline)

// WithIDFunc overrides clip id generation.
func WithIDFunc(fn func() string) Option {
	return func(t *Timeline) { t.newID = fn }
}

func WithID(id string) Option {
	return func(t *Timeline) { t.id = id }
}

// New returns an empty timeline. media may be nil, in which case trims are
// only clamped against the minimum clip length.
func New(media MediaLookup, opts ...Option) *Timeline {
	t := &Timeline{media: media, newID: uuid.NewString}
	for _, o := range opts {
		o(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	return t
}

func (t *Timeline) ID() string { return t.id }

// AddClip appends a clip covering [inPoint, outPoint] of the source media at
// the current end of the timeline. Bounds are clamped to the media and to
// MinClipDuration; a non-positive span is pinned to the minimum length.
func (t *Timeline) AddClip(mediaID, mediaName string, mediaDuration, inPoint, outPoint float64) (types.Clip, error) {
	if mediaDuration <= 0 || !finite(mediaDuration) {
		return types.Clip{}, ErrInvalidMedia
	}
	if !finite(inPoint, outPoint) {
		return types.Clip{}, ErrInvalidRange
	}
	minDur := math.Min(MinClipDuration, mediaDuration)

	in := clamp(inPoint, 0, mediaDuration-minDur)
	out := clamp(outPoint, in+minDur, mediaDuration)

	c := types.Clip{
		ID:      t.newID(),
		MediaID: mediaID,
		Name:    mediaName,
		Start:   t.Duration(),
		Speed:   1,
		Effects: []types.Effect{},
	}
	setTrim(&c, in, out-in)
	t.clips = append(t.clips, c)
	t.reflow()
	return t.clips[len(t.clips)-1], nil
}

// AddWholeClip appends the full source media.
func (t *Timeline) AddWholeClip(mediaID, mediaName string, mediaDuration float64) (types.Clip, error) {
	return t.AddClip(mediaID, mediaName, mediaDuration, 0, mediaDuration)
}

// AddMediaRange appends [inPoint, outPoint] of a media item from the arena.
func (t *Timeline) AddMediaRange(m types.MediaItem, inPoint, outPoint float64) (types.Clip, error) {
	return t.AddClip(m.ID, m.Name, m.Duration, inPoint, outPoint)
}

// RemoveClip deletes a clip and clears the selection if it pointed at it.
func (t *Timeline) RemoveClip(clipID string) bool {
	i := t.Index(clipID)
	if i < 0 {
		return false
	}
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	if t.selected == clipID {
		t.selected = ""
	}
	t.reflow()
	return true
}

// ReorderClip moves a clip to newIndex. Out-of-range indices are clamped to
// [0, len-1].
func (t *Timeline) ReorderClip(clipID string, newIndex int) bool {
	i := t.Index(clipID)
	if i < 0 {
		return false
	}
	c := t.clips[i]
	t.clips = append(t.clips[:i], t.clips[i+1:]...)

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(t.clips) {
		newIndex = len(t.clips)
	}
	t.clips = append(t.clips, types.Clip{})
	copy(t.clips[newIndex+1:], t.clips[newIndex:])
	t.clips[newIndex] = c
	t.reflow()
	return true
}

// TrimClip overwrites a clip's source in-point and duration. Values are
// clamped: offset into [0, media-min], duration into [min, media-offset].
// Without a resolvable media item only the lower bounds apply. Non-finite
// values are rejected.
func (t *Timeline) TrimClip(clipID string, newOffset, newDuration float64) bool {
	i := t.Index(clipID)
	if i < 0 || !finite(newOffset, newDuration) {
		return false
	}
	c := &t.clips[i]
	if m, ok := t.lookup(c.MediaID); ok {
		minDur := math.Min(MinClipDuration, m.Duration)
		newOffset = clamp(newOffset, 0, m.Duration-minDur)
		newDuration = clamp(newDuration, minDur, m.Duration-newOffset)
	} else {
		newOffset = math.Max(0, newOffset)
		newDuration = math.Max(MinClipDuration, newDuration)
	}
	setTrim(c, newOffset, newDuration)
	t.reflow()
	return true
}

// TrimLeft moves the clip's in-point by delta seconds, keeping its out-point.
// The in-point stays within [0, media-min]; if the remaining duration would
// drop below the minimum the in-point is pulled back so the duration is
// exactly MinClipDuration, or the whole media when it is shorter than that.
func (t *Timeline) TrimLeft(clipID string, delta float64) bool {
	i := t.Index(clipID)
	if i < 0 || !finite(delta) {
		return false
	}
	c := &t.clips[i]
	m, ok := t.lookup(c.MediaID)
	if !ok {
		return false
	}
	origOffset, origDur := c.Offset, c.Duration
	minDur := math.Min(MinClipDuration, m.Duration)

	off := clamp(origOffset+delta, 0, m.Duration-minDur)
	d := origDur - (off - origOffset)
	if d < minDur {
		off = math.Max(0, origOffset+origDur-minDur)
		d = minDur
	}
	setTrim(c, off, d)
	t.reflow()
	return true
}

// TrimRight changes the clip's duration by delta seconds, keeping its
// in-point. The duration stays within [min, media-offset].
func (t *Timeline) TrimRight(clipID string, delta float64) bool {
	i := t.Index(clipID)
	if i < 0 || !finite(delta) {
		return false
	}
	c := &t.clips[i]
	m, ok := t.lookup(c.MediaID)
	if !ok {
		return false
	}
	d := math.Max(math.Min(MinClipDuration, m.Duration), c.Duration+delta)
	d = math.Min(d, m.Duration-c.Offset)
	setTrim(c, c.Offset, d)
	t.reflow()
	return true
}

func (t *Timeline) Clear() {
	t.clips = nil
	t.selected = ""
}

// Select sets UI focus. An empty id clears it.
func (t *Timeline) Select(clipID string) {
	t.selected = clipID
}

func (t *Timeline) Selected() string { return t.selected }

func (t *Timeline) Len() int { return len(t.clips) }

// Clips returns a copy of the ordered clip list.
func (t *Timeline) Clips() []types.Clip {
	out := make([]types.Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

func (t *Timeline) Clip(clipID string) (types.Clip, bool) {
	i := t.Index(clipID)
	if i < 0 {
		return types.Clip{}, false
	}
	return t.clips[i], true
}

func (t *Timeline) Index(clipID string) int {
	for i := range t.clips {
		if t.clips[i].ID == clipID {
			return i
		}
	}
	return -1
}

// Duration is the total playback length in seconds.
func (t *Timeline) Duration() float64 {
	if len(t.clips) == 0 {
		return 0
	}
	return t.clips[len(t.clips)-1].End()
}

func (t *Timeline) DurationFrames() int {
	return frames.ToFrame(t.Duration(), frames.DefaultFPS)
}

// Resolve looks up the media item behind a clip. ok is false when the item
// was removed from the arena; callers render such clips as missing.
func (t *Timeline) Resolve(c types.Clip) (types.MediaItem, bool) {
	return t.lookup(c.MediaID)
}

// Snapshot returns the contiguous clip sequence for persistence or rendering.
func (t *Timeline) Snapshot() types.TimelineSnapshot {
	return types.TimelineSnapshot{
		ID:             t.id,
		Duration:       t.Duration(),
		DurationFrames: t.DurationFrames(),
		Clips:          t.Clips(),
		SelectedClipID: t.selected,
	}
}

// Restore replaces the timeline with a persisted snapshot. Seconds are
// authoritative: trim ends, frame numbers and start positions are recomputed.
func (t *Timeline) Restore(s types.TimelineSnapshot) {
	if s.ID != "" {
		t.id = s.ID
	}
	t.clips = make([]types.Clip, 0, len(s.Clips))
	for _, c := range s.Clips {
		if c.Duration <= 0 {
			c.Duration = MinClipDuration
		}
		if c.Offset < 0 {
			c.Offset = 0
		}
		if c.Speed == 0 {
			c.Speed = 1
		}
		if c.Effects == nil {
			c.Effects = []types.Effect{}
		}
		setTrim(&c, c.Offset, c.Duration)
		t.clips = append(t.clips, c)
	}
	t.selected = ""
	if t.Index(s.SelectedClipID) >= 0 {
		t.selected = s.SelectedClipID
	}
	t.reflow()
}

func (t *Timeline) lookup(mediaID string) (types.MediaItem, bool) {
	if t.media == nil {
		return types.MediaItem{}, false
	}
	return t.media.Get(mediaID)
}

// reflow recomputes every start position from the ordered durations.
func (t *Timeline) reflow() {
	pos := 0.0
	for i := range t.clips {
		t.clips[i].Start = pos
		t.clips[i].StartFrame = frames.ToFrame(pos, frames.DefaultFPS)
		pos += t.clips[i].Duration
	}
}

func setTrim(c *types.Clip, offset, duration float64) {
	c.Offset = offset
	c.OffsetFrame = frames.ToFrame(offset, frames.DefaultFPS)
	c.Duration = duration
	c.DurationFrames = frames.ToFrame(duration, frames.DefaultFPS)
	c.TrimEnd = offset + duration
	c.TrimEndFrame = frames.ToFrame(c.TrimEnd, frames.DefaultFPS)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
