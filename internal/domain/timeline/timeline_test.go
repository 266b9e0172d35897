package timeline

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/forPelevin/transcut/internal/types"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("clip-%d", n)
	}
}

func newTestTimeline(t *testing.T, media ...types.MediaItem) *Timeline {
	t.Helper()
	lib := NewLibrary()
	for _, m := range media {
		lib.Add(m)
	}
	return New(lib, WithIDFunc(seqIDs()), WithID("tl"))
}

func assertContiguous(t *testing.T, tl *Timeline) {
	t.Helper()
	clips := tl.Clips()
	pos := 0.0
	for i, c := range clips {
		if math.Abs(c.Start-pos) > 1e-9 {
			t.Fatalf("clip %d (%s) start = %v, want %v", i, c.ID, c.Start, pos)
		}
		if c.Duration <= 0 {
			t.Fatalf("clip %d has non-positive duration %v", i, c.Duration)
		}
		if math.Abs(c.TrimEnd-(c.Offset+c.Duration)) > 1e-9 {
			t.Fatalf("clip %d trimEnd %v != offset+duration %v", i, c.TrimEnd, c.Offset+c.Duration)
		}
		pos += c.Duration
	}
}

func TestAddClip_RangeOnEmptyTimeline(t *testing.T) {
	tl := newTestTimeline(t)
	c, err := tl.AddClip("m1", "intro.mp4", 10, 2, 8)
	if err != nil {
		t.Fatalf("add clip: %v", err)
	}
	if c.Start != 0 || c.Duration != 6 || c.Offset != 2 || c.TrimEnd != 8 {
		t.Fatalf("unexpected clip: %+v", c)
	}
	if c.StartFrame != 0 || c.DurationFrames != 180 || c.OffsetFrame != 60 || c.TrimEndFrame != 240 {
		t.Fatalf("unexpected frames: %+v", c)
	}
	if c.Speed != 1 || c.Reverse {
		t.Fatalf("unexpected playback defaults: speed=%v reverse=%v", c.Speed, c.Reverse)
	}
}

func TestAddClip_AppendsAtEnd(t *testing.T) {
	tl := newTestTimeline(t)
	if _, err := tl.AddWholeClip("m1", "a", 4); err != nil {
		t.Fatal(err)
	}
	c, err := tl.AddClip("m2", "b", 10, 1, 3.5)
	if err != nil {
		t.Fatal(err)
	}
	if c.Start != 4 || c.StartFrame != 120 {
		t.Fatalf("expected second clip at 4s, got %+v", c)
	}
	if tl.Duration() != 6.5 || tl.DurationFrames() != 195 {
		t.Fatalf("unexpected total: %v / %d", tl.Duration(), tl.DurationFrames())
	}
}

func TestAddClip_Clamping(t *testing.T) {
	tests := []struct {
		name      string
		mediaDur  float64
		in, out   float64
		wantOff   float64
		wantDur   float64
		wantError bool
	}{
		{name: "inverted range pinned to min", mediaDur: 10, in: 5, out: 4, wantOff: 5, wantDur: 0.5},
		{name: "zero range pinned to min", mediaDur: 10, in: 3, out: 3, wantOff: 3, wantDur: 0.5},
		{name: "out beyond media", mediaDur: 10, in: 2, out: 30, wantOff: 2, wantDur: 8},
		{name: "negative in", mediaDur: 10, in: -3, out: 4, wantOff: 0, wantDur: 4},
		{name: "in at media end", mediaDur: 10, in: 10, out: 10, wantOff: 9.5, wantDur: 0.5},
		{name: "media shorter than min", mediaDur: 0.3, in: 0, out: 0.3, wantOff: 0, wantDur: 0.3},
		{name: "zero media rejected", mediaDur: 0, wantError: true},
		{name: "nan media rejected", mediaDur: math.NaN(), wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestTimeline(t)
			c, err := tl.AddClip("m", "m", tt.mediaDur, tt.in, tt.out)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error")
				}
				if tl.Len() != 0 {
					t.Fatalf("rejected add must not mutate timeline")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(c.Offset-tt.wantOff) > 1e-9 || math.Abs(c.Duration-tt.wantDur) > 1e-9 {
				t.Fatalf("got offset=%v duration=%v, want %v/%v", c.Offset, c.Duration, tt.wantOff, tt.wantDur)
			}
		})
	}
}

func TestRemoveClip_ReflowsAndClearsSelection(t *testing.T) {
	tl := newTestTimeline(t)
	a, _ := tl.AddWholeClip("m", "a", 2)
	b, _ := tl.AddWholeClip("m", "b", 3)
	c, _ := tl.AddWholeClip("m", "c", 4)
	tl.Select(b.ID)

	if !tl.RemoveClip(b.ID) {
		t.Fatalf("expected remove to succeed")
	}
	if tl.Selected() != "" {
		t.Fatalf("expected selection cleared, got %q", tl.Selected())
	}
	got, _ := tl.Clip(c.ID)
	if got.Start != 2 || got.StartFrame != 60 {
		t.Fatalf("expected c to move to 2s, got %+v", got)
	}
	tl.Select(a.ID)
	tl.RemoveClip(c.ID)
	if tl.Selected() != a.ID {
		t.Fatalf("removing another clip must keep selection")
	}
	if tl.RemoveClip("nope") {
		t.Fatalf("unknown id must be a no-op")
	}
	assertContiguous(t, tl)
}

func TestReorderClip(t *testing.T) {
	tests := []struct {
		name     string
		move     int
		newIndex int
		want     []string
	}{
		{name: "first to last", move: 0, newIndex: 2, want: []string{"clip-2", "clip-3", "clip-1"}},
		{name: "last to first", move: 2, newIndex: 0, want: []string{"clip-3", "clip-1", "clip-2"}},
		{name: "same index", move: 1, newIndex: 1, want: []string{"clip-1", "clip-2", "clip-3"}},
		{name: "clamped high", move: 0, newIndex: 99, want: []string{"clip-2", "clip-3", "clip-1"}},
		{name: "clamped low", move: 2, newIndex: -5, want: []string{"clip-3", "clip-1", "clip-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestTimeline(t)
			tl.AddWholeClip("m", "a", 1)
			tl.AddWholeClip("m", "b", 2)
			tl.AddWholeClip("m", "c", 3)
			id := tl.Clips()[tt.move].ID
			if !tl.ReorderClip(id, tt.newIndex) {
				t.Fatalf("reorder failed")
			}
			clips := tl.Clips()
			for i, w := range tt.want {
				if clips[i].ID != w {
					t.Fatalf("position %d = %s, want %s", i, clips[i].ID, w)
				}
			}
			assertContiguous(t, tl)
		})
	}
}

func TestTrimLeft_PinsMinimumDuration(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 10})
	c, _ := tl.AddClip("m", "m", 10, 2, 8)

	if !tl.TrimLeft(c.ID, 5.8) {
		t.Fatalf("trim left failed")
	}
	got, _ := tl.Clip(c.ID)
	if got.Duration != MinClipDuration {
		t.Fatalf("expected duration pinned at %v, got %v", MinClipDuration, got.Duration)
	}
	if got.Offset != 7.5 || got.TrimEnd != 8 {
		t.Fatalf("expected offset 7.5 / trimEnd 8, got %v / %v", got.Offset, got.TrimEnd)
	}
}

func TestTrimLeft_ClampsToMediaStart(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 10})
	c, _ := tl.AddClip("m", "m", 10, 2, 8)

	tl.TrimLeft(c.ID, -5)
	got, _ := tl.Clip(c.ID)
	if got.Offset != 0 || got.Duration != 8 || got.TrimEnd != 8 {
		t.Fatalf("unexpected clip after left extend: %+v", got)
	}
}

func TestTrimLeft_ShortMedia(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 0.3})
	c, err := tl.AddClip("m", "m", 0.3, 0, 0.3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	for _, delta := range []float64{0, 0.2, -1} {
		if !tl.TrimLeft(c.ID, delta) {
			t.Fatalf("trim left %v failed", delta)
		}
		got, _ := tl.Clip(c.ID)
		if got.Offset != 0 || got.Duration != 0.3 || got.TrimEnd != 0.3 {
			t.Fatalf("delta %v: expected the whole 0.3s media, got offset=%v duration=%v trimEnd=%v",
				delta, got.Offset, got.Duration, got.TrimEnd)
		}
	}

	tl.TrimRight(c.ID, -1)
	got, _ := tl.Clip(c.ID)
	if got.Offset != 0 || got.Duration != 0.3 {
		t.Fatalf("expected right trim to keep the whole media, got %+v", got)
	}
}

func TestTrim_RejectsNonFinite(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 10})
	c, _ := tl.AddClip("m", "m", 10, 2, 8)

	nan, inf := math.NaN(), math.Inf(1)
	if tl.TrimClip(c.ID, nan, 3) || tl.TrimClip(c.ID, 1, inf) {
		t.Fatalf("TrimClip accepted a non-finite value")
	}
	if tl.TrimLeft(c.ID, nan) || tl.TrimRight(c.ID, math.Inf(-1)) {
		t.Fatalf("edge trims accepted a non-finite delta")
	}
	got, _ := tl.Clip(c.ID)
	if got.Offset != 2 || got.Duration != 6 {
		t.Fatalf("clip changed by rejected trims: %+v", got)
	}

	for _, r := range [][2]float64{{nan, 5}, {0, nan}, {inf, 5}} {
		if _, err := tl.AddClip("m", "m", 10, r[0], r[1]); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("AddClip(%v, %v): expected ErrInvalidRange, got %v", r[0], r[1], err)
		}
	}
	if tl.Len() != 1 {
		t.Fatalf("rejected adds must not append, len=%d", tl.Len())
	}
}

func TestTrimRight_ClampsToMedia(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 10})
	c, _ := tl.AddClip("m", "m", 10, 2, 8)
	next, _ := tl.AddWholeClip("m", "m", 10)

	tl.TrimRight(c.ID, 10)
	got, _ := tl.Clip(c.ID)
	if got.Duration != 8 || got.TrimEnd != 10 {
		t.Fatalf("expected duration clamped to media-offset, got %+v", got)
	}
	n, _ := tl.Clip(next.ID)
	if n.Start != 8 {
		t.Fatalf("expected next clip reflowed to 8s, got %v", n.Start)
	}

	tl.TrimRight(c.ID, -20)
	got, _ = tl.Clip(c.ID)
	if got.Duration != MinClipDuration {
		t.Fatalf("expected duration floor, got %v", got.Duration)
	}
	assertContiguous(t, tl)
}

func TestTrim_MissingMediaIsNoop(t *testing.T) {
	tl := newTestTimeline(t)
	c, _ := tl.AddClip("gone", "gone", 10, 0, 5)
	if tl.TrimLeft(c.ID, 1) || tl.TrimRight(c.ID, 1) {
		t.Fatalf("edge trims need the media item")
	}
	if _, ok := tl.Resolve(c); ok {
		t.Fatalf("expected missing media")
	}
}

func TestTrimClip_ClampsAndLeavesOthers(t *testing.T) {
	tl := newTestTimeline(t, types.MediaItem{ID: "m", Name: "m", Duration: 10})
	a, _ := tl.AddClip("m", "m", 10, 0, 4)
	b, _ := tl.AddClip("m", "m", 10, 1, 3)

	if !tl.TrimClip(a.ID, 3, 100) {
		t.Fatalf("trim failed")
	}
	gotA, _ := tl.Clip(a.ID)
	if gotA.Offset != 3 || gotA.Duration != 7 || gotA.TrimEnd != 10 {
		t.Fatalf("unexpected a: %+v", gotA)
	}
	gotB, _ := tl.Clip(b.ID)
	if gotB.Offset != 1 || gotB.Duration != 2 || gotB.Start != 7 {
		t.Fatalf("unexpected b: %+v", gotB)
	}

	tl.TrimClip(a.ID, -1, 0)
	gotA, _ = tl.Clip(a.ID)
	if gotA.Offset != 0 || gotA.Duration != MinClipDuration {
		t.Fatalf("expected lower clamps, got %+v", gotA)
	}
}

func TestClearAndSelect(t *testing.T) {
	tl := newTestTimeline(t)
	c, _ := tl.AddWholeClip("m", "a", 2)
	tl.Select(c.ID)
	if tl.Selected() != c.ID {
		t.Fatalf("select failed")
	}
	tl.Clear()
	if tl.Len() != 0 || tl.Selected() != "" || tl.Duration() != 0 {
		t.Fatalf("clear left state behind")
	}
}

func TestRestore_RecomputesDerivedFields(t *testing.T) {
	tl := newTestTimeline(t)
	tl.Restore(types.TimelineSnapshot{
		ID: "persisted",
		Clips: []types.Clip{
			{ID: "x", MediaID: "m", Start: 42, StartFrame: 999, Offset: 1, Duration: 2, DurationFrames: 7, TrimEnd: 55},
			{ID: "y", MediaID: "m", Start: 0, Offset: 0, Duration: 1.5},
		},
		SelectedClipID: "missing",
	})
	clips := tl.Clips()
	if clips[0].Start != 0 || clips[0].StartFrame != 0 || clips[0].DurationFrames != 60 || clips[0].TrimEnd != 3 {
		t.Fatalf("first clip not recomputed: %+v", clips[0])
	}
	if clips[1].Start != 2 || clips[1].StartFrame != 60 || clips[1].Speed != 1 {
		t.Fatalf("second clip not recomputed: %+v", clips[1])
	}
	if tl.ID() != "persisted" || tl.Selected() != "" {
		t.Fatalf("unexpected id/selection: %s %q", tl.ID(), tl.Selected())
	}
}

func TestContiguityUnderRandomEdits(t *testing.T) {
	media := types.MediaItem{ID: "m", Name: "m", Duration: 20}
	tl := newTestTimeline(t, media)
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 500; step++ {
		clips := tl.Clips()
		pick := func() string {
			if len(clips) == 0 {
				return "none"
			}
			return clips[rng.Intn(len(clips))].ID
		}
		switch rng.Intn(6) {
		case 0, 1:
			in := rng.Float64() * 20
			out := rng.Float64() * 20
			if _, err := tl.AddClip("m", "m", media.Duration, in, out); err != nil {
				t.Fatalf("step %d add: %v", step, err)
			}
		case 2:
			tl.RemoveClip(pick())
		case 3:
			tl.ReorderClip(pick(), rng.Intn(len(clips)+3)-1)
		case 4:
			tl.TrimClip(pick(), rng.Float64()*25-2, rng.Float64()*25-2)
		case 5:
			if rng.Intn(2) == 0 {
				tl.TrimLeft(pick(), rng.Float64()*10-5)
			} else {
				tl.TrimRight(pick(), rng.Float64()*10-5)
			}
		}
		assertContiguous(t, tl)
		for _, c := range tl.Clips() {
			if c.Offset < 0 || c.TrimEnd > media.Duration+1e-9 {
				t.Fatalf("step %d: clip outside media bounds: %+v", step, c)
			}
		}
	}
}
