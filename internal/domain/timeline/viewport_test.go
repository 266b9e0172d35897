package timeline

import "testing"

func TestViewport_DeltaSeconds(t *testing.T) {
	tests := []struct {
		name  string
		vp    Viewport
		px    float64
		total float64
		want  float64
	}{
		{name: "linear default", vp: Viewport{TrackWidth: 1000}, px: 100, total: 50, want: 5},
		{name: "zoom 2 halves scale", vp: Viewport{TrackWidth: 1000, Zoom: 2}, px: 100, total: 50, want: 2.5},
		{name: "scroll ignored for deltas", vp: Viewport{TrackWidth: 1000, ScrollX: 300}, px: -100, total: 50, want: -5},
		{name: "empty track", vp: Viewport{}, px: 100, total: 50, want: 0},
		{name: "empty timeline", vp: Viewport{TrackWidth: 1000}, px: 100, total: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vp.DeltaSeconds(tt.px, tt.total); got != tt.want {
				t.Fatalf("DeltaSeconds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewport_TimeAt(t *testing.T) {
	vp := Viewport{TrackWidth: 1000, Zoom: 2, ScrollX: 500}
	if got := vp.TimeAt(500, 100); got != 50 {
		t.Fatalf("TimeAt = %v, want 50", got)
	}
	if got := vp.TimeAt(5000, 100); got != 100 {
		t.Fatalf("expected clamp to total, got %v", got)
	}
}
