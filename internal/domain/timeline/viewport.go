package timeline

// Viewport maps track pixels to timeline seconds for interactive trimming.
// With Zoom 1 and no scroll the whole timeline spans TrackWidth pixels.
type Viewport struct {
	TrackWidth float64
	Zoom       float64
	ScrollX    float64
}

// SecondsPerPixel returns the time covered by one pixel, or 0 when the
// viewport or the timeline is empty.
func (v Viewport) SecondsPerPixel(totalDuration float64) float64 {
	if v.TrackWidth <= 0 || totalDuration <= 0 {
		return 0
	}
	z := v.Zoom
	if z <= 0 {
		z = 1
	}
	return totalDuration / (v.TrackWidth * z)
}

// DeltaSeconds converts a drag distance to a time delta. Scroll does not
// affect relative movement.
func (v Viewport) DeltaSeconds(deltaPixels, totalDuration float64) float64 {
	return deltaPixels * v.SecondsPerPixel(totalDuration)
}

// TimeAt converts a pixel position within the visible track to a timeline time.
func (v Viewport) TimeAt(x, totalDuration float64) float64 {
	t := (x + v.ScrollX) * v.SecondsPerPixel(totalDuration)
	if t < 0 {
		return 0
	}
	if t > totalDuration {
		return totalDuration
	}
	return t
}
