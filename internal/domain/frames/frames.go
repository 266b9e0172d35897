// Package frames converts between seconds and frame numbers.
package frames

import (
	"fmt"
	"math"
	"time"
)

// DefaultFPS is the frame rate used for all derived frame fields,
// independent of the source media's own rate.
const DefaultFPS = 30

// ToFrame returns round(sec * fps).
func ToFrame(sec float64, fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int(math.Round(sec * float64(fps)))
}

func ToSeconds(frame, fps int) float64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return float64(frame) / float64(fps)
}

// Timecode formats sec as HH:MM:SS:FF (non drop-frame).
func Timecode(sec float64, fps int) string {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if sec < 0 {
		sec = 0
	}
	total := ToFrame(sec, fps)
	ff := total % fps
	s := total / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", s/3600, (s/60)%60, s%60, ff)
}

func Duration(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }

func Seconds(d time.Duration) float64 { return d.Seconds() }
