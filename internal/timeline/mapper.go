// Package timeline maps between pixel offsets on a laid-out timeline and
// time offsets in seconds, and solves trim-handle drags under a minimum gap.
package timeline

// Timeline is the derived geometry of a scrub bar. A zero Width means the
// bar has not been laid out yet.
type Timeline struct {
	Duration float64
	Width    float64
}

// Ready reports whether both duration and width are known.
func (tl Timeline) Ready() bool {
	return tl.Duration > 0 && tl.Width > 0
}

func (tl Timeline) TimeToPixel(t float64) float64 {
	return TimeToPixel(t, tl.Duration, tl.Width)
}

func (tl Timeline) PixelToTime(px float64) float64 {
	return PixelToTime(px, tl.Duration, tl.Width)
}

// Clamp bounds v to [lo, hi]. When hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// TimeToPixel projects t onto a bar of the given width. It is 0 when the
// duration is not known.
func TimeToPixel(t, duration, width float64) float64 {
	if duration <= 0 {
		return 0
	}
	return Clamp(t, 0, duration) / duration * width
}

// PixelToTime is the inverse of TimeToPixel. It is 0 before layout.
func PixelToTime(px, duration, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return Clamp(px, 0, width) / width * duration
}

// ClampPixelToTrim keeps px inside the trim region. The check is done in the
// time domain, but a pixel inside the region is returned untouched and a
// pixel outside is snapped to the boundary's own pixel, so repeated round
// trips never accumulate rounding error.
func ClampPixelToTrim(px, trimStart, trimEnd, duration, width float64) float64 {
	t := PixelToTime(px, duration, width)
	switch {
	case t < trimStart:
		return TimeToPixel(trimStart, duration, width)
	case t > trimEnd:
		return TimeToPixel(trimEnd, duration, width)
	}
	return px
}
