package timeline

// Handle identifies one of the two trim handles.
type Handle int

const (
	HandleStart Handle = iota
	HandleEnd
)

func (h Handle) String() string {
	if h == HandleStart {
		return "start"
	}
	return "end"
}

// DragState is the lifecycle of a single handle gesture.
type DragState int

const (
	DragIdle DragState = iota
	DragDragging
	DragCommitting
)

// MinGapPixels is one second worth of pixels. Keeping the handles at least
// this far apart means they can never cross or collapse to an empty region.
func MinGapPixels(duration, width float64) float64 {
	if duration <= 0 {
		return 0
	}
	return 1 / duration * width
}

// SolveHandle returns the new pixel of handle h after a gesture that started
// at initial has moved by dx, given the opposite handle at other.
func SolveHandle(h Handle, initial, other, dx float64, tl Timeline) float64 {
	gap := MinGapPixels(tl.Duration, tl.Width)
	if h == HandleStart {
		return Clamp(initial+dx, 0, other-gap)
	}
	return Clamp(initial+dx, other+gap, tl.Width)
}

// Drag tracks one handle gesture. Begin snapshots the starting pixel, the
// opposite handle and the geometry; later moves only ever see that snapshot.
type Drag struct {
	state   DragState
	handle  Handle
	initial float64
	other   float64
	tl      Timeline
	last    float64
}

func (d *Drag) State() DragState { return d.state }

func (d *Drag) Handle() Handle { return d.handle }

// Timeline is the geometry captured by Begin. Pixels returned by Move are in
// this geometry even if the bar has since been resized.
func (d *Drag) Timeline() Timeline { return d.tl }

// Begin starts a gesture. It reports false when another gesture is active.
func (d *Drag) Begin(h Handle, current, other float64, tl Timeline) bool {
	if d.state != DragIdle {
		return false
	}
	d.state = DragDragging
	d.handle = h
	d.initial = current
	d.other = other
	d.tl = tl
	d.last = current
	return true
}

// Move applies the cumulative delta dx since Begin. Moves are ignored until
// the timeline has both a width and a duration.
func (d *Drag) Move(dx float64) (float64, bool) {
	if d.state != DragDragging || !d.tl.Ready() {
		return d.last, false
	}
	d.last = SolveHandle(d.handle, d.initial, d.other, dx, d.tl)
	return d.last, true
}

// End moves the gesture into the committing state and returns the final
// pixel. Finish returns the drag to idle once the commit is done.
func (d *Drag) End() (Handle, float64, bool) {
	if d.state != DragDragging {
		return d.handle, d.last, false
	}
	d.state = DragCommitting
	return d.handle, d.last, true
}

func (d *Drag) Finish() {
	*d = Drag{}
}
