package playhead

// Cell is an observable float. Renderers subscribe to it instead of reading
// animation internals; Get always returns the latest value, including in the
// middle of a gesture.
type Cell struct {
	v    float64
	next int
	subs map[int]func(float64)
}

func NewCell(v float64) *Cell {
	return &Cell{v: v, subs: make(map[int]func(float64))}
}

func (c *Cell) Get() float64 { return c.v }

// Set stores v and notifies subscribers when it changed.
func (c *Cell) Set(v float64) {
	if v == c.v {
		return
	}
	c.v = v
	for _, fn := range c.subs {
		fn(v)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (c *Cell) Subscribe(fn func(float64)) (unsubscribe func()) {
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}
