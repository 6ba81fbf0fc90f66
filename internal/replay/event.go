// Package replay rebuilds editor content from a recorded log of text edits.
//
// Offsets in an Event are UTF-16 code units into the content as it stood
// immediately before the event, matching the editor that produced the log.
package replay

import (
	"errors"
	"fmt"
	"sort"
)

type EventType string

const (
	Insert  EventType = "insert"
	Delete  EventType = "delete"
	Replace EventType = "replace"
)

var (
	ErrOutOfRange  = errors.New("replay: offset out of range")
	ErrUnknownType = errors.New("replay: unknown event type")
)

// Event is one recorded edit. Timestamp is epoch milliseconds.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Text      string    `json:"text"`
	Removed   string    `json:"removed,omitempty"`
}

// Batch is the unit the event log is stored and fetched in.
type Batch struct {
	Events []Event `json:"events"`
}

// Elapsed returns the event's offset in seconds from origin.
func (e Event) Elapsed(origin int64) float64 {
	return float64(e.Timestamp-origin) / 1000
}

// Flatten concatenates batches and orders the result by timestamp. The sort
// is stable so events sharing a millisecond keep their recorded order.
func Flatten(batches []Batch) []Event {
	var n int
	for _, b := range batches {
		n += len(b.Events)
	}
	events := make([]Event, 0, n)
	for _, b := range batches {
		events = append(events, b.Events...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events
}

// Span is the length of the log in seconds, from the first to the last event.
func Span(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Elapsed(events[0].Timestamp)
}

func (e Event) apply(buf []uint16) ([]uint16, error) {
	n := len(buf)
	switch e.Type {
	case Insert:
		if e.From < 0 || e.From > n {
			return buf, fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, e.From, n)
		}
		return splice(buf, e.From, e.From, encode(e.Text)), nil
	case Delete, Replace:
		if e.From < 0 || e.To < e.From || e.To > n {
			return buf, fmt.Errorf("%w: %s [%d,%d), length %d", ErrOutOfRange, e.Type, e.From, e.To, n)
		}
		var text []uint16
		if e.Type == Replace {
			text = encode(e.Text)
		}
		return splice(buf, e.From, e.To, text), nil
	}
	return buf, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
}

func splice(buf []uint16, from, to int, text []uint16) []uint16 {
	out := make([]uint16, 0, len(buf)-(to-from)+len(text))
	out = append(out, buf[:from]...)
	out = append(out, text...)
	return append(out, buf[to:]...)
}
