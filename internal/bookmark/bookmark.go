// Package bookmark keeps the labelled positions a user marks while
// reviewing a snippet.
package bookmark

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DuplicateWindow is how close, in seconds, two bookmarks may be before the
// later one is treated as a duplicate.
const DuplicateWindow = 0.1

var ErrDuplicate = errors.New("bookmark: already bookmarked near this position")

type Bookmark struct {
	ID        string
	Timestamp float64
	Label     string
	CreatedAt time.Time
}

// Generator produces bookmark IDs.
type Generator func() string

// UUIDv7 returns time-sortable RFC 9562 identifiers.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Set is an ordered collection of bookmarks with soft uniqueness.
type Set struct {
	items []Bookmark
	newID Generator
	now   func() time.Time
}

type Option func(*Set)

func WithIDGenerator(gen Generator) Option {
	return func(s *Set) { s.newID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

func NewSet(opts ...Option) *Set {
	s := &Set{newID: UUIDv7(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the contents of the set, for example with stored bookmarks.
func (s *Set) Load(items []Bookmark) {
	s.items = append([]Bookmark(nil), items...)
	s.sort()
}

// Add inserts a bookmark at timestamp. It returns ErrDuplicate and leaves
// the set unchanged when another bookmark lies within DuplicateWindow.
func (s *Set) Add(timestamp float64, label string) (Bookmark, error) {
	if b, ok := s.Nearest(timestamp); ok && math.Abs(b.Timestamp-timestamp) < DuplicateWindow {
		return b, ErrDuplicate
	}
	b := Bookmark{
		ID:        s.newID(),
		Timestamp: timestamp,
		Label:     label,
		CreatedAt: s.now(),
	}
	s.items = append(s.items, b)
	s.sort()
	return b, nil
}

func (s *Set) Remove(id string) bool {
	for i, b := range s.items {
		if b.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the bookmarks ordered by timestamp.
func (s *Set) List() []Bookmark {
	return append([]Bookmark(nil), s.items...)
}

func (s *Set) Len() int { return len(s.items) }

// Nearest returns the bookmark closest to t.
func (s *Set) Nearest(t float64) (Bookmark, bool) {
	if len(s.items) == 0 {
		return Bookmark{}, false
	}
	best := s.items[0]
	for _, b := range s.items[1:] {
		if math.Abs(b.Timestamp-t) < math.Abs(best.Timestamp-t) {
			best = b
		}
	}
	return best, true
}

// Next returns the first bookmark strictly after t.
func (s *Set) Next(t float64) (Bookmark, bool) {
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].Timestamp > t })
	if i == len(s.items) {
		return Bookmark{}, false
	}
	return s.items[i], true
}

func (s *Set) sort() {
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Timestamp < s.items[j].Timestamp
	})
}
