package main

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aschmelyun/snipscrub/internal/bookmark"
	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/scrub"
	"github.com/aschmelyun/snipscrub/internal/store"
	"github.com/aschmelyun/snipscrub/internal/timeline"
)

type playerReadyMsg struct {
	player media.Player
	meta   media.Metadata
}

type bookmarksLoadedMsg struct {
	bookmarks []bookmark.Bookmark
}

type playerStatusMsg struct {
	status media.Status
}

type trimAppliedMsg struct {
	req scrub.TrimRequest
	res scrub.TrimResult
}

type insightsDoneMsg struct {
	summary string
}

type savedMsg struct {
	status string
}

type errorMsg struct {
	err error
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureScrub
	gestureHandle
)

// session is the mutable state shared by every copy of the model. loop is
// nil when the controller runs on another scheduler.
type session struct {
	ctrl    *scrub.Controller
	loop    *schedule.Loop
	player  media.Player
	queue   *media.Queue
	marks   *bookmark.Set
	pending []tea.Cmd
	closed  bool

	pane      string
	paneStale bool
	unwatch   func()
}

type model struct {
	app     *app
	snippet *store.Snippet
	apiKey  string
	s       *session

	spinner    spinner.Model
	loading    bool
	loadingMsg string
	list       list.Model
	help       help.Model
	keys       keyMap
	width      int
	quitting   bool
	errorMsg   string
	statuses   []string
	insights   string

	gesture     gestureKind
	dragHandle  timeline.Handle
	gestureFrom float64
}

type item struct {
	id        string
	title     string
	timestamp string
	seconds   float64
}

type itemDelegate struct{}
