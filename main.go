package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aschmelyun/snipscrub/internal/bookmark"
	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/scrub"
	"github.com/aschmelyun/snipscrub/internal/store"
	"github.com/aschmelyun/snipscrub/internal/timeline"
	"github.com/aschmelyun/snipscrub/internal/trim"
)

const VERSION = "1.0.0"

// timelineRow is the screen row the bar is drawn on: title, playhead, bar.
const timelineRow = 2

const maxStatuses = 4

func (i item) FilterValue() string { return i.title }

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(item)
	if !ok {
		return
	}

	timestampLine := TimestampStyle.Render(i.timestamp)
	str := "◆ " + i.title

	fn := ItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return SelectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprintf(w, "%s\n%s\n", timestampLine, fn(str))
}

// openSession builds the controller for sn. Player commands go through the
// session's queue once the player is up; until then the controller only
// moves its own cursor.
func (a *app) openSession(ctx context.Context, sched schedule.Scheduler, sn *store.Snippet) (*session, error) {
	s := &session{marks: bookmark.NewSet()}
	cb := scrub.Callbacks{
		OnSeek: func(t float64, exact bool) {
			switch {
			case s.queue == nil:
			case exact:
				s.queue.SeekExact(t)
			default:
				s.queue.Seek(t)
			}
		},
		OnPlayPause: func(playing bool) {
			if s.queue == nil {
				return
			}
			if playing {
				s.queue.Play()
			} else {
				s.queue.Pause()
			}
		},
		OnTrimChange: func(trim.Region) { s.paneStale = true },
		OnTrimDragEnd: func(_ timeline.Handle, r trim.Region) {
			s.pending = append(s.pending, saveTrimCmd(a.store, sn.ID, r))
		},
	}
	ctrl, err := a.loadController(ctx, sched, sn,
		scrub.WithCallbacks(cb),
		scrub.WithTickInterval(time.Second/time.Duration(a.cfg.TickHz)),
	)
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	s.paneStale = true
	s.unwatch = ctrl.WatchCursor(func(float64) { s.paneStale = true })
	return s, nil
}

// shutdown stops the controller before the player so no command is queued
// against a closed player. It is safe to call more than once.
func (s *session) shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.unwatch()
	s.ctrl.Dispose()
	if s.queue != nil {
		s.queue.Close()
	}
	if s.player != nil {
		s.player.Close()
	}
}

// codePane returns the code as it stood at the cursor. It is rebuilt only
// after the cursor, the trim or the log changed.
func (s *session) codePane() string {
	if s.paneStale {
		s.pane = s.ctrl.Content()
		s.paneStale = false
	}
	return s.pane
}

func (s *session) drain() tea.Cmd {
	if len(s.pending) == 0 {
		return nil
	}
	cmds := s.pending
	s.pending = nil
	return tea.Batch(cmds...)
}

func newModel(a *app, sn *store.Snippet, s *session, apiKey string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	l := list.New(nil, itemDelegate{}, 64, 8)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)

	m := model{
		app:     a,
		snippet: sn,
		apiKey:  apiKey,
		s:       s,
		spinner: sp,
		list:    l,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	if sn.Kind == store.KindVideo {
		m.loading = true
		m.loadingMsg = "Starting preview with mpv..."
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{loadBookmarksCmd(m.app.store, m.snippet.ID)}
	if m.snippet.Kind == store.KindVideo {
		cmds = append(cmds, m.spinner.Tick, startPlayerCmd(m.app, m.snippet.URI))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := m.s
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.list.SetWidth(msg.Width)
		s.ctrl.OnLayoutWidthChanged(float64(m.barCols() - 1))
		return m, nil

	case tea.MouseMsg:
		m = m.handleMouse(msg)
		return m, s.drain()

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		return m, tea.Batch(cmd, s.drain())

	case schedule.Fired:
		if s.loop != nil {
			s.loop.Dispatch(msg)
		}
		return m, s.drain()

	case playerReadyMsg:
		if s.closed {
			msg.player.Close()
			return m, nil
		}
		m.loading = false
		var cmd tea.Cmd
		if s.player == nil {
			s.player = msg.player
			s.queue = media.NewQueue(msg.player, m.app.logger)
			cmd = waitForStatusCmd(msg.player.Status())
		}
		// mpv's idea of the length can differ from ffprobe's by a frame or
		// two, which re-initializes the region.
		r := s.ctrl.Trim()
		if d := msg.meta.Duration; d > 0 && d != s.ctrl.Duration() {
			s.ctrl.SetDuration(d)
			s.ctrl.SetTrim(r.Start, min(r.End, d))
		}
		s.queue.SeekExact(s.ctrl.CurrentTime())
		m.addStatus("Preview ready.")
		return m, tea.Batch(cmd, s.drain())

	case playerStatusMsg:
		s.ctrl.MergePlayerStatus(msg.status)
		if s.player == nil || s.closed {
			return m, s.drain()
		}
		return m, tea.Batch(waitForStatusCmd(s.player.Status()), s.drain())

	case bookmarksLoadedMsg:
		s.marks.Load(msg.bookmarks)
		m.refreshBookmarks()
		return m, nil

	case trimAppliedMsg:
		m.loading = false
		if err := s.ctrl.CommitTrim(msg.req, msg.res); err != nil {
			m.setError(err)
			return m, s.drain()
		}
		if msg.res.URI != "" {
			m.snippet.URI = msg.res.URI
		}
		m.snippet.Duration = msg.res.Duration
		m.snippet.TrimStart, m.snippet.TrimEnd = 0, msg.res.Duration
		s.paneStale = true
		m.addStatus(SuccessStyle.Render("Trim applied."))
		// The store rebased the bookmarks with the trim.
		cmds := []tea.Cmd{loadBookmarksCmd(m.app.store, m.snippet.ID)}
		if msg.res.URI != "" && s.player != nil {
			m.loading = true
			m.loadingMsg = "Reloading preview..."
			cmds = append(cmds, m.spinner.Tick, reloadPlayerCmd(s.player, msg.res.URI))
		}
		return m, tea.Batch(append(cmds, s.drain())...)

	case insightsDoneMsg:
		m.loading = false
		m.insights = msg.summary
		m.addStatus("Insights generated.")
		return m, nil

	case savedMsg:
		m.addStatus(msg.status)
		return m, nil

	case errorMsg:
		m.loading = false
		m.setError(msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleMouse routes a press on the bar either to a handle drag or to a
// scrub, then follows that gesture until the button is released.
func (m model) handleMouse(msg tea.MouseMsg) model {
	ctrl := m.s.ctrl
	x := float64(msg.X - timelineLeft)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || msg.Y != timelineRow || m.gesture != gestureNone {
			return m
		}
		if h, ok := ctrl.HandleAt(x); ok && ctrl.OnTrimHandleStart(h) {
			m.gesture = gestureHandle
			m.dragHandle = h
			m.gestureFrom = x
		} else if ctrl.OnGestureStart(x) {
			m.gesture = gestureScrub
		}
	case tea.MouseActionMotion:
		switch m.gesture {
		case gestureHandle:
			ctrl.OnTrimHandleMove(m.dragHandle, x-m.gestureFrom)
		case gestureScrub:
			ctrl.OnGestureMove(x)
		}
	case tea.MouseActionRelease:
		switch m.gesture {
		case gestureHandle:
			ctrl.OnTrimHandleMove(m.dragHandle, x-m.gestureFrom)
			ctrl.OnTrimHandleEnd(m.dragHandle)
		case gestureScrub:
			ctrl.OnGestureEnd(x)
		}
		m.gesture = gestureNone
	}
	return m
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	s := m.s
	ctrl := s.ctrl
	st := m.app.store
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		s.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.PlayPause):
		ctrl.OnPlayPauseToggle()

	case key.Matches(msg, m.keys.Back):
		ctrl.SeekTo(ctrl.CurrentTime() - seekStep)

	case key.Matches(msg, m.keys.Forward):
		ctrl.SeekTo(ctrl.CurrentTime() + seekStep)

	case key.Matches(msg, m.keys.StartEarlier, m.keys.StartLater, m.keys.EndEarlier, m.keys.EndLater):
		before := ctrl.Trim()
		switch {
		case key.Matches(msg, m.keys.StartEarlier):
			ctrl.NudgeHandle(timeline.HandleStart, -nudgeStep)
		case key.Matches(msg, m.keys.StartLater):
			ctrl.NudgeHandle(timeline.HandleStart, nudgeStep)
		case key.Matches(msg, m.keys.EndEarlier):
			ctrl.NudgeHandle(timeline.HandleEnd, -nudgeStep)
		default:
			ctrl.NudgeHandle(timeline.HandleEnd, nudgeStep)
		}
		if r := ctrl.Trim(); r != before {
			return m, saveTrimCmd(st, m.snippet.ID, r)
		}

	case key.Matches(msg, m.keys.Reset):
		before := ctrl.Trim()
		ctrl.ResetTrim()
		if r := ctrl.Trim(); r != before {
			return m, saveTrimCmd(st, m.snippet.ID, r)
		}

	case key.Matches(msg, m.keys.Apply):
		if m.loading {
			return m, nil
		}
		req, err := ctrl.PrepareTrim()
		if errors.Is(err, scrub.ErrNothingToTrim) {
			m.addStatus("Nothing to trim, move a handle first.")
			return m, nil
		}
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.loading = true
		m.loadingMsg = "Trimming..."
		if req.Transcoder != nil {
			m.loadingMsg = "Trimming video with ffmpeg..."
		}
		return m, tea.Batch(m.spinner.Tick, applyTrimCmd(m.app, m.snippet, req))

	case key.Matches(msg, m.keys.Insights):
		if m.loading {
			return m, nil
		}
		if m.apiKey == "" {
			m.setError(errors.New("no OpenAI API key, run 'snipscrub insights " + m.snippet.ID + "' once to store one"))
			return m, nil
		}
		m.loading = true
		m.loadingMsg = "Generating insights..."
		p := buildPayload(m.snippet, ctrl, s.marks.List())
		return m, tea.Batch(m.spinner.Tick, insightsCmd(m.app, m.apiKey, p))

	case key.Matches(msg, m.keys.Bookmark):
		b, err := s.marks.Add(ctrl.CurrentTime(), "")
		if errors.Is(err, bookmark.ErrDuplicate) {
			m.addStatus("Already bookmarked near " + formatClock(b.Timestamp) + ".")
			return m, nil
		}
		m.refreshBookmarks()
		return m, saveBookmarkCmd(st, m.snippet.ID, b)

	case key.Matches(msg, m.keys.Jump):
		if i, ok := m.list.SelectedItem().(item); ok {
			ctrl.SeekTo(i.seconds)
		}

	case key.Matches(msg, m.keys.NextBookmark):
		b, ok := s.marks.Next(ctrl.CurrentTime())
		if !ok {
			m.addStatus("No bookmark after " + formatClock(ctrl.CurrentTime()) + ".")
			return m, nil
		}
		ctrl.SeekTo(b.Timestamp)
		m.selectBookmark(b.ID)

	case key.Matches(msg, m.keys.DeleteBookmark):
		if i, ok := m.list.SelectedItem().(item); ok && s.marks.Remove(i.id) {
			m.refreshBookmarks()
			return m, deleteBookmarkCmd(st, i.id)
		}

	case msg.String() == "up" || msg.String() == "k":
		m.list.CursorUp()

	case msg.String() == "down" || msg.String() == "j":
		m.list.CursorDown()
	}
	return m, nil
}

func (m *model) refreshBookmarks() {
	marks := m.s.marks.List()
	items := make([]list.Item, len(marks))
	for i, b := range marks {
		title := b.Label
		if title == "" {
			title = "Bookmark"
		}
		items[i] = item{
			id:        b.ID,
			title:     title,
			timestamp: formatClock(b.Timestamp),
			seconds:   b.Timestamp,
		}
	}
	m.list.SetItems(items)
}

func (m *model) selectBookmark(id string) {
	for i, li := range m.list.Items() {
		if it, ok := li.(item); ok && it.id == id {
			m.list.Select(i)
			return
		}
	}
}

func (m *model) addStatus(status string) {
	m.statuses = append(m.statuses, status)
	if len(m.statuses) > maxStatuses {
		m.statuses = m.statuses[len(m.statuses)-maxStatuses:]
	}
}

func (m *model) setError(err error) {
	m.errorMsg = err.Error()
	m.app.logger.Error("operation failed", "error", err)
}

// barCols is the number of cells in the bar, which is also the timeline
// width in pixels plus one.
func (m model) barCols() int {
	return max(m.width-timelineLeft-2, 2)
}

func (m model) View() string {
	if m.quitting || m.width == 0 {
		return ""
	}

	rs := m.s.ctrl.RenderState()
	cols := m.barCols()

	var b strings.Builder
	title := BulletStyle.Render("┌") + TitleStyle.Render(m.snippet.Title) + DimTextStyle.Render("  "+string(m.snippet.Kind))
	if rs.HasChanges {
		title += UnsavedStyle.Render("  ● unapplied trim")
	}
	b.WriteString(title + "\n")
	b.WriteString(playheadRow(rs, cols) + "\n")
	b.WriteString(timelineBar(rs, cols) + "\n")

	state := "❚❚"
	if rs.IsPlaying {
		state = "▶ "
	}
	b.WriteString(fmt.Sprintf("   %s %s / %s", TextStyle.Render(state), TextStyle.Render(formatClock(rs.CurrentTime)), DimTextStyle.Render(formatClock(rs.Duration))))
	b.WriteString(DimTextStyle.Render(fmt.Sprintf("   trim %s - %s", formatClock(rs.Trim.Start), formatClock(rs.Trim.End))) + "\n\n")

	if m.snippet.Kind == store.KindCode {
		b.WriteString(ContentPaneStyle.Width(cols).Render(tail(m.s.codePane(), 12)) + "\n\n")
	}

	if len(m.list.Items()) > 0 {
		b.WriteString(m.list.View() + "\n")
	}

	if m.insights != "" {
		b.WriteString(BulletStyle.Render("├") + TitleStyle.Render("Insights") + "\n")
		b.WriteString(ItemStyle.Render(m.insights) + "\n\n")
	}

	if len(m.statuses) > 0 {
		b.WriteString(styleOutput(m.statuses))
	}
	if m.errorMsg != "" {
		b.WriteString(BulletStyle.Render("├") + ErrorStyle.Render(m.errorMsg) + "\n")
	}
	if m.loading {
		b.WriteString(fmt.Sprintf("%s%s\n", m.spinner.View(), m.loadingMsg))
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, BulletStyle.Render("└")+ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
