package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aschmelyun/snipscrub/internal/bookmark"
	"github.com/aschmelyun/snipscrub/internal/insights"
	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/replay"
	"github.com/aschmelyun/snipscrub/internal/scrub"
	"github.com/aschmelyun/snipscrub/internal/store"
	"github.com/aschmelyun/snipscrub/internal/timeline"
	"github.com/aschmelyun/snipscrub/internal/trim"
)

// The bar is drawn as "  [" + cells + "]", so cell 0 sits in this column.
const timelineLeft = 3

const (
	playerStartTimeout = 10 * time.Second
	storeTimeout       = 5 * time.Second
	trimTimeout        = 10 * time.Minute
	insightsTimeout    = 2 * time.Minute
)

func startPlayerCmd(a *app, uri string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), playerStartTimeout)
		defer cancel()
		opts := []media.MPVOption{media.WithMPVPath(a.cfg.MPVPath), media.WithMPVLogger(a.logger)}
		if media.AudioOnly(uri) {
			opts = append(opts, media.WithoutWindow())
		}
		p, err := media.StartMPV(ctx, opts...)
		if err != nil {
			return errorMsg{fmt.Errorf("failed to start preview: %w", err)}
		}
		meta, err := p.Load(ctx, uri)
		if err != nil {
			p.Close()
			return errorMsg{err}
		}
		return playerReadyMsg{player: p, meta: meta}
	}
}

// reloadPlayerCmd points an already running player at a new file.
func reloadPlayerCmd(p media.Player, uri string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), playerStartTimeout)
		defer cancel()
		meta, err := p.Load(ctx, uri)
		if err != nil {
			return errorMsg{err}
		}
		return playerReadyMsg{player: p, meta: meta}
	}
}

func waitForStatusCmd(ch <-chan media.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return playerStatusMsg{status: st}
	}
}

func loadBookmarksCmd(st *store.Store, snippetID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		bms, err := st.ListBookmarks(ctx, snippetID)
		if err != nil {
			return errorMsg{err}
		}
		return bookmarksLoadedMsg{bookmarks: bms}
	}
}

func saveTrimCmd(st *store.Store, snippetID string, r trim.Region) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.SaveTrim(ctx, snippetID, r.Start, r.End); err != nil {
			return errorMsg{err}
		}
		return nil
	}
}

func saveBookmarkCmd(st *store.Store, snippetID string, b bookmark.Bookmark) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.SaveBookmark(ctx, snippetID, b); err != nil {
			return errorMsg{err}
		}
		return savedMsg{status: "Bookmarked " + formatClock(b.Timestamp) + "."}
	}
}

func deleteBookmarkCmd(st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.DeleteBookmark(ctx, id); err != nil {
			return errorMsg{err}
		}
		return savedMsg{status: "Bookmark removed."}
	}
}

// applyTrimCmd runs a prepared trim and stores the result. The controller
// only adopts it once both steps have succeeded.
func applyTrimCmd(a *app, sn *store.Snippet, req scrub.TrimRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), trimTimeout)
		defer cancel()
		res, err := req.Run(ctx)
		if err != nil {
			return errorMsg{err}
		}
		if err := a.persistTrim(ctx, sn, res); err != nil {
			return errorMsg{&scrub.Failure{Op: "save", Err: err}}
		}
		return trimAppliedMsg{req: req, res: res}
	}
}

func insightsCmd(a *app, apiKey string, p insights.Payload) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), insightsTimeout)
		defer cancel()
		c := &insights.Client{
			Endpoint: a.cfg.InsightsEndpoint,
			Model:    a.cfg.InsightsModel,
			APIKey:   apiKey,
		}
		res, err := c.Generate(ctx, p)
		if err != nil {
			return errorMsg{fmt.Errorf("failed to generate insights: %w", err)}
		}
		return insightsDoneMsg{summary: res.Summary}
	}
}

func buildPayload(sn *store.Snippet, ctrl *scrub.Controller, marks []bookmark.Bookmark) insights.Payload {
	r := ctrl.Trim()
	p := insights.Payload{
		Title:     sn.Title,
		Kind:      string(sn.Kind),
		Duration:  ctrl.Duration(),
		TrimStart: r.Start,
		TrimEnd:   r.End,
	}
	if sn.Kind == store.KindCode {
		p.Content = replay.Reconstruct(sn.InitialContent, ctrl.Log(), r.End, r.Start, r.End)
	}
	for _, b := range marks {
		label := formatClock(b.Timestamp)
		if b.Label != "" {
			label += " " + b.Label
		}
		p.Bookmarks = append(p.Bookmarks, label)
	}
	return p
}

func styleOutput(statuses []string) string {
	var styledStatuses []string
	for i, status := range statuses {
		bullet := "├"
		if i == 0 {
			bullet = "┌"
		}
		styledStatuses = append(styledStatuses, BulletStyle.Render(bullet)+TextStyle.Render(status))
	}
	return strings.Join(styledStatuses, "\n") + "\n"
}

// formatClock renders seconds as m:ss.t.
func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	tenths := int(math.Round(seconds * 10))
	return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}

// column maps a timeline pixel onto one of cols character cells.
func column(px float64, cols int) int {
	return max(0, min(int(math.Round(px)), cols-1))
}

// timelineBar draws the trim region with ◆ handles and ━ inside the region.
// The bar spans cols cells and pixel i is cell i.
func timelineBar(rs scrub.RenderState, cols int) string {
	if cols <= 0 {
		return ""
	}
	startPos := column(rs.TrimStartPixel, cols)
	endPos := column(rs.TrimEndPixel, cols)
	if rs.Width <= 0 || rs.Duration <= 0 {
		startPos, endPos = 0, cols-1
	}

	var b strings.Builder
	b.WriteString("  " + BarBaseStyle.Render("["))
	for i := range cols {
		switch {
		case i == startPos || i == endPos:
			style := BarHandleStyle
			if rs.Dragging && (i == startPos) == (rs.ActiveHandle == timeline.HandleStart) {
				style = BarActiveStyle
			}
			b.WriteString(style.Render("◆"))
		case i > startPos && i < endPos:
			b.WriteString(BarRangeStyle.Render("━"))
		default:
			b.WriteString(BarBaseStyle.Render("─"))
		}
	}
	b.WriteString(BarBaseStyle.Render("]"))
	return b.String()
}

// playheadRow puts a ▼ above the cell holding the cursor.
func playheadRow(rs scrub.RenderState, cols int) string {
	if cols <= 0 {
		return ""
	}
	pos := column(rs.PlayheadPixel, cols)
	return strings.Repeat(" ", timelineLeft+pos) + PlayheadStyle.Render("▼")
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
