// Package ui is the terminal front end for a session. It shows the active
// view's centrality ranking or community table, and maps keys onto the
// view's hover and resolution controls.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/session"
)

// pane selects the table shown below the header.
type pane int

const (
	paneRanking pane = iota
	paneCommunities
)

// defaultWidth is used until the first WindowSizeMsg arrives.
const defaultWidth = 100

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) {
		if fn != nil {
			m.copy = fn
		}
	}
}

// WithLogger routes UI diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// snapshotMsg carries the active view after an operation. op marks
// results of a user action, whose status replaces the footer.
type snapshotMsg struct {
	snap   session.Snapshot
	ok     bool
	op     bool
	status string
	err    error
}

type eventMsg session.Event

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	logger *log.Logger
	copy   func(string) error
	events chan session.Event

	snap   session.Snapshot
	pane   pane
	table  table.Model
	rowIDs []string
	labels []string
	styles Styles

	showHelp bool
	help     string
	status   string
	err      error
	width    int
	height   int
	quitting bool
}

// NewModel builds the model and subscribes to every view of sess.
func NewModel(ctx context.Context, sess *session.Session, opts ...Option) Model {
	events := make(chan session.Event, 64)
	m := Model{
		ctx:    ctx,
		sess:   sess,
		logger: log.New(io.Discard),
		copy:   clipboard.WriteAll,
		events: events,
		styles: DefaultStyles(),
		width:  defaultWidth,
		height: 30,
		table: table.New(
			table.WithFocused(true),
			table.WithHeight(20),
			table.WithStyles(tableStyles()),
		),
	}
	for _, opt := range opts {
		opt(&m)
	}
	for _, id := range sess.Views() {
		v, err := sess.View(id)
		if err != nil {
			continue
		}
		// Drop events rather than block the view's actor.
		v.Subscribe(func(ev session.Event) {
			select {
			case events <- ev:
			default:
			}
		})
	}
	m.syncTable()
	return m
}

// Run starts the full-screen program and blocks until it exits.
func Run(ctx context.Context, sess *session.Session, opts ...Option) error {
	p := tea.NewProgram(NewModel(ctx, sess, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init loads the active view and starts listening for view events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), waitForEvent(m.events))
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.syncTable()
		if m.showHelp {
			m.help = renderHelp(m.width)
		}
		return m, nil

	case snapshotMsg:
		if msg.ok {
			m.snap = msg.snap
			m.syncTable()
		}
		if msg.op || msg.err != nil {
			m.status = msg.status
			m.err = msg.err
		}
		return m, nil

	case eventMsg:
		next := waitForEvent(m.events)
		if msg.Err != nil && msg.Kind == session.EventLoadFailed {
			m.logger.Warn("view load failed", "view", msg.ViewID, "err", msg.Err)
			m.err = msg.Err
		}
		if msg.ViewID != m.snap.ViewID {
			return m, next
		}
		return m, tea.Batch(m.refresh(), next)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.showHelp = true
		m.help = renderHelp(m.width)
		return m, nil
	case "tab":
		return m, m.cycle(1)
	case "shift+tab":
		return m, m.cycle(-1)
	case "+", "=":
		return m, m.changeResolution(analysis.ResolutionUp)
	case "-":
		return m, m.changeResolution(analysis.ResolutionDown)
	case "0":
		return m, m.changeResolution(analysis.ResolutionReset)
	case "enter":
		id := m.selectedNode()
		if id == "" {
			return m, nil
		}
		return m, m.op(func(ctx context.Context, v *session.View) (string, error) {
			if err := v.OnHoverEnter(ctx, id); err != nil {
				return "", err
			}
			return "focus " + id, nil
		})
	case "esc":
		return m, m.op(func(ctx context.Context, v *session.View) (string, error) {
			return "", v.OnHoverLeave(ctx)
		})
	case "c":
		if m.pane == paneRanking {
			m.pane = paneCommunities
		} else {
			m.pane = paneRanking
		}
		m.syncTable()
		return m, nil
	case "r":
		return m, m.op(func(ctx context.Context, v *session.View) (string, error) {
			report, err := v.Reload(ctx)
			if errors.Is(err, session.ErrStaleLoad) {
				return "reload superseded", nil
			}
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("reloaded %d nodes, %d edges in %s",
				report.Stats.Nodes, report.Stats.Edges, report.Elapsed.Round(time.Millisecond)), nil
		})
	case "y":
		label := m.selectedLabel()
		if label == "" {
			return m, nil
		}
		if err := m.copy(label); err != nil {
			m.err = fmt.Errorf("copy: %w", err)
			return m, nil
		}
		m.status, m.err = "copied "+label, nil
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// refresh snapshots the active view without touching the footer.
func (m Model) refresh() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		v, err := sess.Active()
		if err != nil {
			return snapshotMsg{err: err}
		}
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{snap: snap, ok: true}
	}
}

// op runs fn against the active view off the update loop and snapshots the
// result.
func (m Model) op(fn func(context.Context, *session.View) (string, error)) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		v, err := sess.Active()
		if err != nil {
			return snapshotMsg{op: true, err: err}
		}
		status, opErr := fn(ctx, v)
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return snapshotMsg{op: true, err: err}
		}
		return snapshotMsg{snap: snap, ok: true, op: true, status: status, err: opErr}
	}
}

func (m Model) cycle(delta int) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		v, err := sess.Cycle(delta)
		if err != nil {
			return snapshotMsg{op: true, err: err}
		}
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return snapshotMsg{op: true, err: err}
		}
		return snapshotMsg{snap: snap, ok: true, op: true, status: "view " + v.ID()}
	}
}

func (m Model) changeResolution(cmd analysis.ResolutionCommand) tea.Cmd {
	return m.op(func(ctx context.Context, v *session.View) (string, error) {
		res, err := v.OnResolutionChange(ctx, cmd)
		if errors.Is(err, analysis.ErrResolutionOutOfRange) {
			return "resolution out of range, reset to " + res.String(), nil
		}
		if err != nil {
			return "", err
		}
		return "resolution " + res.String(), nil
	})
}

func (m Model) selectedNode() string {
	if m.pane != paneRanking {
		return ""
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return ""
	}
	return m.rowIDs[i]
}

func (m Model) selectedLabel() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.labels) {
		return ""
	}
	return m.labels[i]
}

// syncTable rebuilds columns and rows for the current pane and width.
func (m *Model) syncTable() {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	height := m.height - 8
	if height < 3 {
		height = 3
	}

	var (
		cols []table.Column
		rows []table.Row
	)
	m.rowIDs = m.rowIDs[:0]
	m.labels = m.labels[:0]

	switch m.pane {
	case paneRanking:
		const fixed = 4 + 6 + 7 + 7 + 5
		nodeW := width - fixed - 16
		if nodeW < 8 {
			nodeW = 8
		}
		cols = []table.Column{
			{Title: "#", Width: 4},
			{Title: "Node", Width: nodeW},
			{Title: "Degree", Width: 6},
			{Title: "Deg C", Width: 7},
			{Title: "Eigen", Width: 7},
			{Title: "Com", Width: 5},
		}
		state := m.snap.Styler.State
		hovered, focused := state.Hovered()
		for i, r := range m.snap.Ranking.Rows {
			label := r.Label
			switch {
			case focused && r.ID == hovered:
				label = "▸ " + label
			case focused && state.IsNeighbor(r.ID):
				label = "· " + label
			}
			com := "-"
			if c, ok := m.snap.Partition.Assignment[r.ID]; ok {
				com = strconv.Itoa(c)
			}
			rows = append(rows, table.Row{
				strconv.Itoa(i + 1),
				truncate(label, nodeW),
				strconv.Itoa(r.Degree),
				strconv.FormatFloat(r.DegreeCentrality, 'f', 3, 64),
				r.Eigenvector.String(),
				com,
			})
			m.rowIDs = append(m.rowIDs, r.ID)
			m.labels = append(m.labels, r.Label)
		}

	case paneCommunities:
		const fixed = 5 + 6 + 9 + 8
		membersW := width - fixed - 16
		if membersW < 10 {
			membersW = 10
		}
		cols = []table.Column{
			{Title: "Com", Width: 5},
			{Title: "Size", Width: 6},
			{Title: "Weight", Width: 9},
			{Title: "Color", Width: 8},
			{Title: "Members", Width: membersW},
		}
		for _, g := range m.snap.Partition.Groups {
			rows = append(rows, table.Row{
				strconv.Itoa(g.ID),
				strconv.Itoa(len(g.Members)),
				strconv.FormatFloat(g.InternalWeight, 'f', 1, 64),
				g.Color,
				joinMembers(g.Members, membersW),
			})
			m.labels = append(m.labels, strings.Join(g.Members, ", "))
		}
	}

	// Rows must never be wider than the columns while switching panes.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.SetHeight(height)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.help
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	if focus := m.renderFocus(); focus != "" {
		b.WriteString(focus)
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Panel.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTabs() string {
	parts := []string{m.styles.Title.Render("cograph")}
	for _, id := range m.sess.Views() {
		if id == m.snap.ViewID {
			parts = append(parts, m.styles.ActiveTab.Render(id))
		} else {
			parts = append(parts, m.styles.Tab.Render(id))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderSummary() string {
	s := m.snap
	if s.ViewID == "" {
		return m.styles.Label.Render("no view")
	}
	field := func(label, value string) string {
		return m.styles.Label.Render(label+" ") + m.styles.Value.Render(value)
	}
	parts := []string{
		m.styles.Value.Render(s.Title),
		field("state", s.State.String()),
	}
	if s.Graph() != nil {
		parts = append(parts,
			field("nodes", strconv.Itoa(s.Stats.Nodes)),
			field("edges", strconv.Itoa(s.Stats.Edges)),
		)
	}
	parts = append(parts, field("resolution", s.Resolution.String()))
	if s.Partition.Len() > 0 {
		parts = append(parts,
			field("communities", strconv.Itoa(s.Partition.Len())),
			field("Q", strconv.FormatFloat(s.Partition.Modularity, 'f', 3, 64)),
		)
	}
	return strings.Join(parts, m.styles.Label.Render(" · "))
}

func (m Model) renderFocus() string {
	state := m.snap.Styler.State
	id, ok := state.Hovered()
	if !ok {
		return ""
	}
	line := m.styles.Label.Render("focus ") + m.styles.Focus.Render(truncate(id, 40)) +
		m.styles.Label.Render(fmt.Sprintf(" (%d neighbours)", state.Neighbors()))
	if g := m.snap.Graph(); g != nil {
		if n := g.Node(id); n != nil && n.HasCommunity() {
			line += " " + swatch(n.CommunityColor) + m.styles.Label.Render(" community "+strconv.Itoa(n.Community))
		}
	}
	return line
}

func (m Model) renderFooter() string {
	hint := m.styles.Footer.Render("? help · q quit")
	switch {
	case m.err != nil:
		return m.styles.Error.Render(truncate(m.err.Error(), m.width-20)) + "  " + hint
	case m.snap.LastErr != nil:
		return m.styles.Error.Render(truncate("last load failed: "+m.snap.LastErr.Error(), m.width-20)) + "  " + hint
	case m.status != "":
		return m.styles.Status.Render(m.status) + "  " + hint
	}
	return hint
}
