package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/cograph/internal/datasource"
	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/layout"
	"github.com/vanderheijden86/cograph/pkg/session"
	"github.com/vanderheijden86/cograph/pkg/testutil"
)

func newTestModel(t *testing.T, opts ...Option) Model {
	t.Helper()
	ctx := context.Background()
	sess := session.New()
	t.Cleanup(func() { _ = sess.Close() })

	a, err := sess.Open("a", session.ViewOptions{Title: "Alpha", Layout: layout.Options{Iterations: 5}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := sess.Open("b", session.ViewOptions{Title: "Beta", Layout: layout.Options{Iterations: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.OnDataLoaded(ctx, testutil.BatchOf(
		testutil.Edge("A", "B", 1),
		testutil.Edge("A", "C", 2),
		testutil.Edge("B", "D", 3),
		testutil.Edge("D", "E", 4),
	)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.OnDataLoaded(ctx, testutil.QuickStar(3)); err != nil {
		t.Fatal(err)
	}

	m := NewModel(ctx, sess, opts...)
	return run(t, m, m.refresh())
}

// run executes cmd and feeds resulting messages back until none remain.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		cmd = nextCmd
	}
	return m
}

func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	return run(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ShowsActiveRanking(t *testing.T) {
	m := newTestModel(t)

	if m.snap.ViewID != "a" {
		t.Fatalf("expected active view a, got %q", m.snap.ViewID)
	}
	if len(m.rowIDs) != 5 {
		t.Fatalf("expected 5 ranking rows, got %d", len(m.rowIDs))
	}
	out := m.View()
	for _, want := range []string{"cograph", "Alpha", "resolution 1.0", "Node"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestModel_ResolutionKeys(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, runes("+"))
	if m.snap.Resolution != analysis.DefaultResolution+1 {
		t.Errorf("expected 1.1 after +, got %s", m.snap.Resolution)
	}
	if m.status != "resolution 1.1" {
		t.Errorf("status = %q", m.status)
	}

	m = press(t, m, runes("-"))
	m = press(t, m, runes("-"))
	if m.snap.Resolution != analysis.DefaultResolution-1 {
		t.Errorf("expected 0.9, got %s", m.snap.Resolution)
	}

	m = press(t, m, runes("0"))
	if m.snap.Resolution != analysis.DefaultResolution {
		t.Errorf("expected reset to 1.0, got %s", m.snap.Resolution)
	}
}

func TestModel_ResolutionOutOfRangeResets(t *testing.T) {
	m := newTestModel(t)
	v, err := m.sess.Active()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.SetResolution(context.Background(), analysis.MinResolution.Float64()); err != nil {
		t.Fatal(err)
	}

	m = press(t, m, runes("-"))
	if m.snap.Resolution != analysis.DefaultResolution {
		t.Errorf("expected default after stepping below range, got %s", m.snap.Resolution)
	}
	if !strings.Contains(m.status, "out of range") || m.err != nil {
		t.Errorf("status = %q, err = %v", m.status, m.err)
	}
}

func TestModel_HoverSelectedNode(t *testing.T) {
	m := newTestModel(t)
	want := m.rowIDs[0]

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if id, ok := m.snap.Styler.State.Hovered(); !ok || id != want {
		t.Fatalf("expected hover on %q, got %q (%v)", want, id, ok)
	}
	if !strings.Contains(m.View(), "focus "+want) {
		t.Errorf("view should show the focused node:\n%s", m.View())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.snap.Styler.State.Focused() {
		t.Error("expected focus cleared after esc")
	}
}

func TestModel_CycleViews(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.snap.ViewID != "b" || m.status != "view b" {
		t.Fatalf("expected view b, got %q (%q)", m.snap.ViewID, m.status)
	}
	if len(m.rowIDs) != 4 {
		t.Errorf("expected star ranking with 4 rows, got %d", len(m.rowIDs))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.snap.ViewID != "a" {
		t.Errorf("expected wrap to a, got %q", m.snap.ViewID)
	}
}

func TestModel_CommunityPane(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, runes("c"))
	if m.pane != paneCommunities {
		t.Fatal("expected communities pane")
	}
	if got, want := len(m.labels), m.snap.Partition.Len(); got != want || got == 0 {
		t.Errorf("expected %d community rows, got %d", want, got)
	}
	if m.selectedNode() != "" {
		t.Error("communities pane has no node selection")
	}
	if !strings.Contains(m.View(), "Members") {
		t.Error("expected members column")
	}

	m = press(t, m, runes("c"))
	if m.pane != paneRanking || len(m.rowIDs) != 5 {
		t.Errorf("expected ranking pane with 5 rows, got pane %d and %d rows", m.pane, len(m.rowIDs))
	}
}

func TestModel_CopyLabel(t *testing.T) {
	var copied string
	m := newTestModel(t, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m = press(t, m, runes("y"))
	if copied == "" || copied != m.labels[0] {
		t.Errorf("expected %q copied, got %q", m.labels[0], copied)
	}
	if m.status != "copied "+copied {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, runes("?"))
	if !m.showHelp || m.View() == "" {
		t.Fatal("expected help to be shown")
	}
	m = press(t, m, runes("?"))
	if m.showHelp {
		t.Fatal("expected help to close")
	}

	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestModel_WindowResize(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(Model)
	if m.width != 60 || m.height != 20 {
		t.Errorf("expected 60x20, got %dx%d", m.width, m.height)
	}
	if len(m.rowIDs) != 5 {
		t.Errorf("resize should keep rows, got %d", len(m.rowIDs))
	}
}

func TestSelectionForm(t *testing.T) {
	var sel datasource.Selection
	if form := SelectionForm([]datasource.Source{{Path: "a.csv"}}, datasource.Selection{}, &sel); form != nil {
		t.Error("untagged sources need no form")
	}

	sources := []datasource.Source{
		{Path: "2020.csv", Year: 2020},
		{Path: "2021.csv", Year: 2021},
		{Path: "genre.csv", Kind: datasource.KindCategory, Category: "genre"},
	}
	cur := datasource.Selection{Years: []int{2021}}
	if form := SelectionForm(sources, cur, &sel); form == nil {
		t.Fatal("expected a form")
	}
	if len(sel.Years) != 1 || sel.Years[0] != 2021 {
		t.Errorf("expected current years preselected, got %v", sel.Years)
	}
}

func TestTruncateWide(t *testing.T) {
	if got := truncate("서울특별시", 5); got != "서울…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("short string changed: %q", got)
	}
	if got := joinMembers([]string{"Alpha", "Beta", "C"}, 9); got != "Alpha +2" {
		t.Errorf("joinMembers = %q", got)
	}
}
