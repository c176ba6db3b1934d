package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/metrics"
)

var (
	colorDim    = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"}
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"})

	good   = color.New(color.FgGreen)
	subtle = color.New(color.FgHiBlack)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// writeJSON writes v indented.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printRanking writes the ranking table. limit <= 0 prints every row.
func printRanking(w io.Writer, ranking analysis.Ranking, part analysis.Partition, limit int) {
	t := newTable("#", "Node", "Degree", "Degree C", "Eigenvector", "Community")
	for i, r := range ranking.Rows {
		if limit > 0 && i >= limit {
			break
		}
		com := "-"
		if c, ok := part.Assignment[r.ID]; ok {
			com = strconv.Itoa(c)
		}
		t.Row(
			strconv.Itoa(i+1),
			r.Label,
			strconv.Itoa(r.Degree),
			strconv.FormatFloat(r.DegreeCentrality, 'f', 3, 64),
			r.Eigenvector.String(),
			com,
		)
	}
	fmt.Fprintln(w, t.Render())
	if st := ranking.Status.Eigenvector; st.State != analysis.StateComputed {
		subtle.Fprintf(w, "eigenvector centrality unavailable: %s\n", st.Reason)
	}
}

// printPartition writes one row per community.
func printPartition(w io.Writer, part analysis.Partition, maxMembers int) {
	t := newTable("Community", "Size", "Internal weight", "Color", "Members")
	for _, g := range part.Groups {
		members := g.Members
		suffix := ""
		if maxMembers > 0 && len(members) > maxMembers {
			suffix = fmt.Sprintf(" +%d", len(members)-maxMembers)
			members = members[:maxMembers]
		}
		t.Row(
			strconv.Itoa(g.ID),
			strconv.Itoa(len(g.Members)),
			strconv.FormatFloat(g.InternalWeight, 'f', 1, 64),
			g.Color,
			strings.Join(members, ", ")+suffix,
		)
	}
	fmt.Fprintln(w, t.Render())
	subtle.Fprintf(w, "%d communities at resolution %s, modularity %.4f\n",
		part.Len(), part.Resolution, part.Modularity)
}

// printStats writes the pipeline timings collected during the command.
func printStats(w io.Writer) {
	t := newTable("Stage", "Count", "Total ms", "Avg ms", "Max ms")
	for _, s := range metrics.AllTimingStats() {
		if s.Count == 0 {
			continue
		}
		t.Row(
			s.Name,
			strconv.FormatInt(s.Count, 10),
			strconv.FormatFloat(s.TotalMs, 'f', 2, 64),
			strconv.FormatFloat(s.AvgMs, 'f', 2, 64),
			strconv.FormatFloat(s.MaxMs, 'f', 2, 64),
		)
	}
	fmt.Fprintln(w, t.Render())
}
