package ui

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Node labels are frequently CJK, so widths are measured with go-runewidth.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// truncate shortens s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// joinMembers lists community members until maxWidth is reached.
func joinMembers(members []string, maxWidth int) string {
	var sb strings.Builder
	used := 0
	for i, m := range members {
		sep := ""
		if i > 0 {
			sep = ", "
		}
		w := runewidth.StringWidth(sep + m)
		if used+w > maxWidth {
			rest := len(members) - i
			more := " +" + strconv.Itoa(rest)
			if used+runewidth.StringWidth(more) <= maxWidth {
				sb.WriteString(more)
			}
			break
		}
		sb.WriteString(sep + m)
		used += w
	}
	return sb.String()
}
