package ui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# Keys

| Key | Action |
| --- | --- |
| ` + "`j` `k` `↑` `↓`" + ` | move through the table |
| ` + "`enter`" + ` | focus the selected node and its neighbours |
| ` + "`esc`" + ` | clear the focus |
| ` + "`+` `-`" + ` | raise or lower the community resolution by 0.1 |
| ` + "`0`" + ` | reset the resolution to 1.0 |
| ` + "`c`" + ` | switch between ranking and communities |
| ` + "`tab` `shift+tab`" + ` | next or previous view |
| ` + "`r`" + ` | reload the view's sources |
| ` + "`y`" + ` | copy the selected node label |
| ` + "`?`" + ` | toggle this help |
| ` + "`q`" + ` | quit |

Resolution steps that leave **0.1 to 4.0** reset it to 1.0 and keep the
current communities.
`

// renderHelp renders the key reference, falling back to the raw markdown
// when glamour cannot style it.
func renderHelp(width int) string {
	if width <= 0 || width > 80 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
