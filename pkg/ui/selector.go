package ui

import (
	"errors"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/cograph/internal/datasource"
)

// ErrSelectionAborted is returned when the user cancels the selector.
var ErrSelectionAborted = errors.New("selection aborted")

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// SelectionForm builds the form choosing which years and categories of
// sources to load. Both fields start with cur preselected; the chosen
// values are written to dst when the form completes.
func SelectionForm(sources []datasource.Source, cur datasource.Selection, dst *datasource.Selection) *huh.Form {
	years := datasource.Years(sources)
	categories := datasource.Categories(sources)

	var groups []*huh.Group
	if len(years) > 0 {
		opts := make([]huh.Option[int], 0, len(years))
		for _, y := range years {
			opts = append(opts, huh.NewOption(strconv.Itoa(y), y).Selected(containsInt(cur.Years, y)))
		}
		dst.Years = append([]int(nil), cur.Years...)
		groups = append(groups, huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Years").
				Description("Edge files to load. None selects every year.").
				Options(opts...).
				Value(&dst.Years),
		))
	}
	if len(categories) > 0 {
		opts := make([]huh.Option[string], 0, len(categories))
		for _, c := range categories {
			opts = append(opts, huh.NewOption(c, c).Selected(containsString(cur.Categories, c)))
		}
		dst.Categories = append([]string(nil), cur.Categories...)
		groups = append(groups, huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Categories").
				Description("Category files to add as markers. None selects every category.").
				Options(opts...).
				Value(&dst.Categories),
		))
	}
	if len(groups) == 0 {
		return nil
	}
	return newForm(groups...)
}

// PromptSelection runs SelectionForm interactively. Sources without years
// or categories need no prompt and return cur unchanged.
func PromptSelection(sources []datasource.Source, cur datasource.Selection) (datasource.Selection, error) {
	var sel datasource.Selection
	form := SelectionForm(sources, cur, &sel)
	if form == nil {
		return cur, nil
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return cur, ErrSelectionAborted
		}
		return cur, err
	}
	return sel, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
