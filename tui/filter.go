package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// tableFilter narrows the member table to rows containing the typed text.
// "/" focuses it, Esc or Enter leaves the text applied, Ctrl+U clears it.
type tableFilter struct {
	active bool
	text   string
}

// fold normalizes s for matching: full-width latin and half-width kana are
// mapped to their usual forms before case folding.
func fold(s string) string {
	return cases.Fold().String(width.Fold.String(s))
}

// handleKey edits the filter text. rebuild reports whether the text changed.
func (f tableFilter) handleKey(msg tea.KeyMsg) (_ tableFilter, rebuild bool) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		f.active = false
		return f, false
	case tea.KeyBackspace:
		if f.text == "" {
			return f, false
		}
		r := []rune(f.text)
		f.text = string(r[:len(r)-1])
		return f, true
	case tea.KeyCtrlU:
		changed := f.text != ""
		f.text = ""
		return f, changed
	case tea.KeyRunes, tea.KeySpace:
		f.text += string(msg.Runes)
		return f, len(msg.Runes) > 0
	}
	return f, false
}

// matches reports whether any field contains the filter text. Empty text
// matches everything.
func (f tableFilter) matches(fields ...string) bool {
	if f.text == "" {
		return true
	}
	needle := fold(f.text)
	for _, field := range fields {
		if strings.Contains(fold(field), needle) {
			return true
		}
	}
	return false
}

func (f *tableFilter) clear() {
	f.active = false
	f.text = ""
}

func (f tableFilter) renderLine() string {
	switch {
	case f.active:
		return renderHelp("[/] Filter: ") + StyleWarning.Render(f.text+"_") + renderHelp("  [Ctrl+U] clear  [Esc] close")
	case f.text != "":
		return renderHelp("[/] Filter: ") + StyleWarning.Render(f.text) + renderHelp("  [Ctrl+U] clear")
	}
	return ""
}
