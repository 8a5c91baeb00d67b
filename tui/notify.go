package tui

import tea "github.com/charmbracelet/bubbletea"

// noticeMsg carries a notification to the status line of the active screen.
type noticeMsg struct {
	text  string
	isErr bool
}

// statusNotifier delivers notifications as messages so they are shown from
// the update loop.
type statusNotifier struct{}

func (statusNotifier) Success(msg string) tea.Cmd {
	return func() tea.Msg { return noticeMsg{text: msg} }
}

func (statusNotifier) Error(msg string) tea.Cmd {
	return func() tea.Msg { return noticeMsg{text: msg, isErr: true} }
}
