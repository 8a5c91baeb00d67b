// Package viewstate is the modal state of the member screen: which dialog is
// open, which member it targets and what happens when its action succeeds.
//
// The machine reads and writes remote data only through the injected Store.
// Handlers must run on the Bubble Tea update goroutine. Commands they return
// may produce messages that have to be passed back to Update.
package viewstate

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/member-admin/internal/actions"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
	"github.com/chupakbra/member-admin/internal/store"
)

// Store is the read/write view of the remote-data store.
type Store interface {
	Select() store.State
	Dispatch(store.Action) tea.Cmd
}

// Translator looks up localized strings.
type Translator interface {
	T(key string, params ...i18n.Params) string
}

// Notifier shows transient success and error messages.
type Notifier interface {
	Success(msg string) tea.Cmd
	Error(msg string) tea.Cmd
}

// ActionMode selects what the confirmation modal does.
type ActionMode int

const (
	ModeDelete ActionMode = iota
	ModePasswordReset
)

func (m ActionMode) String() string {
	if m == ModePasswordReset {
		return "password-reset"
	}
	return "delete"
}

type EditModalState struct {
	Visible bool
	Target  *model.Member // nil when creating
}

type ActionModalState struct {
	Visible bool
	Mode    ActionMode
	Title   string
	Target  *model.Member
}

type ImportModalState struct {
	Visible bool
	Title   string
}

type TourState struct {
	Visible bool
}

// Machine holds the four modal records of the member screen.
type Machine struct {
	store  Store
	t      Translator
	notify Notifier

	Edit   EditModalState
	Action ActionModalState
	Import ImportModalState
	Tour   TourState
}

// New returns a machine with every modal closed.
func New(s Store, t Translator, n Notifier) *Machine {
	return &Machine{store: s, t: t, notify: n}
}

// Mount requests the member list and shows the tour when finishIntro is set.
// then runs after every successful fetch.
func (m *Machine) Mount(finishIntro bool, then tea.Cmd) tea.Cmd {
	if finishIntro {
		m.OpenTour()
	}
	return m.Refresh(then)
}

// Refresh requests a full reload of the member list.
func (m *Machine) Refresh(then tea.Cmd) tea.Cmd {
	return m.store.Dispatch(store.FetchMemberList{Then: then})
}

// OpenEdit opens the member form. A nil member opens it in create mode.
func (m *Machine) OpenEdit(member *model.Member) {
	if m.Tour.Visible {
		m.CloseTour()
	}
	m.Edit.Visible = true
	m.Edit.Target = nil
	if member != nil {
		target := *member
		m.Edit.Target = &target
	}
}

func (m *Machine) CloseEdit() tea.Cmd {
	m.Edit = EditModalState{}
	return m.store.Dispatch(store.ResetFormErrors{})
}

func (m *Machine) OpenAction(member model.Member, mode ActionMode) {
	m.Action.Mode = mode
	switch mode {
	case ModePasswordReset:
		m.Action.Title = m.t.T("setting.member_modal.confirm_reset_password.title")
	default:
		m.Action.Title = m.t.T("setting.member_modal.confirm_delete_member.title")
	}
	m.Action.Target = &member
	m.Action.Visible = true
}

// CloseAction hides the confirmation modal. Mode and title stay until the
// next OpenAction overwrites them.
func (m *Machine) CloseAction() {
	m.Action.Visible = false
	m.Action.Target = nil
}

// OpenImport opens the CSV import modal, or reports an error when the plan
// has no room left.
func (m *Machine) OpenImport() tea.Cmd {
	if m.store.Select().MemberList.LeftCount <= 0 {
		return m.notify.Error(m.t.T("setting.member.over_limit_count"))
	}
	m.Import = ImportModalState{
		Visible: true,
		Title:   m.t.T("setting.member_modal.new_multi_members.title"),
	}
	return nil
}

func (m *Machine) CloseImport() {
	m.Import = ImportModalState{}
}

// OpenTour shows the guided tour unless the member form is open.
func (m *Machine) OpenTour() {
	if m.Edit.Visible {
		return
	}
	m.Tour.Visible = true
}

func (m *Machine) CloseTour() {
	m.Tour.Visible = false
}

// ConfirmDelete deletes the targeted member. It returns nil when nothing is
// targeted.
func (m *Machine) ConfirmDelete() tea.Cmd {
	if m.Action.Target == nil {
		return nil
	}
	target := *m.Action.Target
	return m.store.Dispatch(store.DestroyMember{
		ID:        target.ID,
		OnSuccess: succeeded(actionDeleted, target.Name, 0),
	})
}

// ConfirmPasswordReset sends a reset email to the targeted member. It returns
// nil when nothing is targeted.
func (m *Machine) ConfirmPasswordReset() tea.Cmd {
	if m.Action.Target == nil {
		return nil
	}
	target := *m.Action.Target
	return m.store.Dispatch(store.PasswordReset{
		ID:        target.ID,
		OnSuccess: succeeded(actionPasswordReset, target.Name, 0),
	})
}

// Confirm runs the action the confirmation modal was opened for.
func (m *Machine) Confirm() tea.Cmd {
	if m.Action.Mode == ModePasswordReset {
		return m.ConfirmPasswordReset()
	}
	return m.ConfirmDelete()
}

// SubmitEdit creates a member, or updates the form's target.
func (m *Machine) SubmitEdit(in model.MemberInput) tea.Cmd {
	if !m.Edit.Visible {
		return nil
	}
	if m.Edit.Target == nil {
		return m.store.Dispatch(store.CreateMember{
			Input:     in,
			OnSuccess: succeeded(actionCreated, in.Name, 0),
		})
	}
	id := m.Edit.Target.ID
	return m.store.Dispatch(store.UpdateMember{
		ID:        id,
		Input:     in,
		OnSuccess: succeeded(actionUpdated, in.Name, 0),
	})
}

// SubmitImport uploads a CSV file. Files with more rows than the remaining
// quota are refused with an error notification.
func (m *Machine) SubmitImport(data []byte) tea.Cmd {
	if !m.Import.Visible {
		return nil
	}
	rows, err := actions.CountCSVRows(data)
	if err != nil {
		return m.notify.Error(err.Error())
	}
	left := m.store.Select().MemberList.LeftCount
	if rows > left {
		return m.notify.Error(m.t.T("setting.member_modal.new_multi_members.too_many_rows",
			i18n.Params{"rows": rows, "count": left}))
	}
	return m.store.Dispatch(store.ImportMembers{
		CSV: data,
		OnSuccess: func(imported int) tea.Cmd {
			return succeeded(actionImported, "", imported)
		},
	})
}

type actionKind int

const (
	actionDeleted actionKind = iota
	actionPasswordReset
	actionCreated
	actionUpdated
	actionImported
)

// SucceededMsg reports that a dispatched action finished. The screen passes it
// to Update, which closes the matching modal and shows the notification.
type SucceededMsg struct {
	kind  actionKind
	name  string
	count int
}

func succeeded(kind actionKind, name string, count int) tea.Cmd {
	return func() tea.Msg {
		return SucceededMsg{kind: kind, name: name, count: count}
	}
}

// Update handles the machine's own messages. It reports whether msg was one.
func (m *Machine) Update(msg tea.Msg) (tea.Cmd, bool) {
	done, ok := msg.(SucceededMsg)
	if !ok {
		return nil, false
	}
	switch done.kind {
	case actionDeleted:
		m.CloseAction()
		return m.notify.Success(m.t.T("setting.member.alert.delete_member", i18n.Params{"name": done.name})), true
	case actionPasswordReset:
		m.CloseAction()
		return m.notify.Success(m.t.T("setting.member.alert.reset_password", i18n.Params{"name": done.name})), true
	case actionCreated:
		return tea.Batch(
			m.notify.Success(m.t.T("setting.member.alert.create_member", i18n.Params{"name": done.name})),
			m.CloseEdit(),
		), true
	case actionUpdated:
		return tea.Batch(
			m.notify.Success(m.t.T("setting.member.alert.update_member", i18n.Params{"name": done.name})),
			m.CloseEdit(),
		), true
	case actionImported:
		m.CloseImport()
		return m.notify.Success(m.t.T("setting.member.alert.import_members", i18n.Params{"count": done.count})), true
	}
	panic(fmt.Sprintf("viewstate: unknown action kind %d", done.kind))
}
