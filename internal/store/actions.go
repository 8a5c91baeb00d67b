package store

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/member-admin/internal/model"
)

// Action is a request to change the store. The async actions take callbacks
// that run only when the request succeeds.
type Action interface {
	isAction()
}

// FetchMemberList replaces the member list. Then runs after a successful fetch.
// A zero CompanyID means the store's organization.
type FetchMemberList struct {
	CompanyID int64
	Then      tea.Cmd
}

// DestroyMember deletes a member and refreshes the list.
type DestroyMember struct {
	ID        int64
	OnSuccess tea.Cmd
}

// PasswordReset sends a member a password reset email.
type PasswordReset struct {
	ID        int64
	OnSuccess tea.Cmd
}

// CreateMember registers a member. Rejections are stored as form errors.
type CreateMember struct {
	Input     model.MemberInput
	OnSuccess tea.Cmd
}

// UpdateMember edits a member. Rejections are stored as form errors.
type UpdateMember struct {
	ID        int64
	Input     model.MemberInput
	OnSuccess tea.Cmd
}

// ImportMembers uploads a CSV file. Row rejections are stored as CSV errors.
type ImportMembers struct {
	CSV       []byte
	OnSuccess func(imported int) tea.Cmd
}

// ResetFormErrors clears form validation errors.
type ResetFormErrors struct{}

// ClearCSVErrors clears the errors of the last import.
type ClearCSVErrors struct{}

func (FetchMemberList) isAction() {}
func (DestroyMember) isAction()   {}
func (PasswordReset) isAction()   {}
func (CreateMember) isAction()    {}
func (UpdateMember) isAction()    {}
func (ImportMembers) isAction()   {}
func (ResetFormErrors) isAction() {}
func (ClearCSVErrors) isAction()  {}

type actionKind int

const (
	kindDestroy actionKind = iota
	kindPasswordReset
	kindCreate
	kindUpdate
	kindImport
)

func (k actionKind) String() string {
	switch k {
	case kindDestroy:
		return "destroy"
	case kindPasswordReset:
		return "password_reset"
	case kindCreate:
		return "create"
	case kindUpdate:
		return "update"
	case kindImport:
		return "import"
	}
	return "unknown"
}

// listFetchedMsg is sent when a member list fetch completes.
type listFetchedMsg struct {
	owner     *Store
	list      model.MemberList
	err       error
	companyID int64
	fetchID   int64 // matches Store.fetchID; stale responses are discarded
	then      tea.Cmd
}

// memberResultMsg is sent when a single-member action completes.
type memberResultMsg struct {
	owner      *Store
	kind       actionKind
	err        error
	imported   int
	onSuccess  tea.Cmd
	onImported func(int) tea.Cmd
	refresh    bool
}
