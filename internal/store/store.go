// Package store holds the remote data behind the member screen: the member
// list, per-member request state, CSV import errors and form errors.
//
// State changes only through Dispatch and Reduce, both of which must be called
// from the Bubble Tea update loop. Remote requests run in the tea.Cmd returned
// by Dispatch and come back as result messages that the owning model passes to
// Reduce. A successful result yields the action's success callback.
package store

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/chupakbra/member-admin/internal/actions"
	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/model"
)

// MemberListState is the fetched member list and its quota.
type MemberListState struct {
	Members       []model.Member
	Loading       bool
	LeftCount     int
	Err           error
	LastRefreshed time.Time
}

// MemberState tracks single-member requests and the last import result.
type MemberState struct {
	Loading   bool
	CSVErrors model.CSVErrors
	Err       error
}

// State is everything the member screen reads from the store.
type State struct {
	Org        model.Organization
	MemberList MemberListState
	Member     MemberState
	FormErrors model.FieldErrors
}

// Store is the remote-data store for one organization.
type Store struct {
	api   actions.API
	log   zerolog.Logger
	state State

	fetchID     int64
	refreshThen tea.Cmd
}

// New returns a store for org. Nothing is fetched until FetchMemberList is dispatched.
func New(api actions.API, org model.Organization, log zerolog.Logger) *Store {
	return &Store{
		api:   api,
		log:   log.With().Int64("company_id", org.ID).Logger(),
		state: State{Org: org},
	}
}

// Select returns a snapshot of the current state.
func (s *Store) Select() State {
	return s.state
}

// Dispatch applies the synchronous part of a and returns the command that
// performs its request, if any.
func (s *Store) Dispatch(a Action) tea.Cmd {
	switch a := a.(type) {
	case FetchMemberList:
		companyID := a.CompanyID
		if companyID == 0 {
			companyID = s.state.Org.ID
		}
		s.fetchID = nextFetchID(s.fetchID)
		s.refreshThen = a.Then
		s.state.MemberList.Loading = true
		s.state.MemberList.Err = nil
		return s.fetchMembers(companyID, s.fetchID, a.Then)

	case DestroyMember:
		s.beginMemberRequest()
		api, id := s.api, a.ID
		return s.memberRequest(kindDestroy, a.OnSuccess, true, func(ctx context.Context) error {
			return actions.DeleteMember(ctx, api, id)
		})

	case PasswordReset:
		s.beginMemberRequest()
		api, id := s.api, a.ID
		return s.memberRequest(kindPasswordReset, a.OnSuccess, false, func(ctx context.Context) error {
			return actions.ResetPassword(ctx, api, id)
		})

	case CreateMember:
		s.beginMemberRequest()
		s.state.FormErrors = nil
		api, companyID, in := s.api, s.state.Org.ID, a.Input
		return s.memberRequest(kindCreate, a.OnSuccess, true, func(ctx context.Context) error {
			_, err := actions.CreateMember(ctx, api, companyID, in)
			return err
		})

	case UpdateMember:
		s.beginMemberRequest()
		s.state.FormErrors = nil
		api, id, in := s.api, a.ID, a.Input
		return s.memberRequest(kindUpdate, a.OnSuccess, true, func(ctx context.Context) error {
			_, err := actions.UpdateMember(ctx, api, id, in)
			return err
		})

	case ImportMembers:
		s.beginMemberRequest()
		s.state.Member.CSVErrors = nil
		api, companyID, data, onImported := s.api, s.state.Org.ID, a.CSV, a.OnSuccess
		return func() tea.Msg {
			res, err := actions.ImportMembers(context.Background(), api, companyID, data)
			return memberResultMsg{owner: s, kind: kindImport, err: err, imported: res.Imported, onImported: onImported, refresh: true}
		}

	case ResetFormErrors:
		s.state.FormErrors = nil
		return nil

	case ClearCSVErrors:
		s.state.Member.CSVErrors = nil
		return nil
	}
	return nil
}

func nextFetchID(prev int64) int64 {
	id := time.Now().UnixNano()
	if id <= prev {
		id = prev + 1
	}
	return id
}

func (s *Store) beginMemberRequest() {
	s.state.Member.Loading = true
	s.state.Member.Err = nil
}

func (s *Store) memberRequest(kind actionKind, onSuccess tea.Cmd, refresh bool, run func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := run(context.Background())
		return memberResultMsg{owner: s, kind: kind, err: err, onSuccess: onSuccess, refresh: refresh}
	}
}

func (s *Store) fetchMembers(companyID, fetchID int64, then tea.Cmd) tea.Cmd {
	api := s.api
	return func() tea.Msg {
		list, err := actions.ListMembers(context.Background(), api, companyID)
		return listFetchedMsg{owner: s, list: list, err: err, companyID: companyID, fetchID: fetchID, then: then}
	}
}

// Reduce applies a result message produced by a command this store
// dispatched. It reports whether msg belonged to the store; results of other
// stores are left alone. The returned command is the action's success
// callback (plus a list refresh where the action changes the list).
func (s *Store) Reduce(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case listFetchedMsg:
		if msg.owner != s {
			return nil, false
		}
		if msg.fetchID != s.fetchID || msg.companyID != s.state.Org.ID {
			return nil, true // stale response from a previous fetch; discard
		}
		s.state.MemberList.Loading = false
		if msg.err != nil {
			s.state.MemberList.Err = msg.err
			s.log.Warn().Err(msg.err).Msg("fetching members failed")
			return nil, true
		}
		s.state.MemberList.Members = msg.list.Members
		s.state.MemberList.LeftCount = msg.list.LeftCount
		s.state.MemberList.LastRefreshed = time.Now()
		s.log.Debug().Int("members", len(msg.list.Members)).Int("left_count", msg.list.LeftCount).Msg("members fetched")
		return msg.then, true

	case memberResultMsg:
		if msg.owner != s {
			return nil, false
		}
		s.state.Member.Loading = false
		if msg.err != nil {
			s.recordFailure(msg.kind, msg.err)
			return nil, true
		}
		s.log.Info().Str("action", msg.kind.String()).Msg("member action succeeded")

		var cmds []tea.Cmd
		if msg.onSuccess != nil {
			cmds = append(cmds, msg.onSuccess)
		}
		if msg.onImported != nil {
			cmds = append(cmds, msg.onImported(msg.imported))
		}
		if msg.refresh {
			cmds = append(cmds, s.Dispatch(FetchMemberList{CompanyID: s.state.Org.ID, Then: s.refreshThen}))
		}
		return tea.Batch(cmds...), true
	}
	return nil, false
}

func (s *Store) recordFailure(kind actionKind, err error) {
	s.log.Warn().Err(err).Str("action", kind.String()).Msg("member action failed")

	var verr *actions.ValidationError
	if errors.As(err, &verr) {
		s.state.FormErrors = verr.Fields
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case kind == kindImport && len(apiErr.CSVErrors) > 0:
			s.state.Member.CSVErrors = apiErr.CSVErrors
			return
		case (kind == kindCreate || kind == kindUpdate) && len(apiErr.FieldErrors) > 0:
			s.state.FormErrors = apiErr.FieldErrors
			return
		}
	}
	s.state.Member.Err = err
}
