// Package tui implements the interactive terminal user interface for mbr.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/chupakbra/member-admin/internal/actions"
	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
)

type screen int

const (
	screenSelector screen = iota
	screenMembers         // member table + modals
)

// Options configures LaunchTUI.
type Options struct {
	Catalog     *i18n.Catalog
	Log         zerolog.Logger
	FinishIntro bool   // show the guided tour when the member screen opens
	Org         string // connect to this organization immediately
}

// orgSelectedMsg is sent by the selector when the connection check succeeds.
type orgSelectedMsg struct {
	api  actions.API
	url  string
	name string
	org  model.Organization
}

// screenMsg carries a message produced by a member screen's command back to
// that screen, even when another organization is open by then.
type screenMsg struct {
	org string
	msg tea.Msg
}

// tagCmd addresses every message cmd produces to the member screen of org.
func tagCmd(org string, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		switch msg := cmd().(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			tagged := make(tea.BatchMsg, len(msg))
			for i, c := range msg {
				tagged[i] = tagCmd(org, c)
			}
			return tagged
		default:
			return screenMsg{org: org, msg: msg}
		}
	}
}

// appModel is the top-level Bubble Tea model acting as a screen router.
type appModel struct {
	screen   screen
	width    int
	height   int
	opts     Options
	selector selectorModel

	// members is the screen of the organization opened last. It stays here
	// while the selector is shown.
	members membersModel

	// Screens of the other organizations visited in this session, keyed by
	// config name. Switching back keeps sort order and cursor, and requests
	// they started still land in their own store.
	membersCache map[string]membersModel
}

func newAppModel(cfg *config.Config, opts Options) appModel {
	if opts.Catalog == nil {
		opts.Catalog = i18n.MustLoad(i18n.DefaultLang)
	}
	return appModel{
		screen:       screenSelector,
		opts:         opts,
		selector:     newSelectorModel(cfg, opts.Log),
		membersCache: make(map[string]membersModel),
	}
}

func (a appModel) Init() tea.Cmd {
	if a.opts.Org != "" {
		name := a.opts.Org
		return func() tea.Msg { return autoConnectMsg{name: name} }
	}
	return a.selector.init()
}

func (a appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle router-level messages first.
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.selector.width = msg.Width
		a.selector.height = msg.Height
		a.selector.table = a.selector.buildTable()
		a.members.width = msg.Width
		a.members.height = msg.Height
		if a.members.store != nil {
			a.members = a.members.withRebuiltTable()
		}
		return a, nil

	case screenMsg:
		return a.routeToScreen(msg)

	case orgSelectedMsg:
		return a.openOrg(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "Q":
			// Let 'Q' pass through to the sub-model when it is capturing text.
			if a.screen == screenMembers && !a.members.isNormalMode() {
				break
			}
			if a.screen == screenSelector && a.selector.mode != selectorNormal {
				break
			}
			return a, tea.Quit

		case "esc":
			if a.screen == screenMembers {
				if !a.members.isNormalMode() {
					break // let members handle modal/filter dismissal
				}
				a.members.filter.clear()
				a.selector.table = a.selector.buildTable()
				a.screen = screenSelector
				return a, nil
			}
			// screenSelector: fall through, selector handles esc (closes add form).
		}
	}

	// Delegate all other messages to the active sub-model.
	var cmd tea.Cmd
	switch a.screen {
	case screenSelector:
		a.selector, cmd = a.selector.update(msg)
	case screenMembers:
		a.members, cmd = a.members.update(msg)
		cmd = tagCmd(a.members.orgName, cmd)
	}
	return a, cmd
}

// openOrg shows the member screen of the organization the selector connected
// to, reusing the screen from earlier in the session when there is one.
func (a appModel) openOrg(msg orgSelectedMsg) (appModel, tea.Cmd) {
	a.screen = screenMembers
	a.selector.rememberCurrent(msg.name)

	if a.members.store != nil && a.members.orgName != msg.name {
		a.membersCache[a.members.orgName] = a.members
		a.members = membersModel{}
		if cached, ok := a.membersCache[msg.name]; ok {
			delete(a.membersCache, msg.name)
			a.members = cached
		}
	}

	if a.members.store != nil && a.members.store.Select().Org.ID == msg.org.ID {
		a.members.width = a.width
		a.members.height = a.height
		a.members = a.members.withRebuiltTable()
		return a, tagCmd(msg.name, tea.Batch(a.members.machine.Refresh(tableReady), a.members.spinner.Tick))
	}

	// A new organization, or the config entry now points at another company.
	a.members = newMembersModel(msg.api, msg.org, msg.name, msg.url, a.opts, a.width, a.height)
	a.opts.FinishIntro = false // the tour is shown once per session
	return a, tagCmd(msg.name, a.members.init())
}

// routeToScreen hands msg to the member screen that produced it.
func (a appModel) routeToScreen(msg screenMsg) (appModel, tea.Cmd) {
	var cmd tea.Cmd
	if a.members.store != nil && a.members.orgName == msg.org {
		a.members, cmd = a.members.update(msg.msg)
		return a, tagCmd(msg.org, cmd)
	}
	m, ok := a.membersCache[msg.org]
	if !ok {
		return a, nil
	}
	m, cmd = m.update(msg.msg)
	a.membersCache[msg.org] = m
	return a, tagCmd(msg.org, cmd)
}

func (a appModel) View() string {
	switch a.screen {
	case screenSelector:
		return a.selector.view()
	case screenMembers:
		return a.members.view()
	}
	return ""
}

// LaunchTUI starts the Bubble Tea program and blocks until the user quits.
func LaunchTUI(cfg *config.Config, opts Options) error {
	m := newAppModel(cfg, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
