package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
)

// runApp is run for the router: screen messages are unwrapped before deciding
// whether the test drives them.
func runApp(t *testing.T, a appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 1000, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		inner := msg
		if sm, ok := msg.(screenMsg); ok {
			inner = sm.msg
		}
		if inner == nil || !ours(inner) {
			continue
		}
		next, nextCmd := a.Update(msg)
		a = next.(appModel)
		queue = append(queue, nextCmd)
	}
	return a
}

func sendApp(t *testing.T, a appModel, msg tea.Msg) appModel {
	t.Helper()
	next, cmd := a.Update(msg)
	return runApp(t, next.(appModel), cmd)
}

func pressApp(t *testing.T, a appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		a = sendApp(t, a, keyMsg(k))
	}
	return a
}

func twoOrgApp(t *testing.T) appModel {
	t.Helper()
	cfg := &config.Config{Orgs: map[string]config.OrgConfig{
		"a": {URL: "https://a.example.com", CompanyID: 1, Token: "ta"},
		"b": {URL: "https://b.example.com", CompanyID: 2, Token: "tb"},
	}}
	a := newAppModel(cfg, Options{Catalog: i18n.MustLoad("en"), Log: zerolog.Nop()})
	return sendApp(t, a, tea.WindowSizeMsg{Width: 160, Height: 40})
}

func TestActionResultReachesItsOwnOrganization(t *testing.T) {
	require := require.New(t)
	saves := stubSave(t)
	apiA, apiB := sampleAPI(5), sampleAPI(5)
	orgA := orgSelectedMsg{api: apiA, name: "a", org: model.Organization{ID: 1, Name: "A"}}
	orgB := orgSelectedMsg{api: apiB, name: "b", org: model.Organization{ID: 2, Name: "B"}}

	a := sendApp(t, twoOrgApp(t), orgA)
	require.Equal(screenMembers, a.screen)
	require.Equal("a", a.selector.cfg.CurrentOrg)
	require.Equal(1, *saves)
	require.Equal(1, apiA.listCalls)

	// Confirm deleting Carol on A and leave the request in flight.
	a = pressApp(t, a, "d")
	next, pending := a.Update(keyMsg("enter"))
	a = next.(appModel)
	require.True(a.members.store.Select().Member.Loading)

	a = pressApp(t, a, "esc", "esc")
	require.Equal(screenSelector, a.screen)
	a = sendApp(t, a, orgB)
	require.Equal("b", a.members.orgName)
	require.Equal(1, apiB.listCalls)

	a = runApp(t, a, pending)
	require.Equal([]int64{1}, apiA.deleted)
	require.Empty(apiB.deleted)
	require.Equal(1, apiB.listCalls, "A's delete must not refresh B")
	require.Equal(2, apiA.listCalls)
	require.False(a.members.store.Select().Member.Loading)
	require.Empty(a.members.statusMsg)

	a = pressApp(t, a, "esc")
	a = sendApp(t, a, orgA)
	require.Equal("a", a.members.orgName)
	require.False(a.members.store.Select().Member.Loading)
	require.False(a.members.machine.Action.Visible)
	require.Equal("Carol was deleted.", a.members.statusMsg)

	// The screen accepts new actions again.
	a = pressApp(t, a, "d", "enter")
	require.Equal([]int64{1, 1}, apiA.deleted)
}

func TestReopeningOrganizationKeepsScreen(t *testing.T) {
	require := require.New(t)
	stubSave(t)
	api := sampleAPI(5)
	orgA := orgSelectedMsg{api: api, name: "a", org: model.Organization{ID: 1, Name: "A"}}

	a := sendApp(t, twoOrgApp(t), orgA)
	a = pressApp(t, a, "s", "s")
	require.Equal(colName, a.members.sortCol)
	require.Equal([]string{"alice", "Bob", "Carol"}, visibleNames(a.members))

	a = pressApp(t, a, "esc")
	a = sendApp(t, a, orgA)
	require.Equal(colName, a.members.sortCol)
	require.Equal([]string{"alice", "Bob", "Carol"}, visibleNames(a.members))
	require.Equal(2, api.listCalls, "reopening refreshes the list")

	// Same name, different company: a fresh screen.
	a = pressApp(t, a, "esc")
	a = sendApp(t, a, orgSelectedMsg{api: api, name: "a", org: model.Organization{ID: 9, Name: "Other"}})
	require.Equal(-1, a.members.sortCol)
	require.Equal(int64(9), a.members.store.Select().Org.ID)
}
