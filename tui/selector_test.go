package tui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/config"
)

func stubSave(t *testing.T) *int {
	t.Helper()
	saves := 0
	orig := saveConfig
	saveConfig = func(*config.Config) error {
		saves++
		return nil
	}
	t.Cleanup(func() { saveConfig = orig })
	return &saves
}

func typeInto(m selectorModel, s string) selectorModel {
	for _, r := range s {
		m, _ = m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestParseOrgForm(t *testing.T) {
	org, err := parseOrgForm("https://m.example.com", "42", "tok")
	require.NoError(t, err)
	require.Equal(t, config.OrgConfig{URL: "https://m.example.com", CompanyID: 42, Token: "tok", VerifyTLS: true}, org)

	_, err = parseOrgForm("", "42", "")
	require.Error(t, err)
	_, err = parseOrgForm("https://m.example.com", "abc", "")
	require.ErrorContains(t, err, "positive number")
	_, err = parseOrgForm("https://m.example.com", "-1", "")
	require.Error(t, err)
}

func TestSelectorAddAndRemoveOrg(t *testing.T) {
	require := require.New(t)
	saves := stubSave(t)
	cfg := &config.Config{}
	m := newSelectorModel(cfg, zerolog.Nop())
	m.width, m.height = 120, 30

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.Equal(selectorAdding, m.mode)

	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m = typeInto(m, "acme")
	m, _ = m.update(enter)
	m = typeInto(m, "https://m.example.com")
	m, _ = m.update(enter)
	m = typeInto(m, "42")
	m, _ = m.update(enter)
	m = typeInto(m, "secret")
	m, _ = m.update(enter)

	require.Equal(selectorNormal, m.mode)
	require.False(m.statusErr, m.statusMsg)
	require.Equal(int64(42), cfg.Orgs["acme"].CompanyID)
	require.Equal("secret", cfg.Orgs["acme"].Token)
	require.Equal(1, *saves)
	require.Len(m.table.Rows(), 1)

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.Equal(selectorConfirmDel, m.mode)
	require.Contains(m.view(), `Remove organization "acme"?`)
	m, _ = m.update(enter)
	require.Empty(cfg.Orgs)
	require.Equal(2, *saves)
}

func TestSelectorAutoConnectUnknownOrg(t *testing.T) {
	m := newSelectorModel(&config.Config{}, zerolog.Nop())
	m, cmd := m.update(autoConnectMsg{name: "nope"})
	require.Nil(t, cmd)
	require.False(t, m.connecting)
	require.True(t, m.statusErr)
}

func TestConnectTakesTokenFromEnvironment(t *testing.T) {
	require := require.New(t)
	saves := stubSave(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer from-env" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"id":42,"name":"Acme"}`)
	}))
	defer srv.Close()
	t.Setenv(config.EnvToken, "from-env")

	cfg := &config.Config{Orgs: map[string]config.OrgConfig{"acme": {URL: srv.URL, CompanyID: 42}}}
	m := newSelectorModel(cfg, zerolog.Nop())
	m, cmd := m.update(autoConnectMsg{name: "acme"})
	require.True(m.connecting)
	require.Empty(m.connectErr)

	var selected orgSelectedMsg
	for _, c := range cmd().(tea.BatchMsg) {
		switch msg := c().(type) {
		case orgSelectedMsg:
			selected = msg
		case connectErrMsg:
			t.Fatalf("connect failed: %v", msg.err)
		}
	}
	require.Equal("acme", selected.name)
	require.Equal(int64(42), selected.org.ID)
	require.Equal(srv.URL+"/api/v1", selected.url)

	// The command leaves the shared config alone; the router records the choice.
	require.Empty(cfg.Orgs["acme"].Token)
	require.Empty(cfg.CurrentOrg)
	require.Zero(*saves)

	m.rememberCurrent("acme")
	require.False(m.connecting)
	require.Equal("acme", cfg.CurrentOrg)
	require.Equal(1, *saves)
	m.rememberCurrent("acme")
	require.Equal(1, *saves)
}
