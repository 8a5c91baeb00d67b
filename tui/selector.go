package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/config"
	clierrors "github.com/chupakbra/member-admin/internal/errors"
)

// selectorMode controls which overlay (if any) is active.
type selectorMode int

const (
	selectorNormal     selectorMode = iota
	selectorAdding                  // add-organization form is open
	selectorConfirmDel              // remove-organization confirmation overlay
)

// autoConnectMsg opens an organization without user interaction.
type autoConnectMsg struct{ name string }

// connectErrMsg is sent when the connection check for an organization fails.
type connectErrMsg struct{ err error }

// saveConfig is replaced in tests.
var saveConfig = config.Save

type selectorModel struct {
	cfg        *config.Config
	orgs       map[string]config.OrgConfig
	current    string // name of the currently active organization
	log        zerolog.Logger
	table      table.Model
	spinner    spinner.Model
	connecting bool
	connectErr string

	// Overlay mode.
	mode selectorMode

	// Add-organization form: [0]=name [1]=url [2]=company id [3]=token.
	addInputs [4]textinput.Model
	addFocus  int // which input is focused

	// Status feedback after add/remove.
	statusMsg string
	statusErr bool

	width  int
	height int
}

func newSelectorModel(cfg *config.Config, log zerolog.Logger) selectorModel {
	s := spinner.New()
	s.Spinner = CLISpinner
	s.Style = StyleSpinner

	placeholders := [4]string{
		"e.g. acme",
		"https://members.example.com",
		"company id, e.g. 42",
		"API token",
	}
	var inputs [4]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 200
		if i == 3 {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}

	if cfg.Orgs == nil {
		cfg.Orgs = map[string]config.OrgConfig{}
	}
	m := selectorModel{
		cfg:       cfg,
		orgs:      cfg.Orgs,
		current:   cfg.CurrentOrg,
		log:       log,
		spinner:   s,
		addInputs: inputs,
	}
	m.table = m.buildTable()
	return m
}

func (m selectorModel) sortedNames() []string {
	names := make([]string, 0, len(m.orgs))
	for name := range m.orgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m selectorModel) buildTable() table.Model {
	nameWidth := 20
	urlWidth := 40
	idWidth := 10
	defWidth := 9

	if m.width > 0 {
		remaining := m.width - urlWidth - idWidth - defWidth - 12
		if remaining > nameWidth {
			nameWidth = remaining
		}
	}

	cols := []table.Column{
		{Title: "NAME", Width: nameWidth},
		{Title: "URL", Width: urlWidth},
		{Title: "COMPANY", Width: idWidth},
		{Title: "DEFAULT", Width: defWidth},
	}

	names := m.sortedNames()
	rows := make([]table.Row, len(names))
	for i, name := range names {
		org := m.orgs[name]
		def := ""
		if name == m.current {
			def = "✓"
		}
		rows[i] = table.Row{name, org.URL, strconv.FormatInt(org.CompanyID, 10), def}
	}

	tableHeight := 10
	if m.height > 0 {
		tableHeight = m.height - 10
		if tableHeight < 3 {
			tableHeight = 3
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)
	t.SetStyles(tableStyles("62"))
	return t
}

func (m selectorModel) init() tea.Cmd {
	return nil
}

func (m selectorModel) update(msg tea.Msg) (selectorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case autoConnectMsg:
		if _, ok := m.orgs[msg.name]; !ok {
			m.statusMsg = fmt.Sprintf("Organization %q not found in config", msg.name)
			m.statusErr = true
			return m, nil
		}
		cmd := m.connect(msg.name)
		return m, cmd

	case connectErrMsg:
		m.connecting = false
		m.connectErr = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.connecting {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.connecting {
			return m, nil
		}

		switch m.mode {
		case selectorAdding:
			return m.handleAddKey(msg)
		case selectorConfirmDel:
			return m.handleConfirmDelKey(msg)
		}

		// Normal mode.
		switch msg.String() {
		case "enter":
			row := m.table.SelectedRow()
			if len(row) == 0 {
				return m, nil
			}
			cmd := m.connect(row[0])
			return m, cmd
		case "a":
			m.mode = selectorAdding
			m.addFocus = 0
			m.addInputs[0].Focus()
			return m, textinput.Blink
		case "d":
			if len(m.table.Rows()) == 0 {
				return m, nil
			}
			m.mode = selectorConfirmDel
			return m, nil
		case "esc":
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m selectorModel) handleAddKey(msg tea.KeyMsg) (selectorModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = selectorNormal
		m.clearAddForm()
		return m, nil
	case "enter":
		if m.addFocus < len(m.addInputs)-1 {
			// Advance to next field.
			m.addInputs[m.addFocus].Blur()
			m.addFocus++
			m.addInputs[m.addFocus].Focus()
			return m, textinput.Blink
		}
		// Submit on last field.
		name := strings.TrimSpace(m.addInputs[0].Value())
		url := strings.TrimSpace(m.addInputs[1].Value())
		companyID := strings.TrimSpace(m.addInputs[2].Value())
		token := strings.TrimSpace(m.addInputs[3].Value())
		m.mode = selectorNormal
		m.clearAddForm()

		org, err := parseOrgForm(url, companyID, token)
		switch {
		case name == "":
			err = fmt.Errorf("name is required")
		case err == nil:
			if _, exists := m.orgs[name]; exists {
				err = fmt.Errorf("organization %q already exists", name)
			}
		}
		if err != nil {
			m.statusMsg = err.Error()
			m.statusErr = true
			return m, nil
		}

		m.orgs[name] = org
		m.cfg.Orgs = m.orgs
		if err := saveConfig(m.cfg); err != nil {
			m.log.Error().Err(err).Msg("saving config failed")
			m.statusMsg = "Error: " + err.Error()
			m.statusErr = true
		} else {
			m.statusMsg = fmt.Sprintf("Organization %q added", name)
			m.statusErr = false
		}
		m.table = m.buildTable()
		return m, nil
	default:
		var cmd tea.Cmd
		m.addInputs[m.addFocus], cmd = m.addInputs[m.addFocus].Update(msg)
		return m, cmd
	}
}

func (m selectorModel) handleConfirmDelKey(msg tea.KeyMsg) (selectorModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		row := m.table.SelectedRow()
		m.mode = selectorNormal
		if len(row) == 0 {
			return m, nil
		}
		name := row[0]
		delete(m.orgs, name)
		if m.current == name {
			m.current = ""
			m.cfg.CurrentOrg = ""
		}
		m.cfg.Orgs = m.orgs
		if err := saveConfig(m.cfg); err != nil {
			m.log.Error().Err(err).Msg("saving config failed")
		}
		m.statusMsg = fmt.Sprintf("Organization %q removed", name)
		m.statusErr = false
		m.table = m.buildTable()
		return m, nil
	case "esc":
		m.mode = selectorNormal
		return m, nil
	}
	return m, nil
}

// parseOrgForm validates the add form fields.
func parseOrgForm(url, companyID, token string) (config.OrgConfig, error) {
	if url == "" || companyID == "" {
		return config.OrgConfig{}, fmt.Errorf("URL and company id are required")
	}
	id, err := strconv.ParseInt(companyID, 10, 64)
	if err != nil || id <= 0 {
		return config.OrgConfig{}, fmt.Errorf("company id must be a positive number")
	}
	return config.OrgConfig{URL: url, CompanyID: id, Token: token, VerifyTLS: true}, nil
}

func (m *selectorModel) clearAddForm() {
	for i := range m.addInputs {
		m.addInputs[i].Reset()
		m.addInputs[i].Blur()
	}
	m.addFocus = 0
}

// connect starts the connection check for the named organization.
func (m *selectorModel) connect(name string) tea.Cmd {
	m.statusMsg = ""
	org, _, err := m.cfg.Resolve(name)
	if err != nil {
		m.connectErr = err.Error()
		return nil
	}
	m.connecting = true
	m.connectErr = ""
	return tea.Batch(connectToOrg(*org, name, m.log), m.spinner.Tick)
}

// rememberCurrent makes name the default organization and persists it.
func (m *selectorModel) rememberCurrent(name string) {
	m.connecting = false
	if m.current == name && m.cfg.CurrentOrg == name {
		return
	}
	m.current = name
	m.cfg.CurrentOrg = name
	if err := saveConfig(m.cfg); err != nil {
		m.log.Warn().Err(err).Msg("saving current organization failed")
	}
	m.table = m.buildTable()
}

func (m selectorModel) view() string {
	if m.width == 0 {
		return ""
	}

	title := StyleTitle.Render("Organizations")

	// Add-organization form overlay.
	if m.mode == selectorAdding {
		labels := []string{"Name:", "URL:", "Company ID:", "API token:"}
		lines := []string{title, "", StyleTitle.Render("Add Organization"), ""}
		for i, inp := range m.addInputs {
			label := fmt.Sprintf("  %-14s", labels[i])
			if i == m.addFocus {
				lines = append(lines, StyleWarning.Render(label)+inp.View())
			} else {
				lines = append(lines, StyleDim.Render(label)+inp.View())
			}
		}
		lines = append(lines, "")
		lines = append(lines, renderHelp("[Enter] next/save   [Esc] cancel"))
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	if len(m.orgs) == 0 {
		var lines []string
		lines = append(lines, title, "", StyleDim.Render("No organizations configured. Press 'a' to add one."), "")
		if m.statusMsg != "" && m.statusErr {
			lines = append(lines, StyleError.Render(m.statusMsg))
		}
		lines = append(lines, renderHelp("[a] add   [Q] quit"))
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	var lines []string
	lines = append(lines, title)
	lines = append(lines, "")
	lines = append(lines, m.table.View())
	lines = append(lines, "")

	// Confirmation overlay.
	if m.mode == selectorConfirmDel {
		row := m.table.SelectedRow()
		name := ""
		if len(row) > 0 {
			name = row[0]
		}
		lines = append(lines, StyleWarning.Render(
			fmt.Sprintf("Remove organization %q? [Enter] confirm   [Esc] cancel", name),
		))
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	// Status / spinner / error.
	if m.connecting {
		lines = append(lines, StyleWarning.Render(m.spinner.View()+" Connecting..."))
	} else if m.connectErr != "" {
		lines = append(lines, StyleError.Render("Error: "+m.connectErr))
	} else if m.statusMsg != "" && m.statusErr {
		lines = append(lines, StyleError.Render(m.statusMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, StyleSuccess.Render(m.statusMsg))
	} else {
		lines = append(lines, "") // keep height stable
	}

	lines = append(lines, renderHelp("[Enter] open  |  [a] add   [d] remove"))
	lines = append(lines, renderHelp("[Q] quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// connectToOrg returns a tea.Cmd that builds a client for the named
// organization, verifies the token against the company record and emits
// orgSelectedMsg on success.
func connectToOrg(org config.OrgConfig, name string, log zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		c, err := client.New(&org, log.With().Str("org", name).Logger())
		if err != nil {
			return connectErrMsg{fmt.Errorf("%s: %w", name, err)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		company, err := c.Company(ctx, c.CompanyID())
		if err != nil {
			return connectErrMsg{fmt.Errorf("connecting to %q: %w", name, clierrors.Handle(org.URL, err))}
		}
		if company.ID == 0 {
			company.ID = c.CompanyID()
		}
		if company.Name == "" {
			company.Name = name
		}
		return orgSelectedMsg{api: c, url: c.BaseURL(), name: name, org: company}
	}
}
