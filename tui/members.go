package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/chupakbra/member-admin/internal/actions"
	clierrors "github.com/chupakbra/member-admin/internal/errors"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
	"github.com/chupakbra/member-admin/internal/store"
	"github.com/chupakbra/member-admin/internal/viewstate"
)

// tableReadyMsg is sent after every successful list fetch; the table is
// rebuilt from the store when it arrives.
type tableReadyMsg struct{}

func tableReady() tea.Msg { return tableReadyMsg{} }

// csvLoadedMsg is sent when the import file has been read from disk.
type csvLoadedMsg struct {
	path string
	data []byte
	err  error
}

// Table columns. The created-at column shows DisplayCreatedAt.
const (
	colCustomID = iota
	colName
	colEmail
	colContract
	colPlace
	colCreatedAt
	colCount
)

var memberColumnKeys = [colCount]string{
	"model.member.custom_id",
	"model.member.name",
	"model.member.email",
	"model.member_detail.contract",
	"model.member_detail.place",
	"model.member.created_at",
}

type membersModel struct {
	orgName     string
	orgURL      string
	t           *i18n.Catalog
	log         zerolog.Logger
	store       *store.Store
	machine     *viewstate.Machine
	finishIntro bool

	table    table.Model
	spinner  spinner.Model
	filter   tableFilter
	collator *collate.Collator
	sortCol  int // -1 keeps the server's order
	sortDesc bool
	visible  []model.Member // table rows, in display order

	form       memberForm
	importPath textinput.Model

	statusMsg string
	statusErr bool

	width  int
	height int
}

func newMembersModel(api actions.API, org model.Organization, orgName, orgURL string, opts Options, w, h int) membersModel {
	s := spinner.New()
	s.Spinner = CLISpinner
	s.Style = StyleSpinner

	path := textinput.New()
	path.Placeholder = "~/members.csv"
	path.CharLimit = 4096

	st := store.New(api, org, opts.Log)
	return membersModel{
		orgName:     orgName,
		orgURL:      orgURL,
		t:           opts.Catalog,
		log:         opts.Log,
		store:       st,
		machine:     viewstate.New(st, opts.Catalog, statusNotifier{}),
		finishIntro: opts.FinishIntro,
		spinner:     s,
		collator:    collate.New(language.Make(opts.Catalog.Lang()), collate.IgnoreCase),
		sortCol:     -1,
		form:        newMemberForm(),
		importPath:  path,
		width:       w,
		height:      h,
	}
}

func (m membersModel) init() tea.Cmd {
	return tea.Batch(m.machine.Mount(m.finishIntro, tableReady), m.spinner.Tick)
}

// isNormalMode reports whether no modal, tour or filter input is capturing keys.
func (m membersModel) isNormalMode() bool {
	return !m.machine.Edit.Visible && !m.machine.Action.Visible &&
		!m.machine.Import.Visible && !m.machine.Tour.Visible && !m.filter.active
}

// fixedMemberColWidth: ID(10)+EMAIL(28)+CONTRACT(12)+PLACE(12)+CREATED(16) = 78 + separators ~12 = 90
const fixedMemberColWidth = 78 + 12

func (m membersModel) nameColWidth() int {
	w := m.width - fixedMemberColWidth - 4
	if w < 15 {
		w = 15
	}
	return w
}

func (m membersModel) withRebuiltTable() membersModel {
	members := m.store.Select().MemberList.Members
	visible := make([]model.Member, 0, len(members))
	for _, mem := range members {
		if m.filter.matches(mem.CustomID, mem.Name, mem.Email, mem.Contract, mem.Place) {
			visible = append(visible, mem)
		}
	}
	m.sortMembers(visible)

	widths := [colCount]int{10, m.nameColWidth(), 28, 12, 12, 16}
	cols := make([]table.Column, colCount)
	for i := range cols {
		title := m.t.T(memberColumnKeys[i])
		if i == m.sortCol {
			if m.sortDesc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}

	rows := make([]table.Row, len(visible))
	for i, mem := range visible {
		rows[i] = table.Row{
			mem.CustomID,
			mem.Name,
			mem.Email,
			mem.Contract,
			mem.Place,
			viewstate.FormatCreatedAt(mem, m.t),
		}
	}

	tableHeight := m.height - 11 // padding(2) + title(1) + caption(1) + blank(1) + status(1) + filter(1) + help(2) + table border(2)
	if tableHeight < 3 {
		tableHeight = 3
	}

	cursor := m.table.Cursor()
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)
	t.SetStyles(tableStyles("236"))
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor > 0 {
		t.SetCursor(cursor)
	}
	m.table = t
	m.visible = visible
	return m
}

func (m membersModel) sortMembers(list []model.Member) {
	if m.sortCol < 0 {
		if m.sortDesc {
			for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
				list[i], list[j] = list[j], list[i]
			}
		}
		return
	}
	sort.SliceStable(list, func(i, j int) bool {
		c := m.compare(list[i], list[j])
		if m.sortDesc {
			return c > 0
		}
		return c < 0
	})
}

func (m membersModel) compare(a, b model.Member) int {
	switch m.sortCol {
	case colCustomID:
		return m.collator.CompareString(a.CustomID, b.CustomID)
	case colName:
		return m.collator.CompareString(a.Name, b.Name)
	case colEmail:
		return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	case colContract:
		return m.collator.CompareString(a.Contract, b.Contract)
	case colPlace:
		return m.collator.CompareString(a.Place, b.Place)
	case colCreatedAt:
		return a.DisplayCreatedAt().Compare(b.DisplayCreatedAt())
	}
	return 0
}

func (m membersModel) selected() (model.Member, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return model.Member{}, false
	}
	return m.visible[cursor], true
}

func (m membersModel) loading() bool {
	st := m.store.Select()
	return st.MemberList.Loading || st.Member.Loading
}

func (m membersModel) update(msg tea.Msg) (membersModel, tea.Cmd) {
	if cmd, ok := m.store.Reduce(msg); ok {
		return m, cmd
	}
	if cmd, ok := m.machine.Update(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tableReadyMsg:
		m = m.withRebuiltTable()
		return m, nil

	case noticeMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, nil

	case csvLoadedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Str("path", msg.path).Msg("reading csv failed")
			m.statusMsg = m.t.T("setting.member_modal.new_multi_members.unreadable", i18n.Params{"path": msg.path})
			m.statusErr = true
			return m, nil
		}
		m.statusMsg = ""
		return m, tea.Batch(m.machine.SubmitImport(msg.data), m.spinner.Tick)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading() {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.machine.Edit.Visible:
			return m.handleFormKey(msg)
		case m.machine.Action.Visible:
			return m.handleActionKey(msg)
		case m.machine.Import.Visible:
			return m.handleImportKey(msg)
		case m.filter.active:
			var rebuild bool
			m.filter, rebuild = m.filter.handleKey(msg)
			if rebuild {
				m = m.withRebuiltTable()
			}
			return m, nil
		case m.machine.Tour.Visible && (msg.String() == "esc" || msg.String() == "enter"):
			m.machine.CloseTour()
			return m, nil
		}
		return m.handleNormalKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m membersModel) handleNormalKey(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "a":
		m.statusMsg = ""
		m.machine.OpenEdit(nil)
		var cmd tea.Cmd
		m.form, cmd = m.form.open(nil)
		return m, cmd
	case "e", "enter":
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.statusMsg = ""
		m.machine.OpenEdit(&sel)
		var cmd tea.Cmd
		m.form, cmd = m.form.open(&sel)
		return m, cmd
	case "d", "p":
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		mode := viewstate.ModeDelete
		if msg.String() == "p" {
			mode = viewstate.ModePasswordReset
		}
		m.statusMsg = ""
		m.machine.OpenAction(sel, mode)
		return m, nil
	case "i":
		cmd := m.machine.OpenImport()
		if !m.machine.Import.Visible {
			return m, cmd
		}
		m.statusMsg = ""
		m.importPath.Reset()
		m.importPath.Focus()
		return m, tea.Batch(cmd, textinput.Blink)
	case "s":
		m.sortCol++
		if m.sortCol >= colCount {
			m.sortCol = -1
		}
		m = m.withRebuiltTable()
		return m, nil
	case "S":
		m.sortDesc = !m.sortDesc
		m = m.withRebuiltTable()
		return m, nil
	case "/":
		m.filter.active = true
		return m, nil
	case "?":
		m.machine.OpenTour()
		return m, nil
	case "x":
		return m, m.store.Dispatch(store.ClearCSVErrors{})
	case "ctrl+r":
		m.statusMsg = ""
		return m, tea.Batch(m.machine.Refresh(tableReady), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m membersModel) handleFormKey(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	if msg.String() == "esc" {
		return m, m.machine.CloseEdit()
	}
	var cmd tea.Cmd
	var submit bool
	m.form, cmd, submit = m.form.update(msg)
	if !submit {
		return m, cmd
	}
	if m.store.Select().Member.Loading {
		return m, nil
	}
	m.statusMsg = ""
	return m, tea.Batch(m.machine.SubmitEdit(m.form.input()), m.spinner.Tick)
}

func (m membersModel) handleActionKey(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		if m.store.Select().Member.Loading {
			return m, nil
		}
		return m, tea.Batch(m.machine.Confirm(), m.spinner.Tick)
	case "esc", "n":
		m.machine.CloseAction()
	}
	return m, nil
}

func (m membersModel) handleImportKey(msg tea.KeyMsg) (membersModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.machine.CloseImport()
		m.importPath.Blur()
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.importPath.Value())
		if path == "" || m.store.Select().Member.Loading {
			return m, nil
		}
		return m, readCSVCmd(path)
	}
	var cmd tea.Cmd
	m.importPath, cmd = m.importPath.Update(msg)
	return m, cmd
}

func readCSVCmd(path string) tea.Cmd {
	return func() tea.Msg {
		expanded := path
		if strings.HasPrefix(expanded, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				expanded = filepath.Join(home, expanded[2:])
			}
		}
		data, err := os.ReadFile(expanded)
		return csvLoadedMsg{path: path, data: data, err: err}
	}
}

func (m membersModel) view() string {
	if m.width == 0 {
		return ""
	}
	st := m.store.Select()
	title := StyleTitle.Render(fmt.Sprintf("%s — %s", m.t.T("setting.member.title"), m.orgName))

	if st.MemberList.Loading && st.MemberList.LastRefreshed.IsZero() {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			title + "\n\n" + StyleWarning.Render(m.spinner.View()+" Loading..."),
		)
	}

	if st.MemberList.Err != nil {
		lines := []string{
			title,
			"",
			StyleError.Render("Error: " + clierrors.Handle(m.orgURL, st.MemberList.Err).Error()),
			"",
			renderHelp("[ctrl+r] retry"),
			renderHelp("[Esc] back   [Q] quit"),
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	count := StyleDim.Render(fmt.Sprintf(" (%d)", len(st.MemberList.Members)))
	var lines []string
	lines = append(lines, headerLine(title+count, m.width, st.MemberList.LastRefreshed))
	lines = append(lines, StyleSubtitle.Render(m.t.T("setting.member.caption"))+"  "+
		StyleDim.Render(m.t.T("setting.member_modal.new_multi_members.left_count", i18n.Params{"count": st.MemberList.LeftCount})))
	lines = append(lines, "")

	switch {
	case m.machine.Edit.Visible:
		lines = append(lines, m.viewEditModal(st))
	case m.machine.Action.Visible:
		lines = append(lines, m.viewActionModal(st))
	case m.machine.Import.Visible:
		lines = append(lines, m.viewImportModal(st))
	default:
		if len(st.MemberList.Members) == 0 {
			lines = append(lines, StyleDim.Render(m.t.T("setting.member.empty")))
		} else {
			lines = append(lines, m.table.View())
		}
		if m.machine.Tour.Visible {
			lines = append(lines, StyleTour.Render(
				StyleWarning.Render(m.t.T("setting.member.navigation_message"))+"\n"+
					renderHelp("[a] "+m.t.T("setting.member.add_member")+"   [Esc] close"),
			))
		}
		if rows := m.csvErrorLines(st); len(rows) > 0 {
			lines = append(lines, rows...)
			lines = append(lines, renderHelp("[x] dismiss import errors"))
		}
		lines = append(lines, m.statusLine(st))
		if fl := m.filter.renderLine(); fl != "" {
			lines = append(lines, fl)
		}
		lines = append(lines, renderHelp(fmt.Sprintf("[a] %s   [e] %s   [d] %s   [p] %s   [i] %s",
			m.t.T("setting.member.add_member"),
			m.t.T("form.component.modify"),
			m.t.T("form.component.delete"),
			m.t.T("setting.member.table.reset_password"),
			m.t.T("setting.member.add_multi_members_button"))))
		lines = append(lines, renderHelp("[s/S] sort   [/] filter   [?] tour  |  [ctrl+r] refresh  |  [Esc] back   [Q] quit"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func (m membersModel) statusLine(st store.State) string {
	switch {
	case st.Member.Loading:
		return StyleWarning.Render(m.spinner.View() + " Saving...")
	case m.statusMsg != "" && m.statusErr:
		return StyleError.Render(m.statusMsg)
	case m.statusMsg != "":
		return StyleSuccess.Render(m.statusMsg)
	case st.Member.Err != nil:
		return StyleError.Render("Error: " + clierrors.Handle(m.orgURL, st.Member.Err).Error())
	}
	return "" // keep height stable
}

func (m membersModel) viewEditModal(st store.State) string {
	titleKey := "setting.member_modal.modify_member.title"
	submitKey := "form.component.save"
	if m.machine.Edit.Target == nil {
		titleKey = "setting.member_modal.new_member.title"
		submitKey = "form.component.send"
	}
	lines := []string{StyleTitle.Render(m.t.T(titleKey)), ""}
	lines = append(lines, m.form.view(m.t, st.FormErrors)...)
	lines = append(lines, "", m.statusLine(st))
	lines = append(lines, renderHelp(fmt.Sprintf("[Tab] next   [Enter] next/%s   [Ctrl+S] %s   [Esc] %s",
		m.t.T(submitKey), m.t.T(submitKey), m.t.T("form.component.cancel"))))
	return StyleModal.Render(strings.Join(lines, "\n"))
}

func (m membersModel) viewActionModal(st store.State) string {
	target := m.machine.Action.Target
	prefix, confirmKey := "setting.member_modal.confirm_delete_member.", "form.component.delete"
	if m.machine.Action.Mode == viewstate.ModePasswordReset {
		prefix, confirmKey = "setting.member_modal.confirm_reset_password.", "form.component.send"
	}
	lines := []string{
		StyleTitle.Render(m.machine.Action.Title),
		"",
		StyleDim.Render(m.t.T(prefix+"member_header")) + " " + fmt.Sprintf("%s <%s>", target.Name, target.Email),
		"",
		StyleWarning.Render(m.t.T(prefix + "confirm")),
		"",
		m.statusLine(st),
		renderHelp(fmt.Sprintf("[Enter] %s   [Esc] %s", m.t.T(confirmKey), m.t.T("form.component.cancel"))),
	}
	return StyleModal.Render(strings.Join(lines, "\n"))
}

// csvErrorLines renders the rows rejected by the last import, one line per row.
func (m membersModel) csvErrorLines(st store.State) []string {
	rows := viewstate.ProjectCSVErrors(st.Member.CSVErrors, m.t)
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = StyleError.Render(viewstate.RowLabel(row.Row, m.t) + ": " + strings.Join(row.Messages, ", "))
	}
	return lines
}

func (m membersModel) viewImportModal(st store.State) string {
	lines := []string{
		StyleTitle.Render(m.machine.Import.Title),
		StyleDim.Render(m.t.T("setting.member_modal.new_multi_members.left_count", i18n.Params{"count": st.MemberList.LeftCount})),
		"",
		StyleWarning.Render(m.t.T("setting.member_modal.new_multi_members.file")) + " " + m.importPath.View(),
	}
	if rows := m.csvErrorLines(st); len(rows) > 0 {
		lines = append(lines, "")
		lines = append(lines, rows...)
	}
	lines = append(lines, "", m.statusLine(st))
	lines = append(lines, renderHelp(fmt.Sprintf("[Enter] %s   [Esc] %s", m.t.T("form.component.send"), m.t.T("form.component.cancel"))))
	return StyleModal.Render(strings.Join(lines, "\n"))
}
