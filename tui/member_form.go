package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
)

// Form fields, in the order of actions.FieldOrder.
const (
	fieldCustomID = iota
	fieldName
	fieldEmail
	fieldContract
	fieldPlace
	fieldPassword
	fieldCount
)

var (
	formFieldKeys = [fieldCount]string{"custom_id", "name", "email", "contract", "place", "password"}
	formLabelKeys = [fieldCount]string{
		"model.member.custom_id",
		"model.member.name",
		"model.member.email",
		"model.member_detail.contract",
		"model.member_detail.place",
		"model.member.password",
	}
)

// memberForm is the create/edit form. The password field only exists when
// creating.
type memberForm struct {
	inputs   [fieldCount]textinput.Model
	focus    int
	creating bool
}

func newMemberForm() memberForm {
	placeholders := [fieldCount]string{
		"e.g. A-0001",
		"(required)",
		"name@example.com (required)",
		"",
		"",
		"leave blank to let the member choose",
	}
	var f memberForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 255
		if i == fieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.inputs[i] = ti
	}
	return f
}

// open resets the form for target; nil means a new member.
func (f memberForm) open(target *model.Member) (memberForm, tea.Cmd) {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.creating = target == nil
	if target != nil {
		f.inputs[fieldCustomID].SetValue(target.CustomID)
		f.inputs[fieldName].SetValue(target.Name)
		f.inputs[fieldEmail].SetValue(target.Email)
		f.inputs[fieldContract].SetValue(target.Contract)
		f.inputs[fieldPlace].SetValue(target.Place)
	}
	f.focus = 0
	f.inputs[0].Focus()
	return f, textinput.Blink
}

func (f memberForm) fields() int {
	if f.creating {
		return fieldCount
	}
	return fieldPassword
}

func (f memberForm) input() model.MemberInput {
	in := model.MemberInput{
		CustomID: f.inputs[fieldCustomID].Value(),
		Name:     f.inputs[fieldName].Value(),
		Email:    f.inputs[fieldEmail].Value(),
		Contract: f.inputs[fieldContract].Value(),
		Place:    f.inputs[fieldPlace].Value(),
	}
	if f.creating {
		in.Password = f.inputs[fieldPassword].Value()
	}
	return in
}

func (f memberForm) move(delta int) memberForm {
	f.inputs[f.focus].Blur()
	n := f.fields()
	f.focus = (f.focus + delta + n) % n
	f.inputs[f.focus].Focus()
	return f
}

// update handles a key while the form is open. submit is true when the user
// confirmed the last field.
func (f memberForm) update(msg tea.KeyMsg) (memberForm, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "down":
		return f.move(1), textinput.Blink, false
	case "shift+tab", "up":
		return f.move(-1), textinput.Blink, false
	case "enter":
		if f.focus < f.fields()-1 {
			return f.move(1), textinput.Blink, false
		}
		return f, nil, true
	case "ctrl+s":
		return f, nil, true
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f memberForm) view(t *i18n.Catalog, errs model.FieldErrors) []string {
	var lines []string
	for i := 0; i < f.fields(); i++ {
		label := fmt.Sprintf("  %-14s", t.T(formLabelKeys[i])+":")
		if i == f.focus {
			lines = append(lines, StyleWarning.Render(label)+f.inputs[i].View())
		} else {
			lines = append(lines, StyleDim.Render(label)+f.inputs[i].View())
		}
		if codes := errs[formFieldKeys[i]]; len(codes) > 0 {
			msgs := make([]string, len(codes))
			for j, code := range codes {
				msgs[j] = t.T(formLabelKeys[i]) + " " + t.T("setting.member."+code)
			}
			lines = append(lines, StyleError.Render("  "+strings.Repeat(" ", 14)+strings.Join(msgs, ", ")))
		}
	}
	return lines
}
