// Package tui provides the terminal role picker for the insights CLI.
//
// The picker lists the roles of a visibility policy with the visuals each
// one hides and returns the operator's choice:
//
//	result, err := tui.RunPicker(policy, current)
//	switch result.Action {
//	case tui.ActionApply:
//	    // Apply result.Role
//	case tui.ActionShowAll:
//	    // Make every visual visible
//	case tui.ActionQuit:
//	    // Exit
//	}
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

// Action is what the operator chose in the picker.
type Action int

const (
	ActionNone Action = iota
	ActionApply
	ActionShowAll
	ActionQuit
)

// PickerResult holds the result of the picker.
type PickerResult struct {
	Action Action
	Role   visibility.Role
}

// roleItem implements list.Item.
type roleItem struct {
	role    visibility.Role
	hide    []string
	current bool
}

func (i roleItem) Title() string {
	if i.current {
		return string(i.role) + " (current)"
	}
	return string(i.role)
}

func (i roleItem) Description() string {
	if len(i.hide) == 0 {
		return "sees every visual"
	}
	return "hides " + truncate(strings.Join(i.hide, ", "), 60)
}

func (i roleItem) FilterValue() string {
	return string(i.role)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)
)

// Model is the bubbletea model for the role picker.
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

func roleItems(policy *visibility.Policy, current visibility.Role) []list.Item {
	if policy == nil {
		return nil
	}
	roles := policy.Roles()
	items := make([]list.Item, len(roles))
	for i, r := range roles {
		items[i] = roleItem{role: r, hide: policy.HideList(r), current: r == current}
	}
	return items
}

// NewPicker creates a picker over the roles of policy with current
// preselected.
func NewPicker(policy *visibility.Policy, current visibility.Role) Model {
	items := roleItems(policy, current)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Actionable Insights - Select Role"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	for i, it := range items {
		if it.(roleItem).current {
			l.Select(i)
			break
		}
	}

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(roleItem); ok {
				m.result = PickerResult{Action: ActionApply, Role: item.role}
				m.quitting = true
				return m, tea.Quit
			}

		case "a":
			m.result = PickerResult{Action: ActionShowAll}
			m.quitting = true
			return m, tea.Quit

		case "q", "esc", "ctrl+c":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	help := helpStyle.Render("[enter] Apply  [a] Show all  [/] Filter  [q] Quit")
	return m.list.View() + "\n" + help
}

// Result returns the picker result.
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive picker. A policy without roles yields
// ActionQuit without starting the terminal UI.
func RunPicker(policy *visibility.Policy, current visibility.Role, opts ...tea.ProgramOption) (PickerResult, error) {
	if policy == nil || len(policy.Roles()) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	p := tea.NewProgram(NewPicker(policy, current), opts...)
	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}
	return finalModel.(Model).Result(), nil
}

// SimplePicker is the non-interactive listing used when stdout is not a
// terminal.
func SimplePicker(policy *visibility.Policy, current visibility.Role) string {
	var sb strings.Builder

	sb.WriteString("Actionable Insights - Roles\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if policy == nil || len(policy.Roles()) == 0 {
		sb.WriteString("No roles configured.\n")
		return sb.String()
	}

	for i, r := range policy.Roles() {
		marker := " "
		if r == current {
			marker = "*"
		}
		hide := policy.HideList(r)
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, marker, r)
		if len(hide) == 0 {
			sb.WriteString("   Hides: nothing\n\n")
			continue
		}
		fmt.Fprintf(&sb, "   Hides: %s\n\n", strings.Join(hide, ", "))
	}
	return sb.String()
}
