package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
	"github.com/Mindburn-Labs/insights/pkg/visibility"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Sales Trend, Revenue Distribution", 15, "Sales Trend,..."},
		{"", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.maxLen))
		})
	}
}

func TestRoleItem(t *testing.T) {
	item := roleItem{
		role: visibility.RoleBedUser,
		hide: []string{embedsdk.VisualSalesTrend, embedsdk.VisualRevenueDistribution},
	}
	assert.Equal(t, "bed_user", item.Title())
	assert.Equal(t, "bed_user", item.FilterValue())
	assert.Equal(t, "hides Sales Trend, Revenue Distribution", item.Description())

	item.current = true
	assert.Equal(t, "bed_user (current)", item.Title())

	assert.Equal(t, "sees every visual", roleItem{role: visibility.RoleBoth}.Description())
}

func TestNewPicker_PreselectsCurrent(t *testing.T) {
	m := NewPicker(visibility.DefaultPolicy(), visibility.RoleMonitorUser)

	item, ok := m.list.SelectedItem().(roleItem)
	require.True(t, ok)
	assert.Equal(t, visibility.RoleMonitorUser, item.role)
	assert.Len(t, m.list.Items(), 3)
}

func TestModelKeyHandling(t *testing.T) {
	policy := visibility.DefaultPolicy()

	t.Run("apply with enter", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBoth)
		newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		model := newModel.(Model)

		assert.Equal(t, PickerResult{Action: ActionApply, Role: visibility.RoleBoth}, model.Result())
		assert.True(t, model.quitting)
		assert.NotNil(t, cmd)
	})

	t.Run("move down then apply", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBedUser)
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
		newModel, _ = newModel.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Equal(t, visibility.RoleMonitorUser, newModel.(Model).Result().Role)
	})

	t.Run("show all with a", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBedUser)
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
		assert.Equal(t, ActionShowAll, newModel.(Model).Result().Action)
	})

	t.Run("quit with q", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBedUser)
		newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		assert.Equal(t, ActionQuit, newModel.(Model).Result().Action)
		assert.NotNil(t, cmd)
	})

	t.Run("quit with esc", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBedUser)
		newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Equal(t, ActionQuit, newModel.(Model).Result().Action)
	})

	t.Run("window size update", func(t *testing.T) {
		m := NewPicker(policy, visibility.RoleBedUser)
		newModel, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
		model := newModel.(Model)

		assert.Equal(t, 100, model.width)
		assert.Equal(t, 50, model.height)
		assert.Nil(t, cmd)
	})
}

func TestModelView(t *testing.T) {
	m := NewPicker(visibility.DefaultPolicy(), visibility.RoleBedUser)
	view := m.View()
	assert.Contains(t, view, "[enter] Apply")
	assert.Contains(t, view, "[q] Quit")
	assert.Contains(t, view, "bed_user")

	m.quitting = true
	assert.Empty(t, m.View())
}

func TestModelInit(t *testing.T) {
	assert.Nil(t, Model{}.Init())
}

func TestRunPicker_NoRoles(t *testing.T) {
	result, err := RunPicker(visibility.NewPolicy(nil), visibility.RoleBoth)
	require.NoError(t, err)
	assert.Equal(t, ActionQuit, result.Action)

	result, err = RunPicker(nil, visibility.RoleBoth)
	require.NoError(t, err)
	assert.Equal(t, ActionQuit, result.Action)
}

func TestRunPicker_ScriptedInput(t *testing.T) {
	var out bytes.Buffer
	result, err := RunPicker(visibility.DefaultPolicy(), visibility.RoleBedUser,
		tea.WithInput(strings.NewReader("\r")),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	require.NoError(t, err)
	assert.Equal(t, PickerResult{Action: ActionApply, Role: visibility.RoleBedUser}, result)
}

func TestSimplePicker(t *testing.T) {
	out := SimplePicker(visibility.DefaultPolicy(), visibility.RoleMonitorUser)

	assert.Contains(t, out, "1.   bed_user\n   Hides: Sales Trend, Revenue Distribution")
	assert.Contains(t, out, "2. * monitor_user\n")
	assert.Contains(t, out, "3.   both\n   Hides: nothing")

	assert.Contains(t, SimplePicker(nil, visibility.RoleBoth), "No roles configured.")
}
