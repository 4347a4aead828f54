// ABOUTME: Neutral view shown while the stored session is being read
// ABOUTME: Shows only a spinner; it never hints at which stack comes next

package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gymtrack/gymtrack/internal/tui/styles"
)

// Loading is the StackLoading view
type Loading struct {
	spinner spinner.Model
}

// NewLoading creates the loading view
func NewLoading() *Loading {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return &Loading{spinner: s}
}

// Init implements tea.Model
func (l *Loading) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update implements tea.Model
func (l *Loading) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View implements tea.Model
func (l *Loading) View() string {
	return l.spinner.View() + " Loading"
}
