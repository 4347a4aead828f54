// ABOUTME: Root bubbletea model for the gymtrack terminal shell
// ABOUTME: Mounts the loading, auth, or app view chosen by the navigation gate

package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/gate"
	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/tui/styles"
)

// stackMsg carries a gate decision into the program
type stackMsg gate.Stack

// App is the root model for the TUI
type App struct {
	ctx     context.Context
	machine *session.Machine
	client  *client.Client

	stacks  chan gate.Stack
	unmount func()

	stack  gate.Stack
	child  tea.Model
	width  int
	height int

	// signOutRequested distinguishes a user sign-out from a forced one
	signOutRequested bool
}

// New creates the root model and starts following the gate
func New(ctx context.Context, machine *session.Machine, c *client.Client) *App {
	a := &App{
		ctx:     ctx,
		machine: machine,
		client:  c,
		stacks:  make(chan gate.Stack, 64),
	}
	a.unmount = gate.Mount(machine, func(s gate.Stack) {
		a.stacks <- s
	})
	return a
}

// Close stops following the gate
func (a *App) Close() {
	a.unmount()
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.waitForStack(), a.bootstrap())
}

func (a *App) waitForStack() tea.Cmd {
	return func() tea.Msg {
		return stackMsg(<-a.stacks)
	}
}

func (a *App) bootstrap() tea.Cmd {
	return func() tea.Msg {
		a.machine.Bootstrap(a.ctx)
		return nil
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stackMsg:
		cmds := []tea.Cmd{a.waitForStack()}
		if s := gate.Stack(msg); a.child == nil || s != a.stack {
			cmds = append(cmds, a.mount(s))
		}
		return a, tea.Batch(cmds...)

	case signOutRequestedMsg:
		a.signOutRequested = true
		return a, func() tea.Msg {
			a.machine.SignOut(a.ctx)
			return nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	if a.child == nil {
		return a, nil
	}
	var cmd tea.Cmd
	a.child, cmd = a.child.Update(msg)
	return a, cmd
}

// mount replaces the child with the view for s
func (a *App) mount(s gate.Stack) tea.Cmd {
	prev := a.stack
	a.stack = s

	switch s {
	case gate.StackAuth:
		var notice string
		if prev == gate.StackApp && !a.signOutRequested {
			notice = client.SessionExpiredMessage
		}
		a.signOutRequested = false
		a.child = NewAuth(a.ctx, a.machine, notice)
	case gate.StackApp:
		a.child = NewHome(a.ctx, a.machine, a.client)
	default:
		a.child = NewLoading()
	}
	return a.child.Init()
}

// View implements tea.Model
func (a *App) View() string {
	var sb strings.Builder

	sb.WriteString(styles.HeaderStyle.Render(styles.KeyStyle.Render("gymtrack") + "  " + styles.Subtitle.UnsetMarginBottom().Render(a.client.BaseURL())))
	sb.WriteString("\n\n")

	if a.child != nil {
		sb.WriteString(a.child.View())
	}

	sb.WriteString("\n")
	sb.WriteString(styles.Help.Render("ctrl+c quit"))
	return sb.String()
}

// Run starts the TUI and blocks until it exits
func Run(ctx context.Context, machine *session.Machine, c *client.Client) error {
	app := New(ctx, machine, c)
	defer app.Close()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
