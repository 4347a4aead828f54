// ABOUTME: Unauthenticated stack: sign-in and account creation forms
// ABOUTME: Submits through the session machine; the gate remounts on success

package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/tui/styles"
	"github.com/gymtrack/gymtrack/internal/validate"
)

type authMode int

const (
	modeSignIn authMode = iota
	modeSignUp
)

// authResultMsg is sent when a sign-in or sign-up attempt settles
type authResultMsg struct {
	mode authMode
	err  error
}

// Auth is the StackAuth view
type Auth struct {
	ctx     context.Context
	machine *session.Machine

	mode    authMode
	form    *huh.Form
	busy    bool
	message string
	notice  string

	name     string
	email    string
	password string
	confirm  string
}

// NewAuth creates the sign-in view. notice is shown above the form, e.g.
// after a forced sign-out.
func NewAuth(ctx context.Context, machine *session.Machine, notice string) *Auth {
	a := &Auth{ctx: ctx, machine: machine, notice: notice}
	a.form = a.buildForm()
	return a
}

func (a *Auth) buildForm() *huh.Form {
	a.password, a.confirm = "", ""

	if a.mode == modeSignUp {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Name").Value(&a.name).Validate(validate.Name),
				huh.NewInput().Title("Email").Value(&a.email).Validate(validate.Email),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).
					Value(&a.password).Validate(validate.NewPassword),
				huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).
					Value(&a.confirm).Validate(validate.Confirmation(&a.password)),
			).Title("Create your account"),
		).WithTheme(styles.FormTheme())
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(&a.email).Validate(validate.Email),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).
				Value(&a.password).Validate(validate.Password),
		).Title("Access your account"),
	).WithTheme(styles.FormTheme())
}

// Init implements tea.Model
func (a *Auth) Init() tea.Cmd {
	return a.form.Init()
}

// Update implements tea.Model
func (a *Auth) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		return a.handleResult(msg)

	case tea.KeyMsg:
		if a.busy {
			return a, nil
		}
		if msg.String() == "ctrl+t" {
			if a.mode == modeSignIn {
				a.mode = modeSignUp
			} else {
				a.mode = modeSignIn
			}
			a.message, a.notice = "", ""
			a.form = a.buildForm()
			return a, a.form.Init()
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted && !a.busy {
		a.busy = true
		a.message = ""
		return a, a.submit()
	}
	return a, cmd
}

func (a *Auth) submit() tea.Cmd {
	mode := a.mode
	name := strings.TrimSpace(a.name)
	email := strings.TrimSpace(a.email)
	password := a.password

	return func() tea.Msg {
		var err error
		if mode == modeSignUp {
			_, err = a.machine.SignUp(a.ctx, name, email, password)
		} else {
			_, err = a.machine.SignIn(a.ctx, email, password)
		}
		return authResultMsg{mode: mode, err: err}
	}
}

func (a *Auth) handleResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.err == nil {
		return a, nil
	}

	switch {
	case errors.Is(msg.err, session.ErrSignUpSignInFailed):
		a.mode = modeSignIn
		a.notice = "Account created. Sign in to continue."
	case msg.mode == modeSignUp:
		a.message = client.Message(msg.err, "Unable to create the account. Try again later.")
	default:
		a.message = client.Message(msg.err, "Unable to sign in. Try again later.")
	}

	a.form = a.buildForm()
	return a, a.form.Init()
}

// View implements tea.Model
func (a *Auth) View() string {
	var sb strings.Builder

	if a.notice != "" {
		sb.WriteString(styles.Notice.Render(a.notice))
		sb.WriteString("\n\n")
	}
	if a.message != "" {
		sb.WriteString(styles.Error.Render(a.message))
		sb.WriteString("\n\n")
	}
	if a.busy {
		sb.WriteString(styles.Subtitle.Render("Please wait..."))
		return sb.String()
	}

	sb.WriteString(a.form.View())

	toggle := "ctrl+t create an account"
	if a.mode == modeSignUp {
		toggle = "ctrl+t back to sign in"
	}
	sb.WriteString(styles.Help.Render(toggle))
	return sb.String()
}
