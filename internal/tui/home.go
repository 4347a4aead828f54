// ABOUTME: Authenticated stack: greeting, workout history, and the action menu
// ABOUTME: Logs exercises, edits the profile, and requests sign-out

package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/sync/errgroup"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/tui/styles"
	"github.com/gymtrack/gymtrack/internal/validate"
)

type homeMode int

const (
	homeMenu homeMode = iota
	homePickGroup
	homePickExercise
	homeProfile
)

// Menu actions
const (
	actionLog     = "log"
	actionRefresh = "refresh"
	actionProfile = "profile"
	actionSignOut = "signout"
	actionQuit    = "quit"
)

// historyDaysShown limits the history summary on the home view
const historyDaysShown = 3

type homeDataMsg struct {
	groups []string
	days   []client.HistoryDay
	err    error
}

type exercisesMsg struct {
	group     string
	exercises []client.Exercise
	err       error
}

type registeredMsg struct {
	name string
	err  error
}

type profileMsg struct {
	err error
}

// signOutRequestedMsg asks the root model to sign out
type signOutRequestedMsg struct{}

// Home is the StackApp view
type Home struct {
	ctx     context.Context
	machine *session.Machine
	client  *client.Client

	mode    homeMode
	form    *huh.Form
	busy    bool
	loading bool
	message string
	notice  string

	groups    []string
	days      []client.HistoryDay
	exercises []client.Exercise

	// Form bindings
	action      string
	group       string
	exerciseID  string
	name        string
	avatar      string
	oldPassword string
	password    string
	confirm     string
}

// NewHome creates the signed-in view
func NewHome(ctx context.Context, machine *session.Machine, c *client.Client) *Home {
	h := &Home{ctx: ctx, machine: machine, client: c, loading: true}
	h.form = h.menuForm()
	return h
}

// Init implements tea.Model
func (h *Home) Init() tea.Cmd {
	return tea.Batch(h.loadData(), h.form.Init())
}

func (h *Home) menuForm() *huh.Form {
	h.mode = homeMenu
	h.action = ""
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What next?").
				Options(
					huh.NewOption("Log a workout", actionLog),
					huh.NewOption("Refresh history", actionRefresh),
					huh.NewOption("Edit profile", actionProfile),
					huh.NewOption("Sign out", actionSignOut),
					huh.NewOption("Quit", actionQuit),
				).
				Value(&h.action),
		),
	).WithTheme(styles.FormTheme())
}

func (h *Home) groupForm() *huh.Form {
	h.mode = homePickGroup
	options := make([]huh.Option[string], 0, len(h.groups))
	for _, g := range h.groups {
		options = append(options, huh.NewOption(g, g))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Muscle group").Options(options...).Value(&h.group),
		),
	).WithTheme(styles.FormTheme())
}

func (h *Home) exerciseForm() *huh.Form {
	h.mode = homePickExercise
	options := make([]huh.Option[string], 0, len(h.exercises))
	for _, e := range h.exercises {
		label := fmt.Sprintf("%s (%d x %d)", e.Name, e.Series, e.Repetitions)
		options = append(options, huh.NewOption(label, e.ID))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Mark as done").Options(options...).Value(&h.exerciseID),
		),
	).WithTheme(styles.FormTheme())
}

func (h *Home) profileForm() *huh.Form {
	h.mode = homeProfile
	if snap := h.machine.Snapshot(); snap.User != nil {
		h.name = snap.User.Name
		h.avatar = snap.User.Avatar
	}
	h.oldPassword, h.password, h.confirm = "", "", ""

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&h.name).Validate(validate.Name),
			huh.NewInput().Title("Avatar").Value(&h.avatar),
		).Title("Profile"),
		huh.NewGroup(
			huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(&h.oldPassword),
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&h.password),
			huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).
				Value(&h.confirm).
				Validate(func(s string) error {
					return validate.PasswordChange(h.oldPassword, h.password, s)
				}),
		).Title("Change password").Description("Leave blank to keep your password"),
	).WithTheme(styles.FormTheme())
}

// loadData fetches groups and history concurrently
func (h *Home) loadData() tea.Cmd {
	return func() tea.Msg {
		var msg homeDataMsg
		g, ctx := errgroup.WithContext(h.ctx)
		g.Go(func() error {
			groups, err := h.client.Groups(ctx)
			msg.groups = groups
			return err
		})
		g.Go(func() error {
			days, err := h.client.History(ctx)
			msg.days = days
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

// Update implements tea.Model
func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case homeDataMsg:
		h.loading = false
		if msg.err != nil {
			h.message = client.Message(msg.err, "Unable to load your workouts.")
			return h, nil
		}
		h.groups, h.days = msg.groups, msg.days
		return h, nil

	case exercisesMsg:
		h.busy = false
		if msg.err != nil {
			h.message = client.Message(msg.err, "Unable to load exercises.")
			h.form = h.menuForm()
			return h, h.form.Init()
		}
		if len(msg.exercises) == 0 {
			h.notice = fmt.Sprintf("No exercises for %s yet.", msg.group)
			h.form = h.menuForm()
			return h, h.form.Init()
		}
		h.exercises = msg.exercises
		h.form = h.exerciseForm()
		return h, h.form.Init()

	case registeredMsg:
		h.busy = false
		h.form = h.menuForm()
		if msg.err != nil {
			h.message = client.Message(msg.err, "Unable to register exercise.")
			return h, h.form.Init()
		}
		h.notice = fmt.Sprintf("Registered %s.", msg.name)
		h.loading = true
		return h, tea.Batch(h.loadData(), h.form.Init())

	case profileMsg:
		h.busy = false
		h.form = h.menuForm()
		if msg.err != nil {
			h.message = client.Message(msg.err, "Unable to update profile.")
		} else {
			h.notice = "Profile updated."
		}
		return h, h.form.Init()

	case tea.KeyMsg:
		if h.busy {
			return h, nil
		}
		if msg.String() == "esc" && h.mode != homeMenu {
			h.form = h.menuForm()
			return h, h.form.Init()
		}
	}

	if h.busy {
		return h, nil
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}
	if h.form.State == huh.StateCompleted {
		return h.complete()
	}
	return h, cmd
}

// complete acts on the submitted form of the current mode
func (h *Home) complete() (tea.Model, tea.Cmd) {
	h.message, h.notice = "", ""

	switch h.mode {
	case homeMenu:
		switch h.action {
		case actionLog:
			if len(h.groups) == 0 {
				h.message = "No muscle groups loaded yet."
				h.form = h.menuForm()
				return h, h.form.Init()
			}
			h.form = h.groupForm()
			return h, h.form.Init()
		case actionRefresh:
			h.loading = true
			h.form = h.menuForm()
			return h, tea.Batch(h.loadData(), h.form.Init())
		case actionProfile:
			h.form = h.profileForm()
			return h, h.form.Init()
		case actionSignOut:
			h.busy = true
			return h, func() tea.Msg { return signOutRequestedMsg{} }
		case actionQuit:
			return h, tea.Quit
		}

	case homePickGroup:
		h.busy = true
		group := h.group
		return h, func() tea.Msg {
			exercises, err := h.client.ExercisesByGroup(h.ctx, group)
			return exercisesMsg{group: group, exercises: exercises, err: err}
		}

	case homePickExercise:
		h.busy = true
		id := h.exerciseID
		var name string
		for _, e := range h.exercises {
			if e.ID == id {
				name = e.Name
			}
		}
		return h, func() tea.Msg {
			return registeredMsg{name: name, err: h.client.RegisterHistory(h.ctx, id)}
		}

	case homeProfile:
		h.busy = true
		update := h.profileUpdate()
		return h, func() tea.Msg {
			_, err := h.machine.UpdateProfile(h.ctx, update)
			return profileMsg{err: err}
		}
	}

	h.form = h.menuForm()
	return h, h.form.Init()
}

// profileUpdate sends only the fields that changed
func (h *Home) profileUpdate() client.ProfileUpdate {
	var update client.ProfileUpdate
	snap := h.machine.Snapshot()

	name := strings.TrimSpace(h.name)
	if snap.User == nil || name != snap.User.Name {
		update.Name = &name
	}
	avatar := strings.TrimSpace(h.avatar)
	if snap.User == nil || avatar != snap.User.Avatar {
		update.Avatar = &avatar
	}
	if h.password != "" {
		update.Password = h.password
		update.OldPassword = h.oldPassword
	}
	return update
}

// View implements tea.Model
func (h *Home) View() string {
	var sb strings.Builder

	if snap := h.machine.Snapshot(); snap.User != nil {
		sb.WriteString(styles.Title.Render("Hello, " + snap.User.Name))
		sb.WriteString("\n")
	}

	sb.WriteString(h.renderHistory())
	sb.WriteString("\n")

	if h.notice != "" {
		sb.WriteString(styles.Notice.Render(h.notice))
		sb.WriteString("\n\n")
	}
	if h.message != "" {
		sb.WriteString(styles.Error.Render(h.message))
		sb.WriteString("\n\n")
	}

	sb.WriteString(h.form.View())
	if h.mode != homeMenu {
		sb.WriteString(styles.Help.Render("esc back"))
	}
	return sb.String()
}

func (h *Home) renderHistory() string {
	if h.loading {
		return styles.Subtitle.Render("Loading history...")
	}
	if len(h.days) == 0 {
		return styles.Subtitle.Render("No workouts logged yet.")
	}

	var lines []string
	for i, day := range h.days {
		if i == historyDaysShown {
			break
		}
		lines = append(lines, styles.ValueStyle.Render(day.Title))
		for _, e := range day.Data {
			lines = append(lines, fmt.Sprintf("  %s  %s (%s)", e.Hour, e.Name, e.Group))
		}
	}
	return styles.Panel.Render(strings.Join(lines, "\n"))
}
