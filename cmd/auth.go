// ABOUTME: Sign-in, sign-up, and sign-out commands
// ABOUTME: Prompts for missing credentials when attached to a terminal

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/tui/styles"
	"github.com/gymtrack/gymtrack/internal/validate"
)

var (
	email    string
	password string
	name     string
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and remember the session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := promptMissing(false); err != nil {
			fmt.Fprintf(os.Stdout, "Error: %v\n", err)
			os.Exit(exitFailure)
		}
		exitCode := runSignIn(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := promptMissing(true); err != nil {
			fmt.Fprintf(os.Stdout, "Error: %v\n", err)
			os.Exit(exitFailure)
		}
		exitCode := runSignUp(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSignOut(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(signinCmd, signupCmd, signoutCmd)

	signinCmd.Flags().StringVar(&email, "email", "", "Account email")
	signinCmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")

	signupCmd.Flags().StringVar(&name, "name", "", "Your name")
	signupCmd.Flags().StringVar(&email, "email", "", "Account email")
	signupCmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
}

// promptMissing asks for any credential not given as a flag
func promptMissing(signUp bool) error {
	var fields []huh.Field
	if signUp && name == "" {
		fields = append(fields, huh.NewInput().Title("Name").Value(&name).Validate(validate.Name))
	}
	if email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&email).Validate(validate.Email))
	}
	if password == "" {
		check := validate.Password
		if signUp {
			check = validate.NewPassword
		}
		fields = append(fields, huh.NewInput().Title("Password").
			EchoMode(huh.EchoModePassword).Value(&password).Validate(check))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(styles.FormTheme()).Run()
}

// validateSignUp checks sign-up input before it reaches the API
func validateSignUp(name, email, password string) error {
	return validate.SignUp(validate.SignUpInput{Name: name, Email: email, Password: password})
}

// runSignIn signs in and returns exit code
func runSignIn(ctx context.Context, w io.Writer) int {
	if err := validate.SignIn(validate.SignInInput{Email: email, Password: password}); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailure
	}

	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	user, err := e.machine.SignIn(ctx, email, password)
	if err != nil {
		return reportError(w, err, "Unable to sign in. Try again later.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(user))
	} else {
		fmt.Fprintf(w, "Signed in as %s <%s>\n", user.Name, user.Email)
	}
	return 0
}

// runSignUp creates the account, signs in, and returns exit code
func runSignUp(ctx context.Context, w io.Writer) int {
	if err := validateSignUp(name, email, password); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailure
	}

	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	user, err := e.machine.SignUp(ctx, name, email, password)
	if errors.Is(err, session.ErrSignUpSignInFailed) {
		fmt.Fprintln(w, "Account created, but signing in failed. Run 'gymtrack signin' to continue.")
		return reportError(w, err, "Unable to sign in. Try again later.")
	}
	if err != nil {
		return reportError(w, err, "Unable to create the account. Try again later.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(user))
	} else {
		fmt.Fprintf(w, "Account created. Signed in as %s <%s>\n", user.Name, user.Email)
	}
	return 0
}

// runSignOut clears the stored session and returns exit code
func runSignOut(ctx context.Context, w io.Writer) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	e.machine.SignOut(ctx)
	fmt.Fprintln(w, "Signed out")
	return 0
}
