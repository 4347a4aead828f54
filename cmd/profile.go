// ABOUTME: Profile command for the gymtrack CLI
// ABOUTME: Updates name, avatar, or password of the signed-in user

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/validate"
)

var (
	profileName        string
	profileAvatar      string
	profilePassword    string
	profileOldPassword string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your profile",
	Long: `Update the signed-in user's profile. Only the flags you pass are changed.

Changing the password requires --old-password. The email cannot be changed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		update := client.ProfileUpdate{
			Password:    profilePassword,
			OldPassword: profileOldPassword,
		}
		if cmd.Flags().Changed("name") {
			update.Name = &profileName
		}
		if cmd.Flags().Changed("avatar") {
			update.Avatar = &profileAvatar
		}

		exitCode := runProfile(ctx, os.Stdout, update)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profileName, "name", "", "New display name")
	profileCmd.Flags().StringVar(&profileAvatar, "avatar", "", "New avatar key")
	profileCmd.Flags().StringVar(&profilePassword, "password", "", "New password")
	profileCmd.Flags().StringVar(&profileOldPassword, "old-password", "", "Current password, required with --password")
}

// validateProfileUpdate checks an update before it reaches the API
func validateProfileUpdate(update client.ProfileUpdate) error {
	if update.Name == nil && update.Avatar == nil && update.Password == "" {
		return fmt.Errorf("nothing to update")
	}
	if update.Name != nil {
		if err := validate.Name(*update.Name); err != nil {
			return err
		}
	}
	return validate.PasswordChange(update.OldPassword, update.Password, update.Password)
}

// runProfile applies the update and returns exit code
func runProfile(ctx context.Context, w io.Writer, update client.ProfileUpdate) int {
	if err := validateProfileUpdate(update); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailure
	}

	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	user, err := e.machine.UpdateProfile(ctx, update)
	if err != nil {
		return reportError(w, err, "Unable to update profile. Try again later.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(user))
	} else {
		fmt.Fprintf(w, "Profile updated: %s <%s>\n", user.Name, user.Email)
	}
	return 0
}
