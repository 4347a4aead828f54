// ABOUTME: Whoami command for the gymtrack CLI
// ABOUTME: Greets the stored user and shows when the access token expires

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/client"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoami prints the stored user and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	user, ok := e.requireUser(w)
	if !ok {
		return exitFailure
	}

	var expiry time.Time
	if creds, ok := e.client.Credentials(); ok {
		expiry, _ = client.TokenExpiry(creds.AccessToken)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatWhoamiJSON(user, expiry))
	} else {
		fmt.Fprintln(w, formatWhoamiHuman(user, expiry))
	}
	return 0
}

// formatWhoamiHuman formats the greeting for human readability
func formatWhoamiHuman(user *client.User, expiry time.Time) string {
	out := fmt.Sprintf("Hello, %s\nEmail:   %s", user.Name, user.Email)
	if user.Avatar != "" {
		out += fmt.Sprintf("\nAvatar:  %s", user.Avatar)
	}
	if !expiry.IsZero() {
		out += fmt.Sprintf("\nToken expires: %s", expiry.Local().Format(time.RFC1123))
	}
	return out
}

// formatWhoamiJSON formats the user as JSON
func formatWhoamiJSON(user *client.User, expiry time.Time) string {
	output := map[string]interface{}{
		"user": user,
	}
	if !expiry.IsZero() {
		output["token_expires_at"] = expiry.UTC().Format(time.RFC3339)
	}
	return formatJSON(output)
}

// formatJSON renders v as indented JSON
func formatJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
