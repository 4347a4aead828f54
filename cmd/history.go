// ABOUTME: History commands for the gymtrack CLI
// ABOUTME: Lists logged workouts by day and registers a completed exercise

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/client"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your workout history",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHistory(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var historyAddCmd = &cobra.Command{
	Use:   "add <exercise-id>",
	Short: "Mark an exercise as done",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHistoryAdd(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyAddCmd)
}

// runHistory prints the history and returns exit code
func runHistory(ctx context.Context, w io.Writer) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	days, err := e.client.History(ctx)
	if err != nil {
		return reportError(w, err, "Unable to load history.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(days))
	} else {
		fmt.Fprintln(w, formatHistoryHuman(days))
	}
	return 0
}

// runHistoryAdd registers an exercise and returns exit code
func runHistoryAdd(ctx context.Context, w io.Writer, exerciseID string) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	if err := e.client.RegisterHistory(ctx, exerciseID); err != nil {
		return reportError(w, err, "Unable to register exercise.")
	}

	fmt.Fprintln(w, "Congratulations! Exercise registered in your history.")
	return 0
}

// formatHistoryHuman formats days with their entries
func formatHistoryHuman(days []client.HistoryDay) string {
	if len(days) == 0 {
		return "No workouts logged yet."
	}
	var sb strings.Builder
	for i, day := range days {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(day.Title)
		for _, entry := range day.Data {
			fmt.Fprintf(&sb, "\n  %s  %-24s %s", entry.Hour, entry.Name, entry.Group)
		}
	}
	return sb.String()
}
