// ABOUTME: Catalog commands for the gymtrack CLI
// ABOUTME: Lists muscle groups, exercises in a group, and exercise details

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

var exerciseGroup string

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List muscle groups",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runGroups(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "List the exercises of a muscle group",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runExercises(ctx, os.Stdout, exerciseGroup)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var exerciseCmd = &cobra.Command{
	Use:   "exercise <id>",
	Short: "Show exercise details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runExercise(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd, exercisesCmd, exerciseCmd)
	exercisesCmd.Flags().StringVar(&exerciseGroup, "group", "", "Muscle group (see 'gymtrack groups')")
	exercisesCmd.MarkFlagRequired("group")
}

// runGroups lists muscle groups and returns exit code
func runGroups(ctx context.Context, w io.Writer) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	groups, err := e.client.Groups(ctx)
	if err != nil {
		return reportError(w, err, "Unable to load muscle groups.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(groups))
	} else {
		fmt.Fprintln(w, strings.Join(groups, "\n"))
	}
	return 0
}

// runExercises lists a group's exercises and returns exit code
func runExercises(ctx context.Context, w io.Writer, group string) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	exercises, err := e.client.ExercisesByGroup(ctx, group)
	if err != nil {
		return reportError(w, err, "Unable to load exercises.")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(exercises))
	} else {
		fmt.Fprintln(w, formatExercisesHuman(exercises))
	}
	return 0
}

// runExercise shows one exercise and returns exit code
func runExercise(ctx context.Context, w io.Writer, id string) int {
	e, err := openSession(ctx)
	if err != nil {
		return reportConfigError(w, err)
	}
	defer e.Close()

	if _, ok := e.requireUser(w); !ok {
		return exitFailure
	}

	exercise, err := e.client.Exercise(ctx, id)
	if err != nil {
		return reportError(w, err, "Unable to load exercise details")
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(exercise))
	} else {
		fmt.Fprintln(w, formatExerciseHuman(exercise))
	}
	return 0
}

// formatExercisesHuman formats a list as one exercise per line
func formatExercisesHuman(exercises []client.Exercise) string {
	if len(exercises) == 0 {
		return "No exercises in this group."
	}
	lines := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		lines = append(lines, fmt.Sprintf("%-4s %-24s %d x %d", ex.ID, ex.Name, ex.Series, ex.Repetitions))
	}
	return strings.Join(lines, "\n")
}

// formatExerciseHuman formats exercise details
func formatExerciseHuman(ex *client.Exercise) string {
	return fmt.Sprintf(`Exercise:     %s
Group:        %s
Series:       %d
Repetitions:  %d
Demo:         %s`, ex.Name, ex.Group, ex.Series, ex.Repetitions, ex.Demo)
}
