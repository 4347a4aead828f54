// ABOUTME: App command for the gymtrack CLI
// ABOUTME: Launches the full-screen terminal shell

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/logger"
	"github.com/gymtrack/gymtrack/internal/tui"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Open the interactive terminal app",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logFile, err := logger.InitFile(cfg.ConfigDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log disabled: %v\n", err)
		}
		defer logFile.Close()

		// The shell bootstraps the session itself so the loading view shows.
		e := newEnv(cfg)
		defer e.Close()

		return tui.Run(ctx, e.machine, e.client)
	},
}

func init() {
	rootCmd.AddCommand(appCmd)
}
