// ABOUTME: Root command for the gymtrack CLI
// ABOUTME: Handles global flags, configuration, and the shared session bootstrap

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/config"
	"github.com/gymtrack/gymtrack/internal/logger"
	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/storage"
)

var (
	apiURL     string
	configPath string
	jsonOutput bool
)

// Exit codes
const (
	exitFailure     = 1
	exitUnavailable = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "gymtrack",
	Short: "Track your workouts from the terminal",
	Long: `gymtrack signs in to the gymtrack API, keeps your session between runs,
and lets you browse exercises and log workouts.

Environment Variables:
  GYMTRACK_API_URL            API URL (default: http://localhost:3333)
  GYMTRACK_CONFIG             Path to a YAML config file
  GYMTRACK_CONFIG_DIR         Where the session is stored (default: ~/.config/gymtrack)
  GYMTRACK_REQUEST_TIMEOUT    Per-request timeout (default: 30s)
  GYMTRACK_RATE_LIMIT         Max requests per second, 0 for none (default: 0)
  GYMTRACK_CATALOG_CACHE_TTL  How long exercise lists are cached (default: 5m)
  LOG_LEVEL                   debug, info, warn, error (default: warn)`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	logger.Init(os.Stderr)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API URL (overrides GYMTRACK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// loadConfig reads configuration and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// env is the per-invocation session: a bootstrapped machine over the
// on-disk store and the client it drives.
type env struct {
	cfg     *config.Config
	client  *client.Client
	machine *session.Machine
}

// openSession builds the client stack and restores any stored session
func openSession(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	e := newEnv(cfg)
	e.machine.Bootstrap(ctx)
	return e, nil
}

// newEnv wires the client stack without touching the stored session
func newEnv(cfg *config.Config) *env {
	store := session.NewStore(storage.NewFile(cfg.ConfigDir))
	c := client.New(cfg.APIURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		client.WithCatalogCache(cfg.CatalogCacheTTL),
		client.WithCredentialStore(store),
	)
	return &env{cfg: cfg, client: c, machine: session.NewMachine(c, store)}
}

func (e *env) Close() {
	e.machine.Teardown()
}

// requireUser returns the signed-in user or reports that there is none
func (e *env) requireUser(w io.Writer) (*client.User, bool) {
	snap := e.machine.Snapshot()
	if snap.State != session.Authenticated || snap.User == nil {
		fmt.Fprintln(w, "Error: not signed in. Run 'gymtrack signin' first.")
		return nil, false
	}
	return snap.User, true
}

// reportError prints err and returns the matching exit code. Server
// messages are shown verbatim; other failures use fallback.
func reportError(w io.Writer, err error, fallback string) int {
	if errors.Is(err, client.ErrNetworkUnavailable) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUnavailable
	}
	fmt.Fprintf(w, "Error: %s\n", client.Message(err, fallback))
	return exitFailure
}

// reportConfigError prints a configuration failure
func reportConfigError(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitUnavailable
}
