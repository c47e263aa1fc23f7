package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/app"
	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/pkg/taskboard"
)

// Global configuration variables
var (
	configFile  string
	cfg         *Config
	databaseURL string
	debug       bool
	verbose     bool
	actorID     string
	actorRole   string
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskboard",
		Short: "taskboard - project task board engine",
		Long: `taskboard manages project boards: ordered lanes of tasks, status
transitions, assignment-driven auto-progression and task dependencies.

Every mutation runs in a single transaction with dense lane positions,
and emits activity and notification events after commit.`,
		Version:       taskboard.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			cfg, err = LoadConfig(configFile)
			if err != nil {
				if verbose {
					cmd.PrintErrf("Warning: Failed to load config file: %v\n", err)
				}
				cfg = DefaultConfig()
			}

			if databaseURL != "" {
				cfg.Database.URL = databaseURL
				if driver := inferDriver(databaseURL); driver != "" {
					cfg.Database.Driver = driver
				}
			}

			logger.Configure(logger.Options{Level: logger.Level(cfg.Logging.Level), Format: cfg.Logging.Format})
			logger.SetVerbosity(debug, verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskboard.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "url", "", "database connection URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "member id performing the operation (default: board.actor)")
	rootCmd.PersistentFlags().StringVar(&actorRole, "role", string(domain.ProjectLead), "project role of the actor (lead, member, viewer)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(execCmd)

	return rootCmd
}

// inferDriver guesses the dialect of a --url value.
func inferDriver(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.Contains(lower, "host="):
		return "postgres"
	case strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return "sqlite"
	}
	return ""
}

func currentConfig() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

func currentActor() domain.Actor {
	id := actorID
	if id == "" {
		id = currentConfig().Board.Actor
	}
	return domain.Actor{ID: id, ProjectRole: domain.ProjectRole(actorRole)}
}

// withApp opens the board for the duration of fn and drains its events
// before returning.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	c := currentConfig()
	if c.Database.URL == "" {
		return errors.New("database connection required: use --url, " + databaseURLEnv + " or taskboard.yaml")
	}
	ac, err := c.AppConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.Open(ctx, ac)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := a.Close(closeCtx); err != nil {
		logger.CLI().WithError(err).Warn("failed to close taskboard")
	}
	return runErr
}
