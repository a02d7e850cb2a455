// Package cli exposes the spelling trainer as a cobra command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/logging"
)

type rootOptions struct {
	configPath string
	userID     string
	offline    bool
	verbose    bool

	app *App
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "spellsync",
		Short: "Offline-first spelling trainer",
		Long: `spellsync drills spelling from word lists level by level, schedules reviews
with SM-2 and keeps settings, progress and statistics in sync with a remote
document store. Every change is stored locally first and queued until the
remote is reachable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	flags.StringVarP(&opts.userID, "user", "u", "", "user ID (overrides the config)")
	flags.BoolVar(&opts.offline, "offline", false, "never contact the remote store")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newQueueCmd(opts),
		newImportCmd(opts),
		newListsCmd(opts),
		newLevelsCmd(opts),
		newPracticeCmd(opts),
		newStatsCmd(opts),
		newHistoryCmd(opts),
		newSearchCmd(opts),
		newSelectCmd(opts),
		newSettingsCmd(opts),
	)
	// PersistentPostRunE is skipped when RunE fails
	for _, c := range root.Commands() {
		c.RunE = opts.closing(c.RunE)
	}
	return root
}

func (o *rootOptions) closing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := o.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (o *rootOptions) close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.Close()
	o.app = nil
	return err
}

func (o *rootOptions) open(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.userID != "" {
		cfg.UserID = o.userID
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	app, err := OpenApp(cmd.Context(), cfg, logger, o.offline)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	o.app = app

	if _, err := app.Catalog.Reload(cmd.Context()); err != nil {
		logger.Warn("Some word lists failed to load", zap.Error(err))
	}
	return nil
}
