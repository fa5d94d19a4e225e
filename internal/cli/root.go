// Package cli implements the cobra commands of the screen-seat-reservation
// binary.  serve runs the HTTP API; the other commands drive the same
// catalog and engine directly against the configured store.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/screen-seat-reservation/internal/config"
	"github.com/iliyamo/screen-seat-reservation/internal/logging"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

// Version is set from main at build time.
var Version = "dev"

// storeOpener returns the store selected by the configuration.
type storeOpener func(ctx context.Context, cfg config.Config) (repository.Store, error)

// runtime is the state shared by every subcommand once the root command
// has loaded the configuration.
type runtime struct {
	cfg       config.Config
	log       *zap.Logger
	openStore storeOpener
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openStore)
}

func newRootCommand(open storeOpener) *cobra.Command {
	rt := &runtime{openStore: open}

	rootCmd := &cobra.Command{
		Use:   "screen-seat-reservation",
		Short: "Screen registration and seat reservation service",
		Long: `screen-seat-reservation registers screens with rows of seats, reserves
seats atomically and reports which seats are still free.

The store is selected with STORE_DRIVER (memory, mysql or postgres).  With
the memory store every command starts from an empty catalog, so the
offline commands are mostly useful against a database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Env)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			rt.cfg, rt.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.log != nil {
				_ = rt.log.Sync()
			}
		},
	}

	rootCmd.AddCommand(newServeCommand(rt))
	rootCmd.AddCommand(newMigrateCommand(rt))
	rootCmd.AddCommand(newScreensCommand(rt))
	rootCmd.AddCommand(newSeatsCommand(rt))
	rootCmd.AddCommand(newReserveCommand(rt))
	return rootCmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withStore opens the configured store, runs fn and closes the store.
func (rt *runtime) withStore(ctx context.Context, migrate bool, fn func(repository.Store) error) error {
	store, err := rt.openStore(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			rt.log.Warn("close store", zap.Error(err))
		}
	}()
	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return fn(store)
}
