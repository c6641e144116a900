// Package cli provides the process harness around the synchronization core.
// The core itself has no command surface; this wiring instantiates one
// core per session and keeps it running.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketsync/internal/config"
	"marketsync/internal/facade"
	"marketsync/internal/feed"
	"marketsync/internal/gateway"
	"marketsync/internal/persist"
	"marketsync/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the explicitly constructed application dependencies. Nothing
// here is a package-level singleton; every component receives its
// collaborators at construction.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *store.Store
	REST   *gateway.Gateway
	Feed   *feed.Gateway
	Facade *facade.Facade
	State  persist.StateStore
}

// NewRootCmd creates the root command.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "marketsync",
		Short:   "Trading state synchronization core",
		Long:    "Keeps a normalized in-memory view of orders, trades, portfolios and market data consistent across REST fetches and the live feed.",
		Version: Version,
	}

	rootCmd.AddCommand(newRunCmd(cfg, logger))
	return rootCmd
}
