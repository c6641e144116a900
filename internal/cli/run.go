package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketsync/internal/action"
	"marketsync/internal/config"
	"marketsync/internal/facade"
	"marketsync/internal/feed"
	"marketsync/internal/gateway"
	"marketsync/internal/notify"
	"marketsync/internal/persist"
	"marketsync/internal/store"
	"marketsync/internal/tap"
	"marketsync/pkg/utils"
)

func newRunCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	var channels []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the core and stream live updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.State.Close()

			return runSession(cmd.Context(), app, channels)
		},
	}

	cmd.Flags().StringSliceVar(&channels, "channel", []string{"market", "portfolio", "orders"}, "feed channels to subscribe")
	return cmd
}

// buildApp constructs the full dependency graph for one session.
func buildApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	stateStore, err := persist.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}

	observer := tap.New(tap.Config{
		Enabled:  cfg.Tap.Enabled,
		MaxDepth: cfg.Tap.MaxDepth,
	}, logger)

	st := store.New(logger,
		store.WithMaxNotifications(cfg.Store.MaxNotifications),
		store.WithMiddleware(observer.Middleware()),
	)
	observer.Bind(st.State)

	// Restore the two persisted slices; entity data always starts empty.
	ctx := context.Background()
	if session, err := stateStore.LoadSession(ctx); err == nil && session.Valid() {
		st.Dispatch(action.SessionEstablished{Session: session})
	}
	if prefs, err := stateStore.LoadPreferences(ctx); err == nil {
		st.Dispatch(action.PreferencesUpdated{Preferences: prefs})
	}

	rest := gateway.New(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		AuthToken: func() string {
			return st.State().Session.AccessToken
		},
	}, st, gateway.NopSink{}, logger)

	liveFeed := feed.New(feed.Config{
		URL:        cfg.Feed.URL,
		MaxRetries: cfg.Feed.MaxRetries,
		Backoff: utils.Backoff{
			Initial: cfg.Feed.InitialBackoff,
			Max:     cfg.Feed.MaxBackoff,
			Factor:  2.0,
		},
		WriteTimeout: cfg.Feed.WriteTimeout,
		PingInterval: cfg.Feed.PingInterval,
	}, st, logger)
	feed.RegisterDefaultHandlers(liveFeed)

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  st,
		REST:   rest,
		Feed:   liveFeed,
		Facade: facade.New(st, rest, logger),
		State:  stateStore,
	}, nil
}

// runSession connects the live feed, primes the store over REST, and
// blocks until interrupted.
func runSession(ctx context.Context, app *App, channels []string) error {
	renderer := notify.NewTerminalRenderer()
	unsubscribe := renderer.Attach(app.Store)
	defer unsubscribe()

	if err := app.Feed.Connect(ctx); err != nil {
		app.Logger.Warn().Err(err).Msg("Live feed unavailable, continuing with REST only")
	}
	defer app.Feed.Disconnect()

	for _, ch := range channels {
		if err := app.Feed.Subscribe(ch); err != nil {
			app.Logger.Warn().Err(err).Str("channel", ch).Msg("Subscribe failed")
		}
	}

	// Prime entity data fresh; nothing stale survives a restart.
	if _, err := app.Facade.FetchPortfolios(ctx); err != nil {
		app.Logger.Warn().Err(err).Msg("Initial portfolio fetch failed")
	}
	if _, err := app.Facade.FetchOrders(ctx); err != nil {
		app.Logger.Warn().Err(err).Msg("Initial order fetch failed")
	}
	if _, err := app.Facade.FetchAlerts(ctx); err != nil {
		app.Logger.Warn().Err(err).Msg("Initial alert fetch failed")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case <-stop:
	}

	app.Logger.Info().Msg("Shutting down")
	return nil
}
