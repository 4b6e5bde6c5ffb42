package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/technopolitica/fleet-live/internal/auth"
	"github.com/technopolitica/fleet-live/internal/cache"
	"github.com/technopolitica/fleet-live/internal/config"
	"github.com/technopolitica/fleet-live/internal/db"
	"github.com/technopolitica/fleet-live/internal/events"
	"github.com/technopolitica/fleet-live/internal/gateway"
	"github.com/technopolitica/fleet-live/internal/log"
	"github.com/technopolitica/fleet-live/internal/registry"
	"github.com/technopolitica/fleet-live/internal/server"
	"github.com/technopolitica/fleet-live/internal/trip"
	"golang.org/x/sync/errgroup"
)

const commandDesc = `fleet-live-server keeps the live state of a bus fleet. Drivers start and end
trips over HTTP, vehicles publish telemetry over a websocket and every
subscriber receives the fleet snapshot followed by live updates.

Every flag can also be set through a FLEET_LIVE_* environment variable
(e.g. FLEET_LIVE_DB_URL), a .env file or a --config file.`

func NewServerCommand(ctx context.Context) *cobra.Command {
	opts := config.NewServerOptions()
	cmd := &cobra.Command{
		Use:          "fleet-live-server",
		Short:        "Serve the live fleet state plane",
		Long:         commandDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(cmd.Flags(), opts.ConfigFile); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := log.Init(opts.Log); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Std().Sync()

			err := run(ctx, opts)
			if err != nil {
				log.Error(err, "server stopped")
			}
			return err
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, opts *config.ServerOptions) error {
	logger := log.WithName("fleet-live")

	publicKey, err := auth.LoadPublicKey(opts.Auth.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	pool, err := opts.DB.Connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := db.NewRepository(pool)

	var sinks []events.Sink
	var mirror *cache.Mirror
	if opts.Redis.Enabled() {
		mirror, err = cache.New(ctx, opts.Redis)
		if err != nil {
			return err
		}
		defer mirror.Close()
		sinks = append(sinks, mirror)
		logger.Info("mirroring live fleet to redis", "addr", opts.Redis.Addr, "key", opts.Redis.Key)
	}
	if opts.NATS.URL != "" {
		publisher, err := events.ConnectNATS(opts.NATS)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		logger.Info("publishing fleet events to nats", "url", opts.NATS.URL, "prefix", opts.NATS.SubjectPrefix)
	}

	fleet := registry.New()
	dispatcher := events.NewDispatcher(sinks...)
	hub := gateway.NewHub(fleet, opts.Gateway, gateway.WithSink(dispatcher))
	trips := trip.NewManager(repo, repo, hub)
	router := server.New(&server.Env{
		Trips:          trips,
		Buses:          repo,
		Fleet:          fleet,
		Realtime:       hub,
		Verifier:       auth.NewJWTVerifier(publicKey, opts.Auth.Issuer),
		Logger:         log.WithName("http"),
		RequestTimeout: opts.HTTP.RequestTimeout,
	})
	httpServer := server.NewServer(opts.HTTP, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return fleet.Run(ctx)
	})

	if mirror != nil && opts.Redis.Restore {
		records, err := mirror.Load(ctx)
		if err != nil {
			logger.Error(err, "failed to restore live fleet, starting empty")
		} else {
			logger.Info("restored live fleet", "vehicles", fleet.Restore(records))
		}
	}

	group.Go(func() error {
		return dispatcher.Start(ctx)
	})
	group.Go(func() error {
		return hub.Start(ctx)
	})
	group.Go(func() error {
		return httpServer.Start(ctx)
	})
	return group.Wait()
}
