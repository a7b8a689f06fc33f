package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	router "github.com/dkeye/huddle/internal/adapters/http"
	"github.com/dkeye/huddle/internal/adapters/rtc"
	sig "github.com/dkeye/huddle/internal/adapters/signal"
	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/app/orch"
	"github.com/dkeye/huddle/internal/config"
	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "huddle",
		Short:         "WebRTC signaling server for meeting rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cmd.Flags())
		},
	}
	f := cmd.Flags()
	f.Int("port", 8080, "HTTP listen port")
	f.StringSlice("allowed-origin", nil, "browser origin allowed to connect (repeatable, * for any)")
	f.String("config-env", "", "load config/config.<env>.yaml (default $CONFIG_ENV or dev)")
	f.String("log-level", "", "zerolog level")
	return cmd
}

func serve(parent context.Context, flags *pflag.FlagSet) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	iceServers, err := rtc.ICEServers(cfg.ICEServers)
	if err != nil {
		return err
	}
	policy, err := app.PolicyByName(cfg.Backpressure)
	if err != nil {
		return err
	}

	rooms := app.NewRoomManager()
	reg := app.NewRegistry()
	m := metrics.New(metrics.Gauges{Rooms: rooms.Count, Connections: reg.Count})

	o := &orch.Orchestrator{
		Registry:   reg,
		Rooms:      rooms,
		Policy:     policy,
		Metrics:    m,
		ICEServers: iceServers,
	}

	g, gctx := errgroup.WithContext(ctx)

	ctl := sig.NewSignalWSController(o,
		sig.NewOrigins(cfg.AllowedOrigins),
		sig.NewRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval),
		sig.Settings{
			ReadLimit:  cfg.ReadLimit,
			PongWait:   cfg.PongWait,
			PingPeriod: cfg.PingPeriod,
			WriteWait:  cfg.WriteWait,
			SendBuffer: cfg.SendBuffer,
		})
	r := router.SetupRouter(gctx, cfg, router.Deps{Orch: o, Signal: ctl, Metrics: m})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.WithCORS(r, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := &app.Sweeper{
		Rooms:    rooms,
		Interval: cfg.SweepInterval,
		Grace:    cfg.SweepGrace,
		OnRepair: o.AnnounceHostRepair,
		OnSweep:  func(rep core.SweepReport) { m.RoomsSwept(len(rep.Removed)) },
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("huddle server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		ctl.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
