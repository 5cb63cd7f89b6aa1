package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hearth-dev/hearth/internal/config"
	"github.com/hearth-dev/hearth/pkg/event"
	"github.com/hearth-dev/hearth/pkg/middleware"
	"github.com/hearth-dev/hearth/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		daemon   bool
		showcase bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a hearth server from hearth.json",
		Long: `Serve loads hearth.json from the working directory and runs the
event pipeline server. Blocking mode (the default) owns the calling
goroutine with the cycle loop and polls the trigger directory; --daemon
hands execution to background goroutines and waits for a signal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := config.Load(wd)
			if err != nil {
				return err
			}
			if daemon {
				cfg.Daemon = true
			}
			return runServe(cfg, showcase)
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false, "run daemonized instead of blocking")
	cmd.Flags().BoolVar(&showcase, "showcase", false, "open a browser at the server address")
	return cmd
}

func runServe(cfg *config.Config, showcase bool) error {
	srvCfg := server.DefaultConfig()
	if err := srvCfg.SetHost(cfg.Host); err != nil {
		return err
	}
	if err := srvCfg.SetPort(cfg.Port); err != nil {
		return err
	}
	if err := srvCfg.SetRefreshInterval(time.Duration(cfg.RefreshMillis) * time.Millisecond); err != nil {
		return err
	}
	if cfg.TriggerDir != "" {
		if err := srvCfg.SetTriggerDir(cfg.TriggerDir); err != nil {
			return err
		}
	}

	srv := server.New(srvCfg)

	// Mount the pipeline behind a chi router so the ambient endpoints and
	// middleware sit in front of it.
	r := chi.NewRouter()
	r.Use(middleware.Tracing())
	r.Use(middleware.Metrics())
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Handle("/*", srv.Handler())
	srv.SetHandler(r)

	// Default request handler so a bare config still answers.
	name := cfg.Name
	if name == "" {
		name = "hearth"
	}
	srv.On(event.Request, func(ctx context.Context, args event.Args) (any, error) {
		return fmt.Sprintf("%s is running\n", name), nil
	})

	if cfg.Daemon {
		if err := srv.Ignite(server.IgniteOptions{Block: false, Showcase: showcase}); err != nil {
			return err
		}
		waitForSignal()
		return srv.Extinguish()
	}

	// Blocking mode: a signal flips the quit flag; the loop exits at the
	// next cycle boundary.
	go func() {
		waitForSignal()
		srv.Extinguish()
	}()
	return srv.Ignite(server.IgniteOptions{Block: true, Showcase: showcase})
}

func waitForSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
