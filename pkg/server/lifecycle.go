package server

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-dev/hearth/pkg/event"
	"github.com/hearth-dev/hearth/pkg/trigger"
)

// IgniteOptions configures a server start.
type IgniteOptions struct {
	// Block runs the cooperative cycle loop on the calling goroutine.
	// False hands execution to the transport's background goroutines and
	// returns immediately (daemonized mode).
	Block bool

	// Showcase opens a browser at the server address once listening.
	Showcase bool

	// Args are extra named arguments merged into the start event payload.
	Args event.Args
}

// Ignite starts the server. When already running it warns and returns
// ErrAlreadyRunning without touching any state. Otherwise it marks the
// server running, starts the transport, fires the start event, and then
// either enters the blocking cycle loop or returns with the daemon
// serving in the background.
func (s *Server) Ignite(opts IgniteOptions) error {
	return s.ignite(opts, false)
}

// Reignite is Ignite for a previously extinguished server; it additionally
// fires the resume event after start.
func (s *Server) Reignite(opts IgniteOptions) error {
	return s.ignite(opts, true)
}

// Start is an alias for Ignite.
func (s *Server) Start(opts IgniteOptions) error { return s.Ignite(opts) }

// Resume is an alias for Reignite.
func (s *Server) Resume(opts IgniteOptions) error { return s.Reignite(opts) }

// Stop is an alias for Extinguish.
func (s *Server) Stop() error { return s.Extinguish() }

// Running reports whether a loop or daemon is currently active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) ignite(opts IgniteOptions, resume bool) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("ignite ignored: already running")
		return ErrAlreadyRunning
	}
	s.running = true
	s.quitting = false
	s.daemon = !opts.Block
	s.mu.Unlock()

	if err := s.installTriggerDir(); err != nil {
		s.clearRunning()
		return err
	}

	// Job execution mode must be settled before the first request lands.
	s.transport.SetInline(!opts.Block)
	if err := s.transport.Start(s.config.Addr(), s.routes()); err != nil {
		s.clearRunning()
		return err
	}

	ctx := context.Background()
	args := event.Merge(event.Args{"server": s}, opts.Args)
	s.dispatch(ctx, event.Start, args)
	if resume {
		s.dispatch(ctx, event.Resume, args)
	}

	if opts.Showcase {
		s.showcase()
	}

	if opts.Block {
		s.logger.Info("entering blocking cycle loop", "address", s.config.Addr())
		s.runLoop(ctx)
		return nil
	}

	s.logger.Info("daemonized", "address", s.config.Addr())
	return nil
}

// runLoop drives the cooperative blocking cycle. The deferred guard clears
// the running flag, shuts the transport down, and fires the end event
// exactly once on every exit path, cooperative quit and panic escape
// alike. Extinguish never fires end in this mode, so there is no double
// trigger.
func (s *Server) runLoop(ctx context.Context) {
	defer func() {
		s.clearRunning()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.transport.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("transport shutdown error", "error", err)
		}

		// Hijacked websocket connections survive the shutdown and their
		// read loops still route close handling through the transport.
		// Nothing services the queue once the loop is gone, so late jobs
		// must run inline; drain whatever parked before the switch.
		s.transport.SetInline(true)
		s.transport.Service()

		s.closeSources()

		s.dispatch(ctx, event.End, event.Args{"server": s})
		s.logger.Info("loop exited")
	}()

	for {
		s.dispatch(ctx, event.CycleStart, nil)
		s.transport.Service()
		s.pollTriggers(ctx)
		s.dispatch(ctx, event.CycleEnd, nil)

		s.mu.Lock()
		if s.quitting {
			s.quitting = false // consumed exactly once
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		time.Sleep(s.config.RefreshInterval())
	}
}

// Extinguish stops the server. Idle servers warn and return ErrNotRunning.
// A daemon is stopped synchronously: transport shutdown, running cleared,
// end fired. A blocking loop is only asked to quit; the loop itself clears
// running and fires end at the next cycle boundary.
func (s *Server) Extinguish() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn("extinguish ignored: not running")
		return ErrNotRunning
	}
	if !s.daemon {
		s.quitting = true
		s.mu.Unlock()
		s.logger.Info("quit requested, loop will exit at the next cycle boundary")
		return nil
	}
	s.running = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.transport.Shutdown(ctx); err != nil {
		s.logger.Error("transport shutdown error", "error", err)
	}
	s.closeSources()

	s.dispatch(context.Background(), event.End, event.Args{"server": s})
	s.logger.Info("daemon extinguished")
	return nil
}

func (s *Server) clearRunning() {
	s.mu.Lock()
	s.running = false
	s.quitting = false
	s.mu.Unlock()
}

// installTriggerDir wires the configured trigger directory as a source.
// Repeated ignitions must not stack duplicate sources.
func (s *Server) installTriggerDir() error {
	dir := s.config.TriggerDir()
	if dir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		if ds, ok := src.(*trigger.DirSource); ok && ds.Dir() == dir {
			return nil
		}
	}
	src, err := trigger.NewDirSource(dir, s.logger)
	if err != nil {
		return err
	}
	s.sources = append(s.sources, src)
	return nil
}

func (s *Server) closeSources() {
	s.mu.Lock()
	sources := s.sources
	s.mu.Unlock()
	for _, src := range sources {
		if err := src.Close(); err != nil {
			s.logger.Warn("trigger source close failed", "error", err)
		}
	}
}

func (s *Server) showcase() {
	host := s.config.Host()
	if host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	url := fmt.Sprintf("http://%s:%d/", host, s.config.Port())
	if err := openBrowser(url); err != nil {
		s.logger.Warn("browser launch failed", "url", url, "error", err)
	}
}
