package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/typewriter/internal/api"
	"github.com/dgallion1/typewriter/internal/config"
	"github.com/dgallion1/typewriter/internal/parser"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/session"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every controller runs on the frame loop goroutine.
	loop := playback.NewFrameLoop(cfg.FrameInterval, log)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	stats := playback.NewFrameStats(cfg.FrameInterval, playback.DefaultStatsWindow)
	sessions := session.NewManager(loop, stats, session.Config{
		MaxSessions: cfg.MaxSessions,
		TTL:         cfg.SessionTTL,
		Parser:      parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, log)
	go sessions.Run(ctx, 5*time.Minute)

	srv := api.NewServer(sessions, stats, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		log.Error("listen", "addr", httpServer.Addr, "error", err)
		os.Exit(1)
	}

	log.Info("starting typewriter", "port", cfg.Port, "frame_interval", cfg.FrameInterval.String())
	err = serve(sigCtx, httpServer, ln, log, func(shutdownCtx context.Context) {
		if err := sessions.Close(shutdownCtx); err != nil {
			log.Warn("closing sessions", "error", err)
		}
		cancel()
		<-loopDone
	})
	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

const shutdownTimeout = 10 * time.Second

// serve runs srv on ln until ctx is done, then shuts the server down and
// calls drain. It returns only after drain has finished.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, log *slog.Logger, drain func(context.Context)) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	drain(shutdownCtx)

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
