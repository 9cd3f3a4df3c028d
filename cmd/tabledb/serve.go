package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maruel/tabledb/internal/server"
)

func runServe(ctx context.Context, e *env, _ []string) error {
	addr := e.cfg.HTTP
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if e.cfg.Watch {
		if err := e.db.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch %s: %w", e.db.FileStore().Path(), err)
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return serve(ctx, e, ln)
}

// serve answers API requests on ln until ctx is canceled.
func serve(ctx context.Context, e *env, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           server.NewRouter(ctx, e.db, server.Config{RateLimitPerMin: e.cfg.RateLimitPerMin}),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.InfoContext(ctx, "Starting server", "addr", ln.Addr().String(), "db", e.db.FileStore().Path())
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
		return nil
	})
	return eg.Wait()
}
