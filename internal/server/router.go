// Package server exposes a tabledb database over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	apierrors "github.com/maruel/tabledb/internal/errors"
	"github.com/maruel/tabledb/internal/server/handlers"
	"github.com/maruel/tabledb/internal/server/ratelimit"
	"github.com/maruel/tabledb/internal/storage"
)

// Config controls the router.
type Config struct {
	// RateLimitPerMin is the number of requests per minute per client. 0
	// disables rate limiting.
	RateLimitPerMin int
}

// NewRouter creates and configures the HTTP router. Background work stops when
// ctx is canceled.
func NewRouter(ctx context.Context, db *storage.DatabaseService, cfg Config) http.Handler {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(db)
	tableHandler := handlers.NewTableHandler(db)

	mux.Handle("GET /api/health", Wrap(healthHandler.Health))

	mux.Handle("GET /api/tables", Wrap(tableHandler.ListTables))
	mux.Handle("POST /api/tables", Wrap(tableHandler.CreateTable))
	mux.Handle("DELETE /api/tables/{table}", Wrap(tableHandler.DropTable))

	mux.Handle("GET /api/tables/{table}/records", Wrap(tableHandler.PullRecords))
	mux.Handle("POST /api/tables/{table}/records", Wrap(tableHandler.PushRecord))
	mux.Handle("PATCH /api/tables/{table}/records", Wrap(tableHandler.SetRecords))
	mux.Handle("DELETE /api/tables/{table}/records", Wrap(tableHandler.DeleteRecords))
	mux.Handle("GET /api/tables/{table}/count", Wrap(tableHandler.CountRecords))

	var h http.Handler = mux
	if cfg.RateLimitPerMin > 0 {
		burst := max(cfg.RateLimitPerMin/6, 1)
		h = ratelimit.Middleware(ratelimit.NewLimiter(ctx, cfg.RateLimitPerMin, time.Minute, burst), rateLimited)(h)
	}
	return RequestLog(h)
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, apierrors.RateLimited())
}
