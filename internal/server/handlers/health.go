package handlers

import (
	"context"

	"github.com/maruel/tabledb/internal/models"
	"github.com/maruel/tabledb/internal/storage"
)

// HealthHandler reports whether the server is up.
type HealthHandler struct {
	db *storage.DatabaseService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *storage.DatabaseService) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req models.HealthRequest) (*models.HealthResponse, error) {
	return &models.HealthResponse{Status: "ok", Tables: h.db.Catalog().Len()}, nil
}
