// Package api implements the HTTP handlers of the dashboard backend.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/debt-dashboard/backend/internal/dashboard"
	"github.com/debt-dashboard/backend/internal/models"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	provider DatasetProvider
	views    *dashboard.Views
	version  string
}

// NewHandler creates the API handler.
func NewHandler(provider DatasetProvider, views *dashboard.Views, version string) *Handler {
	if views == nil {
		views = dashboard.DefaultViews()
	}
	if version == "" {
		version = "dev"
	}
	return &Handler{
		provider: provider,
		views:    views,
		version:  version,
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", h.HandleHealth)
	apiGroup.GET("/views", h.HandleGetViews)

	apiGroup.GET("/dataset", h.HandleGetDataset)
	apiGroup.POST("/dataset/reload", h.HandleReloadDataset)

	apiGroup.GET("/filters/options", h.HandleGetFilterOptions)
	apiGroup.POST("/query", h.HandleQuery)
	apiGroup.GET("/contracts", h.HandleGetContracts)
	apiGroup.GET("/contracts/msgpack", h.HandleGetContractsMsgpack)
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleGetViews returns the chart definitions the frontend renders.
func (h *Handler) HandleGetViews(c echo.Context) error {
	return c.JSON(http.StatusOK, h.views)
}

// datasetResponse is the snapshot metadata shown in the dashboard header.
type datasetResponse struct {
	SnapshotID    string                `json:"snapshotId"`
	Client        models.ClientInfo     `json:"client"`
	LoadedAt      time.Time             `json:"loadedAt"`
	RecordCount   int                   `json:"recordCount"`
	SkippedCount  int                   `json:"skippedCount"`
	PrepareErrors []models.PrepareError `json:"prepareErrors,omitempty"`
}

// HandleGetDataset returns metadata about the active snapshot.
func (h *Handler) HandleGetDataset(c echo.Context) error {
	snap, ok := h.provider.Current()
	if !ok {
		return NewDatasetUnavailableError()
	}

	return c.JSON(http.StatusOK, datasetResponse{
		SnapshotID:    snap.ID,
		Client:        snap.Client,
		LoadedAt:      snap.LoadedAt,
		RecordCount:   snap.RecordCount,
		SkippedCount:  snap.SkippedCount,
		PrepareErrors: snap.PrepareErrors,
	})
}

// HandleReloadDataset re-reads the dataset file. On failure the previous
// snapshot stays active and the error is surfaced as a 422.
func (h *Handler) HandleReloadDataset(c echo.Context) error {
	if err := h.provider.Reload(); err != nil {
		return NewReloadFailedError(err)
	}
	return h.HandleGetDataset(c)
}
