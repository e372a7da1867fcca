// handlers_query.go - Filter, aggregate, and detail-table handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/debt-dashboard/backend/internal/format"
	"github.com/debt-dashboard/backend/internal/models"
)

// filterDateLayouts are accepted for date bounds in requests.
var filterDateLayouts = []string{"2006-01-02", time.RFC3339}

// filterRequest is the wire form of a FilterSpec; date bounds arrive as
// strings so plain "2023-01-31" works.
type filterRequest struct {
	DateFrom   string              `json:"dateFrom"`
	DateTo     string              `json:"dateTo"`
	Categories map[string][]string `json:"categories"`
	Years      []int               `json:"years"`
}

func (r *filterRequest) toSpec() (*models.FilterSpec, error) {
	spec := &models.FilterSpec{
		Categories: r.Categories,
		Years:      r.Years,
	}

	var err error
	if spec.DateFrom, err = parseFilterDate(r.DateFrom); err != nil {
		return nil, fmt.Errorf("dateFrom: %w", err)
	}
	if spec.DateTo, err = parseFilterDate(r.DateTo); err != nil {
		return nil, fmt.Errorf("dateTo: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseFilterDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range filterDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", s)
}

// HandleGetFilterOptions returns the distinct values for the filter
// widgets plus the dataset's date range.
func (h *Handler) HandleGetFilterOptions(c echo.Context) error {
	snap, ok := h.provider.Current()
	if !ok {
		return NewDatasetUnavailableError()
	}

	opts, err := snap.Store.Options(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to compute filter options", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"snapshotId": snap.ID,
		"client":     snap.Client,
		"options":    opts,
	})
}

// queryResponse carries the aggregates for one filter specification.
type queryResponse struct {
	SnapshotID string          `json:"snapshotId"`
	Summary    *models.Summary `json:"summary"`
}

// HandleQuery computes the summary aggregates for the posted filter
// specification. An empty match is a valid result, not an error.
func (h *Handler) HandleQuery(c echo.Context) error {
	snap, ok := h.provider.Current()
	if !ok {
		return NewDatasetUnavailableError()
	}

	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	spec, err := req.toSpec()
	if err != nil {
		return NewBadRequestError("invalid filter specification", err)
	}

	summary, err := snap.Store.Summary(c.Request().Context(), spec)
	if err != nil {
		return NewInternalError("failed to compute summary", err)
	}
	formatSummary(summary)

	return c.JSON(http.StatusOK, queryResponse{SnapshotID: snap.ID, Summary: summary})
}

// formatSummary fills the display strings shown by the metric cards and
// the consolidated table.
func formatSummary(s *models.Summary) {
	s.TotalValueFormatted = format.Currency(s.TotalValue)
	for i := range s.ByBank {
		s.ByBank[i].TotalFormatted = format.Currency(s.ByBank[i].Total)
	}
	for i := range s.ByPartner {
		s.ByPartner[i].TotalFormatted = format.Currency(s.ByPartner[i].Total)
	}
}

// contractsResponse is one page of the detail table.
type contractsResponse struct {
	SnapshotID string            `json:"snapshotId"`
	Contracts  []models.Contract `json:"contracts"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Total      int               `json:"total"`
}

// HandleGetContracts returns filtered, paginated detail rows. The filter
// specification is passed via query parameters.
func (h *Handler) HandleGetContracts(c echo.Context) error {
	resp, apiErr := h.queryContracts(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetContractsMsgpack returns the same payload MessagePack-encoded
// for the table virtualizer.
func (h *Handler) HandleGetContractsMsgpack(c echo.Context) error {
	resp, apiErr := h.queryContracts(c)
	if apiErr != nil {
		return apiErr
	}
	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode response", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

func (h *Handler) queryContracts(c echo.Context) (*contractsResponse, *APIError) {
	snap, ok := h.provider.Current()
	if !ok {
		return nil, NewDatasetUnavailableError()
	}

	spec, err := buildFilterSpec(c)
	if err != nil {
		return nil, NewBadRequestError("invalid filter specification", err)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	contracts, total, err := snap.Store.Contracts(c.Request().Context(), spec, page, pageSize)
	if err != nil {
		return nil, NewInternalError("failed to query contracts", err)
	}

	return &contractsResponse{
		SnapshotID: snap.ID,
		Contracts:  contracts,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
	}, nil
}

// buildFilterSpec assembles a FilterSpec from query parameters: dateFrom,
// dateTo, years (repeated), and one repeated parameter per recognized
// categorical column.
func buildFilterSpec(c echo.Context) (*models.FilterSpec, error) {
	req := filterRequest{
		DateFrom:   c.QueryParam("dateFrom"),
		DateTo:     c.QueryParam("dateTo"),
		Categories: map[string][]string{},
	}

	for _, column := range models.RecognizedColumns {
		if values := c.QueryParams()[column]; len(values) > 0 {
			req.Categories[column] = values
		}
	}

	for _, y := range c.QueryParams()["years"] {
		year, err := strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("years: %q is not a number", y)
		}
		req.Years = append(req.Years, year)
	}

	return req.toSpec()
}
