package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/stockroom/internal/platform/cache"
	"github.com/odyssey-erp/stockroom/internal/platform/httpx"
)

// ExportFunc renders a view into a file body.
type ExportFunc func(buf *bytes.Buffer, view GroupedView, stats Stats) error

// Exporter pairs a renderer with its content type.
type Exporter struct {
	ContentType string
	Filename    string
	Render      ExportFunc
}

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	cache     *cache.JSONCache
	exporters map[string]Exporter
	group     singleflight.Group
}

// NewHandler constructs inventory handler. cache may be nil.
func NewHandler(logger *slog.Logger, service *Service, views *cache.JSONCache, exporters map[string]Exporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, cache: views, exporters: exporters}
}

// MountRoutes registers inventory routes under /api/inventory.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleView)
	r.Get("/stats", h.handleStats)
	r.Get("/units", h.handleUnits)
	r.Get("/export.{format}", h.handleExport)
	r.Post("/items", h.handleAddItem)
	r.Get("/items/{id}", h.handleGetItem)
	r.Patch("/items/{id}", h.handleUpdateItem)
	r.Put("/items/{id}/fix-count", h.handleFixCount)
	r.Delete("/items/{id}", h.handleDeleteItem)
}

// MountSupplierRoutes registers supplier routes under /api/suppliers.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/", h.handleListSuppliers)
	r.Post("/", h.handleAddSupplier)
	r.Get("/{id}", h.handleGetSupplier)
	r.Put("/{id}", h.handleUpdateSupplier)
	r.Delete("/{id}", h.handleDeleteSupplier)
}

// criteriaFromRequest reads q, supplier, status, uom and preset. Repeated
// and comma separated values are both accepted. A preset replaces every
// other filter.
func (h *Handler) criteriaFromRequest(r *http.Request) (Criteria, error) {
	q := r.URL.Query()
	if preset := strings.TrimSpace(q.Get("preset")); preset != "" {
		return h.service.Preset(preset)
	}
	c := Criteria{
		Query:     q.Get("q"),
		Suppliers: listParam(q["supplier"]),
		UOMs:      listParam(q["uom"]),
	}
	for _, st := range listParam(q["status"]) {
		c.Statuses = append(c.Statuses, StockStatus(strings.ToLower(st)))
	}
	return c, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handler) view(ctx context.Context, c Criteria) (View, error) {
	var out View
	key := h.cache.Key("view", h.service.Snapshot().Revision(), c.Key())
	_, err := h.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return h.service.View(ctx, c), nil
	})
	return out, err
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	c, err := h.criteriaFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.view(r.Context(), c)
	if err != nil {
		h.logger.Error("inventory view", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	c, err := h.criteriaFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.view(r.Context(), c)
	if err != nil {
		h.logger.Error("inventory stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out.Stats)
}

func (h *Handler) handleUnits(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"units": UnitsOfMeasure, "default": DefaultUOM})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	exporter, ok := h.exporters[format]
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unsupported export format %q", format))
		return
	}
	c, err := h.criteriaFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.Join([]string{format, h.service.Snapshot().Revision(), c.Key()}, "|")
	body, err, _ := h.group.Do(key, func() (any, error) {
		view := h.service.View(r.Context(), c)
		grouped := GroupedView{Groups: view.Groups}
		buf := &bytes.Buffer{}
		if err := exporter.Render(buf, grouped, view.Stats); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		h.logger.Error("inventory export", slog.String("format", format), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.([]byte))
}

type addItemRequest struct {
	SupplierID string `json:"supplierId"`
	Name       string `json:"name"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.AddItem(r.Context(), req.SupplierID, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Item(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type updateItemRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type fixCountRequest struct {
	FixCount int `json:"fixCount"`
}

func (h *Handler) handleFixCount(w http.ResponseWriter, r *http.Request) {
	var req fixCountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.SetFixCount(r.Context(), chi.URLParam(r, "id"), req.FixCount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": h.service.Suppliers()})
}

func (h *Handler) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	sup, err := h.service.Supplier(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

func (h *Handler) handleAddSupplier(w http.ResponseWriter, r *http.Request) {
	var rec Supplier
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sup, err := h.service.AddSupplier(r.Context(), rec.ID, rec)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sup)
}

func (h *Handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var rec Supplier
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if rec.ID != "" && rec.ID != id {
		httpx.RespondError(w, fmt.Errorf("%w: supplier id cannot change", httpx.ErrBadRequest))
		return
	}
	sup, err := h.service.UpdateSupplier(r.Context(), id, rec)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

func (h *Handler) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, ErrSupplierNotFound) {
			h.logger.Error("delete supplier", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"itemsRemoved": removed})
}
