package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "visamatch/pkg/domain-errors"
	"visamatch/pkg/platform/httputil"
	"visamatch/pkg/platform/middleware/admin"
	"visamatch/pkg/requestcontext"
)

// CatalogReloader re-reads the visa catalog from its source.
type CatalogReloader interface {
	Reload() error
}

// VersionSource reports the active rule set version.
type VersionSource interface {
	Version() string
}

// CatalogResponse reports the rule set in force after an admin call.
type CatalogResponse struct {
	RuleSetVersion string `json:"ruleSetVersion"`
	Reloaded       bool   `json:"reloaded"`
}

// AdminHandler exposes operator endpoints for the rule catalog.
type AdminHandler struct {
	reloader CatalogReloader
	version  VersionSource
	logger   *slog.Logger
}

// NewAdmin builds the admin handler. reloader is nil when the catalog is
// embedded and cannot be reloaded.
func NewAdmin(reloader CatalogReloader, version VersionSource, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{reloader: reloader, version: version, logger: logger}
}

// Register mounts the admin endpoints behind the admin token.
func (h *AdminHandler) Register(r chi.Router, token string) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(token, h.logger))
		r.Get("/catalog", h.HandleCatalog)
		r.Post("/catalog/reload", h.HandleReload)
	})
}

// HandleCatalog handles GET /admin/catalog.
func (h *AdminHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CatalogResponse{RuleSetVersion: h.version.Version()})
}

// HandleReload handles POST /admin/catalog/reload. A rejected catalog leaves
// the previous rule set in force.
func (h *AdminHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if h.reloader == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "catalog is embedded and cannot be reloaded"))
		return
	}
	before := h.version.Version()
	if err := h.reloader.Reload(); err != nil {
		h.logger.ErrorContext(ctx, "catalog reload rejected",
			"request_id", requestID,
			"rule_set_version", before,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnprocessable, "catalog rejected: "+err.Error()))
		return
	}
	after := h.version.Version()
	h.logger.InfoContext(ctx, "catalog reload requested",
		"request_id", requestID,
		"rule_set_version", after,
		"changed", before != after,
	)
	httputil.WriteJSON(w, http.StatusOK, CatalogResponse{RuleSetVersion: after, Reloaded: before != after})
}
