package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "nfcli/internal/errors"
	"nfcli/internal/services"
)

// TableHandler handles table loading, inspection and export requests.
type TableHandler struct {
	service     *services.TableService
	validate    *validator.Validate
	logger      *slog.Logger
	previewRows int
}

// NewTableHandler creates a table handler. previewRows caps the rows a
// preview response may carry.
func NewTableHandler(service *services.TableService, previewRows int, logger *slog.Logger) *TableHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableHandler{
		service:     service,
		validate:    validator.New(),
		logger:      logger.With(slog.String("component", "table_handler")),
		previewRows: previewRows,
	}
}

// Routes returns the table routes.
func (h *TableHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/load", h.Load)
	r.Post("/export", h.Export)
	r.Get("/meta", h.Meta)
	r.Get("/preview", h.Preview)
	r.Get("/summary", h.Summary)
	r.Get("/current", h.Current)
	r.Delete("/cache", h.ClearCache)

	return r
}

// LoadRequest asks for a source file to be processed.
type LoadRequest struct {
	Path string `json:"path" validate:"required"`
}

// Bind implements render.Binder.
func (req *LoadRequest) Bind(r *http.Request) error {
	return nil
}

// Load handles POST /api/v1/tables/load.
func (h *TableHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := render.Bind(r, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderError(w, r, apierrors.ErrValidation("path", "path is required"))
		return
	}

	result, err := h.service.Load(r.Context(), req.Path)
	if err != nil {
		h.renderError(w, r, apierrors.FromIngest(err))
		return
	}
	render.JSON(w, r, result)
}

// ExportRequest asks for a loaded table to be written out.
type ExportRequest struct {
	Path   string `json:"path" validate:"required"`
	Format string `json:"format" validate:"required,oneof=csv xlsx zip"`
}

// Bind implements render.Binder.
func (req *ExportRequest) Bind(r *http.Request) error {
	return nil
}

// Export handles POST /api/v1/tables/export.
func (h *TableHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := render.Bind(r, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderError(w, r, apierrors.ErrValidation("format", "format must be one of csv, xlsx, zip"))
		return
	}

	out, err := h.service.Export(r.Context(), req.Path, req.Format)
	if err != nil {
		h.renderError(w, r, apierrors.FromIngest(err))
		return
	}
	render.JSON(w, r, map[string]string{"file": out})
}

// Meta handles GET /api/v1/tables/meta?path=...
func (h *TableHandler) Meta(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.renderError(w, r, apierrors.ErrValidation("path", "path query parameter is required"))
		return
	}

	result, err := h.service.Load(r.Context(), path)
	if err != nil {
		h.renderError(w, r, apierrors.FromIngest(err))
		return
	}
	render.JSON(w, r, result)
}

// Preview handles GET /api/v1/tables/preview?path=...&rows=N.
func (h *TableHandler) Preview(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.renderError(w, r, apierrors.ErrValidation("path", "path query parameter is required"))
		return
	}

	rows := h.previewRows
	if raw := r.URL.Query().Get("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.renderError(w, r, apierrors.ErrValidation("rows", "rows must be a positive integer"))
			return
		}
		if n < rows {
			rows = n
		}
	}

	result, err := h.service.Preview(r.Context(), path, rows)
	if err != nil {
		h.renderError(w, r, apierrors.FromIngest(err))
		return
	}
	render.JSON(w, r, result)
}

// Summary handles GET /api/v1/tables/summary?path=...
func (h *TableHandler) Summary(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.renderError(w, r, apierrors.ErrValidation("path", "path query parameter is required"))
		return
	}

	summary, err := h.service.Summary(r.Context(), path)
	if err != nil {
		h.renderError(w, r, apierrors.FromIngest(err))
		return
	}
	render.JSON(w, r, summary)
}

// Current handles GET /api/v1/tables/current.
func (h *TableHandler) Current(w http.ResponseWriter, r *http.Request) {
	path, ok := h.service.Current(r.Context())
	if !ok {
		h.renderError(w, r, apierrors.ErrNoCurrentData)
		return
	}
	render.JSON(w, r, map[string]string{"path": path})
}

// ClearCache handles DELETE /api/v1/tables/cache.
func (h *TableHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache(r.Context())
	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func (h *TableHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	h.logger.WarnContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error_code", apiErr.ErrorCode))
	render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}
