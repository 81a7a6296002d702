package news

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ftwrp/companion/internal/platform/httpx"
	"github.com/ftwrp/companion/internal/rbac"
	"github.com/ftwrp/companion/internal/shared"
)

// Handler exposes public and editorial news endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		rbac:      mw,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the unauthenticated feed.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.listPublished)
	r.Get("/{slug}", h.getPublished)
}

// MountEditorRoutes registers the editorial endpoints.
func (h *Handler) MountEditorRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermAdminNews, shared.PermManagementAll))
	r.Get("/", h.listAll)
	r.Post("/", h.create)
	r.Get("/{postID}", h.get)
	r.Put("/{postID}", h.update)
	r.Delete("/{postID}", h.delete)
}

type postRequest struct {
	Title   string `json:"title" validate:"required,min=4,max=200"`
	Body    string `json:"body" validate:"required,min=10"`
	Publish bool   `json:"publish"`
}

func (h *Handler) listPublished(w http.ResponseWriter, r *http.Request) {
	page := shared.PaginationFromRequest(r, 10)
	posts, total, err := h.service.ListPublished(r.Context(), page)
	if err != nil {
		h.respondError(w, "list published posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) getPublished(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, "get published post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page := shared.PaginationFromRequest(r, 10)
	posts, total, err := h.service.ListAll(r.Context(), page)
	if err != nil {
		h.respondError(w, "list posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	post, err := h.service.Create(r.Context(), userID, req.Title, req.Body, req.Publish)
	if err != nil {
		h.respondError(w, "create post", err)
		return
	}
	h.recordAudit(r, "news.create", post.Slug, nil)
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	var req postRequest
	if !h.decode(w, r, &req) {
		return
	}
	post, err := h.service.Update(r.Context(), id, req.Title, req.Body, req.Publish)
	if err != nil {
		h.respondError(w, "update post", err)
		return
	}
	h.recordAudit(r, "news.update", post.Slug, nil)
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete post", err)
		return
	}
	h.recordAudit(r, "news.delete", strconv.FormatInt(id, 10), nil)
	httpx.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Post ID", "post id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "post does not exist")
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actor, _ := shared.CurrentUserID(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "news",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
