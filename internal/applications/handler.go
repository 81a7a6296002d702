package applications

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

// Handler exposes applicant and reviewer endpoints.
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

// MountApplicantRoutes registers endpoints for signed-in applicants.
func (h *Handler) MountApplicantRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAuth)
	r.Get("/mine", h.own)
	r.Post("/", h.submit)
}

// MountReviewRoutes registers the staff review endpoints.
func (h *Handler) MountReviewRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermAdminApplications, shared.PermManagementAll))
	r.Get("/", h.list)
	r.Get("/{applicationID}", h.get)
	r.Post("/{applicationID}/approve", h.approve)
	r.Post("/{applicationID}/deny", h.deny)
}

type submitRequest struct {
	CharacterName string `json:"character_name" validate:"required,min=3,max=64"`
	Backstory     string `json:"backstory" validate:"required,min=50,max=8000"`
}

type reviewRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

func (h *Handler) own(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.CurrentUserID(r.Context())
	app, err := h.service.Own(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no pending application")
			return
		}
		h.respondError(w, "load own application", err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	app, err := h.service.Submit(r.Context(), userID, req.CharacterName, req.Backstory)
	if err != nil {
		if errors.Is(err, ErrAlreadyPending) {
			httpx.Problem(w, http.StatusConflict, "Application Pending", "wait for your current application to be reviewed")
			return
		}
		h.respondError(w, "submit application", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	page := shared.PaginationFromRequest(r, 20)
	apps, total, err := h.service.List(r.Context(), status, page)
	if err != nil {
		h.respondError(w, "list applications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"pagination":   shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get application", err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, StatusApproved)
}

func (h *Handler) deny(w http.ResponseWriter, r *http.Request) {
	h.reviewAction(w, r, StatusDenied)
}

func (h *Handler) reviewAction(w http.ResponseWriter, r *http.Request, status Status) {
	id, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())

	var (
		app *Application
		err error
	)
	if status == StatusApproved {
		app, err = h.service.Approve(r.Context(), id, userID, req.Note)
	} else {
		app, err = h.service.Deny(r.Context(), id, userID, req.Note)
	}
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			httpx.Problem(w, http.StatusConflict, "Already Reviewed", "application has already been reviewed")
			return
		}
		h.respondError(w, "review application", err)
		return
	}
	h.recordAudit(r, "application."+string(status), strconv.FormatInt(id, 10), map[string]any{"note": req.Note})
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) applicationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "applicationID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Application ID", "application id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "application does not exist")
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
		Entity:   "application",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
