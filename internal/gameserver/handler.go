package gameserver

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

// Handler exposes server status and restart management endpoints.
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

// MountPublicRoutes registers the status endpoint.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/status", h.status)
}

// MountAdminRoutes registers the restart management endpoints.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermAdminServer, shared.PermManagementAll))
	r.Get("/restarts", h.restartHistory)
	r.Post("/restarts", h.requestRestart)
	r.Delete("/restarts/pending", h.cancelRestart)
}

type restartRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("game server status", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) restartHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.service.RestartHistory(r.Context(), limit)
	if err != nil {
		h.logger.Error("restart history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"restarts": history})
}

func (h *Handler) requestRestart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	created, err := h.service.RequestRestart(r.Context(), userID, req.Reason)
	if err != nil {
		if errors.Is(err, ErrRestartPending) {
			httpx.Problem(w, http.StatusConflict, "Restart Pending", "a restart request is already pending")
			return
		}
		h.logger.Error("request restart", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.recordAudit(r, "server.restart_request", strconv.FormatInt(created.ID, 10), map[string]any{"reason": req.Reason})
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) cancelRestart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelRestart(r.Context()); err != nil {
		if errors.Is(err, ErrNoPendingRestart) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no pending restart request")
			return
		}
		h.logger.Error("cancel restart", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.recordAudit(r, "server.restart_cancel", "pending", nil)
	httpx.NoContent(w)
}

func (h *Handler) recordAudit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actor, _ := shared.CurrentUserID(r.Context())
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "server",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
