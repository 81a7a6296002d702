package reports

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

// Handler exposes player and staff endpoints for support reports.
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

// MountPlayerRoutes registers endpoints available to any signed-in user.
func (h *Handler) MountPlayerRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAuth)
	r.Get("/", h.listMine)
	r.Post("/", h.create)
	r.Get("/{reportID}", h.getOwn)
	r.Post("/{reportID}/messages", h.replyAsPlayer)
}

// MountStaffRoutes registers the support-team endpoints.
func (h *Handler) MountStaffRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermSupportRead, shared.PermManagementAll))
	r.Get("/", h.list)
	r.Get("/{reportID}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSupportReply, shared.PermManagementAll))
		r.Post("/{reportID}/claim", h.claim)
		r.Post("/{reportID}/messages", h.replyAsStaff)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSupportClose, shared.PermManagementAll))
		r.Put("/{reportID}/status", h.setStatus)
	})
}

type createReportRequest struct {
	Subject string `json:"subject" validate:"required,min=4,max=160"`
	Body    string `json:"body" validate:"required,min=10,max=4000"`
}

type replyRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress closed"`
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.CurrentUserID(r.Context())
	page := shared.PaginationFromRequest(r, 20)
	reps, total, err := h.service.ListForPlayer(r.Context(), userID, page)
	if err != nil {
		h.respondError(w, "list own reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"reports":    reps,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("claimed"); v != "" {
		claimed := v == "true" || v == "1"
		filter.Claimed = &claimed
	}
	page := shared.PaginationFromRequest(r, 20)
	reps, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.respondError(w, "list reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"reports":    reps,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	rep, err := h.service.Create(r.Context(), userID, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, ErrTooManyOpen) {
			httpx.Problem(w, http.StatusConflict, "Too Many Open Reports", "close an existing report before opening another")
			return
		}
		h.respondError(w, "create report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rep)
}

func (h *Handler) getOwn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	rep, msgs, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get report", err)
		return
	}
	// Players only ever see their own threads.
	if rep.AuthorID != userID {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "report does not exist")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": rep, "messages": msgs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	rep, msgs, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": rep, "messages": msgs})
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	rep, err := h.service.Claim(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrReportClosed) {
			httpx.Problem(w, http.StatusConflict, "Report Closed", "closed reports cannot be claimed")
			return
		}
		h.respondError(w, "claim report", err)
		return
	}
	h.recordAudit(r, "report.claim", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.service.SetStatus(r.Context(), id, Status(req.Status))
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
			return
		}
		h.respondError(w, "set report status", err)
		return
	}
	h.recordAudit(r, "report.status", strconv.FormatInt(id, 10), map[string]any{"status": req.Status})
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) replyAsPlayer(w http.ResponseWriter, r *http.Request) {
	h.reply(w, r, false)
}

func (h *Handler) replyAsStaff(w http.ResponseWriter, r *http.Request) {
	h.reply(w, r, true)
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request, fromStaff bool) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, _ := shared.CurrentUserID(r.Context())
	msg, err := h.service.Reply(r.Context(), id, userID, fromStaff, req.Body)
	if err != nil {
		if errors.Is(err, ErrReportClosed) {
			httpx.Problem(w, http.StatusConflict, "Report Closed", "closed reports cannot receive messages")
			return
		}
		h.respondError(w, "reply to report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
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

func (h *Handler) reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Report ID", "report id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "report does not exist")
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
		Entity:   "report",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
