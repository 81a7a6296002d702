package players

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

// Handler exposes roster administration endpoints.
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

// MountRoutes registers roster routes with per-action permission gates.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAdminPlayers, shared.PermManagementAll))
		r.Get("/", h.list)
		r.Get("/{playerID}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAdminEconomy, shared.PermManagementAll))
		r.Post("/{playerID}/balance", h.adjustBalance)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAdminBan, shared.PermManagementAll))
		r.Post("/{playerID}/ban", h.ban)
		r.Delete("/{playerID}/ban", h.unban)
	})
}

type adjustBalanceRequest struct {
	CashDelta int64  `json:"cash_delta"`
	BankDelta int64  `json:"bank_delta"`
	Reason    string `json:"reason" validate:"required,min=3,max=500"`
}

type banRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := ListQuery{
		Search: qs.Get("search"),
		Job:    qs.Get("job"),
		Sort:   qs.Get("sort"),
		Desc:   qs.Get("order") == "desc",
	}
	if v := qs.Get("banned"); v != "" {
		banned := v == "true" || v == "1"
		q.Banned = &banned
	}
	page := shared.PaginationFromRequest(r, 25)
	list, total, err := h.service.List(r.Context(), q, page)
	if err != nil {
		h.respondError(w, "list players", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"players":    list,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.playerID(w, r)
	if !ok {
		return
	}
	p, vehicles, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get player", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"player": p, "vehicles": vehicles})
}

func (h *Handler) adjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.playerID(w, r)
	if !ok {
		return
	}
	var req adjustBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.AdjustBalance(r.Context(), id, req.CashDelta, req.BankDelta)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondError(w, "adjust balance", err)
			return
		}
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Adjustment", err.Error())
		return
	}
	h.recordAudit(r, "player.balance", strconv.FormatInt(id, 10), map[string]any{
		"cash_delta": req.CashDelta,
		"bank_delta": req.BankDelta,
		"reason":     req.Reason,
	})
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request) {
	id, ok := h.playerID(w, r)
	if !ok {
		return
	}
	var req banRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := shared.CurrentUserID(r.Context())
	p, err := h.service.Ban(r.Context(), id, req.Reason, actor)
	if err != nil {
		if errors.Is(err, ErrAlreadyBanned) {
			httpx.Problem(w, http.StatusConflict, "Already Banned", "player is already banned")
			return
		}
		h.respondError(w, "ban player", err)
		return
	}
	h.recordAudit(r, "player.ban", strconv.FormatInt(id, 10), map[string]any{"reason": req.Reason})
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) unban(w http.ResponseWriter, r *http.Request) {
	id, ok := h.playerID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Unban(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotBanned) {
			httpx.Problem(w, http.StatusConflict, "Not Banned", "player is not banned")
			return
		}
		h.respondError(w, "unban player", err)
		return
	}
	h.recordAudit(r, "player.unban", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) playerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "playerID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Player ID", "player id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "player does not exist")
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
		Entity:   "player",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
