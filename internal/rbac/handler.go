package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ftwrp/companion/internal/platform/httpx"
	"github.com/ftwrp/companion/internal/shared"
)

// Handler exposes role and permission administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		rbac:      rbac,
		validator: validator.New(),
	}
}

// MountRoutes registers RBAC admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAdminRoles, shared.PermManagementAll))

		r.Get("/roles", h.listRoles)
		r.Post("/roles", h.createRole)
		r.Get("/roles/{roleID}", h.getRole)
		r.Put("/roles/{roleID}", h.updateRole)
		r.Delete("/roles/{roleID}", h.deleteRole)
		r.Get("/roles/{roleID}/permissions", h.rolePermissions)
		r.Put("/roles/{roleID}/permissions", h.setRolePermissions)

		r.Get("/permissions", h.listPermissions)

		r.Post("/users/{userID}/roles", h.assignRole)
		r.Delete("/users/{userID}/roles/{roleID}", h.removeRole)
		r.Get("/users/{userID}/permissions", h.userPermissions)
	})
}

type createRoleRequest struct {
	Identifier  string `json:"identifier" validate:"required,min=2,max=64"`
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
}

type updateRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=512"`
}

type setRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,min=1,max=128"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Identifier, req.Name, req.Description)
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	h.recordAudit(r, "role.create", strconv.FormatInt(role.ID, 10), map[string]any{"identifier": role.Identifier})
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	h.recordAudit(r, "role.update", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	h.recordAudit(r, "role.delete", strconv.FormatInt(id, 10), nil)
	httpx.NoContent(w)
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		h.respondError(w, "role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req setRolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, req.Permissions); err != nil {
		h.respondError(w, "set role permissions", err)
		return
	}
	h.recordAudit(r, "role.permissions.set", strconv.FormatInt(id, 10), map[string]any{"count": len(req.Permissions)})
	httpx.NoContent(w)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.respondError(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	h.recordAudit(r, "user.role.assign", userID, map[string]any{"role_id": req.RoleID})
	httpx.NoContent(w)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveRole(r.Context(), userID, roleID); err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	h.recordAudit(r, "user.role.remove", userID, map[string]any{"role_id": roleID})
	httpx.NoContent(w)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	perms := h.service.EffectivePermissions(r.Context(), userID)
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "permissions": perms})
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", "role id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role does not exist")
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
		Entity:   "rbac",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
