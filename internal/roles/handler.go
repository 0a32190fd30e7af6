package roles

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Handler manages role administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermRolesView))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermUsersEdit))
		r.Post("/assign", h.assignRole)
	})
}

type roleView struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	DisplayName       string    `json:"display_name"`
	Description       string    `json:"description,omitempty"`
	Permissions       []string  `json:"permissions"`
	SubscriptionLevel string    `json:"subscription_level"`
	AutoAssign        bool      `json:"auto_assign"`
	IsSystem          bool      `json:"is_system"`
	CreatedAt         time.Time `json:"created_at"`
}

func toRoleView(r Role) roleView {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return roleView{
		ID:                r.ID,
		Name:              r.Name,
		DisplayName:       r.DisplayName,
		Description:       r.Description,
		Permissions:       perms,
		SubscriptionLevel: r.SubscriptionLevel.String(),
		AutoAssign:        r.AutoAssign,
		IsSystem:          r.IsSystem,
		CreatedAt:         r.CreatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]roleView, 0, len(list))
	for _, role := range list {
		out = append(out, toRoleView(role))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

type roleForm struct {
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name" validate:"required"`
	Description       string   `json:"description"`
	Permissions       []string `json:"permissions"`
	SubscriptionLevel string   `json:"subscription_level" validate:"omitempty,oneof=none monthly yearly lifetime"`
	AutoAssign        bool     `json:"auto_assign"`
}

// decodeRoleForm parses and validates the shared create/update body. The
// name field is only used on create; updates address roles by ID and the
// name stays immutable.
func (h *Handler) decodeRoleForm(w http.ResponseWriter, r *http.Request) (RoleInput, bool) {
	var form roleForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return RoleInput{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Error()
		}
		shared.RespondValidationErrors(w, fields)
		return RoleInput{}, false
	}
	tier, err := subscription.ParseTier(form.SubscriptionLevel)
	if err != nil {
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return RoleInput{}, false
	}
	return RoleInput{
		Name:              form.Name,
		DisplayName:       form.DisplayName,
		Description:       form.Description,
		Permissions:       form.Permissions,
		SubscriptionLevel: tier,
		AutoAssign:        form.AutoAssign,
	}, true
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeRoleForm(w, r)
	if !ok {
		return
	}
	role, err := h.service.CreateRole(r.Context(), in)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toRoleView(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid role id")
		return
	}
	in, ok := h.decodeRoleForm(w, r)
	if !ok {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, in)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toRoleView(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid role id")
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignForm struct {
	UserID int64  `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var form assignForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Error()
		}
		shared.RespondValidationErrors(w, fields)
		return
	}
	if err := h.service.AssignRole(r.Context(), form.UserID, form.Role); err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"user_id": form.UserID, "role": form.Role})
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, ErrUnknownRole):
		shared.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSystemRole),
		errors.Is(err, ErrRoleInUse),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrDisplayNameRequired),
		errors.Is(err, ErrAutoAssignTaken):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("role mutation", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}
