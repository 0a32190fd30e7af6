package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermUsersEdit))
		r.Post("/", h.createUser)
		r.Put("/{id}/active", h.setActive)
		r.Put("/{id}/subscription", h.setSubscription)
	})
}

type userView struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	Username            string     `json:"username"`
	Role                string     `json:"role"`
	SubscriptionStatus  string     `json:"subscription_status"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toUserView(u User) userView {
	return userView{
		ID:                  u.ID,
		Email:               u.Email,
		Username:            u.Username,
		Role:                u.Role,
		SubscriptionStatus:  u.SubscriptionStatus.String(),
		SubscriptionExpires: u.SubscriptionExpires,
		IsActive:            u.IsActive,
		CreatedAt:           u.CreatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, toUserView(u))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toUserView(user))
}

type createUserForm struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var form createUserForm
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
	user, err := h.service.CreateUser(r.Context(), CreateInput{
		Email:    form.Email,
		Username: form.Username,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toUserView(user))
}

type activeForm struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var form activeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form.Active == nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.SetActive(r.Context(), id, *form.Active); err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "active": *form.Active})
}

type subscriptionForm struct {
	Tier    string     `json:"tier" validate:"required,oneof=none monthly yearly lifetime"`
	Expires *time.Time `json:"expires"`
}

func (h *Handler) setSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var form subscriptionForm
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
	tier, err := subscription.ParseTier(form.Tier)
	if err != nil {
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.service.SetSubscription(r.Context(), id, tier, form.Expires); err != nil {
		h.respondMutationError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toUserView(user))
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, roles.ErrNotFound), errors.Is(err, roles.ErrUnknownRole):
		shared.RespondError(w, http.StatusUnprocessableEntity, "unknown role")
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateUsername):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("user mutation", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}
