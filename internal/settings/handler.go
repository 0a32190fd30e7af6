package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chloe-belle/chloe-belle/internal/shared"
)

// Handler exposes admin endpoints for site settings.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store, validator: validator.New()}
}

// MountRoutes registers setting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermSettingsView))
		r.Get("/", h.listSettings)
	})
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePermission(shared.PermSettingsEdit))
		r.Put("/{key}", h.putSetting)
	})
}

type settingView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list settings", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]settingView, 0, len(stored))
	for _, s := range stored {
		out = append(out, settingView{Key: s.Key, Value: s.Value, Kind: string(s.Kind)})
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"settings": out})
}

type putSettingForm struct {
	Value string `json:"value"`
	Kind  string `json:"kind" validate:"required,oneof=string integer boolean json text"`
}

func (h *Handler) putSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var form putSettingForm
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

	if err := h.store.Set(r.Context(), key, form.Value, Kind(form.Kind)); err != nil {
		h.logger.Warn("put setting", slog.String("key", key), slog.Any("error", err))
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	shared.RespondJSON(w, http.StatusOK, settingView{Key: key, Value: form.Value, Kind: form.Kind})
}
