package posts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chloe-belle/chloe-belle/internal/access"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Handler manages public post reads and back-office post management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the reader-facing routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.feed)
	r.Get("/{id}", h.readPost)
}

// MountAdminRoutes registers the back-office routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Use(shared.RequirePermission(shared.PermPostsEdit))
	r.Get("/", h.listAll)
	r.Post("/", h.createPost)
	r.Put("/{id}", h.updatePost)
	r.Delete("/{id}", h.deletePost)
}

type postView struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Body                 string    `json:"body,omitempty"`
	Excerpt              string    `json:"excerpt"`
	IsPremium            bool      `json:"is_premium"`
	SubscriptionRequired string    `json:"subscription_required"`
	Featured             bool      `json:"featured"`
	Published            bool      `json:"published"`
	Blurred              bool      `json:"blurred"`
	Reason               string    `json:"reason,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

func toPostView(res ReadResult) postView {
	p := res.Post
	return postView{
		ID:                   p.ID,
		Title:                p.Title,
		Body:                 p.Body,
		Excerpt:              p.Excerpt,
		IsPremium:            p.IsPremium,
		SubscriptionRequired: p.SubscriptionRequired.String(),
		Featured:             p.Featured,
		Published:            p.Published,
		Blurred:              !res.Decision.Allowed && res.Decision.Teaser,
		Reason:               string(res.Decision.Reason),
		CreatedAt:            p.CreatedAt,
	}
}

func viewOptions(r *http.Request) access.ViewOptions {
	return access.ViewOptions{APIRequest: strings.HasPrefix(r.URL.Path, "/api/")}
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	list, err := h.service.Feed(r.Context(), actor, viewOptions(r))
	if err != nil {
		h.logger.Error("post feed", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]postView, 0, len(list))
	for _, res := range list {
		out = append(out, toPostView(res))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (h *Handler) readPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	res, err := h.service.Read(r.Context(), actor, id, viewOptions(r))
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	switch {
	case res.Decision.Allowed:
		shared.RespondJSON(w, http.StatusOK, toPostView(res))
	case res.Decision.Teaser:
		// 402 carries the teaser body so clients can render the blurred
		// preview with an upgrade prompt.
		shared.RespondJSON(w, http.StatusPaymentRequired, toPostView(res))
	default:
		shared.RespondError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	}
}

type postForm struct {
	Title                string `json:"title" validate:"required"`
	Body                 string `json:"body" validate:"required"`
	Excerpt              string `json:"excerpt"`
	IsPremium            bool   `json:"is_premium"`
	SubscriptionRequired string `json:"subscription_required" validate:"omitempty,oneof=none monthly yearly lifetime"`
	Featured             bool   `json:"featured"`
	Published            bool   `json:"published"`
}

func (h *Handler) decodePostForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var form postForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return Input{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Error()
		}
		shared.RespondValidationErrors(w, fields)
		return Input{}, false
	}
	tier, err := subscription.ParseTier(form.SubscriptionRequired)
	if err != nil {
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return Input{}, false
	}
	return Input{
		Title:                form.Title,
		Body:                 form.Body,
		Excerpt:              form.Excerpt,
		IsPremium:            form.IsPremium,
		SubscriptionRequired: tier,
		Featured:             form.Featured,
		Published:            form.Published,
	}, true
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]postView, 0, len(list))
	for _, p := range list {
		out = append(out, toPostView(ReadResult{Post: p, Decision: access.Decision{Allowed: true}}))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePostForm(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toPostView(ReadResult{Post: p, Decision: access.Decision{Allowed: true}}))
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodePostForm(w, r)
	if !ok {
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, toPostView(ReadResult{Post: p, Decision: access.Decision{Allowed: true}}))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrBodyRequired):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("post mutation", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}
