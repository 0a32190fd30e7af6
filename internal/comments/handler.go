package comments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chloe-belle/chloe-belle/internal/shared"
)

// Handler manages comment submission, public reads and the moderation queue.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPostRoutes registers the per-post comment routes. Expects to be
// mounted under a pattern that binds the post's {id}.
func (h *Handler) MountPostRoutes(r chi.Router) {
	r.Get("/", h.listApproved)
	r.Group(func(r chi.Router) {
		r.Use(shared.RequireAuthenticated())
		r.Post("/", h.submit)
	})
}

// MountModerationRoutes registers the moderation queue routes.
func (h *Handler) MountModerationRoutes(r chi.Router) {
	r.Use(shared.RequirePermission(shared.PermCommentsModerate))
	r.Get("/", h.pendingQueue)
	r.Post("/{commentID}/approve", h.approve)
	r.Post("/{commentID}/reject", h.reject)
}

type commentView struct {
	ID            int64     `json:"id"`
	PostID        int64     `json:"post_id"`
	Author        string    `json:"author"`
	AuthorDisplay string    `json:"author_display"`
	Body          string    `json:"body"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toCommentView(c Comment) commentView {
	// Usernames double as display names; title-case them for rendering.
	display := cases.Title(language.English).String(c.AuthorUsername)
	return commentView{
		ID:            c.ID,
		PostID:        c.PostID,
		Author:        c.AuthorUsername,
		AuthorDisplay: display,
		Body:          c.Body,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
	}
}

func (h *Handler) listApproved(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "id", "invalid post id")
	if !ok {
		return
	}
	list, err := h.service.ListApproved(r.Context(), postID)
	if err != nil {
		h.logger.Error("list comments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]commentView, 0, len(list))
	for _, c := range list {
		out = append(out, toCommentView(c))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"comments": out})
}

type submitForm struct {
	Body string `json:"body" validate:"required"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "id", "invalid post id")
	if !ok {
		return
	}
	var form submitForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		shared.RespondValidationErrors(w, map[string]string{"Body": "required"})
		return
	}
	actor := shared.ActorFromContext(r.Context())
	c, err := h.service.Submit(r.Context(), actor.ID, postID, form.Body)
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, toCommentView(c))
}

func (h *Handler) pendingQueue(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.PendingQueue(r.Context())
	if err != nil {
		h.logger.Error("pending comments", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	out := make([]commentView, 0, len(list))
	for _, c := range list {
		out = append(out, toCommentView(c))
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"comments": out})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, StatusApproved)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, StatusRejected)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, status Status) {
	id, ok := h.pathID(w, r, "commentID", "invalid comment id")
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	var err error
	if status == StatusApproved {
		err = h.service.Approve(r.Context(), id, actor.ID)
	} else {
		err = h.service.Reject(r.Context(), id, actor.ID)
	}
	if err != nil {
		h.respondMutationError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "status": string(status)})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param, message string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "comment not found")
	case errors.Is(err, ErrPostUnavailable):
		shared.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBodyRequired), errors.Is(err, ErrBodyTooLong):
		shared.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("comment mutation", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}
