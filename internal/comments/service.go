package comments

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/chloe-belle/chloe-belle/internal/posts"
)

// PostChecker verifies that a comment target exists and is published.
type PostChecker interface {
	GetPost(ctx context.Context, id int64) (posts.Post, error)
}

// Service handles comment submission and the moderation queue.
type Service struct {
	repo   RepositoryPort
	posts  PostChecker
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, postChecker PostChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, posts: postChecker, logger: logger}
}

// Submit files a new comment in the pending state. The post must exist and
// be published; commenting does not require being able to read the full
// body, so teaser viewers can comment too.
func (s *Service) Submit(ctx context.Context, userID, postID int64, body string) (Comment, error) {
	body = norm.NFC.String(strings.TrimSpace(body))
	if body == "" {
		return Comment{}, ErrBodyRequired
	}
	if len([]rune(body)) > maxBodyRunes {
		return Comment{}, ErrBodyTooLong
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			return Comment{}, ErrPostUnavailable
		}
		return Comment{}, err
	}
	if !post.Published {
		return Comment{}, ErrPostUnavailable
	}

	return s.repo.CreateComment(ctx, Comment{
		PostID: postID,
		UserID: userID,
		Body:   body,
		Status: StatusPending,
	})
}

// ListApproved returns a post's publicly visible comments.
func (s *Service) ListApproved(ctx context.Context, postID int64) ([]Comment, error) {
	return s.repo.ListByPost(ctx, postID, StatusApproved)
}

// PendingQueue returns every comment awaiting moderation.
func (s *Service) PendingQueue(ctx context.Context) ([]Comment, error) {
	return s.repo.ListByStatus(ctx, StatusPending)
}

// Approve makes a comment publicly visible.
func (s *Service) Approve(ctx context.Context, id int64, moderatorID int64) error {
	return s.moderate(ctx, id, moderatorID, StatusApproved)
}

// Reject hides a comment permanently. The row is kept for audit.
func (s *Service) Reject(ctx context.Context, id int64, moderatorID int64) error {
	return s.moderate(ctx, id, moderatorID, StatusRejected)
}

func (s *Service) moderate(ctx context.Context, id, moderatorID int64, status Status) error {
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("comment moderated",
		slog.Int64("comment_id", id),
		slog.Int64("moderator_id", moderatorID),
		slog.String("status", string(status)))
	return nil
}
