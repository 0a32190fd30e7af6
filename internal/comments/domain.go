package comments

import (
	"errors"
	"time"
)

// Status is a comment's moderation state. Every comment starts pending and
// only becomes publicly visible once a moderator approves it.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Comment is a reader's comment on a post.
type Comment struct {
	ID             int64
	PostID         int64
	UserID         int64
	AuthorUsername string
	Body           string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	// ErrNotFound indicates that the requested comment does not exist.
	ErrNotFound = errors.New("comments: not found")
	// ErrBodyRequired indicates an empty comment body.
	ErrBodyRequired = errors.New("comments: body required")
	// ErrBodyTooLong indicates the body exceeds the length cap.
	ErrBodyTooLong = errors.New("comments: body too long")
	// ErrPostUnavailable indicates the target post does not exist or is unpublished.
	ErrPostUnavailable = errors.New("comments: post unavailable")
)

const maxBodyRunes = 2000
