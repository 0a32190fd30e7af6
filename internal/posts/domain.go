package posts

import (
	"errors"
	"time"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Post is a published or draft piece of content. Premium posts carry the
// tier required to read them in full; everyone else gets the excerpt.
type Post struct {
	ID                   int64
	Title                string
	Body                 string
	Excerpt              string
	IsPremium            bool
	SubscriptionRequired subscription.Tier
	Featured             bool
	Published            bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

var (
	// ErrNotFound indicates that the requested post does not exist.
	ErrNotFound = errors.New("posts: not found")
	// ErrTitleRequired indicates a missing title.
	ErrTitleRequired = errors.New("posts: title required")
	// ErrBodyRequired indicates a missing body.
	ErrBodyRequired = errors.New("posts: body required")
)

const excerptRunes = 200
