package posts

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/chloe-belle/chloe-belle/internal/access"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Service handles post reads through the access gate and back-office writes.
type Service struct {
	repo RepositoryPort
	gate *access.Gate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, gate *access.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// ReadResult pairs a post with the gate's verdict for the requesting actor.
// When the decision denies, Post carries only teaser fields.
type ReadResult struct {
	Post     Post
	Decision access.Decision
}

// Feed returns the published feed for the actor. Entries the actor may not
// read in full are stripped to their excerpt; browsing never consumes
// free-view quota.
func (s *Service) Feed(ctx context.Context, actor shared.Actor, opts access.ViewOptions) ([]ReadResult, error) {
	list, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	opts.Peek = true
	out := make([]ReadResult, 0, len(list))
	for _, p := range list {
		d := s.gate.CanView(ctx, actor, resourceFor(p), opts)
		if !d.Allowed && !d.Teaser {
			continue
		}
		if !d.Allowed {
			p = p.teaser()
		}
		out = append(out, ReadResult{Post: p, Decision: d})
	}
	return out, nil
}

// Read fetches a single published post through the gate, consuming a
// free-view unit when that is what grants access. Denied premium reads
// still return the teaser when the decision allows showing one.
func (s *Service) Read(ctx context.Context, actor shared.Actor, id int64, opts access.ViewOptions) (ReadResult, error) {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return ReadResult{}, err
	}
	if !p.Published && !actor.HasPermission(shared.PermPostsEdit) {
		return ReadResult{}, ErrNotFound
	}
	d := s.gate.CanView(ctx, actor, resourceFor(p), opts)
	if !d.Allowed {
		if !d.Teaser {
			return ReadResult{Decision: d}, nil
		}
		p = p.teaser()
	}
	return ReadResult{Post: p, Decision: d}, nil
}

func resourceFor(p Post) access.Resource {
	return access.Resource{IsPremium: p.IsPremium, RequiredTier: p.SubscriptionRequired}
}

// teaser strips the full body, leaving what a blurred preview may show.
func (p Post) teaser() Post {
	p.Body = ""
	return p
}

// Input carries the mutable fields of a post.
type Input struct {
	Title                string
	Body                 string
	Excerpt              string
	IsPremium            bool
	SubscriptionRequired subscription.Tier
	Featured             bool
	Published            bool
}

// ListAll returns every post for the back office.
func (s *Service) ListAll(ctx context.Context) ([]Post, error) {
	return s.repo.ListAll(ctx)
}

// Get fetches a post without gating, for the back office.
func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	return s.repo.GetPost(ctx, id)
}

// Create validates and persists a new post.
func (s *Service) Create(ctx context.Context, in Input) (Post, error) {
	p, err := fromInput(in)
	if err != nil {
		return Post{}, err
	}
	return s.repo.CreatePost(ctx, p)
}

// Update validates and rewrites an existing post.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Post, error) {
	if _, err := s.repo.GetPost(ctx, id); err != nil {
		return Post{}, err
	}
	p, err := fromInput(in)
	if err != nil {
		return Post{}, err
	}
	p.ID = id
	return s.repo.UpdatePost(ctx, p)
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeletePost(ctx, id)
}

func fromInput(in Input) (Post, error) {
	// Titles and bodies arrive from all sorts of editors; store a single
	// canonical Unicode form so search and dedup compare equal strings.
	title := norm.NFC.String(strings.TrimSpace(in.Title))
	body := norm.NFC.String(strings.TrimSpace(in.Body))
	if title == "" {
		return Post{}, ErrTitleRequired
	}
	if body == "" {
		return Post{}, ErrBodyRequired
	}
	excerpt := norm.NFC.String(strings.TrimSpace(in.Excerpt))
	if excerpt == "" {
		excerpt = deriveExcerpt(body)
	}
	tier := in.SubscriptionRequired
	if !in.IsPremium {
		tier = subscription.TierNone
	}
	return Post{
		Title:                title,
		Body:                 body,
		Excerpt:              excerpt,
		IsPremium:            in.IsPremium,
		SubscriptionRequired: tier,
		Featured:             in.Featured,
		Published:            in.Published,
	}, nil
}

func deriveExcerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptRunes {
		return body
	}
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}
