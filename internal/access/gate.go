package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/chloe-belle/chloe-belle/internal/settings"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// DecisionRecorder receives every gate verdict for metrics.
type DecisionRecorder interface {
	RecordDecision(reason string, allowed bool)
}

// Gate composes the maintenance flag, role overrides, the tier evaluator and
// the free-view quota into a single allow/deny decision per resource view.
type Gate struct {
	settings *settings.Store
	quota    *Counter
	logger   *slog.Logger
	recorder DecisionRecorder
	now      func() time.Time
}

// NewGate constructs a Gate. recorder may be nil.
func NewGate(store *settings.Store, quota *Counter, logger *slog.Logger, recorder DecisionRecorder) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{settings: store, quota: quota, logger: logger, recorder: recorder, now: time.Now}
}

// ViewOptions carries request-scoped facts the gate cannot derive itself.
type ViewOptions struct {
	// APIRequest marks calls under the /api/ prefix: maintenance mode
	// blocks page rendering but not already-authenticated API calls.
	APIRequest bool
	// Peek evaluates the rules without consuming a free-view unit. Feed
	// listings use it so browsing never spends quota; only opening a post
	// does.
	Peek bool
}

// CanView decides whether the actor may view the resource. Rules apply in
// order; the first match wins. The FREE_QUOTA branch consumes a quota unit
// atomically with the decision, so an allow is always backed by a durably
// recorded consumption.
func (g *Gate) CanView(ctx context.Context, actor shared.Actor, res Resource, opts ViewOptions) Decision {
	return g.record(g.decide(ctx, actor, res, opts))
}

func (g *Gate) decide(ctx context.Context, actor shared.Actor, res Resource, opts ViewOptions) Decision {
	if g.maintenanceBlocks(ctx, actor, opts) {
		return Decision{Allowed: false, Reason: ReasonMaintenance}
	}

	if !res.IsPremium {
		return Decision{Allowed: true, Reason: ReasonFreeContent}
	}

	if actor.HasAllPermissions() {
		return Decision{Allowed: true, Reason: ReasonRoleOverride}
	}

	if subscription.Meets(actor.SubscriptionRef(), res.RequiredTier, g.now()) {
		return Decision{Allowed: true, Reason: ReasonSubscribed}
	}

	if actor.Authenticated {
		var (
			consumed bool
			err      error
		)
		if opts.Peek {
			var remaining int
			remaining, err = g.quota.Remaining(ctx, actor.ID)
			consumed = remaining > 0
		} else {
			consumed, err = g.quota.Consume(ctx, actor.ID)
		}
		if err != nil {
			// Settings or storage unreachable: the allowance is unknowable,
			// so premium content is denied rather than given away.
			g.logger.Warn("free-view quota unavailable",
				slog.Int64("user_id", actor.ID), slog.Any("error", err))
			return Decision{Allowed: false, Reason: ReasonSubscriptionRequired, Teaser: true}
		}
		if consumed {
			return Decision{Allowed: true, Reason: ReasonFreeQuota}
		}
	}

	return Decision{Allowed: false, Reason: ReasonSubscriptionRequired, Teaser: true}
}

func (g *Gate) maintenanceBlocks(ctx context.Context, actor shared.Actor, opts ViewOptions) bool {
	if !g.settings.Bool(ctx, settings.KeyMaintenanceMode, false) {
		return false
	}
	if BypassesMaintenance(actor.Role) {
		return false
	}
	if opts.APIRequest && actor.Authenticated {
		return false
	}
	return true
}

func (g *Gate) record(d Decision) Decision {
	if g.recorder != nil {
		g.recorder.RecordDecision(string(d.Reason), d.Allowed)
	}
	return d
}
