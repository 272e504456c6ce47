package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/starslap/starslap/pkg/config"
	"github.com/starslap/starslap/pkg/logging"
)

// Policy is a per-category admission budget.
type Policy struct {
	Max    int
	Window time.Duration
}

// Enabled reports whether the policy throttles at all.
func (p Policy) Enabled() bool {
	return p.Max > 0
}

// Policies holds the per-category budgets.
type Policies struct {
	Post   Policy
	Action Policy
	Vote   Policy
}

// PoliciesFromConfig builds the admission budgets from configuration.
// A zero vote budget disables vote throttling entirely.
func PoliciesFromConfig(cfg *config.Config) Policies {
	return Policies{
		Post: Policy{
			Max:    cfg.RateLimit.PostMax,
			Window: time.Duration(cfg.RateLimit.PostWindowMin) * time.Minute,
		},
		Action: Policy{
			Max:    cfg.RateLimit.ActionMax,
			Window: time.Duration(cfg.RateLimit.ActionWindowMin) * time.Minute,
		},
		Vote: Policy{
			Max:    cfg.Vote.RateLimitPerHour,
			Window: time.Hour,
		},
	}
}

// Store counts and records admitted events per (identity, category).
type Store interface {
	// CountSince counts events recorded at or after cutoff.
	CountSince(ctx context.Context, identity, category string, cutoff time.Time) (int64, error)
	// Record appends one event at now. The window hints at how long the
	// event must stay visible; stores may retain it longer.
	Record(ctx context.Context, identity, category string, now time.Time, window time.Duration) error
}

// Limiter admits or denies events against trailing-window budgets.
// Storage failures deny: overshooting is tolerable for an abuse
// deterrent, silently admitting on a broken store is not.
type Limiter struct {
	store  Store
	logger *zap.Logger
}

// New creates a limiter over the given store
func New(store Store) *Limiter {
	return &Limiter{
		store:  store,
		logger: logging.WithComponent("ratelimit"),
	}
}

// Admit reports whether one more event fits the policy. Callers must
// Record the event after acting on an admission. A disabled policy
// always admits.
func (l *Limiter) Admit(ctx context.Context, identity, category string, policy Policy) (bool, error) {
	if !policy.Enabled() {
		return true, nil
	}

	cutoff := time.Now().UTC().Add(-policy.Window)
	count, err := l.store.CountSince(ctx, identity, category, cutoff)
	if err != nil {
		// Fail closed.
		l.logger.Error("Rate limit check failed, denying",
			zap.String("category", category), zap.Error(err))
		return false, err
	}
	return count < int64(policy.Max), nil
}

// Record registers an admitted event.
func (l *Limiter) Record(ctx context.Context, identity, category string, policy Policy) error {
	if !policy.Enabled() {
		return nil
	}
	return l.store.Record(ctx, identity, category, time.Now().UTC(), policy.Window)
}
