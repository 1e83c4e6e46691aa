package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LimitClass selects one of the configured rate-limit policies.
type LimitClass string

const (
	LimitGlobalPassword LimitClass = "GLOBAL_PASSWORD"
	LimitLogin          LimitClass = "LOGIN"
	LimitRegister       LimitClass = "REGISTER"
	LimitAPI            LimitClass = "API"
)

// Limit is one rate-limit policy: at most Max requests inside Window, with an
// automatic IP block of BlockDuration once exceeded (zero means no block).
type Limit struct {
	Max           int
	Window        time.Duration
	BlockDuration time.Duration
}

// Limits maps each class to its policy.
var Limits = map[LimitClass]Limit{
	LimitGlobalPassword: {Max: 50, Window: 15 * time.Minute, BlockDuration: 5 * time.Minute},
	LimitLogin:          {Max: 50, Window: 15 * time.Minute, BlockDuration: 5 * time.Minute},
	LimitRegister:       {Max: 20, Window: time.Hour, BlockDuration: 5 * time.Minute},
	LimitAPI:            {Max: 1000, Window: time.Minute, BlockDuration: 0},
}

// CheckResult is the outcome of one rate-limit check.
type CheckResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int64 // seconds until the oldest in-window request ages out
}

// AbuseGuard combines a sliding-window request counter with an IP block
// list. The window state is local and mutex-guarded; the block list may be
// backed by a remote store and fails open when that store is unreachable, so
// infrastructure failures never lock out legitimate traffic.
type AbuseGuard struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	blocks BlockStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAbuseGuard(blocks BlockStore, logger *zap.Logger) *AbuseGuard {
	return &AbuseGuard{
		windows: make(map[string][]time.Time),
		blocks:  blocks,
		logger:  logger,
		now:     time.Now,
	}
}

// Check prunes the identity's window for the class and either records the
// request or rejects it. Two concurrent checks for the same key can never
// both be admitted past the limit; the whole prune-count-record sequence
// runs under the lock.
func (g *AbuseGuard) Check(identity string, class LimitClass) CheckResult {
	limit := Limits[class]
	key := identity + ":" + string(class)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	window := g.windows[key]
	valid := window[:0]
	for _, ts := range window {
		if now.Sub(ts) < limit.Window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= limit.Max {
		g.windows[key] = valid
		remaining := valid[0].Add(limit.Window).Sub(now)
		retryAfter := int64((remaining + time.Second - 1) / time.Second)
		return CheckResult{Allowed: false, Limit: limit.Max, Remaining: 0, RetryAfter: retryAfter}
	}

	valid = append(valid, now)
	g.windows[key] = valid
	return CheckResult{Allowed: true, Limit: limit.Max, Remaining: limit.Max - len(valid)}
}

// IsBlocked reports whether the identity is currently blocked. Store errors
// are logged and treated as not blocked.
func (g *AbuseGuard) IsBlocked(ctx context.Context, identity string) bool {
	rec, err := g.blocks.Get(ctx, identity)
	if err != nil {
		g.logger.Error("block store lookup failed, failing open",
			zap.String("identity", identity), zap.Error(err))
		return false
	}
	return rec != nil
}

// Block adds a block record for the identity.
func (g *AbuseGuard) Block(ctx context.Context, identity, reason string, duration time.Duration) error {
	now := g.now()
	return g.blocks.Set(ctx, identity, BlockRecord{
		Reason:    reason,
		BlockedAt: now,
		ExpiresAt: now.Add(duration),
	})
}

// BlockAsync fires Block on a background goroutine so the triggering request
// is never delayed by the store write.
func (g *AbuseGuard) BlockAsync(identity, reason string, duration time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.Block(ctx, identity, reason, duration); err != nil {
			g.logger.Error("failed to block identity",
				zap.String("identity", identity), zap.Error(err))
		}
	}()
}
