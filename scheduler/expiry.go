// Package scheduler runs the background housekeeping for forced
// variation overrides (§2.4 of SPEC_FULL.md): a cron-scheduled sweep
// that deletes expired override rows. This is store housekeeping, not
// decision persistence or rollout scheduling — both remain spec.md
// Non-goals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// parseCronExpressionUTC mirrors the teacher's UTC-only cron parsing
// convention: no CRON_TZ/TZ prefixes, so a sweeper's schedule cannot
// silently depend on the host's local timezone.
func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}
	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}
	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// OverrideStore is the subset of store.OverrideStore the sweeper needs;
// declared here so this package does not import store and depends on
// this interface only.
type OverrideStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeperConfig configures the background sweep.
type ExpirySweeperConfig struct {
	Store  OverrideStore
	Cron   string // e.g. "*/5 * * * *"
	Now    func() time.Time
	Logger *slog.Logger
}

// ExpirySweeper periodically deletes expired forced-variation overrides.
type ExpirySweeper struct {
	store    OverrideStore
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpirySweeper validates cfg.Cron and builds a sweeper.
func NewExpirySweeper(cfg ExpirySweeperConfig) (*ExpirySweeper, error) {
	if cfg.Store == nil {
		return nil, errors.New("expiry sweeper store is nil")
	}
	schedule, err := parseCronExpressionUTC(cfg.Cron)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &ExpirySweeper{
		store:    cfg.Store,
		schedule: schedule,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Start runs the sweep loop in the background until ctx is canceled or
// Stop is called.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("expiry sweeper is nil")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			now := s.now().UTC()
			next := s.schedule.Next(now)
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(loopCtx)
			}
		}
	}()

	return nil
}

// Stop halts the sweep loop, waiting for any in-flight sweep to finish
// or ctx to expire, whichever comes first.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) runOnce(ctx context.Context) {
	n, err := s.store.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("swept expired overrides", "count", n)
	}
}
