package proximity

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DEFAULT_POLL_INTERVAL is pause between configuration polls
const DEFAULT_POLL_INTERVAL = 200 * time.Millisecond

// Session serves updates on top of single baseline. Updates are applied one at a time,
// every update starts from the baseline.
type Session struct {
	base      *Baseline
	catalogue *Catalogue
	opts      UpdateOptions

	mu      sync.Mutex
	current *Snapshot
}

// NewSession returns session with baseline snapshot as current state
func NewSession(base *Baseline, catalogue *Catalogue, opts UpdateOptions) (*Session, error) {
	baseOpts := opts
	baseOpts.Metrics = nil
	snap, err := ApplyConfiguration(base, catalogue, &Configuration{}, baseOpts)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare baseline snapshot")
	}
	return &Session{
		base:      base,
		catalogue: catalogue,
		opts:      opts,
		current:   snap,
	}, nil
}

// Current returns latest successfully applied snapshot
func (session *Session) Current() *Snapshot {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.current
}

// Update applies configuration. On error current state is kept.
func (session *Session) Update(cfg *Configuration) (*Snapshot, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	snap, err := ApplyConfiguration(session.base, session.catalogue, cfg, session.opts)
	if err != nil {
		return nil, err
	}
	session.current = snap
	return snap, nil
}

// Listen polls source every interval and publishes result of every changed configuration.
// Failed polls and updates are skipped: previous state is re-published and next tick retries.
// Returns when ctx is done.
func (session *Session) Listen(ctx context.Context, source ConfigurationSource, publisher Publisher, interval time.Duration) error {
	if interval <= 0 {
		interval = DEFAULT_POLL_INTERVAL
	}
	metrics := session.opts.Metrics
	if err := publisher.Publish(ctx, session.Current()); err != nil {
		zap.L().Warn("can't publish baseline", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		cfg, changed, err := source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zap.L().Warn("skipping update: configuration unavailable", zap.Error(err))
			metrics.IncSkipped("source")
			session.republish(ctx, publisher)
			continue
		}
		if !changed || cfg == nil {
			continue
		}
		st := time.Now()
		snap, err := session.Update(cfg)
		if err != nil {
			zap.L().Warn("skipping update: configuration rejected", zap.Error(err))
			metrics.IncSkipped("configuration")
			session.republish(ctx, publisher)
			continue
		}
		zap.L().Info("configuration applied",
			zap.Int("cells", len(cfg.Cells)),
			zap.Int("touched", snap.Touched),
			zap.Duration("took", time.Since(st)),
		)
		if err := publisher.Publish(ctx, snap); err != nil {
			zap.L().Warn("can't publish snapshot", zap.Error(err))
			metrics.IncSkipped("publish")
		}
	}
}

func (session *Session) republish(ctx context.Context, publisher Publisher) {
	if err := publisher.Publish(ctx, session.Current()); err != nil {
		zap.L().Warn("can't re-publish snapshot", zap.Error(err))
	}
}
