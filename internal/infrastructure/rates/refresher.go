package rates

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/storefront/stores/internal/domain/pricing"
	"github.com/storefront/stores/internal/infrastructure/config"
	"github.com/storefront/stores/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// QuoteFetcher fetches the current quote table from the provider.
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context) (*QuoteTable, error)
}

// Refresher keeps an atomically swapped rate snapshot fresh on a fixed
// schedule. Readers call Current and never block on a fetch; a failed
// refresh leaves the previous snapshot in place.
//
// Consecutive failures stretch the retry delay exponentially up to a
// ceiling, and past a configured threshold the refresher escalates to
// error-level logging so operators notice a dead rate source.
type Refresher struct {
	fetcher          QuoteFetcher
	interval         time.Duration
	timeout          time.Duration
	ceiling          time.Duration
	failureThreshold int
	logger           *zap.Logger

	current  atomic.Pointer[pricing.RateSnapshot]
	failures int
}

// NewRefresher creates a Refresher; call Run to start the refresh loop.
func NewRefresher(fetcher QuoteFetcher, cfg *config.RatesConfig, log *zap.Logger) *Refresher {
	return &Refresher{
		fetcher:          fetcher,
		interval:         cfg.Interval,
		timeout:          cfg.Timeout,
		ceiling:          cfg.BackoffCeiling,
		failureThreshold: cfg.FailureThreshold,
		logger:           log.Named("rate-refresher"),
	}
}

// Current returns the active snapshot, or nil before the first
// successful refresh. The returned snapshot is immutable.
func (r *Refresher) Current() *pricing.RateSnapshot {
	return r.current.Load()
}

// Run refreshes immediately, then on the configured interval until ctx
// is cancelled. It is meant to be started as a goroutine from main.
func (r *Refresher) Run(ctx context.Context) {
	bo := r.newBackoff()

	wait := r.scheduleNext(ctx, bo)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(r.scheduleNext(ctx, bo))
		}
	}
}

// scheduleNext performs one refresh attempt and returns how long to wait
// before the next one: the regular interval after a success, the next
// backoff step after a failure.
func (r *Refresher) scheduleNext(ctx context.Context, bo *backoff.ExponentialBackOff) time.Duration {
	if err := r.RefreshOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return r.interval
		}
		next := bo.NextBackOff()
		if next == backoff.Stop || next > r.ceiling {
			next = r.ceiling
		}
		return next
	}
	bo.Reset()
	return r.interval
}

// RefreshOnce performs a single bounded fetch-and-swap. On success the
// new snapshot's generation is the previous generation plus one; on
// failure the active snapshot and its generation are untouched.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	table, err := r.fetcher.FetchQuotes(fetchCtx)
	if err != nil {
		r.failures++
		telemetry.RateRefreshFailures.Inc()

		fields := []zap.Field{
			zap.Error(err),
			zap.Int("consecutive_failures", r.failures),
		}
		if prev := r.current.Load(); prev != nil {
			fields = append(fields, zap.Duration("snapshot_age", prev.Age(time.Now())))
		}
		if r.failures >= r.failureThreshold {
			r.logger.Error("rate source unreachable beyond failure threshold", fields...)
		} else {
			r.logger.Warn("rate refresh failed, keeping previous snapshot", fields...)
		}
		return err
	}

	var generation uint64 = 1
	if prev := r.current.Load(); prev != nil {
		generation = prev.Generation + 1
	}

	snapshot := pricing.NewRateSnapshot(table.Base, table.Quotes, table.FetchedAt, generation)
	r.current.Store(snapshot)
	r.failures = 0

	telemetry.RateSnapshotGeneration.Set(float64(generation))
	telemetry.RateSnapshotAge.Set(time.Since(table.FetchedAt).Seconds())

	r.logger.Info("rate snapshot refreshed",
		zap.String("base", table.Base),
		zap.Int("quotes", len(table.Quotes)),
		zap.Uint64("generation", generation),
	)
	return nil
}

func (r *Refresher) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.interval
	bo.MaxInterval = r.ceiling
	bo.MaxElapsedTime = 0 // retry forever; the previous snapshot keeps serving
	// A single refresher per process has nothing to desynchronize from.
	bo.RandomizationFactor = 0
	return bo
}
