// Package engine provides the analytics pipeline over a single data source.
// It coordinates: load → validate → snapshot → aggregate
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trade-analytics-lab/internal/aggcache"
	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/idhash"
	"trade-analytics-lab/internal/logger"
	"trade-analytics-lab/internal/metrics"
	"trade-analytics-lab/internal/notifications"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/source"
	"trade-analytics-lab/internal/validation"
)

// ErrNoDataset is returned by Aggregate before the first successful Refresh.
var ErrNoDataset = errors.New("no dataset loaded")

// Dataset is one refreshed snapshot of the source: the records that survived
// validation, the audit trail of rejects, and the identity of the accepted
// set. Callers must treat it as read-only.
type Dataset struct {
	SnapshotID string    // full content hash of the accepted records
	ShortID    string    // compact handle for logs and reports
	Source     string    // adapter that produced the records
	LoadedAt   time.Time // UTC
	Accepted   []*domain.TradeRecord
	Rejected   []validation.Rejection
}

// Engine owns the current dataset and serves aggregations over it.
// Refresh swaps the dataset atomically; Aggregate reads whatever dataset is
// installed, so the two can run concurrently.
type Engine struct {
	adapter     source.Adapter
	cache       *aggcache.Cache
	obs         *observability.Metrics
	notifier    *notifications.Sender
	log         *slog.Logger
	loadTimeout time.Duration

	mu      sync.RWMutex
	dataset *Dataset
}

// Options for creating an Engine.
type Options struct {
	Adapter     source.Adapter         // required
	Cache       *aggcache.Cache        // nil uses a fresh default-capacity cache
	Metrics     *observability.Metrics // nil disables instrumentation
	Notifier    *notifications.Sender  // nil disables run digests
	Logger      *slog.Logger           // nil uses the context logger
	LoadTimeout time.Duration          // 0 means no load deadline
}

// New creates an Engine.
func New(opts Options) *Engine {
	cache := opts.Cache
	if cache == nil {
		cache = aggcache.New(aggcache.DefaultCapacity)
	}
	if opts.Metrics != nil {
		cache.SetOnEvict(func(string) { opts.Metrics.CacheEvictions.Inc() })
	}
	return &Engine{
		adapter:     opts.Adapter,
		cache:       cache,
		obs:         opts.Metrics,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		loadTimeout: opts.LoadTimeout,
	}
}

// logger returns the injected logger, or the context logger when none is set.
func (e *Engine) logger(ctx context.Context) *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.L(ctx)
}

// Refresh executes the load and validate phases and installs the result as
// the current dataset. The previous dataset keeps serving until the new one
// is fully built; a failed refresh leaves it untouched.
//
// A load that exceeds the configured timeout, or is cancelled through ctx,
// surfaces as a source availability error.
func (e *Engine) Refresh(ctx context.Context) (*Dataset, error) {
	ctx, span := logger.StartSpan(ctx, "engine.refresh")
	defer span.End()

	if e.adapter == nil {
		return nil, errors.New("no source adapter configured")
	}
	log := e.logger(ctx)

	// Phase 1: load
	loadCtx := ctx
	if e.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, e.loadTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.adapter.Load(loadCtx)
	e.obs.ObserveLoad(e.adapter.Name(), time.Since(start), err)
	if err != nil {
		if loadCtx.Err() != nil && !errors.Is(err, source.ErrUnavailable) {
			err = source.Unavailable(e.adapter.Name(), err)
		}
		e.obs.RecordRefresh(err, 0, 0, 0)
		return nil, fmt.Errorf("load phase failed: %w", err)
	}
	log.Info("records loaded",
		"source", e.adapter.Name(),
		"records", len(res.Records),
		"translation_errors", len(res.Translation),
		"duration", time.Since(start))

	// Phase 2: validate
	vr := validation.Validate(res.Records, res.Translation)
	log.Info("validation finished", "summary", vr.Summary())

	// Phase 3: snapshot identity
	ds := &Dataset{
		SnapshotID: idhash.SnapshotID(vr.Accepted),
		Source:     e.adapter.Name(),
		LoadedAt:   time.Now().UTC(),
		Accepted:   vr.Accepted,
		Rejected:   vr.Rejected,
	}
	ds.ShortID = idhash.ShortID(ds.SnapshotID)

	if e.obs != nil {
		e.obs.RecordsLoaded.Add(float64(len(res.Records)))
		for _, te := range res.Translation {
			e.obs.TranslationErrors.WithLabelValues(te.Field).Inc()
		}
		e.obs.RecordsAccepted.Add(float64(len(vr.Accepted)))
		for _, rej := range vr.Rejected {
			e.obs.Rejections.WithLabelValues(rej.Reason).Inc()
		}
	}
	e.obs.RecordRefresh(nil, len(vr.Accepted), len(vr.Rejected), ds.OpenCount())

	e.mu.Lock()
	e.dataset = ds
	e.mu.Unlock()

	log.Info("dataset refreshed",
		"snapshot", ds.ShortID,
		"accepted", len(ds.Accepted),
		"rejected", len(ds.Rejected))

	e.sendDigest(ctx, ds)
	return ds, nil
}

// Aggregate returns the metric sets for the current dataset grouped by key.
// Results are cached per (snapshot, key); concurrent callers for the same
// pair share a single computation.
func (e *Engine) Aggregate(ctx context.Context, key metrics.GroupKey) (map[string]*metrics.MetricSet, error) {
	ctx, span := logger.StartSpan(ctx, "engine.aggregate")
	defer span.End()

	if err := key.Validate(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	ds := e.dataset
	e.mu.RUnlock()
	if ds == nil {
		return nil, ErrNoDataset
	}

	result, cached, err := e.cache.GetOrCompute(ctx, ds.SnapshotID, key, func(context.Context) (map[string]*metrics.MetricSet, error) {
		computeStart := time.Now()
		sets, cerr := metrics.Compute(ds.Accepted, key)
		e.obs.ObserveCompute(key.CacheKey(), time.Since(computeStart), cerr)
		return sets, cerr
	})
	if err != nil {
		return nil, err
	}

	e.obs.RecordCacheLookup(cached)
	if e.obs != nil {
		e.obs.CacheEntries.Set(float64(e.cache.Len()))
	}
	e.logger(ctx).Debug("aggregation served",
		"snapshot", ds.ShortID,
		"group_key", key.CacheKey(),
		"groups", len(result),
		"cached", cached)
	return result, nil
}

// Dataset returns the currently installed dataset, or nil before the first
// successful Refresh.
func (e *Engine) Dataset() *Dataset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dataset
}

// ClosedCount returns how many accepted records have completed their exit.
func (d *Dataset) ClosedCount() int {
	n := 0
	for _, rec := range d.Accepted {
		if rec.IsClosed() {
			n++
		}
	}
	return n
}

// OpenCount returns how many accepted records are still open positions.
func (d *Dataset) OpenCount() int {
	return len(d.Accepted) - d.ClosedCount()
}

// DateRange returns the earliest entry time and the latest exit time (entry
// time for open trades) across accepted records. ok is false when the dataset
// holds no accepted records.
func (d *Dataset) DateRange() (start, end time.Time, ok bool) {
	for _, rec := range d.Accepted {
		last := rec.EntryTime
		if rec.ExitTime != nil && rec.ExitTime.After(last) {
			last = *rec.ExitTime
		}
		if !ok {
			start, end, ok = rec.EntryTime, last, true
			continue
		}
		if rec.EntryTime.Before(start) {
			start = rec.EntryTime
		}
		if last.After(end) {
			end = last
		}
	}
	return start, end, ok
}

func (e *Engine) sendDigest(ctx context.Context, ds *Dataset) {
	if e.notifier == nil || !e.notifier.Enabled() {
		return
	}
	msg := notifications.Digest("Dataset refreshed", ds.ShortID,
		len(ds.Accepted), len(ds.Rejected), metrics.Overall(ds.Accepted))
	err := e.notifier.Send(ctx, msg)
	if e.obs != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.obs.WebhooksSent.WithLabelValues(status).Inc()
	}
	if err != nil {
		e.logger(ctx).Warn("digest delivery failed", "error", err)
	}
}
