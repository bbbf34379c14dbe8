// Package warmup preloads designated hot sets into the cache tiers at
// startup and on demand, one independent job per region.
package warmup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source enumerates a region's bounded hot set from the system-of-record,
// e.g. active products or root categories. Supplied by the business layer.
type Source interface {
	// HotSet returns up to limit key-value pairs worth preloading.
	HotSet(ctx context.Context, limit int) (map[string][]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, limit int) (map[string][]byte, error)

// HotSet implements Source.
func (f SourceFunc) HotSet(ctx context.Context, limit int) (map[string][]byte, error) {
	return f(ctx, limit)
}

// CacheWriter is the slice of the coordinator warmup relies on; the
// orchestrator never mutates tier state directly.
type CacheWriter interface {
	Put(ctx context.Context, region, key string, value []byte, ttl time.Duration) error
}

// ItemRecorder counts preloaded entries, usually backed by Prometheus.
type ItemRecorder interface {
	RecordWarmupItems(region string, n int)
}

// Orchestrator runs warmup jobs. Each region's task is independent: one
// region failing neither cancels nor fails the others.
type Orchestrator struct {
	cache       CacheWriter
	sources     map[string]Source
	hotSetLimit int
	metrics     ItemRecorder
	logger      *zap.Logger

	mu   sync.Mutex
	jobs map[string]*Job // latest job per region
}

// NewOrchestrator creates a warmup orchestrator over the registered sources.
func NewOrchestrator(cache CacheWriter, sources map[string]Source, hotSetLimit int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hotSetLimit <= 0 {
		hotSetLimit = 1000
	}

	copied := make(map[string]Source, len(sources))
	for region, source := range sources {
		copied[region] = source
	}

	return &Orchestrator{
		cache:       cache,
		sources:     copied,
		hotSetLimit: hotSetLimit,
		logger:      logger,
		jobs:        make(map[string]*Job),
	}
}

// WithMetrics attaches a warmup item counter.
func (o *Orchestrator) WithMetrics(rec ItemRecorder) *Orchestrator {
	o.metrics = rec
	return o
}

// WarmupAll launches one warmup task per region with a registered source and
// waits for all of them. It returns the finished jobs; a single region's
// failure is recorded on its job, never propagated as WarmupAll's own.
func (o *Orchestrator) WarmupAll(ctx context.Context) []Job {
	regions := make([]string, 0, len(o.sources))
	for region := range o.sources {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var wg sync.WaitGroup
	for _, region := range regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			o.runJob(ctx, region, o.sources[region])
		}(region)
	}
	wg.Wait()

	return o.Jobs()
}

// WarmupRegion re-runs a single region's warmup, for administrative recovery
// after a flush.
func (o *Orchestrator) WarmupRegion(ctx context.Context, region string) (Job, error) {
	source, ok := o.sources[region]
	if !ok {
		return Job{}, fmt.Errorf("no warmup source registered for region %q", region)
	}

	job := o.runJob(ctx, region, source)
	return job, nil
}

// Jobs returns a snapshot of the most recent job per region, ordered by
// region name.
func (o *Orchestrator) Jobs() []Job {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// Regions returns the region names that have a registered warmup source.
func (o *Orchestrator) Regions() []string {
	regions := make([]string, 0, len(o.sources))
	for region := range o.sources {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func (o *Orchestrator) runJob(ctx context.Context, region string, source Source) Job {
	job := newJob(region)
	o.storeJob(job)

	o.transition(job, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = time.Now()
	})

	items, err := source.HotSet(ctx, o.hotSetLimit)
	if err != nil {
		o.transition(job, func(j *Job) {
			j.Status = StatusFailed
			j.CompletedAt = time.Now()
			j.Error = err.Error()
		})
		o.logger.Error("warmup failed",
			zap.String("region", region),
			zap.Error(err),
		)
		return o.snapshot(job)
	}

	loaded := 0
	for key, value := range items {
		if ctx.Err() != nil {
			break
		}
		if err := o.cache.Put(ctx, region, key, value, 0); err != nil {
			o.logger.Warn("warmup put failed",
				zap.String("region", region),
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		loaded++
	}

	if err := ctx.Err(); err != nil {
		o.transition(job, func(j *Job) {
			j.Status = StatusFailed
			j.CompletedAt = time.Now()
			j.ItemsLoaded = loaded
			j.Error = err.Error()
		})
		return o.snapshot(job)
	}

	o.transition(job, func(j *Job) {
		j.Status = StatusSucceeded
		j.CompletedAt = time.Now()
		j.ItemsLoaded = loaded
	})
	if o.metrics != nil {
		o.metrics.RecordWarmupItems(region, loaded)
	}
	o.logger.Info("warmup completed",
		zap.String("region", region),
		zap.Int("items_loaded", loaded),
	)
	return o.snapshot(job)
}

func (o *Orchestrator) storeJob(job *Job) {
	o.mu.Lock()
	o.jobs[job.Region] = job
	o.mu.Unlock()
}

func (o *Orchestrator) transition(job *Job, mutate func(*Job)) {
	o.mu.Lock()
	mutate(job)
	o.mu.Unlock()
}

func (o *Orchestrator) snapshot(job *Job) Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *job
}
