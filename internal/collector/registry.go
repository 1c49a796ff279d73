package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// Registry manages all registered collectors and routes each target to the
// first one that supports its kind.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// Result is the outcome of probing one target.
type Result struct {
	Target  probe.Target
	ProbeID string
	Record  *models.AssetRecord
	Err     error
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.IsAvailable() {
		r.collectors = append(r.collectors, c)
		r.logger.Debug("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
	}
}

// Lookup returns the collector for a target kind, or nil.
func (r *Registry) Lookup(kind string) Collector {
	for _, c := range r.collectors {
		if c.Supports(kind) {
			return c
		}
	}
	return nil
}

// Probe runs one target through its collector. Every log line written
// during the probe carries the same probe_id.
func (r *Registry) Probe(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	return r.probe(ctx, target, uuid.NewString())
}

func (r *Registry) probe(ctx context.Context, target probe.Target, probeID string) (*models.AssetRecord, error) {
	kind := target.NormalizedKind()
	c := r.Lookup(kind)
	if c == nil {
		return nil, fmt.Errorf("no collector for target kind %q", kind)
	}

	log := r.logger.With(
		zap.String("probe_id", probeID),
		zap.String("collector", c.Name()),
		zap.String("host", target.Host))
	ctx = probe.ContextWithLogger(ctx, log)

	start := time.Now()
	log.Info("Probe started", zap.String("kind", kind))
	record, err := c.Collect(ctx, target)
	if err != nil {
		log.Error("Probe failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("fatal", probe.IsFatal(err)),
			zap.Error(err))
		return nil, err
	}
	log.Info("Probe finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("probe_source", record.ProbeSource),
		zap.Int("warnings", len(record.Warnings)))
	return record, nil
}

// ProbeAll probes targets one after another. A failed target does not stop
// the remaining ones; cancellation of ctx does.
func (r *Registry) ProbeAll(ctx context.Context, targets []probe.Target) []Result {
	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Target: t, Err: err})
			continue
		}
		id := uuid.NewString()
		record, err := r.probe(ctx, t, id)
		results = append(results, Result{Target: t, ProbeID: id, Record: record, Err: err})
	}
	return results
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
