package windows

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// Collector tries each backend in priority order and normalizes the first
// successful result.
type Collector struct {
	logger   *zap.Logger
	backends []Backend
}

// Option configures a Collector.
type Option func(*Collector)

// WithBackends replaces the default WMI, WinRM order.
func WithBackends(backends ...Backend) Option {
	return func(c *Collector) {
		if len(backends) > 0 {
			c.backends = backends
		}
	}
}

// NewCollector creates a Windows collector.
func NewCollector(logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger:   logger,
		backends: []Backend{NewWMIBackend(logger), NewWinRMBackend(logger)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "windows" }

// Supports reports whether the collector handles the target kind.
func (c *Collector) Supports(kind string) bool { return kind == probe.KindWindows }

// IsAvailable reports whether at least one backend can run.
func (c *Collector) IsAvailable() bool {
	for _, b := range c.backends {
		if b.Available() == nil {
			return true
		}
	}
	return false
}

// Collect returns the record of the first backend that produces facts.
// Failures of earlier backends are carried as warnings; when every backend
// fails the error aggregates all of their reasons.
func (c *Collector) Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	log := probe.LoggerFrom(ctx, c.logger).With(zap.String("host", target.Host))

	var errs error
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if err := b.Available(); err != nil {
			log.Debug("Backend unavailable", zap.String("backend", b.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}

		facts, err := b.Collect(ctx, target)
		if err != nil {
			log.Warn("Backend failed", zap.String("backend", b.Name()), zap.Error(err))
			errs = multierr.Append(errs, backendError(b.Name(), err))
			continue
		}

		record := Normalize(target.Host, facts)
		record.ProbeSource = b.Name()
		for _, e := range multierr.Errors(errs) {
			record.AddWarning(e.Error())
		}
		log.Info("Windows probe complete",
			zap.String("backend", b.Name()),
			zap.String("name", record.Name),
			zap.Int("warnings", len(record.Warnings)))
		return record, nil
	}

	if errs == nil {
		errs = errors.New("no backend configured")
	}
	return nil, fmt.Errorf("windows probe of %s failed: %w", target.Host, errs)
}

// backendError prefixes err with the backend name unless it already
// carries it.
func backendError(name string, err error) error {
	var unavailable *probe.BackendUnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	return fmt.Errorf("%s: %w", name, err)
}
