// Package collector defines the Collector interface shared by every probe
// backend, the registry that dispatches targets to them and the local
// agent collector.
package collector

import (
	"context"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

// Collector is the interface that all probe collectors must implement.
// Each collector produces a complete canonical record for one target.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Supports reports whether the collector handles a normalized target
	// kind.
	Supports(kind string) bool

	// Collect probes the target and returns its record. The context bounds
	// dialing and remote execution.
	Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
