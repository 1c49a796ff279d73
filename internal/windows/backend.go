package windows

import (
	"context"

	"github.com/Guliveer/assetprobe/internal/probe"
)

// Backend gathers Facts from a Windows host.
type Backend interface {
	// Name is also the probe_source of records the backend produces.
	Name() string
	// Available returns a *probe.BackendUnavailableError when the backend
	// cannot run in this process at all.
	Available() error
	Collect(ctx context.Context, target probe.Target) (*Facts, error)
}
