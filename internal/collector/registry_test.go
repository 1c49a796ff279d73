package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
)

type fakeCollector struct {
	name      string
	kinds     []string
	available bool
	err       error
	targets   []probe.Target
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Supports(kind string) bool {
	for _, k := range f.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (f *fakeCollector) IsAvailable() bool { return f.available }

func (f *fakeCollector) Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	f.targets = append(f.targets, target)
	probe.LoggerFrom(ctx, nil).Info("collecting")
	if f.err != nil {
		return nil, f.err
	}
	return &models.AssetRecord{Name: target.Host, ProbeSource: f.name}, nil
}

func TestRegisterSkipsUnavailable(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "a", available: true})
	r.Register(&fakeCollector{name: "b", available: false})

	require.Len(t, r.Collectors(), 1)
	assert.Equal(t, "a", r.Collectors()[0].Name())
}

func TestProbeDispatchesByNormalizedKind(t *testing.T) {
	cisco := &fakeCollector{name: "cisco", kinds: []string{probe.KindCisco}, available: true}
	unix := &fakeCollector{name: "unix", kinds: []string{probe.KindLinux, probe.KindBSD}, available: true}
	r := NewRegistry(zap.NewNop())
	r.Register(cisco)
	r.Register(unix)

	record, err := r.Probe(context.Background(), probe.Target{Kind: "IOS", Host: "sw1"})
	require.NoError(t, err)
	assert.Equal(t, "cisco", record.ProbeSource)

	_, err = r.Probe(context.Background(), probe.Target{Kind: "FreeBSD", Host: "fw1"})
	require.NoError(t, err)
	_, err = r.Probe(context.Background(), probe.Target{Host: "web1"})
	require.NoError(t, err)

	assert.Len(t, cisco.targets, 1)
	assert.Len(t, unix.targets, 2)
}

func TestProbeUnknownKind(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Probe(context.Background(), probe.Target{Kind: "mainframe", Host: "z1"})
	assert.EqualError(t, err, `no collector for target kind "mainframe"`)
}

func TestProbeAttachesProbeID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewRegistry(zap.New(core))
	r.Register(&fakeCollector{name: "unix", kinds: []string{probe.KindLinux}, available: true})

	_, err := r.Probe(context.Background(), probe.Target{Kind: "linux", Host: "web1"})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 3)
	id := entries[0].ContextMap()["probe_id"]
	require.NotEmpty(t, id)
	for _, e := range entries {
		assert.Equal(t, id, e.ContextMap()["probe_id"], e.Message)
	}
	assert.Equal(t, "collecting", entries[1].Message)
}

func TestProbeAllContinuesAfterFailure(t *testing.T) {
	failing := &fakeCollector{name: "cisco", kinds: []string{probe.KindCisco}, available: true, err: errors.New("boom")}
	unix := &fakeCollector{name: "unix", kinds: []string{probe.KindLinux}, available: true}
	r := NewRegistry(zap.NewNop())
	r.Register(failing)
	r.Register(unix)

	results := r.ProbeAll(context.Background(), []probe.Target{
		{Kind: "cisco", Host: "sw1"},
		{Kind: "linux", Host: "web1"},
	})
	require.Len(t, results, 2)
	assert.EqualError(t, results[0].Err, "boom")
	assert.Nil(t, results[0].Record)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "web1", results[1].Record.Name)

	assert.NotEmpty(t, results[0].ProbeID)
	assert.NotEqual(t, results[0].ProbeID, results[1].ProbeID)
}

func TestProbeAllStopsOnCancel(t *testing.T) {
	unix := &fakeCollector{name: "unix", kinds: []string{probe.KindLinux}, available: true}
	r := NewRegistry(zap.NewNop())
	r.Register(unix)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := r.ProbeAll(ctx, []probe.Target{{Host: "a"}, {Host: "b"}})

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Empty(t, unix.targets)
}
