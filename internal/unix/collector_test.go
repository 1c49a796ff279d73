package unix

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
	"github.com/Guliveer/assetprobe/internal/terminal"
)

// fakeRunner answers commands from a fixed table. Unknown commands behave
// like a missing binary: empty output, no error.
type fakeRunner struct {
	mu       sync.Mutex
	outputs  map[string]string
	hang     map[string]bool
	fail     map[string]error
	commands []string
	closed   bool
}

func newFakeRunner(outputs map[string]string) *fakeRunner {
	return &fakeRunner{outputs: outputs, hang: map[string]bool{}, fail: map[string]error{}}
}

func (f *fakeRunner) Run(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	hang := f.hang[command]
	err := f.fail[command]
	out := f.outputs[command]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

func (f *fakeRunner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func connectorFor(f *fakeRunner) Connector {
	return func(context.Context, terminal.DialConfig) (Runner, error) {
		return f, nil
	}
}

func linuxOutputs() map[string]string {
	return map[string]string{
		"uname -s": "Linux",
		"uname -r": "6.1.0-18-amd64",
		"uname -m": "x86_64",
		"hostname": "web01",
		"cat /etc/os-release": `PRETTY_NAME="Debian GNU/Linux 12 (bookworm)"
NAME="Debian GNU/Linux"
VERSION_ID="12"
VERSION="12 (bookworm)"
ID=debian`,
		"ip -j addr show": `[
 {"ifname":"lo","flags":["LOOPBACK","UP"],"addr_info":[{"local":"127.0.0.1","prefixlen":8}]},
 {"ifname":"eth0","flags":["BROADCAST","UP"],"addr_info":[{"local":"192.168.1.10","prefixlen":24},{"local":"fe80::1","prefixlen":64}]}
]`,
		"ip -j link show": `[
 {"ifname":"lo","address":"00:00:00:00:00:00"},
 {"ifname":"eth0","address":"52:54:00:AB:CD:EF"}
]`,
		"lscpu -J": `{"lscpu":[
 {"field":"Architecture:","data":"x86_64"},
 {"field":"CPU(s):","data":"4"},
 {"field":"Model name:","data":"Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz"}
]}`,
		"cat /proc/meminfo": "MemTotal:        8000000 kB\nMemFree:          500000 kB\nMemAvailable:    4000000 kB\nSwapTotal:       2000000 kB\nSwapFree:        1000000 kB",
		"df -P -k": "Filesystem     1024-blocks     Used Available Capacity Mounted on\n" +
			"/dev/sda1         41152736 12345678  26694120      32% /\n" +
			"tmpfs              4000000        0   4000000       0% /run",
		"uptime": " 10:15:01 up 12 days,  3:04,  2 users,  load average: 0.15, 0.10, 0.05",
	}
}

func testTarget(kind string) probe.Target {
	return probe.Target{
		Kind:     kind,
		Host:     "192.168.1.10",
		Username: "root",
		Password: "pw",
		Timeout:  200 * time.Millisecond,
	}
}

func TestCollectLinux(t *testing.T) {
	runner := newFakeRunner(linuxOutputs())
	c := NewCollector(zap.NewNop(), WithConnector(connectorFor(runner)))

	record, err := c.Collect(context.Background(), testTarget(probe.KindLinux))
	require.NoError(t, err)
	assert.True(t, runner.closed)

	assert.Equal(t, "web01", record.Name)
	assert.Equal(t, models.SourceSSH, record.ProbeSource)

	require.NotNil(t, record.OS)
	assert.Equal(t, "debian", record.OS.Family)
	assert.Equal(t, "Debian GNU/Linux 12 (bookworm)", record.OS.Name)
	assert.Equal(t, "12 (bookworm)", record.OS.Version)
	assert.Equal(t, "6.1.0-18-amd64", record.OS.KernelRelease)
	assert.Equal(t, "12 days, 3:04", record.OS.Uptime)

	require.NotNil(t, record.MAC)
	assert.Equal(t, "52:54:00:ab:cd:ef", *record.MAC)
	assert.Equal(t, []string{"127.0.0.1", "192.168.1.10", "fe80::1"}, record.IPs)

	require.NotNil(t, record.Network)
	require.Len(t, record.Network.Interfaces, 2)
	eth0 := record.Network.Interfaces[1]
	assert.Equal(t, []string{"192.168.1.10"}, eth0.IPv4Addresses)
	assert.Equal(t, []string{"fe80::1"}, eth0.IPv6Addresses)
	assert.Equal(t, []string{"192.168.1.10/24", "fe80::1/64"}, eth0.Addresses)

	require.NotNil(t, record.Hardware)
	require.NotNil(t, record.Hardware.CPUCount)
	assert.Equal(t, 4, *record.Hardware.CPUCount)
	require.NotNil(t, record.Hardware.MemoryBytes)
	assert.Equal(t, uint64(8000000*1024), *record.Hardware.MemoryBytes)

	require.NotNil(t, record.Metrics)
	require.NotNil(t, record.Metrics.CPULoad)
	assert.InDelta(t, 0.15, record.Metrics.CPULoad.Load1, 1e-9)
	require.NotNil(t, record.Metrics.Memory.FreeBytes)
	assert.Equal(t, uint64(4000000*1024), *record.Metrics.Memory.FreeBytes)
	require.Len(t, record.Metrics.Disks, 1)
	assert.Equal(t, "/", record.Metrics.Disks[0].Mount)

	assert.Empty(t, record.Warnings)
	assert.NotContains(t, runner.commands, "ifconfig -a")
}

func TestCollectFallsBackToIfconfig(t *testing.T) {
	outputs := map[string]string{
		"uname -s": "OpenBSD",
		"uname -r": "7.4",
		"uname -m": "amd64",
		"hostname": "fw1",
		"ip -j addr show": "ksh: ip: not found",
		"ifconfig -a": "lo0: flags=8049<UP,LOOPBACK,RUNNING,MULTICAST> mtu 32768\n" +
			"\tinet 127.0.0.1 netmask 0xff000000\n" +
			"em0: flags=8843<UP,BROADCAST,RUNNING,SIMPLEX,MULTICAST> mtu 1500\n" +
			"\tlladdr 00:0c:29:aa:bb:cc\n" +
			"\tinet 10.1.1.1 netmask 0xffffff00 broadcast 10.1.1.255",
		"sysctl -n kern.ostype": "OpenBSD",
		"sysctl -n kern.version": "OpenBSD 7.4 (GENERIC.MP) #1397: Tue Oct 10 09:02:37 MDT 2023",
		"sysctl -n hw.model":     "Intel(R) Core(TM) i5-8250U CPU @ 1.60GHz",
		"sysctl -n hw.ncpu":      "8",
		"sysctl -n hw.physmem":   "17095405568",
		"swapctl -s -k":          "total: 2097152 1K-blocks allocated, 0 used, 2097152 available",
		"uptime":                 "10:00AM  up 3 days,  2:01, 1 user, load averages: 0.21, 0.18, 0.12",
	}
	runner := newFakeRunner(outputs)
	c := NewCollector(zap.NewNop(), WithConnector(connectorFor(runner)))

	record, err := c.Collect(context.Background(), testTarget("openbsd"))
	require.NoError(t, err)

	assert.Equal(t, "fw1", record.Name)
	assert.Equal(t, probe.KindBSD, record.OS.Family)
	assert.Equal(t, "OpenBSD", record.OS.Distribution)
	assert.Contains(t, runner.commands, "ifconfig -a")

	require.NotNil(t, record.MAC)
	assert.Equal(t, "00:0c:29:aa:bb:cc", *record.MAC)
	assert.Equal(t, []string{"127.0.0.1", "10.1.1.1"}, record.IPs)

	require.NotNil(t, record.Hardware.CPUCount)
	assert.Equal(t, 8, *record.Hardware.CPUCount)
	assert.Equal(t, "Intel(R) Core(TM) i5-8250U CPU @ 1.60GHz", record.Hardware.CPUModel)
	require.NotNil(t, record.Hardware.MemoryBytes)
	assert.Equal(t, uint64(17095405568), *record.Hardware.MemoryBytes)

	require.NotNil(t, record.Metrics.Memory.SwapTotalBytes)
	assert.Equal(t, uint64(2097152*1024), *record.Metrics.Memory.SwapTotalBytes)
	assert.Equal(t, *record.Hardware.MemoryBytes, *record.Metrics.Memory.TotalBytes)
}

func TestCollectFallsBackToTargetHost(t *testing.T) {
	runner := newFakeRunner(map[string]string{"uname -s": "Linux"})
	c := NewCollector(zap.NewNop(), WithConnector(connectorFor(runner)))

	target := testTarget(probe.KindLinux)
	target.DisplayName = "legacy-box"
	record, err := c.Collect(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, "legacy-box", record.Name)
	assert.Equal(t, []string{"192.168.1.10"}, record.IPs)
	assert.Nil(t, record.MAC)
	assert.Nil(t, record.Network)
}

func TestCollectRecordsTimeouts(t *testing.T) {
	runner := newFakeRunner(linuxOutputs())
	runner.hang["df -P -k"] = true
	c := NewCollector(zap.NewNop(), WithConnector(connectorFor(runner)))

	target := testTarget(probe.KindLinux)
	target.Timeout = 20 * time.Millisecond
	record, err := c.Collect(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, []string{"command timed out: df -P -k"}, record.Warnings)
	assert.Empty(t, record.Metrics.Disks)
	assert.Contains(t, runner.commands, "uptime")
}

func TestCollectConnectionLossIsFatal(t *testing.T) {
	runner := newFakeRunner(linuxOutputs())
	runner.fail["hostname"] = &probe.ConnectionError{Host: "192.168.1.10", Err: errors.New("broken pipe")}
	c := NewCollector(zap.NewNop(), WithConnector(connectorFor(runner)))

	record, err := c.Collect(context.Background(), testTarget(probe.KindLinux))
	assert.Nil(t, record)
	var connErr *probe.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.NotContains(t, runner.commands, "cat /etc/os-release")
	assert.True(t, runner.closed)
}

func TestCollectDialFailure(t *testing.T) {
	c := NewCollector(zap.NewNop(), WithConnector(func(context.Context, terminal.DialConfig) (Runner, error) {
		return nil, &probe.ConnectionError{Host: "192.168.1.10", Err: errors.New("auth failed")}
	}))

	_, err := c.Collect(context.Background(), testTarget(probe.KindLinux))
	assert.True(t, probe.IsFatal(err))
}

func TestSupports(t *testing.T) {
	c := NewCollector(nil)
	assert.True(t, c.Supports(probe.KindLinux))
	assert.True(t, c.Supports(probe.KindBSD))
	assert.False(t, c.Supports(probe.KindCisco))
	assert.False(t, c.Supports(probe.KindWindows))
}
