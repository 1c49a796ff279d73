// Package cisco probes Cisco IOS devices over an interactive SSH shell.
package cisco

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/merger"
	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/parser"
	"github.com/Guliveer/assetprobe/internal/probe"
	"github.com/Guliveer/assetprobe/internal/terminal"
)

// Command text sent to the device, in issue order.
const (
	cmdTerminalLength = "terminal length 0"
	cmdShowVersion    = "show version"
	cmdShowInventory  = "show inventory"
	cmdBriefAllVRFs   = "show ip interface brief vrf all"
	cmdBrief          = "show ip interface brief"
	cmdDescriptions   = "show interface description"
	cmdIPv6Brief      = "show ipv6 interface brief"
	cmdShowVRF        = "show vrf"
)

// Dialer opens an interactive session that has already consumed the login
// banner.
type Dialer func(ctx context.Context, cfg terminal.DialConfig, opts ...terminal.Option) (*terminal.Session, error)

// Collector gathers inventory from Cisco devices.
type Collector struct {
	logger *zap.Logger
	dial   Dialer
}

// Option configures a Collector.
type Option func(*Collector)

// WithDialer replaces the SSH dialer.
func WithDialer(d Dialer) Option {
	return func(c *Collector) {
		if d != nil {
			c.dial = d
		}
	}
}

// NewCollector creates a Cisco collector.
func NewCollector(logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger, dial: terminal.Dial}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "cisco" }

// Supports reports whether the collector handles the target kind.
func (c *Collector) Supports(kind string) bool { return kind == probe.KindCisco }

// IsAvailable returns true; the SSH client is pure Go.
func (c *Collector) IsAvailable() bool { return true }

// Collect opens one session, runs the fixed command sequence and merges the
// parsed output. The session is closed on every path.
func (c *Collector) Collect(ctx context.Context, target probe.Target) (*models.AssetRecord, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if target.Password == "" && target.KeyFile == "" {
		return nil, fmt.Errorf("missing password for cisco target %s", target.Host)
	}

	log := probe.LoggerFrom(ctx, c.logger).With(zap.String("host", target.Host))
	sess, err := c.dial(ctx, terminal.DialConfig{
		Host:     target.Host,
		Port:     target.Port,
		Username: target.Username,
		Password: target.Password,
		KeyFile:  target.KeyFile,
		Timeout:  target.CommandTimeout(),
	}, terminal.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return c.run(ctx, sess, target, log)
}

type commandRunner struct {
	ctx     context.Context
	sess    *terminal.Session
	target  probe.Target
	log     *zap.Logger
	partial merger.NetworkPartials
}

func (r *commandRunner) exec(command string, tolerant bool) (string, error) {
	if err := r.ctx.Err(); err != nil {
		return "", err
	}
	before := len(r.sess.Timeouts())
	out, err := r.sess.RunCommand(command, r.target.CommandTimeout(), tolerant)
	if err != nil {
		return "", err
	}
	// Partial output of a tolerated command that timed out is discarded.
	if tolerant && len(r.sess.Timeouts()) > before {
		return "", nil
	}
	if tolerant && strings.HasPrefix(strings.TrimSpace(out), "%") {
		r.log.Debug("Command not supported by device",
			zap.String("command", command),
			zap.String("output", out))
		return "", nil
	}
	return out, nil
}

func (c *Collector) run(ctx context.Context, sess *terminal.Session, target probe.Target, log *zap.Logger) (*models.AssetRecord, error) {
	r := &commandRunner{
		ctx:    ctx,
		sess:   sess,
		target: target,
		log:    log,
		partial: merger.NetworkPartials{
			Host:        target.Host,
			DisplayName: target.DisplayName,
		},
	}

	if _, err := r.exec(cmdTerminalLength, false); err != nil {
		return nil, err
	}

	if target.EnableSecret != "" {
		if !sess.Enable(target.EnableSecret, target.CommandTimeout()) {
			r.partial.Warnings = append(r.partial.Warnings, probe.ErrPrivilegeEscalation.Error())
		}
	} else {
		log.Debug("No enable secret configured", zap.Bool("privileged", sess.IsPrivileged()))
	}

	version, err := r.exec(cmdShowVersion, false)
	if err != nil {
		return nil, err
	}
	inventory, err := r.exec(cmdShowInventory, true)
	if err != nil {
		return nil, err
	}
	brief, err := r.exec(cmdBriefAllVRFs, true)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(brief) == "" {
		if brief, err = r.exec(cmdBrief, false); err != nil {
			return nil, err
		}
	}
	descriptions, err := r.exec(cmdDescriptions, true)
	if err != nil {
		return nil, err
	}
	ipv6, err := r.exec(cmdIPv6Brief, true)
	if err != nil {
		return nil, err
	}
	vrfs, err := r.exec(cmdShowVRF, true)
	if err != nil {
		return nil, err
	}

	r.partial.Version = parser.ParseShowVersion(version)
	r.partial.Inventory = parser.ParseShowInventory(inventory)
	r.partial.Brief = parser.ParseInterfaceBrief(brief)
	r.partial.Descriptions = parser.ParseInterfaceDescriptions(descriptions)
	r.partial.IPv6 = parser.ParseIPv6InterfaceBrief(ipv6)
	r.partial.VRFs = parser.ParseVRFTable(vrfs)

	for _, command := range sess.Timeouts() {
		r.partial.Warnings = append(r.partial.Warnings, fmt.Sprintf("command timed out: %s", command))
	}

	record := merger.MergeNetworkDevice(r.partial)
	log.Info("Cisco probe complete",
		zap.String("name", record.Name),
		zap.Int("interfaces", interfaceCount(record)),
		zap.Int("warnings", len(record.Warnings)))
	return record, nil
}

func interfaceCount(r *models.AssetRecord) int {
	if r.Network == nil {
		return 0
	}
	return len(r.Network.Interfaces)
}
