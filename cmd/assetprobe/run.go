package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/buffer"
	"github.com/Guliveer/assetprobe/internal/collector"
	"github.com/Guliveer/assetprobe/internal/models"
	"github.com/Guliveer/assetprobe/internal/probe"
	"github.com/Guliveer/assetprobe/internal/scheduler"
	"github.com/Guliveer/assetprobe/internal/sender"
)

// pusher is the part of the sender used by run.
type pusher interface {
	Push(ctx context.Context, e buffer.Entry) error
	FlushBuffer(ctx context.Context)
	Spooled() ([]buffer.Entry, error)
}

func newRunCmd(a *app) *cobra.Command {
	var (
		push     bool
		names    []string
		pretty   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Probe every configured target",
		Long: `Probe every target from the configuration file, one after another. Records
are printed as a JSON array; a summary line per target goes to stderr. With
--push each record is also sent to the central API. With --interval the
targets are polled repeatedly until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := selectTargets(a, names)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				return fmt.Errorf("no targets configured")
			}

			var p pusher
			if push {
				if p, err = newPusher(a); err != nil {
					return err
				}
				p.FlushBuffer(cmd.Context())
			}

			registry := newRegistry(a.logger)
			if interval <= 0 {
				results := registry.ProbeAll(cmd.Context(), targets)
				return report(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), results, p, pretty)
			}

			s := scheduler.New(registry, targets, interval, a.logger)
			s.OnResults(func(results []collector.Result) {
				if err := report(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), results, p, pretty); err != nil {
					a.logger.Warn("Poll had failures", zap.Error(err))
				}
			})
			s.Start(cmd.Context())
			return nil
		},
	}

	cmd.Flags().BoolVar(&push, "push", false, "send records to the central API")
	cmd.Flags().StringSliceVar(&names, "only", nil, "probe only the named targets")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent JSON output")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll repeatedly at this interval (0 probes once)")
	return cmd
}

func selectTargets(a *app, names []string) ([]probe.Target, error) {
	if len(names) == 0 {
		targets := make([]probe.Target, 0, len(a.cfg.Targets))
		for _, t := range a.cfg.Targets {
			targets = append(targets, t.Target(a.cfg.Defaults))
		}
		return targets, nil
	}
	targets := make([]probe.Target, 0, len(names))
	for _, name := range names {
		t, ok := a.cfg.FindTarget(name)
		if !ok {
			return nil, fmt.Errorf("target %q not found in configuration", name)
		}
		targets = append(targets, t.Target(a.cfg.Defaults))
	}
	return targets, nil
}

func newPusher(a *app) (pusher, error) {
	if err := a.cfg.ValidateAPI(); err != nil {
		return nil, err
	}
	var opts []sender.Option
	if a.cfg.API.SpoolDir != "" {
		buf, err := buffer.New(a.cfg.API.SpoolDir, a.cfg.API.SpoolMaxMB, a.logger)
		if err != nil {
			return nil, fmt.Errorf("opening spool directory: %w", err)
		}
		opts = append(opts, sender.WithBuffer(buf))
	}
	return sender.New(a.cfg.API, a.logger, opts...), nil
}

// report prints the records and a colored summary, pushing each result when
// p is set. Failed targets are pushed as offline.
func report(ctx context.Context, out, summary io.Writer, results []collector.Result, p pusher, pretty bool) error {
	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	records := make([]*models.AssetRecord, 0, len(results))
	failed := 0
	for _, r := range results {
		label := targetLabel(r.Target)
		entry := buffer.Entry{
			Target:      spoolKey(r.Target),
			ProbeID:     r.ProbeID,
			CollectedAt: time.Now().UTC(),
			Report:      models.Report{Asset: r.Record, OnlineStatus: models.StatusOnline},
		}

		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(summary, "%s %s: %v\n", fail("FAIL"), label, r.Err)
			entry.Report = offlineReport(r)
		case len(r.Record.Warnings) > 0:
			records = append(records, r.Record)
			fmt.Fprintf(summary, "%s %s (%s, %d warnings)\n", warn("WARN"), label, r.Record.ProbeSource, len(r.Record.Warnings))
		default:
			records = append(records, r.Record)
			fmt.Fprintf(summary, "%s %s (%s)\n", ok(" OK "), label, r.Record.ProbeSource)
		}

		if p != nil {
			if err := p.Push(ctx, entry); err != nil {
				fmt.Fprintf(summary, "%s push %s: %v\n", fail("FAIL"), label, err)
			}
		}
	}
	if p != nil {
		printSpooled(summary, p, warn)
	}

	if err := writeJSON(out, records, pretty); err != nil {
		return err
	}
	fmt.Fprintf(summary, "%d targets probed, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}

// offlineReport describes a target that could not be probed.
func offlineReport(r collector.Result) models.Report {
	record := &models.AssetRecord{Name: targetLabel(r.Target)}
	if r.Target.Host != "" {
		record.IPs = []string{r.Target.Host}
	}
	record.AddWarning(r.Err.Error())
	record.Prune()
	return models.Report{Asset: record, OnlineStatus: models.StatusOffline}
}

// printSpooled lists the reports still waiting for delivery.
func printSpooled(summary io.Writer, p pusher, warn func(a ...interface{}) string) {
	entries, err := p.Spooled()
	if err != nil {
		fmt.Fprintf(summary, "%s reading spool: %v\n", warn("WARN"), err)
		return
	}
	for _, e := range entries {
		state := e.Report.OnlineStatus
		if e.Report.OnlineStatus == models.StatusOnline && e.Partial() {
			state = fmt.Sprintf("partial, %d warnings", len(e.Report.Asset.Warnings))
		}
		fmt.Fprintf(summary, "%s %s spooled (%s, %d attempts)\n", warn("SPOOL"), e.Target, state, e.Attempts)
	}
}

// spoolKey identifies a target in the spool.
func spoolKey(t probe.Target) string {
	if t.Host != "" {
		return t.Host
	}
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.NormalizedKind()
}

func targetLabel(t probe.Target) string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Host
}
