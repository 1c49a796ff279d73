package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/config"
)

// app carries state shared by the subcommands once the root command has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	apiURL     string
	apiToken   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "assetprobe",
		Short: "Collect hardware, OS and network inventory from remote devices",
		Long: `assetprobe logs into network switches, Unix hosts and Windows machines,
collects their inventory and prints one normalized JSON asset record per device.

Cisco IOS devices are probed over an interactive SSH shell, Unix hosts over
SSH exec, Windows hosts over WMI with a WinRM fallback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: search standard locations)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.apiURL, "api-url", "", "central API URL for pushed results")
	flags.StringVar(&a.apiToken, "api-token", "", "central API token")

	root.AddCommand(newProbeCmd(a), newRunCmd(a), newVersionCmd())
	return root
}

// load resolves configuration with CLI flags > env vars > file > defaults.
func (a *app) load(cmd *cobra.Command) error {
	cli := config.CLIOverrides{URL: a.apiURL, Token: a.apiToken, LogLevel: a.logLevel}

	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.LoadLayered(cli, a.configPath)
	} else {
		cfg, err = config.LoadLayered(cli)
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = initLogger(cfg)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assetprobe %s\n", version)
		},
	}
}
