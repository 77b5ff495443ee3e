// Command backup-ivs backs up recordings from video management appliances
// into a deterministic site/team/year folder tree.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kism/backup-ivs/internal/app"
	"github.com/kism/backup-ivs/internal/config"
	"github.com/kism/backup-ivs/internal/logging"
	"github.com/kism/backup-ivs/internal/mirror"
	"github.com/kism/backup-ivs/internal/util"
	"github.com/kism/backup-ivs/internal/version"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "backup-ivs",
		Short:        "Back up appliance recordings into a local folder tree",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default backup-ivs.yaml, then the user config dir)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "override the configured log format (json or console)")
	root.AddCommand(runCmd(), validateCmd(), sitesCmd(), versionCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Global.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Global.LogFormat = flagLogFormat
	}
	logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
	return cfg, nil
}

func runCmd() *cobra.Command {
	var opts app.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile every configured site and fetch missing media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if dir := cfg.Transcript.Dir; dir != "" {
				tr, err := logging.StartTranscript(dir, cfg.Global.LogFormat, time.Now())
				if err != nil {
					log.Warn().Err(err).Msg("transcript disabled")
				} else {
					defer tr.Close()
					if err := logging.Rotate(dir, cfg.Transcript.Keep); err != nil {
						log.Warn().Err(err).Msg("transcript rotation failed")
					}
				}
			}

			a := app.New(cfg)
			if cfg.Mirror.Enabled {
				m, err := mirror.New(cmd.Context(), cfg.Mirror)
				if err != nil {
					return err
				}
				a.Mirror = m
			}

			rep, err := a.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Println(rep.Summary())
			if rep.Failed() {
				return fmt.Errorf("run finished with %d errors", len(rep.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "pass the transfer tool its preview flag, write no media")
	cmd.Flags().BoolVar(&opts.MetadataOnly, "metadata-only", false, "reconcile folders and metadata without transferring")
	cmd.Flags().StringVar(&opts.Site, "site", "", "process only the named site")
	cmd.Flags().DurationVar(&opts.Budget, "budget", 0, "override the configured run budget, e.g. 90m")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "run even outside the backup window")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and required tooling",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := util.RequireBinary(cfg.Transfer.Binary); err != nil {
				return err
			}
			fmt.Printf("configuration ok: %d sites\n", len(cfg.Sites))
			return nil
		},
	}
}

func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the configured sites",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"name", "endpoint", "home", "ssh user"})
			for _, s := range cfg.Sites {
				t.AppendRow(table.Row{s.Name, s.Endpoint, cfg.SiteHome(s), cfg.SiteSSHUser(s)})
			}
			t.Render()
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("backup-ivs %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
