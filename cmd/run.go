package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/vulncorr/pkg/alert"
	"github.com/user/vulncorr/pkg/engine"
	"github.com/user/vulncorr/pkg/logger"
	"github.com/user/vulncorr/pkg/pipeline"
	"github.com/user/vulncorr/pkg/source"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, filter and correlate, then write the alert log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// an empty rules_path is the only way to run without filtering
		var rules []engine.Rule
		if cfg.RulesPath == "" {
			logger.Warnf("rules_path is empty, correlating unfiltered data")
		} else {
			if rules, err = engine.LoadRules(cfg.RulesPath); err != nil {
				return fmt.Errorf("rules file: %w", err)
			}
			logger.Infof("Loaded %d rules from %s", len(rules), cfg.RulesPath)
		}

		renderer, err := engine.NewRenderer(cfg.AlertTemplate)
		if err != nil {
			return err
		}

		client := source.NewClient(cfg.ServersURL, cfg.VulnerabilitiesURL, cfg.AuthToken)
		client.PageSize = cfg.PageSize
		client.StartID = cfg.StartID

		var sink pipeline.Sink = alert.NewFileSink(cfg.OutputPath)
		if dryRun {
			sink = alert.WriterSink{W: cmd.OutOrStdout()}
		}

		ctx := context.Background()
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		sum, err := pipeline.Run(ctx, pipeline.Deps{
			Servers:         client,
			Vulnerabilities: client,
			Rules:           rules,
			Renderer:        renderer,
			Sink:            sink,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Servers: %d fetched, %d kept\n", sum.Servers, sum.ServersKept)
		fmt.Fprintf(cmd.ErrOrStderr(), "Vulnerabilities: %d fetched, %d kept\n", sum.Vulnerabilities, sum.VulnerabilitiesKept)
		switch {
		case dryRun:
			fmt.Fprintf(cmd.ErrOrStderr(), "Findings: %d (dry run, %s untouched)\n", len(sum.Findings), cfg.OutputPath)
		case len(sum.Findings) == 0:
			fmt.Fprintln(cmd.ErrOrStderr(), "Findings: 0, no alert log written")
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Findings: %d written to %s\n", len(sum.Findings), cfg.OutputPath)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("rules", "", "Rule file (.csv, .yaml)")
	runCmd.Flags().String("output", "", "Alert log path")
	runCmd.Flags().String("token", "", "Authorization token for the servers endpoint")
	runCmd.Flags().Int("page-size", 0, "Vulnerabilities per page")
	runCmd.Flags().Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print alerts to stdout instead of the alert log")

	viper.BindPFlag("rules_path", runCmd.Flags().Lookup("rules"))
	viper.BindPFlag("output_path", runCmd.Flags().Lookup("output"))
	viper.BindPFlag("auth_token", runCmd.Flags().Lookup("token"))
	viper.BindPFlag("page_size", runCmd.Flags().Lookup("page-size"))
	viper.BindPFlag("timeout", runCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(runCmd)
}
