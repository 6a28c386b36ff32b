package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/vulncorr/pkg/config"
	"github.com/user/vulncorr/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "vulncorr",
	Short: "Correlate vulnerabilities with the servers they affect",
	Long: `vulncorr pulls the server inventory and the vulnerability feed, filters
both with a rule file, matches vulnerabilities to servers by operating
system and version, and writes one alert line per match.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if DebugMode {
			level = "debug"
		}
		return logger.Init(level, LogFormat, os.Stderr)
	},
}

var (
	DebugMode bool
	LogFormat string
	cfgFile   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&LogFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.vulncorr/config.yaml)")

	// VULNCORR_AUTH_TOKEN, VULNCORR_PAGE_SIZE, ... override the config file
	viper.SetEnvPrefix("VULNCORR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file and applies environment and flag
// overrides bound through viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	for _, key := range config.Keys() {
		if !viper.IsSet(key) {
			continue
		}
		if err := cfg.Set(key, viper.GetString(key)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
