package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/vulncorr/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		if err := runSetup(cmd.InOrStdin(), cmd.OutOrStdout(), cfg); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg, cfgFile); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Setup Complete! You can now run 'vulncorr run'")
		return nil
	},
}

// runSetup prompts for each setting, keeping the current value on an empty
// answer.
func runSetup(in io.Reader, out io.Writer, cfg *config.Config) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Welcome to vulncorr Setup Wizard")
	fmt.Fprintln(out, "--------------------------------")

	steps := []struct {
		key, prompt, current string
	}{
		{"servers_url", "Servers endpoint", cfg.ServersURL},
		{"vulnerabilities_url", "Vulnerabilities endpoint", cfg.VulnerabilitiesURL},
		{"auth_token", "Authorization token", ""},
		{"rules_path", "Rule file", cfg.RulesPath},
		{"output_path", "Alert log", cfg.OutputPath},
	}
	for i, s := range steps {
		if s.current != "" {
			fmt.Fprintf(out, "Step %d: %s [%s]\n> ", i+1, s.prompt, s.current)
		} else {
			fmt.Fprintf(out, "Step %d: %s\n> ", i+1, s.prompt)
		}
		if !scanner.Scan() {
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}
		if err := cfg.Set(s.key, answer); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func init() {
	configCmd.AddCommand(setupCmd)
}
