package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/vulncorr/pkg/engine"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rule files",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse a rule file and list its rules in application order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := engine.LoadRules(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, target := range []engine.Target{engine.TargetServer, engine.TargetVulnerability} {
			list := engine.RulesFor(rules, target)
			fmt.Fprintf(out, "%s rules: %d\n", target, len(list))
			for i, r := range list {
				fmt.Fprintf(out, "  %d. %s %s %q\n", i+1, r.Field, r.Operator, r.Value)
			}
		}
		if ignored := len(rules) - len(engine.RulesFor(rules, engine.TargetServer)) - len(engine.RulesFor(rules, engine.TargetVulnerability)); ignored > 0 {
			fmt.Fprintf(out, "ignored rules (unknown target): %d\n", ignored)
		}
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}
