package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/orchestrator"
)

// verifyCmd parses a scripts file, checks its hosts section and prints the
// tree back in canonical form. No host is contacted.
var verifyCmd = &cobra.Command{
	Use:           "verify scripts_file",
	Short:         "Validate a scripts file and print it",
	Args:          scriptsFileArg,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := configtree.ParseFile(args[0], orchestrator.AllowedTags)
		if err != nil {
			return newExitError(exitRuntime, "invalid scripts file", err)
		}
		plan, err := orchestrator.Split(tree, "")
		if err != nil {
			return newExitError(exitRuntime, "invalid scripts file", err)
		}
		out := cmd.OutOrStdout()
		if err := configtree.Serialize(out, tree); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Scripts file OK: %d host(s), %d script(s)\n", len(plan.Hosts), plan.Scripts.Len())
		return nil
	},
}
