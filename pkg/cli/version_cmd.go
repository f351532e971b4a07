package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printStatus(cmd, g,
				map[string]string{"version": version, "commit": commit},
				fmt.Sprintf("gpsr version %s (commit: %s)\n", version, commit))
		},
	}
}
