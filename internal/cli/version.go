package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/permguard/internal/profile"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print permguard version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "permguard %s\n", Version)
		fmt.Fprintf(out, "  Commit:   %s\n", GitCommit)
		fmt.Fprintf(out, "  Built:    %s\n", BuildDate)
		fmt.Fprintf(out, "  Profiles: catalog v%s\n", profile.Default().Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
