package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X ...cmd.version=..." at release build
// time; it stays "dev" for local builds.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print gobundle's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("gobundle", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
