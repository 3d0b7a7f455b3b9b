package cmd

import (
	"github.com/praetorian-inc/ocigraph/internal/message"
	"github.com/praetorian-inc/ocigraph/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ocigraph",
	Run: func(cmd *cobra.Command, args []string) {
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
