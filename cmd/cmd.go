package cmd

import (
	"github.com/spf13/cobra"
	"github.com/webgather/harvester/cmd/run"
	"github.com/webgather/harvester/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer()
	},
}

func Execute() {
	var rootCmd = &cobra.Command{Use: "harvester"}
	rootCmd.AddCommand(run.RunCmd, versionCmd)
	rootCmd.Execute()
}
