package main

import (
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "natureremo-cli %s (revision %s)\n", versioninfo.Short(), versioninfo.Revision)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
