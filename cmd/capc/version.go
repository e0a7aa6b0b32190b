package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"capc/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show capc build fingerprints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintf(os.Stdout, "capc %s\n", version.Version)
		if hash, _ := cmd.Flags().GetBool("hash"); hash && version.GitCommit != "" {
			fmt.Fprintf(os.Stdout, "commit: %s\n", version.GitCommit)
		}
		if date, _ := cmd.Flags().GetBool("date"); date && version.BuildDate != "" {
			fmt.Fprintf(os.Stdout, "built: %s\n", version.BuildDate)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
}
