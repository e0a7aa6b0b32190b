package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"capc/internal/caps"
)

var featuresCmd = &cobra.Command{
	Use:   "features [flags]",
	Short: "List valid capability names per architecture",
	Long:  `Features dumps the capability database: every valid name per architecture with its implication closure.`,
	Args:  cobra.NoArgs,
	RunE:  runFeatures,
}

func init() {
	featuresCmd.Flags().String("db", "", "capability database file (TOML); built-in database when empty")
	featuresCmd.Flags().String("arch", "", "limit output to one architecture")
}

func runFeatures(cmd *cobra.Command, _ []string) error {
	db, err := loadDatabaseFlag(cmd)
	if err != nil {
		return err
	}

	arches := db.Arches()
	if only, _ := cmd.Flags().GetString("arch"); only != "" {
		if !db.HasArch(only) {
			return &caps.UnknownArchError{Arch: only}
		}
		arches = []string{only}
	}

	for _, arch := range arches {
		fmt.Fprintf(os.Stdout, "%s:\n", arch)
		for _, name := range db.Features(arch) {
			closure, err := db.Closure(arch, []string{name})
			if err != nil {
				return err
			}
			if len(closure) > 1 {
				fmt.Fprintf(os.Stdout, "  %-12s -> %s\n", name, strings.Join(closure, ", "))
			} else {
				fmt.Fprintf(os.Stdout, "  %s\n", name)
			}
		}
	}
	return nil
}
