package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/driver"
	"capc/internal/specialize"
)

var specializeCmd = &cobra.Command{
	Use:   "specialize [flags] <file.cap>",
	Short: "Specialize a program per capability set",
	Long: `Specialize reads a declaration file, propagates capability sets from every
fixed/default function through inherited callees, folds capability queries
into constants, and emits one instance per (function, set) pair.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpecialize,
}

func init() {
	specializeCmd.Flags().String("db", "", "capability database file (TOML); built-in database when empty")
	specializeCmd.Flags().String("manifest", "", "session manifest (capc.toml); searched upward from cwd when empty")
	specializeCmd.Flags().String("arch", "", "target architecture (overrides manifest)")
	specializeCmd.Flags().StringSlice("baseline", nil, "baseline capability list (overrides manifest)")
	specializeCmd.Flags().Bool("fallback-baseline", false, "substitute the baseline set for indirect calls into inherited functions (warning instead of error)")
	specializeCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto, 1=serial)")
	specializeCmd.Flags().Int("max-depth", 0, "max inheritance chain depth (0=default)")
	specializeCmd.Flags().StringP("output", "o", "", "write the instance artifact to this path")
	specializeCmd.Flags().Bool("print", false, "print resolved instances to stdout")
	specializeCmd.Flags().Bool("headers-only", false, "with --print, show instance headers only")
}

func runSpecialize(cmd *cobra.Command, args []string) error {
	db, err := loadDatabaseFlag(cmd)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	session, err := driver.NewSession(db, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	res, specErr := session.SpecializeFile(cmd.Context(), args[0])

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	bag := session.Bag()
	bag.Sort()
	if bag.Len() > 0 && !quiet {
		diag.Render(os.Stderr, bag, session.FileSet(), diag.RenderOpts{
			Color:       useColor(cmd, os.Stderr),
			ShowNotes:   true,
			ShowPreview: true,
		})
	}

	if specErr != nil {
		if errors.Is(specErr, specialize.ErrSpecializationFailed) {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			os.Exit(1)
		}
		return specErr
	}

	if printOut, _ := cmd.Flags().GetBool("print"); printOut {
		headersOnly, _ := cmd.Flags().GetBool("headers-only")
		if err := specialize.Dump(os.Stdout, res, specialize.DumpOptions{HeadersOnly: headersOnly}); err != nil {
			return err
		}
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := driver.WriteArtifact(out, res, cfg.Arch, session.Baseline()); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "wrote %d instances to %s\n", len(res.Instances), out)
		}
	}
	return nil
}

// loadDatabaseFlag loads --db or falls back to the built-in database.
func loadDatabaseFlag(cmd *cobra.Command) (*caps.Database, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, fmt.Errorf("failed to get db flag: %w", err)
	}
	if path == "" {
		return caps.DefaultDatabase(), nil
	}
	return caps.LoadDatabase(path)
}

// resolveConfig merges the manifest (explicit or discovered) with flag
// overrides. Flags win.
func resolveConfig(cmd *cobra.Command) (driver.Config, error) {
	cfg := driver.Config{}

	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return cfg, fmt.Errorf("failed to get manifest flag: %w", err)
	}
	if manifestPath == "" {
		wd, wdErr := os.Getwd()
		if wdErr == nil {
			if found, ok, findErr := driver.FindManifest(wd); findErr == nil && ok {
				manifestPath = found
			}
		}
	}
	if manifestPath != "" {
		m, loadErr := driver.LoadManifest(manifestPath)
		if loadErr != nil {
			return cfg, loadErr
		}
		cfg, err = m.Config()
		if err != nil {
			return cfg, err
		}
	}

	if arch, _ := cmd.Flags().GetString("arch"); arch != "" {
		cfg.Arch = arch
	}
	if baseline, _ := cmd.Flags().GetStringSlice("baseline"); len(baseline) > 0 {
		cfg.Baseline = baseline
	}
	if fallback, _ := cmd.Flags().GetBool("fallback-baseline"); fallback {
		cfg.IndirectFallback = specialize.FallbackBaseline
	}
	if jobs, _ := cmd.Flags().GetInt("jobs"); jobs != 0 {
		cfg.Jobs = jobs
	}
	if depth, _ := cmd.Flags().GetInt("max-depth"); depth != 0 {
		cfg.MaxDepth = depth
	}
	if maxDiag, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics"); maxDiag > 0 {
		cfg.MaxDiagnostics = maxDiag
	}

	if cfg.Arch == "" {
		return cfg, fmt.Errorf("no target architecture: pass --arch or provide %s in the working directory or a parent", driver.ManifestName)
	}
	return cfg, nil
}
