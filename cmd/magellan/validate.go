package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/graphops"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate configuration and the indexed graph's structural invariants",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "config-only",
				Usage: "skip graph validation, only check the loaded configuration",
			},
		},
		Action: runValidate,
	}
}

// runValidate runs the same two-stage check spec §6 names:
// pre-run (config, db path, project root) always, and post-run graph
// validation (ValidateGraph's orphan-reference/orphan-call checks) unless
// --config-only or the backend cannot be opened, matching
// pre_run_validate/validate_graph's split in the original implementation.
func runValidate(c *cli.Context) error {
	warnings := configWarnings()

	dsn := cfg.Backend.DSN
	if dsn == "" {
		dsn = filepath.Join(cfg.Project.Root, ".magellan.db")
	}
	pre := graphops.PreRunValidate(dsn, cfg.Project.Root, nil)

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("Root: %s | Backend: %s | Files: %d max | Index size: %dMB max\n",
		cfg.Project.Root, backendKind(), cfg.Index.MaxFileCount, cfg.Index.MaxTotalSizeMB)

	if len(warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	printIssues("Pre-run errors", pre.Errors)

	if c.Bool("config-only") {
		return nil
	}

	b, err := openBackend(cfg)
	if err != nil {
		fmt.Printf("\nGraph validation skipped: could not open backend: %v\n", err)
		return nil
	}
	defer closeBackend(b)

	report, err := graphops.ValidateGraph(b)
	if err != nil {
		return fmt.Errorf("validate graph: %w", err)
	}

	fmt.Printf("\nGraph validation: %s\n", passFail(report.Passed && pre.Passed))
	printIssues("Graph errors", report.Errors)
	printIssues("Graph warnings", report.Warnings)

	if !report.Passed || !pre.Passed {
		return fmt.Errorf("validation failed: %d pre-run error(s), %d graph error(s)", len(pre.Errors), len(report.Errors))
	}
	return nil
}

func configWarnings() []string {
	warnings := []string{}
	if cfg.Index.MaxFileCount < 100 {
		warnings = append(warnings, "Index.MaxFileCount is very low (<100), may limit indexing capability")
	}
	if cfg.Index.MaxTotalSizeMB < 50 {
		warnings = append(warnings, "Index.MaxTotalSizeMB is very low (<50MB), may limit indexing capability")
	}
	if len(cfg.Include) == 0 {
		warnings = append(warnings, "no Include patterns specified, every file not excluded will be indexed")
	}
	if cfg.Backend.Kind == "relational" && cfg.Backend.DSN == "" {
		warnings = append(warnings, "Backend.Kind is relational but Backend.DSN is empty; defaulting to <root>/.magellan.db")
	}
	return warnings
}

func printIssues(label string, issues []graphops.ValidationIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", label)
	for _, issue := range issues {
		fmt.Printf("  [%s] %s\n", issue.Code, issue.Message)
	}
}

func passFail(ok bool) string {
	if ok {
		return "PASSED"
	}
	return "FAILED"
}
