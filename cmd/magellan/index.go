package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/execlog"
	"github.com/oldnordic/magellan-go/internal/version"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:   "index",
		Usage:  "Scan the project root and index every matching file",
		Action: runIndex,
	}
}

func runIndex(c *cli.Context) error {
	record, err := rec.Start(version.Version, os.Args, cfg.Project.Root, cfg.Backend.DSN)
	if err != nil {
		return fmt.Errorf("start execution record: %w", err)
	}

	ops := buildOperations()
	result, runErr := ops.ScanDirectory(bck, cfg.Project.Root, func(path string, symbols int) {
		fmt.Printf("indexed %s (%d symbols)\n", path, symbols)
	})

	outcome := execlog.OutcomeSuccess
	if runErr != nil {
		outcome = execlog.OutcomeFailure
	}
	if finishErr := rec.Finish(record, outcome, runErr, result.FilesScanned, result.SymbolsIndexed, result.References); finishErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to finalize execution record: %v\n", finishErr)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("Indexed %d files, %d symbols, %d references, %d calls (execution %s)\n",
		result.FilesScanned, result.SymbolsIndexed, result.References, result.Calls, record.ExecutionID)
	if len(result.Skipped) > 0 {
		fmt.Printf("Skipped %d files (size/read failures)\n", len(result.Skipped))
	}
	return nil
}
