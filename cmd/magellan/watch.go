package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/execlog"
	"github.com/oldnordic/magellan-go/internal/reconcile"
	"github.com/oldnordic/magellan-go/internal/version"
	"github.com/oldnordic/magellan-go/internal/watch"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Index once, then watch the project root and reconcile changes until interrupted",
		Action: runWatch,
	}
}

// runWatch writes a single ExecutionRecord for the whole watch session
// (spec §3: "written by every top-level operation, not just queries" —
// watch's granularity is one record per session, matching the reconciler's
// own session-scoped lifetime, not one per dirty batch).
func runWatch(c *cli.Context) error {
	record, err := rec.Start(version.Version, os.Args, cfg.Project.Root, cfg.Backend.DSN)
	if err != nil {
		return fmt.Errorf("start execution record: %w", err)
	}

	ops := buildOperations()
	initial, err := ops.ScanDirectory(bck, cfg.Project.Root, nil)
	if err != nil {
		rec.Finish(record, execlog.OutcomeFailure, err, 0, 0, 0)
		return fmt.Errorf("initial scan: %w", err)
	}
	fmt.Printf("Initial scan: %d files, %d symbols\n", initial.FilesScanned, initial.SymbolsIndexed)

	w, err := watch.New(cfg.Project.Root, cfg, gitignore)
	if err != nil {
		rec.Finish(record, execlog.OutcomeFailure, err, initial.FilesScanned, initial.SymbolsIndexed, initial.References)
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		rec.Finish(record, execlog.OutcomeFailure, err, initial.FilesScanned, initial.SymbolsIndexed, initial.References)
		return fmt.Errorf("watch %s: %w", cfg.Project.Root, err)
	}
	defer w.Stop()

	dirty := reconcile.NewDirtySet()
	reconciler := reconcile.New(bck, ops, cfg, dirty, func(path string) {
		fmt.Printf("reconciled %s\n", path)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- reconciler.Run(ctx) }()

	go func() {
		for batch := range w.Batches() {
			dirty.Insert(batch.Paths...)
		}
	}()

	var runErr error
	select {
	case <-sigCh:
		fmt.Println("shutting down...")
		reconciler.Shutdown()
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
	}
	if runErr == context.Canceled {
		runErr = nil
	}

	outcome := execlog.OutcomeSuccess
	if runErr != nil {
		outcome = execlog.OutcomeFailure
	}
	rec.Finish(record, outcome, runErr, initial.FilesScanned, initial.SymbolsIndexed, initial.References)
	return runErr
}
