package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/execlog"
	"github.com/oldnordic/magellan-go/internal/migrate"
	"github.com/oldnordic/magellan-go/internal/version"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Copy the currently indexed graph into a fresh backend (spec §4.11)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to-kind",
				Usage:    "Destination backend kind: native or relational",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "to-dsn",
				Usage: "Destination relational database path (required when --to-kind=relational)",
			},
		},
		Action: runMigrate,
	}
}

func runMigrate(c *cli.Context) error {
	record, err := rec.Start(version.Version, os.Args, cfg.Project.Root, cfg.Backend.DSN)
	if err != nil {
		return fmt.Errorf("start execution record: %w", err)
	}

	dst, closeDst, err := openDestination(c)
	if err != nil {
		rec.Finish(record, execlog.OutcomeFailure, err, 0, 0, 0)
		return err
	}
	defer closeDst()

	summary, runErr := migrate.Copy(bck, dst)

	outcome := execlog.OutcomeSuccess
	if runErr != nil {
		outcome = execlog.OutcomeFailure
	}
	rec.Finish(record, outcome, runErr, summary.Files, summary.Symbols, summary.References)
	if runErr != nil {
		return runErr
	}

	fmt.Printf("Migrated %d files, %d symbols, %d references, %d calls, %d AST nodes, %d CFG blocks, %d edges, %d chunks\n",
		summary.Files, summary.Symbols, summary.References, summary.Calls,
		summary.AstNodes, summary.CfgBlocks, summary.Edges, summary.Chunks)
	return nil
}

func openDestination(c *cli.Context) (backend.Backend, func(), error) {
	switch c.String("to-kind") {
	case "native":
		return backend.NewNativeBackend(), func() {}, nil
	case "relational":
		dsn := c.String("to-dsn")
		if dsn == "" {
			return nil, nil, fmt.Errorf("--to-dsn is required when --to-kind=relational")
		}
		rb, err := backend.OpenRelationalBackend(dsn)
		if err != nil {
			return nil, nil, err
		}
		return rb, func() { rb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend kind %q", c.String("to-kind"))
	}
}
