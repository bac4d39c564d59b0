package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/algo"
	"github.com/oldnordic/magellan-go/internal/execlog"
	"github.com/oldnordic/magellan-go/internal/metrics"
	"github.com/oldnordic/magellan-go/internal/query"
	"github.com/oldnordic/magellan-go/internal/types"
	"github.com/oldnordic/magellan-go/internal/version"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Read-only lookups over the indexed graph",
		Subcommands: []*cli.Command{
			{
				Name:      "symbols",
				Usage:     "List symbols defined in a file",
				ArgsUsage: "<path>",
				Action:    withQueryRecord(runQuerySymbols),
			},
			{
				Name:      "callers",
				Usage:     "List direct callers of a symbol id",
				ArgsUsage: "<symbol_id>",
				Action:    withQueryRecord(runQueryCallers),
			},
			{
				Name:      "callees",
				Usage:     "List direct callees of a symbol id",
				ArgsUsage: "<symbol_id>",
				Action:    withQueryRecord(runQueryCallees),
			},
			{
				Name:      "find",
				Usage:     "Fuzzy-resolve a symbol name",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "threshold", Value: 0.75},
					&cli.IntFlag{Name: "limit", Value: 10},
				},
				Action: withQueryRecord(runQueryFind),
			},
			{
				Name:      "reachable",
				Usage:     "List symbols reachable from a fully-qualified name",
				ArgsUsage: "<fqn>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-depth", Value: 0},
					&cli.BoolFlag{Name: "reverse", Usage: "reverse reachability (who can reach fqn)"},
				},
				Action: withQueryRecord(runQueryReachable),
			},
			{
				Name:      "dead",
				Usage:     "List symbols never reached from an entry point",
				ArgsUsage: "<entry_fqn>",
				Action:    withQueryRecord(runQueryDead),
			},
			{
				Name:      "slice",
				Usage:     "Compute a forward or backward program slice",
				ArgsUsage: "<fqn>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "backward", Usage: "compute the backward slice instead of forward"},
				},
				Action: withQueryRecord(runQuerySlice),
			},
			{
				Name:      "metrics",
				Usage:     "Compute per-file and per-symbol size/coupling metrics for a file",
				ArgsUsage: "<path>",
				Action:    withQueryRecord(runQueryMetrics),
			},
			{
				Name:   "cycles",
				Usage:  "Detect strongly connected components in the call graph",
				Action: withQueryRecord(runQueryCycles),
			},
			{
				Name:      "paths",
				Usage:     "Enumerate call paths between two symbols",
				ArgsUsage: "<start_fqn> [end_fqn]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-depth", Value: 20},
					&cli.IntFlag{Name: "max-paths", Value: 100},
				},
				Action: withQueryRecord(runQueryPaths),
			},
		},
	}
}

// withQueryRecord wraps a query subcommand's Action in its own
// ExecutionRecord, since spec.md §3 requires one for every top-level
// operation, queries included.
func withQueryRecord(fn func(*cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		record, err := rec.Start(version.Version, os.Args, cfg.Project.Root, cfg.Backend.DSN)
		if err != nil {
			return fmt.Errorf("start execution record: %w", err)
		}
		runErr := fn(c)
		outcome := execlog.OutcomeSuccess
		if runErr != nil {
			outcome = execlog.OutcomeFailure
		}
		rec.Finish(record, outcome, runErr, 0, 0, 0)
		return runErr
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQuerySymbols(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query symbols <path>")
	}
	symbols, err := query.New(bck).SymbolsInFile(c.Args().First(), "")
	if err != nil {
		return err
	}
	return printJSON(symbols)
}

func runQueryCallers(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query callers <symbol_id>")
	}
	ids, err := query.New(bck).CallersOfSymbol(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(ids)
}

func runQueryCallees(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query callees <symbol_id>")
	}
	ids, err := query.New(bck).CallsFromSymbol(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(ids)
}

func runQueryFind(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query find <name>")
	}
	matches, err := query.New(bck).ResolveSymbolFuzzy(c.Args().First(), c.Float64("threshold"), c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(matches)
}

func runQueryReachable(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query reachable <fqn>")
	}
	g, err := algo.Build(bck)
	if err != nil {
		return err
	}
	var symbols interface{}
	if c.Bool("reverse") {
		symbols, err = g.ReverseReachableSymbols(c.Args().First(), c.Int("max-depth"))
	} else {
		symbols, err = g.ReachableSymbols(c.Args().First(), c.Int("max-depth"))
	}
	if err != nil {
		return err
	}
	return printJSON(symbols)
}

func runQueryDead(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query dead <entry_fqn>")
	}
	g, err := algo.Build(bck)
	if err != nil {
		return err
	}
	dead, err := g.DeadSymbols(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(dead)
}

func runQuerySlice(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query slice <fqn>")
	}
	g, err := algo.Build(bck)
	if err != nil {
		return err
	}
	var slice algo.Slice
	if c.Bool("backward") {
		slice, err = g.BackwardSlice(c.Args().First())
	} else {
		slice, err = g.ForwardSlice(c.Args().First())
	}
	if err != nil {
		return err
	}
	return printJSON(slice)
}

type fileMetricsReport struct {
	File    types.FileMetrics     `json:"file"`
	Symbols []types.SymbolMetrics `json:"symbols"`
}

func runQueryMetrics(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query metrics <path>")
	}
	path := c.Args().First()

	q := query.New(bck)
	file, fileID, found, err := q.FileByPath(path)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("file not indexed: %s", path)
	}
	symbols, err := q.SymbolsInFile(path, "")
	if err != nil {
		return err
	}

	snap, err := bck.SnapshotCurrent()
	if err != nil {
		return err
	}

	computer := metrics.NewComputer(bck, metricsCache)
	fileMetrics, err := computer.FileMetrics(snap, file, fileID)
	if err != nil {
		return err
	}

	report := fileMetricsReport{File: fileMetrics}
	for _, sym := range symbols {
		sm, err := computer.SymbolMetrics(snap, fileID, file.ContentHash, sym)
		if err != nil {
			continue
		}
		report.Symbols = append(report.Symbols, sm)
	}
	return printJSON(report)
}

func runQueryCycles(c *cli.Context) error {
	g, err := algo.Build(bck)
	if err != nil {
		return err
	}
	return printJSON(g.DetectCycles())
}

func runQueryPaths(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: magellan query paths <start_fqn> [end_fqn]")
	}
	g, err := algo.Build(bck)
	if err != nil {
		return err
	}
	var end *string
	if c.NArg() >= 2 {
		e := c.Args().Get(1)
		end = &e
	}
	paths, err := g.EnumeratePaths(c.Args().First(), end, c.Int("max-depth"), c.Int("max-paths"))
	if err != nil {
		return err
	}
	return printJSON(paths)
}
