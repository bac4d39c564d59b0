package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/graphops"
	"github.com/oldnordic/magellan-go/internal/query"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"st"},
		Usage:   "Show entity counts for the currently indexed graph",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "freshness",
				Usage: "also report each indexed file's Fresh/Stale/Missing status",
			},
			&cli.BoolFlag{
				Name:  "cache-stats",
				Usage: "also report the process-lifetime metrics cache's hit rate",
			},
		},
		Action: runStatus,
	}
}

func runStatus(c *cli.Context) error {
	q := query.New(bck)

	files, err := q.CountFiles()
	if err != nil {
		return err
	}
	symbols, err := q.CountSymbols()
	if err != nil {
		return err
	}
	refs, err := q.CountReferences()
	if err != nil {
		return err
	}
	calls, err := q.CountCalls()
	if err != nil {
		return err
	}
	chunks, err := q.CountChunks()
	if err != nil {
		return err
	}

	fmt.Printf("Magellan index status\n")
	fmt.Printf("======================\n")
	fmt.Printf("Root:        %s\n", cfg.Project.Root)
	fmt.Printf("Backend:     %s\n", backendKind())
	fmt.Printf("Files:       %d\n", files)
	fmt.Printf("Symbols:     %d\n", symbols)
	fmt.Printf("References:  %d\n", refs)
	fmt.Printf("Calls:       %d\n", calls)
	fmt.Printf("Chunks:      %d\n", chunks)

	if c.Bool("freshness") {
		report, err := graphops.CheckFreshness(bck)
		if err != nil {
			return err
		}
		fmt.Printf("\nFreshness:\n")
		for _, f := range report {
			fmt.Printf("  %-8s %s\n", f.Status, f.Path)
		}
	}

	if c.Bool("cache-stats") {
		stats := metricsCache.Stats()
		fmt.Printf("\nMetrics cache (%s):\n", stats.Status)
		fmt.Printf("  Requests: %d | Hits: %d | Misses: %d | Hit rate: %.1f%%\n",
			stats.TotalRequests, stats.Hits, stats.Misses, stats.HitRate*100)
		fmt.Printf("  Entries:  %d (content %d, symbol %d) | Evictions: %d\n",
			stats.TotalEntries, stats.ContentEntries, stats.SymbolEntries, stats.Evictions)
	}
	return nil
}

func backendKind() string {
	if cfg.Backend.Kind == "" {
		return "native"
	}
	return cfg.Backend.Kind
}
