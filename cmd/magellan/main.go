// Command magellan is the CLI front-end over the core graph engine: it
// wires flags to internal/graphops, internal/query, internal/algo and
// internal/watch, and writes an execution-log record for every index, watch,
// migrate and query run (status and validate write none). It implements no indexing or query logic of its own — only
// argument marshaling and output formatting, per spec's CLI-front-end
// non-goal boundary.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/cache"
	"github.com/oldnordic/magellan-go/internal/chunkstore"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/execlog"
	"github.com/oldnordic/magellan-go/internal/graphops"
	"github.com/oldnordic/magellan-go/internal/ingest"
	"github.com/oldnordic/magellan-go/internal/migrate"
	"github.com/oldnordic/magellan-go/internal/version"
)

var (
	cfg          *config.Config
	bck          backend.Backend
	rec          *execlog.Recorder
	gitignore    *config.GitignoreParser
	cleanupFns   []func()
	metricsCache = cache.NewMetricsCache(cache.DefaultCacheConfig())
)

func main() {
	app := &cli.App{
		Name:    "magellan",
		Usage:   "Incremental multi-language code graph indexer and query engine",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".magellan.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (overrides config)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Relational database path (overrides config backend.dsn)",
			},
		},
		Commands: []*cli.Command{
			indexCommand(),
			watchCommand(),
			queryCommand(),
			statusCommand(),
			migrateCommand(),
			validateCommand(),
		},
		Before: setup,
		After:  teardown,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "magellan: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, applies CLI overrides, opens the configured
// backend (running its schema preflight before any other operation touches
// it, per spec §7's "schema preflight failures abort the run with exit
// code 1 and zero on-disk mutation"), and builds the execution-log
// recorder every subcommand's Action shares.
func setup(c *cli.Context) error {
	if c.Args().Get(0) == "help" || c.Bool("help") || c.Bool("version") {
		return nil
	}

	loaded, err := loadConfigWithOverrides(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	gitignore = config.NewGitignoreParser()
	if cfg.Index.RespectGitignore {
		if err := gitignore.LoadGitignore(cfg.Project.Root); err != nil {
			return fmt.Errorf("load .gitignore: %w", err)
		}
	}

	if c.Args().Get(0) == "validate" {
		return nil
	}

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	bck = b
	cleanupFns = append(cleanupFns, func() { closeBackend(bck) })

	rec = execlog.New(bck)
	return nil
}

func teardown(c *cli.Context) error {
	for _, fn := range cleanupFns {
		fn()
	}
	cleanupFns = nil
	return nil
}

// loadConfigWithOverrides loads project configuration and applies the
// global --root/--db flag overrides on top of it.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	rootFlag := c.String("root")
	if rootFlag != "" && configPath == ".magellan.kdl" {
		configPath = filepath.Join(rootFlag, ".magellan.kdl")
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve root path %q: %w", rootFlag, err)
		}
		loaded.Project.Root = absRoot
	}
	if dbFlag := c.String("db"); dbFlag != "" {
		loaded.Backend.DSN = dbFlag
	}

	return loaded, nil
}

// openBackend opens cfg.Backend.Kind's concrete store and, for the
// relational backend, runs the upgrade-policy preflight (internal/migrate)
// against the version internal/schema found on open before returning it to
// the caller — an unsupported schema version never reaches a command's
// Action.
func openBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend.Kind {
	case "", "native":
		return backend.NewNativeBackend(), nil
	case "relational":
		dsn := cfg.Backend.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.Project.Root, ".magellan.db")
		}
		rb, err := backend.OpenRelationalBackend(dsn)
		if err != nil {
			return nil, fmt.Errorf("open relational backend: %w", err)
		}
		if err := migrate.CheckSchemaUpgrade(rb.OpenedAtVersion()); err != nil {
			rb.Close()
			return nil, err
		}
		return rb, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

func closeBackend(b backend.Backend) {
	if closer, ok := b.(interface{ Close() error }); ok {
		closer.Close()
	}
}

// buildOperations wires a fresh internal/graphops.Operations from the
// already-loaded cfg/gitignore globals, the shape every index/watch/migrate
// command shares.
func buildOperations() *graphops.Operations {
	engine := ingest.NewEngine()
	chunks := chunkstore.New(bck)
	return graphops.New(engine, chunks, cfg, gitignore)
}
