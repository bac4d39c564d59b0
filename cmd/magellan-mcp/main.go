// Command magellan-mcp exposes four read-only graph queries (find_symbol,
// callers_of, reachable_from, slice) as MCP tools over stdio, for use by
// editor and agent integrations. It opens the same backend cmd/magellan
// would and never writes to it: indexing, watching, and migration stay out
// of this binary's reach entirely, per spec's CLI/MCP-front-end non-goal
// boundary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/config"
	"github.com/oldnordic/magellan-go/internal/debug"
	"github.com/oldnordic/magellan-go/internal/migrate"
)

func main() {
	configPath := flag.String("config", ".magellan.kdl", "config file path")
	root := flag.String("root", "", "project root directory (overrides config)")
	dbPath := flag.String("db", "", "relational database path (overrides config backend.dsn)")
	flag.Parse()

	debug.SetMCPMode(true)

	cfg, err := loadConfig(*configPath, *root, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "magellan-mcp: %v\n", err)
		os.Exit(1)
	}

	bck, err := openBackend(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "magellan-mcp: %v\n", err)
		os.Exit(1)
	}
	defer closeBackend(bck)

	server := NewServer(bck)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		debug.Log("mcp", "starting magellan-mcp server on stdio")
		errCh <- server.Run(ctx)
	}()

	select {
	case <-sigCh:
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "magellan-mcp: server error: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig(configPath, root, dbPath string) (*config.Config, error) {
	if root != "" && configPath == ".magellan.kdl" {
		configPath = filepath.Join(root, ".magellan.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if root != "" {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root path %q: %w", root, err)
		}
		cfg.Project.Root = absRoot
	}
	if dbPath != "" {
		cfg.Backend.DSN = dbPath
	}
	return cfg, nil
}

// openBackend mirrors cmd/magellan's own openBackend: the relational
// backend is schema-preflighted before the server ever registers a tool
// against it.
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
