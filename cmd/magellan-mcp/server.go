package main

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oldnordic/magellan-go/internal/backend"
	"github.com/oldnordic/magellan-go/internal/version"
)

// Server exposes the read-only graph queries as MCP tools. It never opens a
// second backend connection or starts a watcher; it only wraps
// internal/query and internal/algo, the same packages the query subcommand
// of cmd/magellan calls into.
type Server struct {
	bck    backend.Backend
	server *mcp.Server
}

// NewServer builds an MCP server bound to an already-open backend and
// registers the four read-only tools spec names: find_symbol, callers_of,
// reachable_from, slice.
func NewServer(bck backend.Backend) *Server {
	s := &Server{bck: bck}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "magellan-mcp",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// registerTools wires each tool's JSON schema and handler, mirroring the
// teacher's registerTools layout: one AddTool call per tool, schema declared
// inline via jsonschema.Schema.
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "find_symbol",
		Description: "Fuzzy-resolve a symbol name to candidate definitions ranked by match score.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Symbol name or partial name to resolve",
				},
				"threshold": {
					Type:        "number",
					Description: "Minimum match score in [0,1], defaults to 0.75",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of candidates to return, defaults to 10",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleFindSymbol)

	s.server.AddTool(&mcp.Tool{
		Name:        "callers_of",
		Description: "List the direct callers of a symbol, identified by its symbol id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol_id": {
					Type:        "string",
					Description: "Symbol id as returned by find_symbol",
				},
			},
			Required: []string{"symbol_id"},
		},
	}, s.handleCallersOf)

	s.server.AddTool(&mcp.Tool{
		Name:        "reachable_from",
		Description: "List symbols reachable by call edges from a fully-qualified symbol name, forward or reverse, with an optional depth cap.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"fqn": {
					Type:        "string",
					Description: "Fully-qualified name of the starting symbol",
				},
				"max_depth": {
					Type:        "integer",
					Description: "Maximum traversal depth, 0 means unbounded",
				},
				"reverse": {
					Type:        "boolean",
					Description: "If true, list symbols that can reach fqn instead of symbols fqn can reach",
				},
			},
			Required: []string{"fqn"},
		},
	}, s.handleReachableFrom)

	s.server.AddTool(&mcp.Tool{
		Name:        "slice",
		Description: "Compute a forward or backward program slice rooted at a fully-qualified symbol name.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"fqn": {
					Type:        "string",
					Description: "Fully-qualified name of the slice root",
				},
				"backward": {
					Type:        "boolean",
					Description: "If true, compute the backward slice instead of the forward slice",
				},
			},
			Required: []string{"fqn"},
		},
	}, s.handleSlice)
}

// Run serves the registered tools over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
