package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oldnordic/magellan-go/internal/algo"
	"github.com/oldnordic/magellan-go/internal/query"
)

type findSymbolParams struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// handleFindSymbol fuzzy-resolves a symbol name, mirroring cmd/magellan's
// "query find" subcommand.
func (s *Server) handleFindSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params findSymbolParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("find_symbol", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Name == "" {
		return createErrorResponse("find_symbol", fmt.Errorf("name is required"))
	}
	if params.Threshold == 0 {
		params.Threshold = 0.75
	}
	if params.Limit == 0 {
		params.Limit = 10
	}

	matches, err := query.New(s.bck).ResolveSymbolFuzzy(params.Name, params.Threshold, params.Limit)
	if err != nil {
		return createErrorResponse("find_symbol", err)
	}
	return createJSONResponse(matches)
}

type callersOfParams struct {
	SymbolID string `json:"symbol_id"`
}

// handleCallersOf lists direct callers of a symbol id.
func (s *Server) handleCallersOf(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params callersOfParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("callers_of", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.SymbolID == "" {
		return createErrorResponse("callers_of", fmt.Errorf("symbol_id is required"))
	}

	ids, err := query.New(s.bck).CallersOfSymbol(params.SymbolID)
	if err != nil {
		return createErrorResponse("callers_of", err)
	}
	return createJSONResponse(map[string]interface{}{"caller_ids": ids})
}

type reachableFromParams struct {
	FQN      string `json:"fqn"`
	MaxDepth int    `json:"max_depth,omitempty"`
	Reverse  bool   `json:"reverse,omitempty"`
}

// handleReachableFrom computes forward or reverse reachability from a
// fully-qualified symbol name, mirroring cmd/magellan's "query reachable".
func (s *Server) handleReachableFrom(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params reachableFromParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("reachable_from", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.FQN == "" {
		return createErrorResponse("reachable_from", fmt.Errorf("fqn is required"))
	}

	g, err := algo.Build(s.bck)
	if err != nil {
		return createErrorResponse("reachable_from", err)
	}

	var symbols interface{}
	if params.Reverse {
		symbols, err = g.ReverseReachableSymbols(params.FQN, params.MaxDepth)
	} else {
		symbols, err = g.ReachableSymbols(params.FQN, params.MaxDepth)
	}
	if err != nil {
		return createErrorResponse("reachable_from", err)
	}
	return createJSONResponse(symbols)
}

type sliceParams struct {
	FQN      string `json:"fqn"`
	Backward bool   `json:"backward,omitempty"`
}

// handleSlice computes a forward or backward program slice rooted at fqn,
// mirroring cmd/magellan's "query slice".
func (s *Server) handleSlice(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params sliceParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("slice", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.FQN == "" {
		return createErrorResponse("slice", fmt.Errorf("fqn is required"))
	}

	g, err := algo.Build(s.bck)
	if err != nil {
		return createErrorResponse("slice", err)
	}

	var result algo.Slice
	if params.Backward {
		result, err = g.BackwardSlice(params.FQN)
	} else {
		result, err = g.ForwardSlice(params.FQN)
	}
	if err != nil {
		return createErrorResponse("slice", err)
	}
	return createJSONResponse(result)
}
