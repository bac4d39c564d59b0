package ingest

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/oldnordic/magellan-go/internal/types"
)

// ctrlKind classifies a raw grammar node kind as one of the control-flow
// constructs the CFG walker recurses into, independent of which of the ten
// supported grammars produced it.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlIf
	ctrlLoop
	ctrlWhile
	ctrlFor
	ctrlMatch
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

// cfgControlKinds maps every grammar's spelling of if/loop/while/for/match
// (switch)/return/break/continue onto the shared ctrlKind vocabulary, the
// same cross-grammar-union approach astNodeKinds uses in language.go.
var cfgControlKinds = map[string]ctrlKind{
	"if_statement":        ctrlIf,
	"if_expression":        ctrlIf,
	"loop_expression":      ctrlLoop,
	"while_statement":      ctrlWhile,
	"while_expression":     ctrlWhile,
	"do_statement":         ctrlWhile,
	"for_statement":        ctrlFor,
	"for_expression":       ctrlFor,
	"for_in_statement":     ctrlFor,
	"for_range_loop":       ctrlFor,
	"match_expression":     ctrlMatch,
	"switch_statement":     ctrlMatch,
	"switch_expression":    ctrlMatch,
	"return_statement":     ctrlReturn,
	"return_expression":    ctrlReturn,
	"break_statement":      ctrlBreak,
	"break_expression":     ctrlBreak,
	"continue_statement":   ctrlContinue,
	"continue_expression":  ctrlContinue,
}

func classifyControl(kind string) ctrlKind {
	if k, ok := cfgControlKinds[kind]; ok {
		return k
	}
	return ctrlNone
}

// cfgBlockLikeKinds lists the grammar node kinds that hold a brace-delimited
// statement sequence: a function body, an if/loop/match-arm body. astNodeKinds
// already normalizes "block"/"compound_statement" to AstBlock; "statement_block"
// is added here for javascript/typescript, whose grammar spells it differently.
var cfgBlockLikeKinds = map[string]bool{
	"block":              true,
	"compound_statement":  true,
	"statement_block":     true,
}

func isBlockLike(kind string) bool { return cfgBlockLikeKinds[kind] }

// cfgTerminatorKinds maps a block's last named statement's kind onto the
// terminator it implies, mirroring cfg_extractor.rs's detect_block_terminator.
var cfgTerminatorKinds = map[string]types.TerminatorKind{
	"return_statement":     types.TermReturn,
	"return_expression":    types.TermReturn,
	"break_statement":      types.TermBreak,
	"break_expression":     types.TermBreak,
	"continue_statement":   types.TermContinue,
	"continue_expression":  types.TermContinue,
	"if_statement":         types.TermConditional,
	"if_expression":        types.TermConditional,
	"match_expression":     types.TermConditional,
	"switch_statement":     types.TermConditional,
	"switch_expression":    types.TermConditional,
	"loop_expression":      types.TermConditional,
	"while_statement":      types.TermConditional,
	"while_expression":     types.TermConditional,
	"do_statement":         types.TermConditional,
	"for_statement":        types.TermConditional,
	"for_expression":       types.TermConditional,
	"for_in_statement":     types.TermConditional,
	"for_range_loop":       types.TermConditional,
	"call_expression":      types.TermCall,
	"call":                 types.TermCall,
}

// cfgWalker accumulates the basic-block list for one function body, the Go
// counterpart of cfg_extractor.rs's CfgExtractor. It is built fresh per
// function; nothing on it outlives one emitCFG call.
type cfgWalker struct {
	path   string
	blocks []types.CfgBlock
}

// walkFunction finds body's brace-delimited statement sequence and visits it
// as the Entry block, matching extract_cfg_from_function/find_function_body.
func (w *cfgWalker) walkFunction(node tree_sitter.Node) {
	body := findFunctionBody(node)
	if body == nil {
		return
	}
	w.visitBlock(*body, types.CfgEntry)
}

// findFunctionBody returns the function/method node's brace-delimited body,
// preferring the grammar's "body" field (most of the ten supported grammars
// name it that) and falling back to the first block-like direct child
// (cfg_extractor.rs's positional scan, needed for grammars without a body
// field reachable from the captured node, e.g. PHP's function_definition).
func findFunctionBody(node tree_sitter.Node) *tree_sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil && isBlockLike(body.Kind()) {
		return body
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && isBlockLike(child.Kind()) {
			return child
		}
	}
	return nil
}

// visitBlock records one CfgBlock for node under kind, then recurses into
// node's direct children looking for nested control flow (visit_block).
func (w *cfgWalker) visitBlock(node tree_sitter.Node, kind types.CfgBlockKind) {
	w.blocks = append(w.blocks, types.CfgBlock{
		Kind:       kind,
		Terminator: w.detectTerminator(node),
		Span:       spanOf(w.path, node),
	})
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			w.visitControlFlow(*child)
		}
	}
}

// visitControlFlow dispatches on node's own kind (visit_control_flow): a
// recognized construct gets its own visit*, terminal constructs (return/
// break/continue) push a single leaf block, and anything else is descended
// into looking for control flow nested deeper (e.g. inside an expression
// statement or a variable declarator's initializer).
func (w *cfgWalker) visitControlFlow(node tree_sitter.Node) {
	switch classifyControl(node.Kind()) {
	case ctrlIf:
		w.visitIf(node)
		return
	case ctrlLoop:
		w.visitLoop(node, types.CfgLoop)
		return
	case ctrlWhile:
		w.visitLoop(node, types.CfgWhile)
		return
	case ctrlFor:
		w.visitLoop(node, types.CfgFor)
		return
	case ctrlMatch:
		w.visitMatch(node)
		return
	case ctrlReturn:
		w.pushLeaf(node, types.CfgReturn, types.TermReturn)
		return
	case ctrlBreak:
		w.pushLeaf(node, types.CfgBreak, types.TermBreak)
		return
	case ctrlContinue:
		w.pushLeaf(node, types.CfgContinue, types.TermContinue)
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			w.visitControlFlow(*child)
		}
	}
}

// visitIf walks an if construct's consequence and alternative (visit_if):
// consequence is a block (If), alternative is either another if (else-if,
// recurse) or an else clause wrapping a block (Else) or a nested if.
func (w *cfgWalker) visitIf(node tree_sitter.Node) {
	if cons := node.ChildByFieldName("consequence"); cons != nil {
		w.visitBranchBody(*cons, types.CfgIf)
	}
	if alt := node.ChildByFieldName("alternative"); alt != nil {
		w.visitElse(*alt)
	}
}

// visitBranchBody handles a consequence/loop-body child that may either be
// the block itself or (PHP/Go-style grammars) a node wrapping one.
func (w *cfgWalker) visitBranchBody(node tree_sitter.Node, kind types.CfgBlockKind) {
	if isBlockLike(node.Kind()) {
		w.visitBlock(node, kind)
		return
	}
	if classifyControl(node.Kind()) == ctrlIf && kind == types.CfgIf {
		w.visitIf(node)
		return
	}
	if blk := firstBlockLikeChild(node); blk != nil {
		w.visitBlock(*blk, kind)
	}
}

// visitElse unwraps an else clause (e.g. Rust's else_clause, which wraps
// either a block or a nested if_expression) and otherwise treats the node
// like any other alternative: a nested if, or a block.
func (w *cfgWalker) visitElse(node tree_sitter.Node) {
	switch classifyControl(node.Kind()) {
	case ctrlIf:
		w.visitIf(node)
		return
	}
	if isBlockLike(node.Kind()) {
		w.visitBlock(node, types.CfgElse)
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if classifyControl(child.Kind()) == ctrlIf {
			w.visitIf(*child)
			return
		}
		if isBlockLike(child.Kind()) {
			w.visitBlock(*child, types.CfgElse)
			return
		}
	}
}

// visitLoop finds a loop/while/for construct's body (field "body" when the
// grammar names it, else the first block-like direct child) and visits it
// under kind (visit_loop).
func (w *cfgWalker) visitLoop(node tree_sitter.Node, kind types.CfgBlockKind) {
	if body := node.ChildByFieldName("body"); body != nil {
		w.visitBranchBody(*body, kind)
		return
	}
	if blk := firstBlockLikeChild(node); blk != nil {
		w.visitBlock(*blk, kind)
	}
}

// visitMatch finds a match/switch construct's arm list and visits every arm
// (visit_match); the arm-container and arm-node kinds vary per grammar so
// both are matched generically rather than by one fixed pair of names.
func (w *cfgWalker) visitMatch(node tree_sitter.Node) {
	body := node.ChildByFieldName("body")
	if body == nil {
		if blk := firstChildKind(node, matchBodyKinds); blk != nil {
			body = blk
		}
	}
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		arm := body.Child(i)
		if arm != nil && matchArmKinds[arm.Kind()] {
			w.visitMatchArm(*arm)
		}
	}
}

// visitMatchArm only records a MatchArm block when the arm's value is
// itself a block, matching visit_match_arm: `n => n * 2` produces no block,
// `n => { n * 2 }` does.
func (w *cfgWalker) visitMatchArm(node tree_sitter.Node) {
	if value := node.ChildByFieldName("value"); value != nil && isBlockLike(value.Kind()) {
		w.visitBlock(*value, types.CfgMatchArm)
		return
	}
	if body := node.ChildByFieldName("body"); body != nil && isBlockLike(body.Kind()) {
		w.visitBlock(*body, types.CfgMatchArm)
		return
	}
	if blk := firstBlockLikeChild(node); blk != nil {
		w.visitBlock(*blk, types.CfgMatchArm)
	}
}

func (w *cfgWalker) pushLeaf(node tree_sitter.Node, kind types.CfgBlockKind, term types.TerminatorKind) {
	w.blocks = append(w.blocks, types.CfgBlock{Kind: kind, Terminator: term, Span: spanOf(w.path, node)})
}

// detectTerminator inspects node's last named child (skipping keyword and
// punctuation tokens, which detect_block_terminator's raw-cursor walk in the
// original would otherwise land on), matching cfgTerminatorKinds.
func (w *cfgWalker) detectTerminator(node tree_sitter.Node) types.TerminatorKind {
	n := node.NamedChildCount()
	if n == 0 {
		return types.TermFallthrough
	}
	last := node.NamedChild(n - 1)
	if last == nil {
		return types.TermFallthrough
	}
	if t, ok := cfgTerminatorKinds[last.Kind()]; ok {
		return t
	}
	return types.TermFallthrough
}

// matchBodyKinds/matchArmKinds cover every supported grammar's match/switch
// arm-container and arm-node kinds (rust match_block/match_arm, javascript
// and typescript switch_body/switch_case|switch_default, go/csharp/java/cpp
// expression_switch_statement bodies use the same block/case_statement
// shapes as their if-statement bodies and are matched as plain blocks
// instead, since their grammars don't nest arms one level deeper).
var matchBodyKinds = map[string]bool{
	"match_block":  true,
	"switch_body":  true,
}

var matchArmKinds = map[string]bool{
	"match_arm":       true,
	"switch_case":     true,
	"switch_default":  true,
}

func firstBlockLikeChild(node tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && isBlockLike(child.Kind()) {
			return child
		}
	}
	return nil
}

func firstChildKind(node tree_sitter.Node, kinds map[string]bool) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && kinds[child.Kind()] {
			return child
		}
	}
	return nil
}
