// Package kvindex builds and parses the namespaced KV key patterns that
// accelerate O(1) lookups over the native backend (spec §4.3). Every key
// builder lives here so namespace prefixes stay pairwise disjoint (spec
// testable property #6) and path escaping happens in exactly one place.
package kvindex

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// EscapePath doubles every ':' in a file path so it can be embedded inside a
// ':'-delimited key without colliding with the delimiter (spec §4.3).
func EscapePath(path string) string {
	return strings.ReplaceAll(path, ":", "::")
}

// UnescapePath reverses EscapePath.
func UnescapePath(escaped string) string {
	return strings.ReplaceAll(escaped, "::", ":")
}

// SymbolByFQN builds sym:fqn:{FQN} → symbol id.
func SymbolByFQN(fqn string) []byte {
	return []byte("sym:fqn:" + fqn)
}

// SymbolByFQNPrefix is the namespace prefix for sym:fqn: keys.
func SymbolByFQNPrefix() []byte {
	return []byte("sym:fqn:")
}

// SymbolMetadata builds sym:id:{id} → symbol metadata JSON.
func SymbolMetadata(symbolID string) []byte {
	return []byte("sym:id:" + symbolID)
}

// SymbolFQNOf builds sym:fqn_of:{id} → canonical FQN string, the reverse
// direction of SymbolByFQN so invalidation doesn't need a graph query.
func SymbolFQNOf(symbolID string) []byte {
	return []byte("sym:fqn_of:" + symbolID)
}

// SymbolReverseRefs builds sym:rev:{id} → encoded entity-id list: the
// Reference nodes whose TargetSymbolID is this symbol.
func SymbolReverseRefs(symbolID string) []byte {
	return []byte("sym:rev:" + symbolID)
}

// FileByPath builds file:path:{path} → file id.
func FileByPath(path string) []byte {
	return []byte("file:path:" + EscapePath(path))
}

// FileSymbols builds file:sym:{file_id} → encoded symbol-id list.
func FileSymbols(fileID int64) []byte {
	return []byte("file:sym:" + strconv.FormatInt(fileID, 10))
}

// FileReferences builds file:ref:{file_id} → encoded Reference-id list, the
// cascade-delete index DeleteFile consults now that Reference nodes are no
// longer DEFINES-edged to their file (spec §3 reserves DEFINES for
// File→Symbol; a Reference's only graph edge is its own REFERENCES edge to
// a target Symbol).
func FileReferences(fileID int64) []byte {
	return []byte("file:ref:" + strconv.FormatInt(fileID, 10))
}

// FileCalls builds file:call:{file_id} → encoded Call-id list, the same
// cascade-delete index as FileReferences for Call nodes (whose own edges
// are CALLER/CALLS, not DEFINES).
func FileCalls(fileID int64) []byte {
	return []byte("file:call:" + strconv.FormatInt(fileID, 10))
}

// Chunk builds chunk:{escaped_path}:{start}:{end} → chunk JSON.
func Chunk(path string, start, end uint32) []byte {
	return []byte(fmt.Sprintf("chunk:%s:%d:%d", EscapePath(path), start, end))
}

// ChunkFilePrefix is the namespace prefix for every chunk of one file, used
// for per-file chunk enumeration via prefix scan.
func ChunkFilePrefix(path string) []byte {
	return []byte("chunk:" + EscapePath(path) + ":")
}

// ExecutionLog builds execlog:{exec_id} → execution record JSON.
func ExecutionLog(execID string) []byte {
	return []byte("execlog:" + execID)
}

// FileMetrics builds metrics:file:{escaped_path} → file metrics JSON.
func FileMetrics(path string) []byte {
	return []byte("metrics:file:" + EscapePath(path))
}

// SymbolMetrics builds metrics:symbol:{id} → symbol metrics JSON.
func SymbolMetrics(symbolID string) []byte {
	return []byte("metrics:symbol:" + symbolID)
}

// CfgFunc builds cfg:func:{id} → encoded CFG block list.
func CfgFunc(symbolID string) []byte {
	return []byte("cfg:func:" + symbolID)
}

// AstFile builds ast:file:{id} → encoded AST node list.
func AstFile(fileID int64) []byte {
	return []byte("ast:file:" + strconv.FormatInt(fileID, 10))
}

// Label builds label:{name} → label metadata.
func Label(name string) []byte {
	return []byte("label:" + name)
}

// Calls builds calls:{caller}:{callee} → existence marker.
func Calls(caller, callee string) []byte {
	return []byte("calls:" + caller + ":" + callee)
}

// CallsFromPrefix is the prefix-scan anchor for every call originating at
// caller: calls:from:{id}:
func CallsFromPrefix(caller string) []byte {
	return []byte("calls:from:" + caller + ":")
}

// CallsToPrefix is the prefix-scan anchor for every call targeting callee:
// calls:to:{id}:
func CallsToPrefix(callee string) []byte {
	return []byte("calls:to:" + callee + ":")
}

// CallsFrom builds calls:from:{caller}:{callee}, the forward half of a call
// edge existence marker (paired with CallsTo for reverse enumeration).
func CallsFrom(caller, callee string) []byte {
	return []byte("calls:from:" + caller + ":" + callee)
}

// CallsTo builds calls:to:{callee}:{caller}, the reverse half.
func CallsTo(caller, callee string) []byte {
	return []byte("calls:to:" + callee + ":" + caller)
}

// Namespaces lists every top-level key prefix this package mints. Used by
// tests to assert pairwise disjointness (spec testable property #6): no
// prefix in this list may be a prefix of another.
var Namespaces = []string{
	"sym:fqn:",
	"sym:id:",
	"sym:fqn_of:",
	"sym:rev:",
	"file:path:",
	"file:sym:",
	"file:ref:",
	"file:call:",
	"chunk:",
	"execlog:",
	"metrics:file:",
	"metrics:symbol:",
	"cfg:func:",
	"ast:file:",
	"label:",
	"calls:",
}

// EncodeInt64List encodes a list of int64 ids as fixed-width little-endian
// 8-byte chunks, matching the original implementation's list encoding
// (spec §4.3's "encoded list of symbol ids").
func EncodeInt64List(ids []int64) []byte {
	out := make([]byte, 0, len(ids)*8)
	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		out = append(out, buf[:]...)
	}
	return out
}

// DecodeInt64List decodes EncodeInt64List's output. A malformed trailing
// fragment shorter than 8 bytes is silently dropped rather than causing an
// error, matching the original implementation's tolerant decoder: a
// torn write on crash recovery should degrade, not panic.
func DecodeInt64List(data []byte) []int64 {
	n := len(data) / 8
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		ids = append(ids, int64(v))
	}
	return ids
}
