package ingest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/oldnordic/magellan-go/internal/types"
)

func marshalFile(f types.File) ([]byte, error)         { return json.Marshal(f) }
func marshalSymbol(s types.Symbol) ([]byte, error)     { return json.Marshal(s) }
func marshalAstNode(n types.AstNode) ([]byte, error)   { return json.Marshal(n) }

func marshalCfgBlocks(blocks []types.CfgBlock) ([]byte, error) { return json.Marshal(blocks) }

func marshalJSONAny(v interface{}) ([]byte, error) { return json.Marshal(v) }

func unmarshalJSONAny(data []byte, out interface{}) error { return json.Unmarshal(data, out) }

func unmarshalFile(data []byte) (types.File, error) {
	var f types.File
	err := json.Unmarshal(data, &f)
	return f, err
}

// fileContentHash decodes a serialized File and returns its content_hash,
// used by IndexFile's fast skip-check.
func fileContentHash(data []byte) (string, bool) {
	f, err := unmarshalFile(data)
	if err != nil {
		return "", false
	}
	return f.ContentHash, f.ContentHash != ""
}

// encodeFileID/decodeFileID store an EntityId as an 8-byte little-endian KV
// value, matching internal/kvindex's int64 encoding convention.
func encodeFileID(id types.EntityId) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func decodeFileID(data []byte) (types.EntityId, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("malformed file id: want 8 bytes, got %d", len(data))
	}
	return types.EntityId(binary.LittleEndian.Uint64(data[:8])), nil
}
