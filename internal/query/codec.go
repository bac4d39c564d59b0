package query

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/oldnordic/magellan-go/internal/types"
)

func unmarshalJSON(data []byte, out interface{}) error { return json.Unmarshal(data, out) }

// decodeEntityID reads the 8-byte little-endian EntityId encoding
// internal/ingest writes as file:path: values.
func decodeEntityID(data []byte) (types.EntityId, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("malformed entity id: want 8 bytes, got %d", len(data))
	}
	return types.EntityId(binary.LittleEndian.Uint64(data[:8])), nil
}
