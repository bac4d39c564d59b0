package algo

import "encoding/json"

func unmarshalJSONAny(data []byte, out interface{}) error { return json.Unmarshal(data, out) }
