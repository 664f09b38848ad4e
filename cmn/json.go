package cmn

import jsoniter "github.com/json-iterator/go"

// json is configured to be a drop-in, faster replacement for encoding/json,
// the way the teacher's cmn/cos package wires json-iterator throughout ais.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes v as JSON.
func Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// MustMarshal encodes v as JSON, panicking on error; used only for values
// whose shape is controlled by this codebase (never for request bodies).
func MustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Unmarshal decodes JSON data into v.
func Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
