package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// The metadata artifact is a small map-like structure; JSON keeps it stable,
// portable and inspectable by operators with a text editor.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the store for metadata.
var Default Codec = GoJSON{}
