// Package codec centralizes metadata encoding.
//
// The snapshot artifact has its own binary format (see the persistence
// package); the metadata artifact and operational reports are encoded
// through a Codec so the representation can be swapped without touching the
// store.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
