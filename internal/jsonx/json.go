// Package jsonx is the JSON codec used for documents, metadata records and
// CLI output. It uses sonic on amd64/arm64 and falls back to encoding/json
// elsewhere. Both paths follow encoding/json semantics (sorted map keys,
// HTML escaping), so output is byte-stable across platforms.
package jsonx

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// Encoder is a streaming JSON encoder.
type Encoder interface {
	Encode(v any) error
}

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v any) ([]byte, error)
	// MarshalIndent encodes v with the given prefix and indentation.
	MarshalIndent func(v any, prefix, indent string) ([]byte, error)
	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v any) error
	// NewEncoder returns an encoder writing one JSON value per line to w.
	NewEncoder func(w io.Writer) Encoder

	usingSonic bool
)

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api := sonic.ConfigStd
		Marshal = api.Marshal
		MarshalIndent = api.MarshalIndent
		Unmarshal = api.Unmarshal
		NewEncoder = func(w io.Writer) Encoder { return api.NewEncoder(w) }
		usingSonic = true
		return
	}
	Marshal = stdjson.Marshal
	MarshalIndent = stdjson.MarshalIndent
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return stdjson.NewEncoder(w) }
}

// UsingSonic reports whether the sonic implementation is active.
func UsingSonic() bool { return usingSonic }
