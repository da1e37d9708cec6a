package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeSnapshot writes the collected readings as an indented JSON array.
// Non-ASCII text is written as-is and an empty collection encodes as [].
func EncodeSnapshot(w io.Writer, readings []RawReading) error {
	if readings == nil {
		readings = []RawReading{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(readings); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
