// Package format encodes command output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	JSON = "json"
	EDN  = "edn"
)

// Names lists the accepted --format values.
func Names() []string { return []string{JSON, EDN} }

// Parse normalizes a --format value. Empty means JSON.
func Parse(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", JSON:
		return JSON, nil
	case EDN:
		return EDN, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected %s)", s, strings.Join(Names(), "|"))
	}
}

// Write encodes v in the named format followed by a newline.
func Write(w io.Writer, v any, format string, pretty bool) error {
	f, err := Parse(format)
	if err != nil {
		return err
	}
	if f == EDN {
		return WriteEDN(w, v, pretty)
	}
	return WriteJSON(w, v, pretty)
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
