package format

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// WriteEDN writes v as EDN. Values go through their JSON encoding first, so
// json tags decide the keys. camelCase keys become kebab-case keywords and
// RFC 3339 timestamps become #inst literals.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	e := &ednWriter{pretty: pretty}
	e.value(x, 0)
	e.buf.WriteByte('\n')
	_, err = w.Write(e.buf.Bytes())
	return err
}

type ednWriter struct {
	buf    bytes.Buffer
	pretty bool
}

func (e *ednWriter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("nil")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case json.Number:
		e.buf.WriteString(t.String())
	case string:
		if isInstant(t) {
			e.buf.WriteString("#inst ")
		}
		e.buf.WriteString(strconv.Quote(t))
	case []any:
		e.open('[')
		for i, x := range t {
			e.sep(i, depth+1)
			e.value(x, depth+1)
		}
		e.close(']', len(t), depth)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.open('{')
		for i, k := range keys {
			e.sep(i, depth+1)
			e.buf.WriteString(Keyword(k))
			e.buf.WriteByte(' ')
			e.value(t[k], depth+1)
		}
		e.close('}', len(t), depth)
	}
}

func (e *ednWriter) open(c byte) { e.buf.WriteByte(c) }

func (e *ednWriter) sep(i, depth int) {
	switch {
	case e.pretty:
		if i > 0 || depth > 0 {
			e.buf.WriteByte('\n')
		}
		e.buf.WriteString(strings.Repeat("  ", depth))
	case i > 0:
		e.buf.WriteByte(' ')
	}
}

func (e *ednWriter) close(c byte, n, depth int) {
	if e.pretty && n > 0 {
		e.buf.WriteByte('\n')
		e.buf.WriteString(strings.Repeat("  ", depth))
	}
	e.buf.WriteByte(c)
}

// Keyword turns a JSON key into an EDN keyword: ownerId -> :owner-id.
func Keyword(k string) string {
	var b strings.Builder
	b.WriteByte(':')
	for i, r := range strings.TrimSpace(k) {
		switch {
		case r == ' ' || r == '_':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isInstant(s string) bool {
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || s[10] != 'T' {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}
