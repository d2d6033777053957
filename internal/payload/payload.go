// Package payload digs structured data out of noisy shell output: echoed
// commands, log lines, ANSI fragments and prompts surround the JSON or
// status line a request actually produced.
package payload

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// ThingSet text-mode status codes.
const (
	StatusChanged   = 0x84
	StatusContent   = 0x85
	StatusForbidden = 0xA3
)

var (
	okStatusRE     = regexp.MustCompile(`:(84|85)(\s|$)`)
	statusScalarRE = regexp.MustCompile(`:[0-9A-Fa-f]{2,}\s+(.*)`)
)

// Result is one extracted response payload: structured JSON when present,
// otherwise the scalar token of a status line.
type Result struct {
	JSON  json.RawMessage
	Token string
}

func (r Result) IsJSON() bool { return r.JSON != nil }

// Extract pulls the payload out of raw response text, preferring a JSON
// block over a status-line scalar.
func Extract(text string) (Result, bool) {
	if raw, ok := ExtractJSON(text); ok {
		return Result{JSON: raw}, true
	}
	if tok, ok := ExtractScalar(text); ok {
		return Result{Token: tok}, true
	}
	return Result{}, false
}

// ExtractJSON returns the first balanced JSON block in text. Scanning
// starts at the first brace or bracket and honors string literals and
// escapes; an unbalanced or invalid block yields no payload.
func ExtractJSON(text string) (json.RawMessage, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, false
	}
	depth := 0
	inStr := false
	esc := false
	for j := start; j < len(text); j++ {
		ch := text[j]
		if esc {
			esc = false
			continue
		}
		switch ch {
		case '\\':
			esc = true
			continue
		case '"':
			inStr = !inStr
			continue
		}
		if inStr {
			continue
		}
		switch ch {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				blob := []byte(text[start : j+1])
				if !json.Valid(blob) {
					return nil, false
				}
				return json.RawMessage(blob), true
			}
		}
	}
	return nil, false
}

// ExtractScalar falls back to a status-code line of the form
// ":<hex> <token...>", returning the first line of the token trimmed.
// An empty token still counts as a match.
func ExtractScalar(text string) (string, bool) {
	m := statusScalarRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	tok := m[1]
	if i := strings.IndexAny(tok, "\r\n"); i >= 0 {
		tok = tok[:i]
	}
	return strings.TrimSpace(tok), true
}

// Accepted reports whether response text carries a success status
// (0x84 Changed or 0x85 Content) and no error code anywhere in the text.
func Accepted(text string) bool {
	return okStatusRE.MatchString(text) && !strings.Contains(text, "A3")
}

// Strings decodes a JSON array payload into its items rendered as text.
func Strings(raw json.RawMessage) ([]string, bool) {
	dec := decoder(raw)
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, stringify(it))
	}
	return out, true
}

// Members returns the top-level keys of a JSON object payload in
// document order.
func Members(raw json.RawMessage) ([]string, bool) {
	dec := decoder(raw)
	if !expectDelim(dec, '{') {
		return nil, false
	}
	keys := make([]string, 0)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, false
		}
		k, ok := kt.(string)
		if !ok {
			return nil, false
		}
		keys = append(keys, k)
		if err := skipValue(dec); err != nil {
			return nil, false
		}
	}
	return keys, true
}

// ArrayLen reports the element count of a JSON array payload.
func ArrayLen(raw json.RawMessage) (int, bool) {
	dec := decoder(raw)
	if !expectDelim(dec, '[') {
		return 0, false
	}
	n := 0
	for dec.More() {
		if err := skipValue(dec); err != nil {
			return 0, false
		}
		n++
	}
	return n, true
}

// FirstValueText renders the first member value of a JSON object payload
// in document order. Non-object payloads (and empty objects) render whole.
// Number literals keep their source digits.
func FirstValueText(raw json.RawMessage) (string, bool) {
	dec := decoder(raw)
	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	if d, ok := tok.(json.Delim); ok && d == '{' && dec.More() {
		if _, err := dec.Token(); err != nil {
			return "", false
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return "", false
		}
		return stringify(v), true
	}
	whole := decoder(raw)
	var v any
	if err := whole.Decode(&v); err != nil {
		return "", false
	}
	return stringify(v), true
}

func decoder(raw json.RawMessage) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec
}

func expectDelim(dec *json.Decoder, want json.Delim) bool {
	tok, err := dec.Token()
	if err != nil {
		return false
	}
	d, ok := tok.(json.Delim)
	return ok && d == want
}

// skipValue consumes one JSON value, descending through containers.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	for dec.More() {
		if d == '{' {
			if _, err := dec.Token(); err != nil {
				return err
			}
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case json.Number:
		return t.String()
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
