// Package sd implements the fragment-selection and statement-partition
// algorithm underpinning JSON-LD selective disclosure: JSON Pointer
// evaluation, mandatory/non-mandatory partitioning of canonicalized
// N-Quads, and context-integrity-verified resolution of remote @context
// documents.
package sd

import (
	"strconv"
	"strings"
)

// Pointer is a parsed RFC 6901 JSON Pointer: a sequence of unescaped
// path tokens. The empty Pointer denotes the document root.
type Pointer []string

// ParsePointer parses raw ("", "/a/b", "/a~1b/c~0d", ...) into a Pointer,
// unescaping "~1" to "/" and "~0" to "~" in each token per RFC 6901.
func ParsePointer(raw string) Pointer {
	if raw == "" {
		return Pointer{}
	}
	parts := strings.Split(raw, "/")[1:] // raw always starts with "/"
	tokens := make(Pointer, len(parts))
	for i, p := range parts {
		tokens[i] = unescapeToken(p)
	}
	return tokens
}

func unescapeToken(tok string) string {
	if !strings.Contains(tok, "~") {
		return tok
	}
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] == '~' && i+1 < len(tok) {
			switch tok[i+1] {
			case '1':
				b.WriteByte('/')
				i++
				continue
			case '0':
				b.WriteByte('~')
				i++
				continue
			}
		}
		b.WriteByte(tok[i])
	}
	return b.String()
}

// String renders the pointer back to its RFC 6901 wire form.
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tok := range p {
		b.WriteByte('/')
		b.WriteString(escapeToken(tok))
	}
	return b.String()
}

func escapeToken(tok string) string {
	if !strings.ContainsAny(tok, "~/") {
		return tok
	}
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}

// TryEvaluate walks doc following p, descending into objects by member
// name and arrays by decimal index. It returns (element, true) on
// success, or (nil, false) if any member is missing or any index is out
// of range (spec §4.7.1). The empty pointer yields the root element.
func TryEvaluate(doc interface{}, p Pointer) (interface{}, bool) {
	cur := doc
	for _, tok := range p {
		switch v := cur.(type) {
		case map[string]interface{}:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ErrPointerNotEvaluable is returned when a pointer supplied to a higher
// operation does not resolve against the source document (spec §4.7.2
// errors).
type ErrPointerNotEvaluable struct {
	Pointer string
}

func (e *ErrPointerNotEvaluable) Error() string {
	return "sd: pointer does not resolve in source document: " + e.Pointer
}
