package memstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// The store returns tool results as a textual dump whose payload sits under a
// 'results': [...] key. Upstream implementations evaluated that blob as code;
// here it is recovered with a literal-only parser that accepts objects,
// arrays, strings (single or double quoted), numbers, booleans, and null, in
// both JSON spelling and Python spelling (True/False/None). Anything else is
// a parse error and the caller treats the response as empty.

// ExtractResults locates the first results key in text and returns the
// balanced [...] expression that follows it.
func ExtractResults(text string) (string, bool) {
	idx := -1
	for _, key := range []string{`'results'`, `"results"`} {
		if i := strings.Index(text, key); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		return "", false
	}

	rest := text[idx:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return "", false
	}
	rest = rest[colon+1:]

	start := strings.Index(rest, "[")
	if start < 0 {
		return "", false
	}
	rest = rest[start:]

	depth := 0
	inString := false
	var quote byte
	escaped := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = true
			quote = c
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return rest[:i+1], true
			}
		}
	}
	return "", false
}

// DecodeResults parses the extracted blob and maps it onto Memory records.
// Any failure yields (nil, err); partial records are kept as long as they
// parse.
func DecodeResults(blob string) ([]Memory, error) {
	v, err := ParseLiteral(blob)
	if err != nil {
		return nil, fmt.Errorf("parse results blob: %w", err)
	}

	// Round-trip through JSON so Memory's own decoding rules (FlexTime,
	// flattened quality) apply uniformly.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("remarshal results: %w", err)
	}

	var memories []Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return memories, nil
}

// ParseLiteral parses a single literal expression and returns it as
// map[string]any / []any / string / float64 / bool / nil.
func ParseLiteral(s string) (any, error) {
	p := &literalParser{src: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() (byte, error) {
	if p.pos >= len(p.src) {
		return 0, p.errf("unexpected end of input")
	}
	return p.src[p.pos], nil
}

func (p *literalParser) value() (any, error) {
	c, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '\'' || c == '"':
		return p.string()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.word()
	}
}

func (p *literalParser) object() (any, error) {
	p.pos++ // {
	obj := make(map[string]any)
	p.skipSpace()
	if c, err := p.peek(); err != nil {
		return nil, err
	} else if c == '}' {
		p.pos++
		return obj, nil
	}

	for {
		p.skipSpace()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		if c != '\'' && c != '"' {
			return nil, p.errf("object key must be a string, got %q", c)
		}
		key, err := p.string()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if c, err := p.peek(); err != nil {
			return nil, err
		} else if c != ':' {
			return nil, p.errf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj[key] = v

		p.skipSpace()
		c, err = p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
			p.skipSpace()
			// trailing comma before }
			if c2, err := p.peek(); err == nil && c2 == '}' {
				p.pos++
				return obj, nil
			}
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.errf("expected ',' or '}' in object, got %q", c)
		}
	}
}

func (p *literalParser) array() (any, error) {
	p.pos++ // [
	arr := []any{}
	p.skipSpace()
	if c, err := p.peek(); err != nil {
		return nil, err
	} else if c == ']' {
		p.pos++
		return arr, nil
	}

	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)

		p.skipSpace()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
			p.skipSpace()
			if c2, err := p.peek(); err == nil && c2 == ']' {
				p.pos++
				return arr, nil
			}
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.errf("expected ',' or ']' in array, got %q", c)
		}
	}
}

func (p *literalParser) string() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"', '/':
				b.WriteByte(e)
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", p.errf("short unicode escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return "", p.errf("bad unicode escape: %v", err)
				}
				p.pos += 4
				b.WriteRune(rune(n))
			default:
				// Unknown escape: keep both bytes, matching lenient consumers.
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errf("unterminated string")
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errf("bad number %q", p.src[start:p.pos])
	}
	return f, nil
}

func (p *literalParser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	switch p.src[start:p.pos] {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "null", "None":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errf("unexpected token %q", p.src[start:min(start+10, len(p.src))])
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
