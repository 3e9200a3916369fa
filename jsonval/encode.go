package jsonval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxEncodeDepth bounds nesting so a table graph with a back-edge fails
// instead of recursing forever. Legitimate observations are a handful of
// levels deep.
const maxEncodeDepth = 128

// infinitySentinel replaces ±Inf on the wire; textual JSON has no infinity
// literal, and the peer treats it as "a very large number".
const infinitySentinel = 999999999

// Encode renders v as compact JSON: deterministic, depth-first, no
// whitespace. NaN encodes as null, ±Inf as ±999999999. Encoding fails only
// for unsupported value types and for nesting beyond maxEncodeDepth.
func Encode(v Value) (string, error) {
	var b strings.Builder
	if err := encodeValue(&b, v, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeValue(b *strings.Builder, v Value, depth int) error {
	if depth > maxEncodeDepth {
		return fmt.Errorf("max encode depth %d exceeded (cyclic table?)", maxEncodeDepth)
	}
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case float64:
		encodeNumber(b, val)
	case string:
		encodeString(b, val)
	case *Table:
		return encodeTable(b, val, depth)
	default:
		return fmt.Errorf("cannot encode value of type %T", v)
	}
	return nil
}

func encodeNumber(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("null")
	case math.IsInf(f, 1):
		b.WriteString(strconv.Itoa(infinitySentinel))
	case math.IsInf(f, -1):
		b.WriteString(strconv.Itoa(-infinitySentinel))
	case f == math.Trunc(f) && math.Abs(f) < 1<<53:
		b.WriteString(strconv.FormatInt(int64(f), 10))
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

// encodeString writes s as a JSON string escaping only backslash, quote,
// newline, carriage return and tab. All other bytes pass through; the
// format is permissive, not full Unicode-escaping.
func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
}

func encodeTable(b *strings.Builder, t *Table, depth int) error {
	if n, ok := t.IsArray(); ok {
		b.WriteByte('[')
		for i := 1; i <= n; i++ {
			if i > 1 {
				b.WriteByte(',')
			}
			v, _ := t.Index(i)
			if err := encodeValue(b, v, depth+1); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	}
	b.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}
		// Keys always render as JSON strings, integer keys included.
		if k.IsInt() {
			encodeString(b, strconv.Itoa(k.Index()))
		} else {
			encodeString(b, k.Name())
		}
		b.WriteByte(':')
		v, _ := t.Get(k)
		if err := encodeValue(b, v, depth+1); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}
