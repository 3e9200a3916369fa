package jsonval

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ParseError reports malformed JSON text. It is local and recoverable; the
// caller decides whether to drop the message or close the session.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json parse error at offset %d: %s", e.Offset, e.Msg)
}

// Decode parses text as a single JSON value. The scan is a single
// left-to-right pass with an explicit cursor and no backtracking. Arrays
// decode to tables with integer keys 1..N, objects to tables with string
// keys in document order; a null object member is materialized as a present
// key holding nil. Trailing non-whitespace after the value is an error.
func Decode(text string) (Value, error) {
	d := &decoder{s: text}
	d.skipSpace()
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.i < len(d.s) {
		return nil, d.errf("trailing data after value")
	}
	return v, nil
}

type decoder struct {
	s string
	i int
}

func (d *decoder) errf(format string, args ...any) error {
	return &ParseError{Offset: d.i, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) skipSpace() {
	for d.i < len(d.s) {
		switch d.s[d.i] {
		case ' ', '\t', '\r', '\n':
			d.i++
		default:
			return
		}
	}
}

func (d *decoder) value() (Value, error) {
	if d.i >= len(d.s) {
		return nil, d.errf("unexpected end of input")
	}
	switch c := d.s[d.i]; {
	case c == '{':
		return d.object()
	case c == '[':
		return d.array()
	case c == '"':
		return d.string()
	case c == 't', c == 'f', c == 'n':
		return d.literal()
	case c == '-' || (c >= '0' && c <= '9'):
		return d.number()
	default:
		return nil, d.errf("unexpected character %q", c)
	}
}

func (d *decoder) literal() (Value, error) {
	switch {
	case strings.HasPrefix(d.s[d.i:], "true"):
		d.i += 4
		return true, nil
	case strings.HasPrefix(d.s[d.i:], "false"):
		d.i += 5
		return false, nil
	case strings.HasPrefix(d.s[d.i:], "null"):
		d.i += 4
		return nil, nil
	default:
		return nil, d.errf("unrecognized literal")
	}
}

func (d *decoder) number() (Value, error) {
	start := d.i
	for d.i < len(d.s) {
		c := d.s[d.i]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			d.i++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(d.s[start:d.i], 64)
	if err != nil {
		d.i = start
		return nil, d.errf("malformed number %q", d.s[start:min(len(d.s), start+16)])
	}
	return f, nil
}

func (d *decoder) string() (Value, error) {
	d.i++ // opening quote
	var b strings.Builder
	for {
		if d.i >= len(d.s) {
			return nil, d.errf("unexpected end of input in string")
		}
		c := d.s[d.i]
		if c == '"' {
			d.i++
			return b.String(), nil
		}
		if c != '\\' {
			b.WriteByte(c)
			d.i++
			continue
		}
		d.i++
		if d.i >= len(d.s) {
			return nil, d.errf("unexpected end of input in string")
		}
		switch e := d.s[d.i]; e {
		case '"', '\\', '/':
			b.WriteByte(e)
			d.i++
		case 'b':
			b.WriteByte('\b')
			d.i++
		case 'f':
			b.WriteByte('\f')
			d.i++
		case 'n':
			b.WriteByte('\n')
			d.i++
		case 'r':
			b.WriteByte('\r')
			d.i++
		case 't':
			b.WriteByte('\t')
			d.i++
		case 'u':
			r, err := d.unicodeEscape()
			if err != nil {
				return nil, err
			}
			b.WriteRune(r)
		default:
			return nil, d.errf("invalid escape \\%c", e)
		}
	}
}

// unicodeEscape consumes a \uXXXX sequence, cursor on the 'u'. Surrogate
// pairs spanning two escapes are combined.
func (d *decoder) unicodeEscape() (rune, error) {
	r1, err := d.hex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(r1) {
		return r1, nil
	}
	if strings.HasPrefix(d.s[d.i:], `\u`) {
		save := d.i
		d.i += 2
		r2, err := d.hex4()
		if err != nil {
			return 0, err
		}
		if r := utf16.DecodeRune(r1, r2); r != '�' {
			return r, nil
		}
		d.i = save
	}
	return '�', nil
}

func (d *decoder) hex4() (rune, error) {
	d.i++ // 'u'
	if d.i+4 > len(d.s) {
		return 0, d.errf("unexpected end of input in unicode escape")
	}
	n, err := strconv.ParseUint(d.s[d.i:d.i+4], 16, 32)
	if err != nil {
		return 0, d.errf("invalid unicode escape")
	}
	d.i += 4
	return rune(n), nil
}

func (d *decoder) array() (Value, error) {
	d.i++ // '['
	t := NewTable()
	d.skipSpace()
	if d.i < len(d.s) && d.s[d.i] == ']' {
		d.i++
		return t, nil
	}
	idx := 1
	for {
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		t.SetIndex(idx, v)
		idx++
		d.skipSpace()
		if d.i >= len(d.s) {
			return nil, d.errf("unexpected end of input in array")
		}
		switch d.s[d.i] {
		case ',':
			d.i++
		case ']':
			d.i++
			return t, nil
		default:
			return nil, d.errf("missing ',' or ']' in array")
		}
	}
}

func (d *decoder) object() (Value, error) {
	d.i++ // '{'
	t := NewTable()
	d.skipSpace()
	if d.i < len(d.s) && d.s[d.i] == '}' {
		d.i++
		return t, nil
	}
	for {
		d.skipSpace()
		if d.i >= len(d.s) {
			return nil, d.errf("unexpected end of input in object")
		}
		if d.s[d.i] != '"' {
			return nil, d.errf("object key must be a quoted string")
		}
		kv, err := d.string()
		if err != nil {
			return nil, err
		}
		key := kv.(string)
		d.skipSpace()
		if d.i >= len(d.s) || d.s[d.i] != ':' {
			return nil, d.errf("missing ':' after object key %q", key)
		}
		d.i++
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		// A null member is stored as present-with-nil.
		t.SetString(key, v)
		d.skipSpace()
		if d.i >= len(d.s) {
			return nil, d.errf("unexpected end of input in object")
		}
		switch d.s[d.i] {
		case ',':
			d.i++
		case '}':
			d.i++
			return t, nil
		default:
			return nil, d.errf("missing ',' or '}' in object")
		}
	}
}
