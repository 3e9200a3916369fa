package jsonval

import (
	"errors"
	"testing"
)

func mustDecode(t *testing.T, s string) Value {
	t.Helper()
	v, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode(%q) err: %v", s, err)
	}
	return v
}

func wantParseError(t *testing.T, s string) {
	t.Helper()
	_, err := Decode(s)
	if err == nil {
		t.Fatalf("Decode(%q): expected ParseError, got none", s)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Decode(%q): error is %T, want *ParseError", s, err)
	}
}

func TestDecode_Scalars(t *testing.T) {
	if v := mustDecode(t, "null"); v != nil {
		t.Fatalf("null = %v", v)
	}
	if v := mustDecode(t, "true"); v != true {
		t.Fatalf("true = %v", v)
	}
	if v := mustDecode(t, "false"); v != false {
		t.Fatalf("false = %v", v)
	}
	if v := mustDecode(t, "42"); v != float64(42) {
		t.Fatalf("42 = %v", v)
	}
	if v := mustDecode(t, "-3.5e2"); v != float64(-350) {
		t.Fatalf("-3.5e2 = %v", v)
	}
	if v := mustDecode(t, `"hi"`); v != "hi" {
		t.Fatalf("string = %v", v)
	}
}

func TestDecode_WhitespaceSkippable(t *testing.T) {
	v := mustDecode(t, " \t\r\n{ \"a\" : [ 1 , 2 ] } \n")
	tb := v.(*Table)
	arr, ok := tb.GetString("a")
	if !ok {
		t.Fatal("key a missing")
	}
	if n, isArr := arr.(*Table).IsArray(); !isArr || n != 2 {
		t.Fatalf("a is not a 2-array")
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []string{
		"",          // empty input
		"{",         // unexpected end in object
		"[1,2,]",    // trailing comma: ']' is not a value
		"[1 2]",     // missing ','
		`{"a" 1}`,   // missing ':'
		`{"a":1 `,   // unterminated object
		`{a:1}`,     // bare key
		`"abc`,      // unterminated string
		"tru",       // unrecognized literal
		"truthy",    // trailing junk on literal
		"1.2.3",     // malformed number
		"-",         // malformed number
		"{} {}",     // trailing data
		`"a\qb"`,    // invalid escape
		"[",         // unexpected end in array
		`{"a":}`,    // ':' then terminator
	}
	for _, c := range cases {
		wantParseError(t, c)
	}
}

func TestDecode_ArrayToIntKeys(t *testing.T) {
	v := mustDecode(t, "[10,20,30]")
	tb := v.(*Table)
	n, ok := tb.IsArray()
	if !ok || n != 3 {
		t.Fatalf("IsArray = %d,%v", n, ok)
	}
	second, _ := tb.Index(2)
	if second != float64(20) {
		t.Fatalf("t[2] = %v", second)
	}
}

func TestDecode_ObjectKeyOrderPreserved(t *testing.T) {
	v := mustDecode(t, `{"z":1,"a":2,"m":3}`)
	keys := v.(*Table).Keys()
	got := []string{keys[0].Name(), keys[1].Name(), keys[2].Name()}
	want := []string{"z", "a", "m"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key order = %v, want %v", got, want)
		}
	}
}

func TestDecode_NullMemberIsPresent(t *testing.T) {
	// Reference behavior: absent-vs-null is preserved as present-with-Null.
	v := mustDecode(t, `{"buy_index":null}`)
	tb := v.(*Table)
	val, present := tb.GetString("buy_index")
	if !present {
		t.Fatal("null member should be present")
	}
	if val != nil {
		t.Fatalf("null member value = %v", val)
	}
	if _, present := tb.GetString("missing"); present {
		t.Fatal("missing member should be absent")
	}
}

func TestDecode_StandardEscapes(t *testing.T) {
	v := mustDecode(t, `"a\"b\\c\/d\n\t\r\b\f"`)
	if v != "a\"b\\c/d\n\t\r\b\f" {
		t.Fatalf("escapes = %q", v)
	}
}

func TestDecode_UnicodeEscapes(t *testing.T) {
	if v := mustDecode(t, `"é"`); v != "é" {
		t.Fatalf("\\u00e9 = %q", v)
	}
	// Surrogate pair (U+1F0A1, a playing card).
	if v := mustDecode(t, `"🂡"`); v != "\U0001F0A1" {
		t.Fatalf("surrogate pair = %q", v)
	}
}

func TestDecode_ResponseScenario(t *testing.T) {
	// The decision server's answer for a discard recommendation.
	v := mustDecode(t, `{"action_type":"discard","card_indices":[0,2,5]}`)
	tb := v.(*Table)
	at, _ := tb.GetString("action_type")
	if at != "discard" {
		t.Fatalf("action_type = %v", at)
	}
	idx, _ := tb.GetString("card_indices")
	arr := idx.(*Table)
	if n, ok := arr.IsArray(); !ok || n != 3 {
		t.Fatalf("card_indices not a 3-array")
	}
	first, _ := arr.Index(1)
	if first != float64(0) {
		t.Fatalf("card_indices[1] = %v", first)
	}
}

func TestDecode_ParseErrorHasOffset(t *testing.T) {
	_, err := Decode(`{"a":1,`)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error is %T", err)
	}
	if pe.Offset != 7 {
		t.Fatalf("offset = %d, want 7", pe.Offset)
	}
}
