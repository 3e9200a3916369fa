package jsonval

import (
	"math"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, v Value) string {
	t.Helper()
	s, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode err: %v", err)
	}
	return s
}

func TestEncode_Scalars(t *testing.T) {
	cases := []struct {
		in   Value
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{false, "false"},
		{float64(0), "0"},
		{float64(42), "42"},
		{float64(-7), "-7"},
		{2.5, "2.5"},
		{"", `""`},
		{"hello", `"hello"`},
	}
	for _, c := range cases {
		if got := mustEncode(t, c.in); got != c.want {
			t.Fatalf("Encode(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEncode_NonFiniteNumbers(t *testing.T) {
	if got := mustEncode(t, math.NaN()); got != "null" {
		t.Fatalf("Encode(NaN) = %q, want null", got)
	}
	if got := mustEncode(t, math.Inf(1)); got != "999999999" {
		t.Fatalf("Encode(+Inf) = %q, want 999999999", got)
	}
	if got := mustEncode(t, math.Inf(-1)); got != "-999999999" {
		t.Fatalf("Encode(-Inf) = %q, want -999999999", got)
	}
}

func TestEncode_StringEscapes(t *testing.T) {
	got := mustEncode(t, "a\\b\"c\nd\re\tf")
	want := `"a\\b\"c\nd\re\tf"`
	if got != want {
		t.Fatalf("escaped string = %q, want %q", got, want)
	}
	// Permissive format: everything else passes through unescaped.
	if got := mustEncode(t, "héllo\x01"); got != "\"héllo\x01\"" {
		t.Fatalf("passthrough string = %q", got)
	}
}

func TestEncode_EmptyTableIsObject(t *testing.T) {
	// An empty container carries no evidence of array-ness; it is always {}.
	if got := mustEncode(t, NewTable()); got != "{}" {
		t.Fatalf("Encode(empty) = %q, want {}", got)
	}
}

func TestEncode_ContiguousIntKeysIsArray(t *testing.T) {
	tb := NewTable()
	tb.SetIndex(1, "a")
	tb.SetIndex(2, "b")
	tb.SetIndex(3, "c")
	if got := mustEncode(t, tb); got != `["a","b","c"]` {
		t.Fatalf("Encode(1..3) = %q", got)
	}

	// Index order wins over insertion order.
	rev := NewTable()
	rev.SetIndex(2, "b")
	rev.SetIndex(1, "a")
	if got := mustEncode(t, rev); got != `["a","b"]` {
		t.Fatalf("Encode(out-of-order 1..2) = %q", got)
	}
}

func TestEncode_GappedIntKeysIsObject(t *testing.T) {
	tb := NewTable()
	tb.SetIndex(1, "a")
	tb.SetIndex(3, "c")
	got := mustEncode(t, tb)
	if got != `{"1":"a","3":"c"}` {
		t.Fatalf("Encode(gap) = %q, want object with string-rendered keys", got)
	}
}

func TestEncode_MixedKeysIsObject(t *testing.T) {
	tb := NewTable()
	tb.SetIndex(1, "a")
	tb.SetString("name", "x")
	got := mustEncode(t, tb)
	if got != `{"1":"a","name":"x"}` {
		t.Fatalf("Encode(mixed) = %q", got)
	}
}

func TestEncode_ObjectKeepsInsertionOrder(t *testing.T) {
	tb := NewTable()
	tb.SetString("z", float64(1))
	tb.SetString("a", float64(2))
	if got := mustEncode(t, tb); got != `{"z":1,"a":2}` {
		t.Fatalf("Encode order = %q", got)
	}
}

func TestEncode_Nested(t *testing.T) {
	req := NewTable()
	req.SetString("ante", float64(1))
	req.SetString("money", float64(4))
	req.SetString("hand", Array("AS", "KD"))
	blind := NewTable()
	blind.SetString("name", "Small Blind")
	blind.SetString("chips_required", float64(300))
	req.SetString("blind", blind)

	got := mustEncode(t, req)
	want := `{"ante":1,"money":4,"hand":["AS","KD"],"blind":{"name":"Small Blind","chips_required":300}}`
	if got != want {
		t.Fatalf("nested encode = %q, want %q", got, want)
	}
}

func TestEncode_RejectsUnsupportedType(t *testing.T) {
	if _, err := Encode(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestEncode_RejectsCyclicTable(t *testing.T) {
	tb := NewTable()
	tb.SetString("self", tb)
	_, err := Encode(tb)
	if err == nil {
		t.Fatal("expected depth error for cyclic table")
	}
	if !strings.Contains(err.Error(), "depth") {
		t.Fatalf("unexpected error: %v", err)
	}
}
