// Package protocol defines the response contract of the decision server:
// the action categories it may answer with, decoding of a wire value into a
// typed Action, and the dispatch interface the host-side executor
// implements.
package protocol

import (
	"errors"
	"fmt"

	"balatro-bridge/jsonval"
)

// Category is the action category string sent by the decision server.
type Category string

const (
	ActionPlay          Category = "play"
	ActionDiscard       Category = "discard"
	ActionShop          Category = "shop"
	ActionBlind         Category = "blind"
	ActionPack          Category = "pack"
	ActionUseConsumable Category = "use_consumable"
	ActionWait          Category = "wait"
)

var knownCategories = map[Category]bool{
	ActionPlay:          true,
	ActionDiscard:       true,
	ActionShop:          true,
	ActionBlind:         true,
	ActionPack:          true,
	ActionUseConsumable: true,
	ActionWait:          true,
}

// ErrNotObject is returned when the decoded response is not a JSON object.
var ErrNotObject = errors.New("response is not a JSON object")

// UnknownActionError reports a category outside the known set.
type UnknownActionError string

func (e UnknownActionError) Error() string {
	return fmt.Sprintf("unrecognized action category %q", string(e))
}

// Action is one decoded recommendation. Optional fields left out by the
// server stay at their zero value (pointers nil) and mean "not specified".
type Action struct {
	Type            Category
	CardIndices     []int
	Skip            bool
	Reroll          bool
	BuyIndex        *int
	ConsumableIndex *int
	Confidence      float64
	Reasoning       string
}

// Executor carries out a validated action against the host game. The
// click/selection mechanics behind it are host-specific glue and out of the
// bridge's scope.
type Executor interface {
	// Execute performs the action. It is only called with actions whose
	// category passed validation.
	Execute(a Action) error
	// Name returns a human-readable identifier for logging.
	Name() string
}

// ParseAction validates and converts a decoded wire value into an Action.
// The value must be an object carrying a string "action_type" in the known
// set; everything else is optional. No further schema validation happens
// here.
func ParseAction(v jsonval.Value) (Action, error) {
	tb, ok := v.(*jsonval.Table)
	if !ok {
		return Action{}, ErrNotObject
	}
	raw, ok := tb.GetString("action_type")
	if !ok {
		return Action{}, errors.New("response has no action_type")
	}
	name, ok := raw.(string)
	if !ok {
		return Action{}, errors.New("action_type is not a string")
	}
	cat := Category(name)
	if !knownCategories[cat] {
		return Action{}, UnknownActionError(name)
	}

	a := Action{Type: cat}
	a.CardIndices = intSlice(tb, "card_indices")
	a.Skip = boolField(tb, "skip")
	a.Reroll = boolField(tb, "reroll")
	a.BuyIndex = intField(tb, "buy_index")
	a.ConsumableIndex = intField(tb, "consumable_index")
	if f, ok := floatValue(tb, "confidence"); ok {
		a.Confidence = f
	}
	if s, ok := stringValue(tb, "reasoning"); ok {
		a.Reasoning = s
	}
	return a, nil
}

// Field helpers: absent, null, or mistyped fields all read as "not
// specified" rather than erroring, matching the peer's lenient reader.

func boolField(t *jsonval.Table, name string) bool {
	v, ok := t.GetString(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func intField(t *jsonval.Table, name string) *int {
	v, ok := t.GetString(name)
	if !ok || v == nil {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func floatValue(t *jsonval.Table, name string) (float64, bool) {
	v, ok := t.GetString(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func stringValue(t *jsonval.Table, name string) (string, bool) {
	v, ok := t.GetString(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intSlice(t *jsonval.Table, name string) []int {
	v, ok := t.GetString(name)
	if !ok {
		return nil
	}
	arr, ok := v.(*jsonval.Table)
	if !ok {
		return nil
	}
	n, ok := arr.IsArray()
	if !ok {
		return nil
	}
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		item, _ := arr.Index(i)
		if f, ok := item.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
