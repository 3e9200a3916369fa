package game

import (
	"fmt"
	"sort"

	"balatro-bridge/jsonval"
)

// SchemaVersion tags the request layout so the peer can detect a stale
// extraction glue. Unknown fields are ignored by the server.
const SchemaVersion = 1

// Observation is the decision-relevant snapshot of the game sent as one
// request. Optional sub-structures are nil when the host is not in the
// matching phase.
type Observation struct {
	Phase Phase

	// Progression
	Ante  int
	Round int
	Stake int

	// Economy
	Money int

	// Remaining resources
	HandsRemaining    int
	DiscardsRemaining int
	HandSize          int

	Hand        []Card
	Deck        DeckInfo
	Jokers      []Joker
	Consumables []Consumable
	Blind       *Blind
	Shop        *Shop
	Stats       Stats

	HandLevels    map[string]int
	VouchersOwned []string

	Seeded bool
	Seed   string
}

// Value builds the request value for the wire. Collections become tables
// with integer keys 1..N; empty collections therefore encode as {} (the
// documented empty-container ambiguity), which the peer reads as an empty
// collection either way.
func (o *Observation) Value() *jsonval.Table {
	t := jsonval.NewTable()
	t.SetString("schema_version", float64(SchemaVersion))
	t.SetString("phase_name", string(o.Phase))
	t.SetString("ante", float64(o.Ante))
	t.SetString("round", float64(o.Round))
	t.SetString("stake", float64(o.Stake))
	t.SetString("money", float64(o.Money))
	t.SetString("hands_remaining", float64(o.HandsRemaining))
	t.SetString("discards_remaining", float64(o.DiscardsRemaining))
	t.SetString("hand_size", float64(o.HandSize))

	hand := jsonval.NewTable()
	for _, c := range o.Hand {
		hand.Append(cardValue(c))
	}
	t.SetString("hand", hand)

	deck := jsonval.NewTable()
	deck.SetString("cards_in_deck", float64(o.Deck.CardsInDeck))
	deck.SetString("cards_in_hand", float64(o.Deck.CardsInHand))
	deck.SetString("cards_in_discard", float64(o.Deck.CardsInDiscard))
	deck.SetString("nines_in_deck", float64(o.Deck.NinesInDeck))
	if o.Deck.DeckName != "" {
		deck.SetString("deck_name", o.Deck.DeckName)
	}
	t.SetString("deck_info", deck)

	jokers := jsonval.NewTable()
	for _, j := range o.Jokers {
		jokers.Append(jokerValue(j))
	}
	t.SetString("jokers", jokers)

	consumables := jsonval.NewTable()
	for _, c := range o.Consumables {
		cv := jsonval.NewTable()
		cv.SetString("id", c.ID)
		cv.SetString("name", c.Name)
		cv.SetString("type", c.Type)
		cv.SetString("position", float64(c.Position))
		consumables.Append(cv)
	}
	t.SetString("consumables", consumables)

	if o.Blind != nil {
		b := jsonval.NewTable()
		b.SetString("name", o.Blind.Name)
		b.SetString("chips_required", float64(o.Blind.ChipsRequired))
		b.SetString("chips_scored", float64(o.Blind.ChipsScored))
		if o.Blind.BossID != "" {
			b.SetString("boss_id", o.Blind.BossID)
		}
		b.SetString("blind_type", o.Blind.Type)
		b.SetString("triggered", o.Blind.Triggered)
		b.SetString("disabled", o.Blind.Disabled)
		t.SetString("blind", b)
	}

	if o.Shop != nil {
		s := jsonval.NewTable()
		s.SetString("items", shopItemsValue(o.Shop.Items))
		s.SetString("vouchers", shopItemsValue(o.Shop.Vouchers))
		s.SetString("boosters", shopItemsValue(o.Shop.Boosters))
		s.SetString("reroll_cost", float64(o.Shop.RerollCost))
		t.SetString("shop", s)
	}

	stats := jsonval.NewTable()
	stats.SetString("hands_played", float64(o.Stats.HandsPlayed))
	stats.SetString("cards_discarded", float64(o.Stats.CardsDiscarded))
	stats.SetString("boss_blinds_defeated", float64(o.Stats.BossBlindsDefeated))
	stats.SetString("blinds_skipped", float64(o.Stats.BlindsSkipped))
	t.SetString("stats", stats)

	levels := jsonval.NewTable()
	names := make([]string, 0, len(o.HandLevels))
	for name := range o.HandLevels {
		names = append(names, name)
	}
	sort.Strings(names) // stable request bytes
	for _, name := range names {
		levels.SetString(name, float64(o.HandLevels[name]))
	}
	t.SetString("hand_levels", levels)

	vouchers := jsonval.NewTable()
	for _, v := range o.VouchersOwned {
		vouchers.Append(v)
	}
	t.SetString("vouchers_owned", vouchers)

	t.SetString("seeded", o.Seeded)
	if o.Seed != "" {
		t.SetString("seed", o.Seed)
	}
	return t
}

func cardValue(c Card) *jsonval.Table {
	t := jsonval.NewTable()
	t.SetString("suit", c.Suit)
	t.SetString("rank", float64(c.Rank))
	t.SetString("rank_name", c.RankName)
	t.SetString("index", float64(c.Index))
	if c.Enhancement != "" {
		t.SetString("enhancement", c.Enhancement)
	}
	if c.Seal != "" {
		t.SetString("seal", c.Seal)
	}
	if c.Edition != "" {
		t.SetString("edition", c.Edition)
	}
	t.SetString("debuff", c.Debuff)
	t.SetString("highlighted", c.Highlighted)
	t.SetString("bonus_chips", float64(c.BonusChips))
	t.SetString("bonus_mult", float64(c.BonusMult))
	t.SetString("h_mult", c.HMult)
	t.SetString("h_x_mult", c.HXMult)
	return t
}

func jokerValue(j Joker) *jsonval.Table {
	t := jsonval.NewTable()
	t.SetString("id", j.ID)
	t.SetString("name", j.Name)
	t.SetString("position", float64(j.Position))
	t.SetString("cost", float64(j.Cost))
	t.SetString("sell_cost", float64(j.SellCost))
	t.SetString("debuff", j.Debuff)
	return t
}

func shopItemsValue(items []ShopItem) *jsonval.Table {
	t := jsonval.NewTable()
	for _, it := range items {
		iv := jsonval.NewTable()
		iv.SetString("index", float64(it.Index))
		iv.SetString("name", it.Name)
		iv.SetString("cost", float64(it.Cost))
		iv.SetString("item_type", it.Type)
		if it.JokerID != "" {
			iv.SetString("joker_id", it.JokerID)
		}
		if it.Edition != "" {
			iv.SetString("edition", it.Edition)
		}
		t.Append(iv)
	}
	return t
}

// ParseObservation converts a decoded wire value back into an Observation,
// applying the same defaults as the peer's reader. Used by harnesses that
// feed observations in as JSON rather than as structs.
func ParseObservation(v jsonval.Value) (*Observation, error) {
	t, ok := v.(*jsonval.Table)
	if !ok {
		return nil, fmt.Errorf("observation is not a JSON object")
	}
	o := &Observation{
		Phase:             PhaseUnknown,
		Ante:              intOr(t, "ante", 1),
		Round:             intOr(t, "round", 0),
		Stake:             intOr(t, "stake", 1),
		Money:             intOr(t, "money", 0),
		HandsRemaining:    intOr(t, "hands_remaining", 4),
		DiscardsRemaining: intOr(t, "discards_remaining", 3),
		HandSize:          intOr(t, "hand_size", 8),
		Seeded:            boolOr(t, "seeded"),
		Seed:              strOr(t, "seed", ""),
	}
	if name := strOr(t, "phase_name", string(PhaseUnknown)); name != "" {
		o.Phase = Phase(name)
	}

	for _, cv := range tableItems(t, "hand") {
		o.Hand = append(o.Hand, Card{
			Suit:        strOr(cv, "suit", "Spades"),
			Rank:        intOr(cv, "rank", 2),
			RankName:    strOr(cv, "rank_name", "2"),
			Index:       intOr(cv, "index", 0),
			Enhancement: strOr(cv, "enhancement", ""),
			Seal:        strOr(cv, "seal", ""),
			Edition:     strOr(cv, "edition", ""),
			Debuff:      boolOr(cv, "debuff"),
			Highlighted: boolOr(cv, "highlighted"),
			BonusChips:  intOr(cv, "bonus_chips", 0),
			BonusMult:   intOr(cv, "bonus_mult", 0),
			HMult:       floatOr(cv, "h_mult", 0),
			HXMult:      floatOr(cv, "h_x_mult", 1),
		})
	}

	for _, jv := range tableItems(t, "jokers") {
		o.Jokers = append(o.Jokers, Joker{
			ID:       strOr(jv, "id", "unknown"),
			Name:     strOr(jv, "name", "Unknown"),
			Position: intOr(jv, "position", 0),
			Cost:     intOr(jv, "cost", 0),
			SellCost: intOr(jv, "sell_cost", 0),
			Debuff:   boolOr(jv, "debuff"),
		})
	}

	for _, cv := range tableItems(t, "consumables") {
		o.Consumables = append(o.Consumables, Consumable{
			ID:       strOr(cv, "id", ""),
			Name:     strOr(cv, "name", ""),
			Type:     strOr(cv, "type", ""),
			Position: intOr(cv, "position", 0),
		})
	}

	if bv, ok := subTable(t, "blind"); ok {
		o.Blind = &Blind{
			Name:          strOr(bv, "name", "Unknown"),
			ChipsRequired: intOr(bv, "chips_required", 0),
			ChipsScored:   intOr(bv, "chips_scored", 0),
			BossID:        strOr(bv, "boss_id", ""),
			Type:          strOr(bv, "blind_type", "Small"),
			Triggered:     boolOr(bv, "triggered"),
			Disabled:      boolOr(bv, "disabled"),
		}
	}

	if sv, ok := subTable(t, "shop"); ok {
		o.Shop = &Shop{
			Items:      parseShopItems(sv, "items"),
			Vouchers:   parseShopItems(sv, "vouchers"),
			Boosters:   parseShopItems(sv, "boosters"),
			RerollCost: intOr(sv, "reroll_cost", 5),
		}
	}

	if dv, ok := subTable(t, "deck_info"); ok {
		o.Deck = DeckInfo{
			CardsInDeck:    intOr(dv, "cards_in_deck", 0),
			CardsInHand:    intOr(dv, "cards_in_hand", 0),
			CardsInDiscard: intOr(dv, "cards_in_discard", 0),
			NinesInDeck:    intOr(dv, "nines_in_deck", 4),
			DeckName:       strOr(dv, "deck_name", ""),
		}
	} else {
		o.Deck.NinesInDeck = 4
	}

	if sv, ok := subTable(t, "stats"); ok {
		o.Stats = Stats{
			HandsPlayed:        intOr(sv, "hands_played", 0),
			CardsDiscarded:     intOr(sv, "cards_discarded", 0),
			BossBlindsDefeated: intOr(sv, "boss_blinds_defeated", 0),
			BlindsSkipped:      intOr(sv, "blinds_skipped", 0),
		}
	}

	if lv, ok := subTable(t, "hand_levels"); ok {
		o.HandLevels = make(map[string]int, lv.Len())
		for _, k := range lv.Keys() {
			if k.IsInt() {
				continue
			}
			if f, ok := floatKey(lv, k); ok {
				o.HandLevels[k.Name()] = int(f)
			}
		}
	}

	for _, k := range tableKeysOf(t, "vouchers_owned") {
		o.VouchersOwned = append(o.VouchersOwned, k)
	}

	return o, nil
}

func parseShopItems(t *jsonval.Table, name string) []ShopItem {
	var out []ShopItem
	for _, iv := range tableItems(t, name) {
		out = append(out, ShopItem{
			Index:   intOr(iv, "index", 0),
			Name:    strOr(iv, "name", "Unknown"),
			Cost:    intOr(iv, "cost", 0),
			Type:    strOr(iv, "item_type", strOr(iv, "type", "Unknown")),
			JokerID: strOr(iv, "joker_id", ""),
			Edition: strOr(iv, "edition", ""),
		})
	}
	return out
}

// Lenient field readers in the peer's style: absent, null, or mistyped
// fields fall back to the default.

func intOr(t *jsonval.Table, name string, def int) int {
	if f, ok := floatValue(t, name); ok {
		return int(f)
	}
	return def
}

func floatOr(t *jsonval.Table, name string, def float64) float64 {
	if f, ok := floatValue(t, name); ok {
		return f
	}
	return def
}

func floatValue(t *jsonval.Table, name string) (float64, bool) {
	v, ok := t.GetString(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func floatKey(t *jsonval.Table, k jsonval.Key) (float64, bool) {
	v, ok := t.Get(k)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func strOr(t *jsonval.Table, name, def string) string {
	v, ok := t.GetString(name)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(t *jsonval.Table, name string) bool {
	v, ok := t.GetString(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func subTable(t *jsonval.Table, name string) (*jsonval.Table, bool) {
	v, ok := t.GetString(name)
	if !ok || v == nil {
		return nil, false
	}
	sub, ok := v.(*jsonval.Table)
	return sub, ok
}

// tableItems returns the 1..N table elements of an array-shaped field. An
// empty or absent collection yields nothing; the empty-container ambiguity
// makes {} and [] interchangeable here.
func tableItems(t *jsonval.Table, name string) []*jsonval.Table {
	sub, ok := subTable(t, name)
	if !ok {
		return nil
	}
	n, ok := sub.IsArray()
	if !ok {
		return nil
	}
	out := make([]*jsonval.Table, 0, n)
	for i := 1; i <= n; i++ {
		if iv, _ := sub.Index(i); iv != nil {
			if it, ok := iv.(*jsonval.Table); ok {
				out = append(out, it)
			}
		}
	}
	return out
}

func tableKeysOf(t *jsonval.Table, name string) []string {
	sub, ok := subTable(t, name)
	if !ok {
		return nil
	}
	n, ok := sub.IsArray()
	if !ok {
		return nil
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if v, _ := sub.Index(i); v != nil {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
