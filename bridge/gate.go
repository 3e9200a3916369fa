package bridge

import (
	"strconv"
	"strings"

	"balatro-bridge/game"
)

// Fingerprint derives the change-gate digest from an observation: a fixed,
// ordered field list joined with "|". Collections contribute counts, not
// contents — re-querying on every card detail wiggle would spam the peer,
// while ignoring the hand entirely would never re-query after the first
// exchange. The digest is deliberately lossy and deliberately readable (it
// shows up verbatim in logs and the history store).
func Fingerprint(o *game.Observation) string {
	parts := []string{
		string(o.Phase),
		strconv.Itoa(o.Ante),
		strconv.Itoa(o.Round),
		strconv.Itoa(o.Money),
		strconv.Itoa(o.HandsRemaining),
		strconv.Itoa(o.DiscardsRemaining),
		strconv.Itoa(len(o.Hand)),
		strconv.Itoa(o.Deck.CardsInDiscard),
	}
	if o.Shop != nil {
		n := len(o.Shop.Items) + len(o.Shop.Vouchers) + len(o.Shop.Boosters)
		parts = append(parts, "shop:"+strconv.Itoa(n))
	} else {
		parts = append(parts, "noshop")
	}
	return strings.Join(parts, "|")
}

// Gate suppresses redundant exchanges: a query goes out only when the
// fingerprint differs from the last committed one.
type Gate struct {
	last string
}

// ShouldQuery reports whether fp differs from the last committed
// fingerprint. It never mutates state: commit happens only after a
// successful exchange, so a failed exchange does not consume the
// state-change signal and the same state is retried next cycle.
func (g *Gate) ShouldQuery(fp string) bool {
	return fp != g.last
}

// Commit records fp as answered. Call only after a successful exchange.
func (g *Gate) Commit(fp string) {
	g.last = fp
}

// Reset clears the committed fingerprint so the next observation always
// queries, e.g. after a new run starts.
func (g *Gate) Reset() {
	g.last = ""
}
