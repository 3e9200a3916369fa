// Package game defines the fixed observation schema exchanged with the
// decision server. The host-specific extraction glue produces these structs;
// the bridge core never inspects live game objects directly.
package game

// Phase 对局阶段（来自宿主的状态机）
type Phase string

const (
	PhaseSelectingHand Phase = "SELECTING_HAND"
	PhaseHandPlayed    Phase = "HAND_PLAYED"
	PhaseDrawToHand    Phase = "DRAW_TO_HAND"
	PhaseShop          Phase = "SHOP"
	PhaseBlindSelect   Phase = "BLIND_SELECT"
	PhaseNewRound      Phase = "NEW_ROUND"
	PhaseGameOver      Phase = "GAME_OVER"
	PhaseTarotPack     Phase = "TAROT_PACK"
	PhasePlanetPack    Phase = "PLANET_PACK"
	PhaseSpectralPack  Phase = "SPECTRAL_PACK"
	PhaseStandardPack  Phase = "STANDARD_PACK"
	PhaseBuffoonPack   Phase = "BUFFOON_PACK"
	PhaseMenu          Phase = "MENU"
	PhaseSplash        Phase = "SPLASH"
	PhaseUnknown       Phase = "UNKNOWN"
)

var decisionPhases = map[Phase]bool{
	PhaseSelectingHand: true,
	PhaseShop:          true,
	PhaseBlindSelect:   true,
	PhaseTarotPack:     true,
	PhasePlanetPack:    true,
	PhaseSpectralPack:  true,
	PhaseStandardPack:  true,
	PhaseBuffoonPack:   true,
}

// DecisionPoint reports whether the phase awaits an externally supplied
// choice, i.e. whether querying the decision server can be useful at all.
func (p Phase) DecisionPoint() bool { return decisionPhases[p] }

// Card is one card in the observable hand. Rank runs 2..14 with 14 = Ace.
type Card struct {
	Suit        string
	Rank        int
	RankName    string
	Index       int
	Enhancement string
	Seal        string
	Edition     string
	Debuff      bool
	Highlighted bool
	BonusChips  int
	BonusMult   int
	HMult       float64
	HXMult      float64
}

type Joker struct {
	ID       string
	Name     string
	Position int
	Cost     int
	SellCost int
	Debuff   bool
}

type Consumable struct {
	ID       string
	Name     string
	Type     string
	Position int
}

type Blind struct {
	Name          string
	ChipsRequired int
	ChipsScored   int
	BossID        string
	Type          string // Small, Big, Boss
	Triggered     bool
	Disabled      bool
}

type ShopItem struct {
	Index   int
	Name    string
	Cost    int
	Type    string // Joker, Planet, Tarot, Voucher, Booster
	JokerID string
	Edition string
}

type Shop struct {
	Items      []ShopItem
	Vouchers   []ShopItem
	Boosters   []ShopItem
	RerollCost int
}

type DeckInfo struct {
	CardsInDeck    int
	CardsInHand    int
	CardsInDiscard int
	NinesInDeck    int
	DeckName       string
}

type Stats struct {
	HandsPlayed        int
	CardsDiscarded     int
	BossBlindsDefeated int
	BlindsSkipped      int
}
