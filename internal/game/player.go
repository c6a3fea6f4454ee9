package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

const (
	DefaultHouseCapacity = 5
	// MaxTrouble is the number of trouble guests a house tolerates.
	MaxTrouble = 2

	ReasonCapacityExceeded = "capacity exceeded"
	ReasonTooMuchTrouble   = "too much trouble"
)

// Player is one participant of a room. It is owned by its Room and only
// mutated under the room mutex, except for the manual action flag.
//
// Deck, Hand and Discard are disjoint and together hold every card the
// player owns. pool is the round draw-pool and always a subset of Deck.
type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Name     string    `json:"name"`
	Ready    bool      `json:"ready"`
	JoinedAt time.Time `json:"joinedAt"`

	Deck    []cards.Card `json:"-"`
	Hand    []cards.Card `json:"-"`
	Discard []cards.Card `json:"-"`
	pool    []cards.Card

	HouseCapacity int `json:"houseCapacity"`
	Popularity    int `json:"popularity"`
	Money         int `json:"money"`

	manual atomic.Bool
}

func NewPlayer(id, roomID, name string, deck []cards.Card) *Player {
	return &Player{
		ID:            id,
		RoomID:        roomID,
		Name:          name,
		JoinedAt:      time.Now().UTC(),
		Deck:          deck,
		HouseCapacity: DefaultHouseCapacity,
	}
}

func (p *Player) ToggleReady() bool {
	p.Ready = !p.Ready
	return p.Ready
}

// InitializeRound empties the hand back into the deck and refills the
// draw-pool from the deck. Discard is left alone.
func (p *Player) InitializeRound() {
	p.Deck = append(p.Deck, p.Hand...)
	p.Hand = nil
	p.pool = append([]cards.Card(nil), p.Deck...)
}

// DrawCard picks a card from the draw-pool without removing it.
func (p *Player) DrawCard(rng Rand) (cards.Card, bool) {
	if len(p.pool) == 0 {
		return cards.Card{}, false
	}
	return p.pool[rng.Intn(len(p.pool))], true
}

// AddCard commits a drawn card to the hand.
func (p *Player) AddCard(c cards.Card) {
	p.pool, _ = removeCard(p.pool, c)
	p.Deck, _ = removeCard(p.Deck, c)
	p.Hand = append(p.Hand, c)
}

// TryAddCard applies the house rules to a guest. Without allowOverflow a
// guest that does not fit is refused and nothing changes. With it the
// guest is always let in and the party may be lost. Capacity is checked
// before trouble.
func (p *Player) TryAddCard(c cards.Card, allowOverflow bool) AddResult {
	over := len(p.Hand)+1 > p.HouseCapacity
	if over && !allowOverflow {
		return AddResult{}
	}
	p.AddCard(c)
	if over {
		return AddResult{Reason: ReasonCapacityExceeded}
	}
	if p.TroubleCount() > MaxTrouble {
		return AddResult{Reason: ReasonTooMuchTrouble}
	}
	return AddResult{Success: true}
}

func (p *Player) TroubleCount() int {
	n := 0
	for _, c := range p.Hand {
		if c.Trouble {
			n++
		}
	}
	return n
}

// Reshuffle moves the discard pile back into the deck and refills the
// draw-pool. It returns the number of recycled cards.
func (p *Player) Reshuffle(rng Rand) int {
	n := len(p.Discard)
	if n == 0 {
		return 0
	}
	p.Deck = append(p.Deck, p.Discard...)
	p.Discard = nil
	rng.Shuffle(len(p.Deck), func(i, j int) { p.Deck[i], p.Deck[j] = p.Deck[j], p.Deck[i] })
	p.pool = append([]cards.Card(nil), p.Deck...)
	return n
}

// DiscardHand cycles the round's guests out.
func (p *Player) DiscardHand() {
	p.Discard = append(p.Discard, p.Hand...)
	p.Hand = nil
}

// Acquire adds a newly owned card to the deck. It only enters the
// draw-pool on the next round.
func (p *Player) Acquire(c cards.Card) {
	p.Deck = append(p.Deck, c)
}

// HandScore sums the hand without crediting it.
func (p *Player) HandScore() Score {
	var s Score
	for _, c := range p.Hand {
		s.Popularity += c.Popularity
		s.Money += c.Money
	}
	return s
}

// CountScore credits the hand to the player's totals. Call it once per round.
func (p *Player) CountScore() Score {
	s := p.HandScore()
	p.Popularity += s.Popularity
	p.Money += s.Money
	return s
}

// TryLockManualAction marks a manual action as in flight. It fails while
// another one holds the mark. The release func is safe to call twice.
func (p *Player) TryLockManualAction() (release func(), ok bool) {
	if !p.manual.CompareAndSwap(false, true) {
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { p.manual.Store(false) }) }, true
}

// Owned lists every card the player owns.
func (p *Player) Owned() []cards.Card {
	out := make([]cards.Card, 0, len(p.Deck)+len(p.Hand)+len(p.Discard))
	out = append(out, p.Deck...)
	out = append(out, p.Hand...)
	out = append(out, p.Discard...)
	return out
}

func (p *Player) View() PlayerView {
	return PlayerView{
		ID:            p.ID,
		Name:          p.Name,
		Ready:         p.Ready,
		Popularity:    p.Popularity,
		Money:         p.Money,
		HouseCapacity: p.HouseCapacity,
		DeckSize:      len(p.Deck),
		HandSize:      len(p.Hand),
		DiscardSize:   len(p.Discard),
	}
}

func (p *Player) TurnView(market []cards.Card) TurnView {
	return TurnView{
		Hand:          cloneCards(p.Hand),
		Deck:          cloneCards(p.Deck),
		Discard:       cloneCards(p.Discard),
		HouseCapacity: p.HouseCapacity,
		Market:        cloneCards(market),
	}
}

func removeCard(pile []cards.Card, c cards.Card) ([]cards.Card, bool) {
	for i := range pile {
		if pile[i].Same(c) {
			return append(pile[:i], pile[i+1:]...), true
		}
	}
	return pile, false
}

func cloneCards(in []cards.Card) []cards.Card {
	if in == nil {
		return []cards.Card{}
	}
	return append([]cards.Card(nil), in...)
}
