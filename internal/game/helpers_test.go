package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func testCatalog() *cards.Catalog {
	c := &cards.Catalog{
		Default: []cards.Card{
			{ID: "d1", Name: "Old Friend", Type: cards.TypeDefault, Popularity: 1, Quantity: intp(4)},
			{ID: "d2", Name: "Rich Pal", Type: cards.TypeDefault, Money: 1, Quantity: intp(4)},
			{ID: "d3", Name: "Wild Buddy", Type: cards.TypeDefault, Popularity: 2, Trouble: true, Buyable: boolp(false), Quantity: intp(4)},
		},
	}
	costs := []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 8, 9, 10, 11, 12, 14}
	for i, cost := range costs {
		c.NonStar = append(c.NonStar, cards.Card{
			ID:         fmt.Sprintf("g%02d", i),
			Name:       fmt.Sprintf("Guest %02d", i),
			Type:       cards.TypeGuest,
			Cost:       intp(cost),
			Popularity: i % 4,
			Money:      i % 3,
		})
	}
	for i, cost := range []int{30, 40, 50, 60} {
		c.Star = append(c.Star, cards.Card{
			ID:   fmt.Sprintf("s%d", i),
			Name: fmt.Sprintf("Star %d", i),
			Type: cards.TypeStar,
			Cost: intp(cost),
		})
	}
	return c
}

func seeded(seed int64) func() Rand {
	return func() Rand { return rand.New(rand.NewSource(seed)) }
}

func newTestManager() *RoomManager {
	return NewRoomManager(testCatalog(), WithRand(seeded(42)))
}

// startedRoom seats the given players in order and readies them all.
func startedRoom(t *testing.T, rm *RoomManager, roomID string, ids ...string) *Room {
	t.Helper()
	var r *Room
	for _, id := range ids {
		room, _, err := rm.JoinRoom(roomID, id, "name-"+id)
		if err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		r = room
	}
	for _, id := range ids {
		if _, err := r.ToggleReady(id); err != nil {
			t.Fatalf("ready %s: %v", id, err)
		}
	}
	if !r.Started {
		t.Fatal("game should start once everyone is ready")
	}
	return r
}

func guest(name string, trouble bool, pop, money int) cards.Card {
	return cards.NewInstance(cards.Card{Name: name, Type: cards.TypeGuest, Trouble: trouble, Popularity: pop, Money: money})
}

// fill moves up to n cards matching keep from the deck into the hand.
func fill(p *Player, n int, keep func(cards.Card) bool) {
	for _, c := range append([]cards.Card(nil), p.Deck...) {
		if n == 0 {
			return
		}
		if keep(c) {
			p.AddCard(c)
			n--
		}
	}
}

func isTrouble(c cards.Card) bool { return c.Trouble }
func notTrouble(c cards.Card) bool { return !c.Trouble }

func countByInstance(pile []cards.Card) map[string]int {
	out := make(map[string]int, len(pile))
	for _, c := range pile {
		out[c.InstanceID]++
	}
	return out
}
