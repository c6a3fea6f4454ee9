package game

import (
	"fmt"
	"sort"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

const (
	DefaultMarketSize = 15
	MarketStars       = 2
	// CheapCost is the highest cost of the cheap bucket.
	CheapCost = 6
	cheapBias = 0.8
)

// MarketGenerator builds the shared shop of a room from the catalog.
type MarketGenerator struct {
	Catalog *cards.Catalog
	Size    int
}

func NewMarketGenerator(c *cards.Catalog, size int) MarketGenerator {
	if size <= 0 {
		size = DefaultMarketSize
	}
	return MarketGenerator{Catalog: c, Size: size}
}

// Check reports whether the catalog holds enough distinct buyable names
// for a market of g.Size.
func (g MarketGenerator) Check() error {
	size := g.Size
	if size <= 0 {
		size = DefaultMarketSize
	}
	if distinctNames(buyable(g.Catalog.Star), nil) < MarketStars {
		return fmt.Errorf("need %d star cards: %w", MarketStars, ErrCatalogTooSmall)
	}
	if have, need := distinctNames(buyable(g.Catalog.NonStar), nil), size-MarketStars; have < need {
		return fmt.Errorf("need %d distinct non-star cards, have %d: %w", need, have, ErrCatalogTooSmall)
	}
	return nil
}

// Generate picks MarketStars distinct stars and fills the rest from the
// non-star pool, favouring cheap cards. Names never repeat and the result
// is sorted by cost.
func (g MarketGenerator) Generate(rng Rand) ([]cards.Card, error) {
	size := g.Size
	if size <= 0 {
		size = DefaultMarketSize
	}
	stars := buyable(g.Catalog.Star)
	if distinctNames(stars, nil) < MarketStars {
		return nil, fmt.Errorf("need %d star cards: %w", MarketStars, ErrCatalogTooSmall)
	}

	picked := make([]cards.Card, 0, size)
	seen := make(map[string]bool, size)

	order := make([]int, len(stars))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, i := range order {
		if len(picked) == MarketStars {
			break
		}
		c := stars[i]
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		picked = append(picked, c)
	}

	var cheap, pricey []cards.Card
	for _, c := range buyable(g.Catalog.NonStar) {
		if c.CostOrZero() <= CheapCost {
			cheap = append(cheap, c)
		} else {
			pricey = append(pricey, c)
		}
	}
	need := size - len(picked)
	if distinctNames(cheap, seen)+distinctNames(pricey, seen) < need {
		return nil, fmt.Errorf("need %d distinct non-star cards: %w", need, ErrCatalogTooSmall)
	}

	for len(picked) < size {
		pool, other := cheap, pricey
		if rng.Float64() >= cheapBias {
			pool, other = pricey, cheap
		}
		if distinctNames(pool, seen) == 0 {
			pool = other
		}
		c := pool[rng.Intn(len(pool))]
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		picked = append(picked, c)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].CostOrZero() < picked[j].CostOrZero()
	})
	return picked, nil
}

func buyable(pool []cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(pool))
	for _, c := range pool {
		if c.IsBuyable() {
			out = append(out, c)
		}
	}
	return out
}

func distinctNames(pool []cards.Card, exclude map[string]bool) int {
	names := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		if !exclude[c.Name] {
			names[c.Name] = struct{}{}
		}
	}
	return len(names)
}
