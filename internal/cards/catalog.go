package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

var (
	ErrEmptyPool    = errors.New("card pool is empty")
	ErrCardNotFound = errors.New("card not found")
)

// Catalog is the read-only reference data every room is built from.
type Catalog struct {
	Default []Card `json:"default"`
	NonStar []Card `json:"non_star"`
	Star    []Card `json:"star"`
}

type catalogFile struct {
	Cards Catalog `json:"cards"`
}

// Parse decodes a catalog document of the form {"cards": {"default": [...],
// "non_star": [...], "star": [...]}}.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := f.Cards
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// LoadFile reads the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (c *Catalog) validate() error {
	pools := map[string][]Card{"default": c.Default, "non_star": c.NonStar, "star": c.Star}
	for name, pool := range pools {
		if len(pool) == 0 {
			return fmt.Errorf("%s: %w", name, ErrEmptyPool)
		}
		for i, card := range pool {
			if card.Name == "" {
				return fmt.Errorf("%s[%d]: card without name", name, i)
			}
		}
	}
	return nil
}

// All returns every catalog entry, pools concatenated in file order.
func (c *Catalog) All() []Card {
	out := make([]Card, 0, len(c.Default)+len(c.NonStar)+len(c.Star))
	out = append(out, c.Default...)
	out = append(out, c.NonStar...)
	out = append(out, c.Star...)
	return out
}

func (c *Catalog) ByID(id string) (Card, error) {
	for _, card := range c.All() {
		if card.ID == id {
			return card, nil
		}
	}
	return Card{}, ErrCardNotFound
}

// StarterDeck expands the default pool by quantity into owned copies.
func (c *Catalog) StarterDeck() []Card {
	deck := make([]Card, 0, len(c.Default))
	for _, card := range c.Default {
		for i := 0; i < card.Copies(); i++ {
			deck = append(deck, NewInstance(card))
		}
	}
	return deck
}

// NewInstance turns a catalog entry into a distinct owned copy.
func NewInstance(c Card) Card {
	c.InstanceID = uuid.NewString()
	c.Quantity = nil
	return c
}
