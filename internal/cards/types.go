package cards

import (
	"encoding/json"
	"fmt"
)

// CardType is the closed set of card kinds found in the catalog.
type CardType uint8

const (
	TypeDefault CardType = iota
	TypeGuest
	TypeStar
)

func (t CardType) String() string {
	switch t {
	case TypeDefault:
		return "default"
	case TypeGuest:
		return "guest"
	case TypeStar:
		return "star"
	}
	return fmt.Sprintf("CardType(%d)", uint8(t))
}

// ParseCardType maps the wire name of a card type to its value.
func ParseCardType(s string) (CardType, error) {
	switch s {
	case "default":
		return TypeDefault, nil
	case "guest":
		return TypeGuest, nil
	case "star":
		return TypeStar, nil
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

func (t CardType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *CardType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseCardType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Card is a catalog entry or, once InstanceID is set, one owned copy of it.
type Card struct {
	ID         string   `json:"id"`
	InstanceID string   `json:"instanceId,omitempty"`
	Name       string   `json:"name"`
	Type       CardType `json:"type"`
	Cost       *int     `json:"cost,omitempty"`
	Popularity int      `json:"popularity"`
	Money      int      `json:"money"`
	Ability    *string  `json:"ability,omitempty"`
	Trouble    bool     `json:"trouble"`
	Buyable    *bool    `json:"buyable,omitempty"`
	Quantity   *int     `json:"quantity,omitempty"` // catalog only
}

// CostOrZero treats a missing cost as 0.
func (c Card) CostOrZero() int {
	if c.Cost == nil {
		return 0
	}
	return *c.Cost
}

// IsBuyable reports whether the card may be sold in the market. Cards
// without an explicit flag are buyable.
func (c Card) IsBuyable() bool {
	return c.Buyable == nil || *c.Buyable
}

// Copies returns the catalog multiplicity, at least 1.
func (c Card) Copies() int {
	if c.Quantity == nil || *c.Quantity < 1 {
		return 1
	}
	return *c.Quantity
}

// Same reports whether two cards denote the same owned copy. Cards without
// instance ids are compared by name.
func (c Card) Same(o Card) bool {
	if c.InstanceID != "" || o.InstanceID != "" {
		return c.InstanceID == o.InstanceID
	}
	return c.Name == o.Name
}
