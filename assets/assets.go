package assets

import (
	_ "embed"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

//go:embed cards.json
var cardsJSON []byte

// Catalog parses the card catalog bundled with the binary.
func Catalog() (*cards.Catalog, error) {
	return cards.Parse(cardsJSON)
}

// LoadCatalog reads the catalog from path, or the bundled one when path is empty.
func LoadCatalog(path string) (*cards.Catalog, error) {
	if path == "" {
		return Catalog()
	}
	return cards.LoadFile(path)
}
