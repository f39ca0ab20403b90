package shopify

import (
	"encoding/json"
	"fmt"
	"os"
)

// Collection is one storefront collection from the local mapping file,
// written when collections were seeded. The id is kept as the string the
// seeding step wrote.
type Collection struct {
	ID     string `json:"shopify_id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// LoadCollections reads the category-to-collection mapping. A missing file
// is not an error; products then carry only their own tags.
func LoadCollections(path string) (map[string]Collection, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collections %s: %w", path, err)
	}

	var mapping map[string]Collection
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse collections %s: %w", path, err)
	}
	return mapping, nil
}
