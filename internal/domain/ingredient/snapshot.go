package ingredient

import (
	"github.com/google/uuid"
)

// Snapshot is a read-only view of the catalog taken for one computation.
type Snapshot struct {
	items map[uuid.UUID]*Ingredient
}

// NewSnapshot indexes ingredients by id. Later duplicates win.
func NewSnapshot(items ...*Ingredient) Snapshot {
	m := make(map[uuid.UUID]*Ingredient, len(items))
	for _, it := range items {
		if it != nil {
			m[it.ID()] = it
		}
	}
	return Snapshot{items: m}
}

// Lookup returns the ingredient for id
func (s Snapshot) Lookup(id uuid.UUID) (*Ingredient, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Len is the number of ingredients in the snapshot
func (s Snapshot) Len() int {
	return len(s.items)
}

// Missing returns the ids from want that are not in the snapshot, in order
func (s Snapshot) Missing(want []uuid.UUID) []uuid.UUID {
	var missing []uuid.UUID
	for _, id := range want {
		if _, ok := s.items[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
