package shop

import (
	"log"
	"strings"
)

// Reserve decrements stock for itemID by exactly 1. It returns false
// without mutating anything if the item is unknown or stock is already 0.
func (s *Store) Reserve(itemID string) bool {
	reserved := false
	err := s.Update(func(p *Profile) error {
		for i := range p.Inventory {
			if p.Inventory[i].ID == itemID {
				if p.Inventory[i].Stock <= 0 {
					return errNoMutation
				}
				p.Inventory[i].Stock--
				reserved = true
				return nil
			}
		}
		return errNoMutation
	})
	if err != nil && err != errNoMutation {
		log.Printf("⚠️ Reserve(%s) write failed: %v", itemID, err)
	}
	return reserved
}

// Restore increments stock for itemID by 1, undoing a reservation after a
// rejected payment. Unknown items are a no-op.
func (s *Store) Restore(itemID string) {
	err := s.Update(func(p *Profile) error {
		for i := range p.Inventory {
			if p.Inventory[i].ID == itemID {
				p.Inventory[i].Stock++
				return nil
			}
		}
		return errNoMutation
	})
	if err != nil && err != errNoMutation {
		log.Printf("⚠️ Restore(%s) write failed: %v", itemID, err)
	}
}

// errNoMutation aborts an Update without writing the document back.
var errNoMutation = noMutation{}

type noMutation struct{}

func (noMutation) Error() string { return "no mutation" }

// Lookup resolves a query to an inventory item: exact id, then exact
// case-insensitive name, then first case-insensitive name substring, then
// first id substring. Empty or whitespace queries resolve to nothing.
// The returned item is a copy.
func (s *Store) Lookup(query string) *Item {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	p, err := s.Get()
	if err != nil {
		log.Printf("⚠️ Lookup(%q): %v", query, err)
		return nil
	}
	lower := strings.ToLower(query)

	for i := range p.Inventory {
		if p.Inventory[i].ID == query {
			return copyItem(&p.Inventory[i])
		}
	}
	for i := range p.Inventory {
		if strings.EqualFold(p.Inventory[i].Name, query) {
			return copyItem(&p.Inventory[i])
		}
	}
	for i := range p.Inventory {
		if strings.Contains(strings.ToLower(p.Inventory[i].Name), lower) {
			return copyItem(&p.Inventory[i])
		}
	}
	for i := range p.Inventory {
		if strings.Contains(p.Inventory[i].ID, lower) {
			return copyItem(&p.Inventory[i])
		}
	}
	return nil
}

func copyItem(it *Item) *Item {
	c := *it
	c.Images = append([]string(nil), it.Images...)
	return &c
}
