package shop

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// ImportRow is one row of a bulk import, whatever parsed it (delimited
// text here, or an external spreadsheet reader).
type ImportRow struct {
	Name        string
	Brand       string
	Tier        string
	Condition   string
	Features    string
	FloorPrice  int
	PublicPrice int
	Stock       int
}

var nonDigit = regexp.MustCompile(`\D`)

func parsePrice(s string) int {
	n, _ := strconv.Atoi(nonDigit.ReplaceAllString(s, ""))
	return n
}

// ImportText bulk-imports products from delimited text, one product per
// line: "name, floor price, stock, condition". Lines starting with '#' are
// skipped. Merging is by id: existing items are updated in place with
// images, brand, tier and features preserved; new ids are appended. Nothing
// is ever deleted by an import.
func (s *Store) ImportText(body string) (ImportResult, error) {
	var rows []ImportRow
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		floor := parsePrice(parts[1])
		if name == "" || floor == 0 {
			continue
		}
		row := ImportRow{Name: name, FloorPrice: floor, Stock: 1, Condition: "Brand New"}
		if len(parts) >= 3 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
				row.Stock = n
			}
		}
		if len(parts) >= 4 {
			row.Condition = strings.TrimSpace(parts[3])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return ImportResult{}, fmt.Errorf("hakuna bidhaa valid: kila mstari ni 'jina, bei ya kununua, stock, hali'")
	}
	return s.ImportRows(rows)
}

// ImportRows merges rows into the inventory by id. The whole import is
// rejected with a field-naming error if any row is missing its name or
// carries no price at all; partial imports are never applied.
func (s *Store) ImportRows(rows []ImportRow) (ImportResult, error) {
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			return ImportResult{}, fmt.Errorf("row %d: required field 'Bidhaa' (name) is missing", i+1)
		}
		if row.FloorPrice == 0 && row.PublicPrice == 0 {
			return ImportResult{}, fmt.Errorf("row %d (%s): required field 'Bei' (price) is missing", i+1, row.Name)
		}
	}

	var result ImportResult
	err := s.Update(func(p *Profile) error {
		for _, row := range rows {
			item := rowToItem(row)
			idx := -1
			for i := range p.Inventory {
				if p.Inventory[i].ID == item.ID {
					idx = i
					break
				}
			}
			if idx >= 0 {
				old := p.Inventory[idx]
				item.Images = old.Images
				if item.Brand == "" || item.Brand == "Other" {
					item.Brand = old.Brand
				}
				if item.Tier == "General" && old.Tier != "" {
					item.Tier = old.Tier
				}
				if item.Features == "" {
					item.Features = old.Features
				}
				p.Inventory[idx] = item
				result.Updated++
			} else {
				p.Inventory = append(p.Inventory, item)
				result.Added++
			}
		}
		result.Total = len(p.Inventory)
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	log.Printf("📦 IMPORT: %d added, %d updated (%d total)", result.Added, result.Updated, result.Total)
	return result, nil
}

func rowToItem(row ImportRow) Item {
	item := Item{
		ID:          Slugify(row.Name),
		Name:        strings.TrimSpace(row.Name),
		Brand:       strings.TrimSpace(row.Brand),
		Tier:        strings.TrimSpace(row.Tier),
		Condition:   strings.TrimSpace(row.Condition),
		Features:    strings.TrimSpace(row.Features),
		PublicPrice: row.PublicPrice,
		FloorPrice:  row.FloorPrice,
		Stock:       row.Stock,
		Images:      []string{},
	}
	if item.Brand == "" {
		item.Brand = guessBrand(item.Name)
	}
	if item.Tier == "" {
		item.Tier = "General"
	}
	if item.Condition == "" {
		item.Condition = "Brand New"
	}
	if item.Category == "" {
		item.Category = guessCategory(item.Name, item.Brand)
	}
	// A missing side of the price pair is derived from the other with the
	// shop's usual ~30% margin.
	if item.PublicPrice == 0 {
		item.PublicPrice = int(float64(item.FloorPrice) * 1.3)
	}
	if item.FloorPrice == 0 {
		item.FloorPrice = int(float64(item.PublicPrice) * 0.77)
	}
	return item
}

// QuickAdd inserts or updates a single product from the owner's short
// "name, floor, qty, note" form. Returns the item and whether it was new.
func (s *Store) QuickAdd(name string, floorPrice, stock int, note string) (*Item, bool, error) {
	if strings.TrimSpace(name) == "" || floorPrice <= 0 {
		return nil, false, fmt.Errorf("quick add needs a name and a price")
	}
	row := ImportRow{Name: name, FloorPrice: floorPrice, Stock: stock, Condition: note}
	var out *Item
	isNew := false
	err := s.Update(func(p *Profile) error {
		item := rowToItem(row)
		for i := range p.Inventory {
			if p.Inventory[i].ID == item.ID {
				item.Images = p.Inventory[i].Images
				p.Inventory[i] = item
				out = copyItem(&p.Inventory[i])
				return nil
			}
		}
		p.Inventory = append(p.Inventory, item)
		out = copyItem(&p.Inventory[len(p.Inventory)-1])
		isNew = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, isNew, nil
}

// AddImage appends an image filename to an item's gallery.
func (s *Store) AddImage(itemID, filename string) error {
	return s.Update(func(p *Profile) error {
		for i := range p.Inventory {
			if p.Inventory[i].ID == itemID {
				p.Inventory[i].Images = append(p.Inventory[i].Images, filename)
				return nil
			}
		}
		return fmt.Errorf("unknown item %q", itemID)
	})
}

// ReplaceInventory swaps the whole inventory list. Used by the
// LLM-assisted natural-language edit path, which returns the full new list.
func (s *Store) ReplaceInventory(items []Item) error {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = Slugify(items[i].Name)
		}
		if items[i].Images == nil {
			items[i].Images = []string{}
		}
	}
	return s.Update(func(p *Profile) error {
		p.Inventory = items
		return nil
	})
}

func guessBrand(name string) string {
	n := strings.ToLower(name)
	known := []string{"samsung", "iphone", "ipad", "macbook", "airpods", "apple",
		"google", "pixel", "nokia", "tecno", "oraimo", "jbl", "sony", "anker",
		"hp", "modio", "atouch"}
	for _, b := range known {
		if strings.Contains(n, b) {
			switch b {
			case "iphone", "ipad", "macbook", "airpods":
				return "Apple"
			case "pixel":
				return "Google"
			default:
				return strings.ToUpper(b[:1]) + b[1:]
			}
		}
	}
	return "Other"
}

var categoryPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`phone|iphone|samsung galaxy [sa]|pixel [0-9]|nokia|tecno|spark|redmi`), "SIMU"},
	{regexp.MustCompile(`tab|ipad|modio|atouch`), "TABLET"},
	{regexp.MustCompile(`pod|bud|earphone|headphone|jbl|oraimo.*bud|sony.*wf|anker.*sound`), "EARPHONES"},
	{regexp.MustCompile(`power.*bank`), "POWER BANK"},
	{regexp.MustCompile(`charger|cable|lightning`), "CHARGER/CABLE"},
	{regexp.MustCompile(`watch`), "SMART WATCH"},
	{regexp.MustCompile(`laptop|macbook|hp.*15|thinkpad`), "LAPTOP"},
}

func guessCategory(name, brand string) string {
	n := strings.ToLower(name + " " + brand)
	for _, cp := range categoryPatterns {
		if cp.re.MatchString(n) {
			return cp.category
		}
	}
	return "NYINGINE"
}
