package shop

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, items []Item) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop_profile.json")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Update(func(p *Profile) error {
		p.ShopName = "Test Duka"
		p.Inventory = items
		return nil
	}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return s
}

func stockOf(t *testing.T, s *Store, id string) int {
	t.Helper()
	p, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, it := range p.Inventory {
		if it.ID == id {
			return it.Stock
		}
	}
	t.Fatalf("item %s not found", id)
	return 0
}

func TestReserveDecrements(t *testing.T) {
	s := newTestStore(t, []Item{{ID: "simu-a", Name: "Simu A", Stock: 2}})

	if !s.Reserve("simu-a") {
		t.Fatal("Reserve should succeed with stock 2")
	}
	if got := stockOf(t, s, "simu-a"); got != 1 {
		t.Errorf("Stock after one reserve = %d, want 1", got)
	}
}

func TestReserveNeverBelowZero(t *testing.T) {
	s := newTestStore(t, []Item{{ID: "simu-a", Name: "Simu A", Stock: 1}})

	if !s.Reserve("simu-a") {
		t.Fatal("First reserve should succeed")
	}
	if s.Reserve("simu-a") {
		t.Error("Reserve at stock 0 must fail")
	}
	if got := stockOf(t, s, "simu-a"); got != 0 {
		t.Errorf("Stock = %d, want 0", got)
	}
}

func TestReserveUnknownItem(t *testing.T) {
	s := newTestStore(t, nil)
	if s.Reserve("haipo") {
		t.Error("Reserve of unknown item must fail")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	s := newTestStore(t, []Item{{ID: "simu-a", Name: "Simu A", Stock: 3}})

	s.Reserve("simu-a")
	s.Restore("simu-a")
	if got := stockOf(t, s, "simu-a"); got != 3 {
		t.Errorf("Stock after reserve+restore = %d, want 3", got)
	}

	// Restoring an unknown item is a no-op.
	s.Restore("haipo")
}

func TestLookupLadder(t *testing.T) {
	s := newTestStore(t, []Item{
		{ID: "samsung_galaxy_a15", Name: "Samsung Galaxy A15", Stock: 1},
		{ID: "tecno_spark_20", Name: "Tecno Spark 20", Stock: 1},
	})

	cases := []struct {
		query string
		want  string
	}{
		{"samsung_galaxy_a15", "samsung_galaxy_a15"}, // exact id
		{"tecno spark 20", "tecno_spark_20"},         // exact name, case folded
		{"galaxy", "samsung_galaxy_a15"},             // name substring
		{"spark_20", "tecno_spark_20"},               // id substring
	}
	for _, c := range cases {
		it := s.Lookup(c.query)
		if it == nil {
			t.Errorf("Lookup(%q) = nil, want %s", c.query, c.want)
			continue
		}
		if it.ID != c.want {
			t.Errorf("Lookup(%q) = %s, want %s", c.query, it.ID, c.want)
		}
	}

	if s.Lookup("") != nil {
		t.Error("Empty query must resolve to nothing")
	}
	if s.Lookup("   ") != nil {
		t.Error("Whitespace query must resolve to nothing")
	}
	if s.Lookup("playstation") != nil {
		t.Error("Unknown query must resolve to nothing")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	s := newTestStore(t, []Item{{ID: "simu-a", Name: "Simu A", Stock: 5, Images: []string{"a.jpg"}}})

	it := s.Lookup("simu-a")
	it.Stock = 0
	it.Images[0] = "hacked.jpg"

	fresh := s.Lookup("simu-a")
	if fresh.Stock != 5 {
		t.Error("Mutating a lookup result leaked into the store")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Samsung Galaxy A15":  "samsung_galaxy_a15",
		"  iPhone 11 (64GB) ": "iphone_11_64gb",
		"Oraimo FreePods-4":   "oraimo_freepods_4",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
