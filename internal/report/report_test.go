package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/jezakh/patanabot/internal/analytics"
	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/store"
)

func TestNextRun(t *testing.T) {
	loc := time.UTC
	morning := time.Date(2025, 6, 10, 8, 0, 0, 0, loc)

	next := nextRun(morning, 20)
	if next.Day() != 10 || next.Hour() != 20 {
		t.Errorf("Next run from morning = %v, want same day 20:00", next)
	}

	evening := time.Date(2025, 6, 10, 21, 0, 0, 0, loc)
	next = nextRun(evening, 20)
	if next.Day() != 11 || next.Hour() != 20 {
		t.Errorf("Next run from past-the-hour = %v, want next day 20:00", next)
	}

	atHour := time.Date(2025, 6, 10, 20, 0, 0, 0, loc)
	next = nextRun(atHour, 20)
	if !next.After(atHour) {
		t.Errorf("Next run at exactly the hour must move forward, got %v", next)
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		250000:  "250,000",
		1250000: "1,250,000",
	}
	for in, want := range cases {
		if got := groupDigits(in); got != want {
			t.Errorf("groupDigits(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildDaily(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	orders := store.NewOrderStore(db)
	if err := orders.Save("255711111111", "simu-a", 350000, "Kariakoo"); err != nil {
		t.Fatalf("Save order: %v", err)
	}
	orders.SaveMissed("PS5")

	gen := NewGenerator(analytics.New(db), orders, "Test Duka")
	pdf, summary, err := gen.BuildDaily()
	if err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("Output is not a PDF document")
	}
	if summary == "" {
		t.Fatal("Summary text is empty")
	}
	for _, want := range []string{"Oda: 1", "350,000", "1"} {
		if !bytes.Contains([]byte(summary), []byte(want)) {
			t.Errorf("Summary missing %q: %q", want, summary)
		}
	}
}
