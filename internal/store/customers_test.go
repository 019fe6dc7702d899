package store

import (
	"path/filepath"
	"testing"

	"github.com/jezakh/patanabot/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetCreatesDefaultCustomer(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 15)

	c, err := s.Get("255711111111")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Rating != 3 {
		t.Errorf("New customer rating = %d, want 3", c.Rating)
	}
	if c.BotPaused {
		t.Error("New customer must start active")
	}

	// Second call returns the same row, not a fresh one.
	c2, err := s.Get("255711111111")
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if c2.CreatedAt.Unix() != c.CreatedAt.Unix() {
		t.Error("Get must not recreate an existing customer")
	}
}

func TestHistoryRoundTripAndTrim(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 4)

	var turns []Turn
	for i := 0; i < 6; i++ {
		role := RoleCustomer
		if i%2 == 1 {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Text: string(rune('a' + i))})
	}
	if err := s.SaveHistory("255711111111", turns); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	got := s.History("255711111111")
	if len(got) != 4 {
		t.Fatalf("History length = %d, want window 4", len(got))
	}
	// Oldest turns are dropped.
	if got[0].Text != "c" || got[3].Text != "f" {
		t.Errorf("Trim kept the wrong end: %+v", got)
	}

	if err := s.ResetHistory("255711111111"); err != nil {
		t.Fatalf("ResetHistory: %v", err)
	}
	if got := s.History("255711111111"); len(got) != 0 {
		t.Errorf("History after reset = %+v, want empty", got)
	}
}

func TestRatingClampAndBump(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 15)
	phone := "255711111111"

	if err := s.SetRating(phone, 9); err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if got := s.Rating(phone); got != 5 {
		t.Errorf("Rating = %d, want clamp to 5", got)
	}

	if err := s.BumpRating(phone, 1); err != nil {
		t.Fatalf("BumpRating: %v", err)
	}
	if got := s.Rating(phone); got != 5 {
		t.Errorf("Rating = %d, bump above 5 must clamp", got)
	}

	for i := 0; i < 10; i++ {
		s.BumpRating(phone, -1)
	}
	if got := s.Rating(phone); got != 1 {
		t.Errorf("Rating = %d, want floor of 1", got)
	}
}

func TestEscalationCounter(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 15)
	phone := "255711111111"

	for want := 1; want <= 3; want++ {
		got, err := s.IncrementEscalation(phone)
		if err != nil {
			t.Fatalf("IncrementEscalation: %v", err)
		}
		if got != want {
			t.Errorf("Escalation count = %d, want %d", got, want)
		}
	}

	if err := s.ResetEscalations(phone); err != nil {
		t.Fatalf("ResetEscalations: %v", err)
	}
	if got, _ := s.IncrementEscalation(phone); got != 1 {
		t.Errorf("Count after reset = %d, want 1", got)
	}
}

func TestPauseResume(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 15)

	if !s.Active("255711111111") {
		t.Error("Unknown customer defaults to active")
	}

	if err := s.Pause("255711111111"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if s.Active("255711111111") {
		t.Error("Paused customer must be inactive")
	}

	if err := s.Resume("255711111111"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !s.Active("255711111111") {
		t.Error("Resumed customer must be active")
	}
}

func TestResumeAll(t *testing.T) {
	s := NewCustomerStore(newTestDB(t), 15)

	s.Pause("255711111111")
	s.Pause("255722222222")
	s.Get("255733333333") // active, untouched

	n, err := s.ResumeAll()
	if err != nil {
		t.Fatalf("ResumeAll: %v", err)
	}
	if n != 2 {
		t.Errorf("ResumeAll resumed %d, want 2", n)
	}
	if !s.Active("255711111111") || !s.Active("255722222222") {
		t.Error("Paused customers must be active after ResumeAll")
	}
}

func TestSanitize(t *testing.T) {
	c := func(text string) Turn { return Turn{Role: RoleCustomer, Text: text} }
	a := func(text string) Turn { return Turn{Role: RoleAssistant, Text: text} }

	cases := []struct {
		name string
		in   []Turn
		want []Turn
	}{
		{
			name: "already clean",
			in:   []Turn{c("habari"), a("karibu")},
			want: []Turn{c("habari"), a("karibu")},
		},
		{
			name: "leading assistant dropped",
			in:   []Turn{a("karibu"), c("habari"), a("poa")},
			want: []Turn{c("habari"), a("poa")},
		},
		{
			name: "double customer collapsed",
			in:   []Turn{c("habari"), c("uko wapi"), a("nipo")},
			want: []Turn{c("habari"), a("nipo")},
		},
		{
			name: "trailing customer dropped",
			in:   []Turn{c("habari"), a("karibu"), c("bei gani?")},
			want: []Turn{c("habari"), a("karibu")},
		},
		{
			name: "empty input",
			in:   nil,
			want: nil,
		},
		{
			name: "only assistant turns",
			in:   []Turn{a("moja"), a("mbili")},
			want: nil,
		},
		{
			name: "empty text skipped",
			in:   []Turn{c(""), c("habari"), a("karibu")},
			want: []Turn{c("habari"), a("karibu")},
		},
	}

	for _, tc := range cases {
		got := Sanitize(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("%s: length %d, want %d (%+v)", tc.name, len(got), len(tc.want), got)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: turn %d = %+v, want %+v", tc.name, i, got[i], tc.want[i])
			}
		}
		if len(got)%2 != 0 {
			t.Errorf("%s: sanitized length %d is odd", tc.name, len(got))
		}
	}
}
