package config

import (
	"testing"
	"time"
)

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load without GEMINI_API_KEY must fail")
	}

	t.Setenv("GEMINI_API_KEY", "key")
	if _, err := Load(); err == nil {
		t.Fatal("Load without JWT_SECRET must fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OWNER_PHONE", "+255700000001")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OwnerPhone != "255700000001" {
		t.Errorf("Owner phone not normalized: %q", cfg.OwnerPhone)
	}
	if cfg.Guard.TrollCooldown != 30*time.Minute {
		t.Errorf("Troll cooldown default = %v, want 30m", cfg.Guard.TrollCooldown)
	}
	if cfg.Relay.ReminderInterval != 3*time.Minute {
		t.Errorf("Reminder interval default = %v, want 3m", cfg.Relay.ReminderInterval)
	}
	if cfg.Relay.MaxReminders != 3 || cfg.Relay.MaxEscalations != 5 {
		t.Errorf("Relay defaults wrong: %+v", cfg.Relay)
	}
	if cfg.Relay.HistoryWindow != 15 {
		t.Errorf("History window default = %d, want 15", cfg.Relay.HistoryWindow)
	}
	if cfg.Report.Hour != 20 || !cfg.Report.Enabled {
		t.Errorf("Report defaults wrong: %+v", cfg.Report)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STOCK_CHECK_INTERVAL", "45s")
	t.Setenv("STOCK_CHECK_REMINDERS", "5")
	t.Setenv("TROLL_COOLDOWN", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.ReminderInterval != 45*time.Second {
		t.Errorf("Interval override = %v, want 45s", cfg.Relay.ReminderInterval)
	}
	if cfg.Relay.MaxReminders != 5 {
		t.Errorf("Reminder override = %d, want 5", cfg.Relay.MaxReminders)
	}
	if cfg.Guard.TrollCooldown != 10*time.Minute {
		t.Errorf("Cooldown override = %v, want 10m", cfg.Guard.TrollCooldown)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+255711111111"); got != "255711111111" {
		t.Errorf("NormalizePhone = %q", got)
	}
	if got := NormalizePhone("255711111111"); got != "255711111111" {
		t.Errorf("Bare number altered: %q", got)
	}
	if got := NormalizePhone(""); got != "" {
		t.Errorf("Empty input altered: %q", got)
	}
}
