package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env        string
	Port       string
	JWTSecret  string
	OwnerPhone string
	DataDir    string

	DBPath          string
	ShopProfilePath string
	ImageDir        string

	Gemini  GeminiConfig
	Gateway GatewayConfig
	Guard   GuardConfig
	Relay   RelayConfig
	Report  ReportConfig
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GatewayConfig holds the WhatsApp gateway connection settings
type GatewayConfig struct {
	URL       string
	AuthToken string
}

// GuardConfig holds anti-spam / anti-troll tunables
type GuardConfig struct {
	Cooldown      time.Duration
	DedupWindow   time.Duration
	TrollCooldown time.Duration
}

// RelayConfig holds escalation / stock check relay tunables
type RelayConfig struct {
	ReminderInterval time.Duration
	MaxReminders     int
	MaxEscalations   int
	HistoryWindow    int
}

// ReportConfig holds the daily report schedule
type ReportConfig struct {
	Hour    int
	Enabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Env:        getEnv("APP_ENV", "development"),
		Port:       getEnv("PORT", "3001"),
		JWTSecret:  jwtSecret,
		OwnerPhone: normalizePhone(os.Getenv("OWNER_PHONE")),
		DataDir:    dataDir,

		DBPath:          getEnv("DB_PATH", dataDir+"/patana.db"),
		ShopProfilePath: getEnv("SHOP_PROFILE_PATH", dataDir+"/shop_profile.json"),
		ImageDir:        getEnv("IMAGE_DIR", dataDir+"/images"),

		Gemini: GeminiConfig{
			APIKey:  apiKey,
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: getDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Gateway: GatewayConfig{
			URL:       getEnv("GATEWAY_URL", "ws://localhost:3200/ws"),
			AuthToken: os.Getenv("GATEWAY_TOKEN"),
		},
		Guard: GuardConfig{
			Cooldown:      getDuration("CUSTOMER_COOLDOWN", 5*time.Second),
			DedupWindow:   getDuration("DEDUP_WINDOW", 15*time.Second),
			TrollCooldown: getDuration("TROLL_COOLDOWN", 30*time.Minute),
		},
		Relay: RelayConfig{
			ReminderInterval: getDuration("STOCK_CHECK_INTERVAL", 3*time.Minute),
			MaxReminders:     getInt("STOCK_CHECK_REMINDERS", 3),
			MaxEscalations:   getInt("MAX_ESCALATIONS", 5),
			HistoryWindow:    getInt("HISTORY_WINDOW", 15),
		},
		Report: ReportConfig{
			Hour:    getInt("REPORT_HOUR", 20),
			Enabled: getEnv("REPORT_ENABLED", "true") == "true",
		},
	}, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// normalizePhone strips a leading '+' so phone numbers compare equal
// regardless of how the transport renders them.
func normalizePhone(phone string) string {
	if len(phone) > 0 && phone[0] == '+' {
		return phone[1:]
	}
	return phone
}

// NormalizePhone is the exported form used by handlers that accept
// user-supplied phone numbers.
func NormalizePhone(phone string) string {
	return normalizePhone(phone)
}
