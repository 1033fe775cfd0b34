package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	WebhookURL    string
	WebhookSecret string
	AdminAPIKey   string
	Env           string
	LogLevel      string
	FleetFile     string
	ChargePolicy  string
	PIN           int
}

// LoadConfig reads .env file and returns a Config struct
func LoadConfig() (*Config, error) {
	// Try loading .env file (it might not exist in Production, which is fine)
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	pin, err := strconv.Atoi(getEnv("VEND_PIN", "1234"))
	if err != nil {
		return nil, &FieldError{Field: "VEND_PIN", Err: err}
	}

	return &Config{
		Port:          getEnv("PORT", "3000"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		FleetFile:     getEnv("FLEET_FILE", "fleet.yaml"),
		ChargePolicy:  getEnv("VEND_CHARGE_POLICY", "flat"),
		PIN:           pin,
	}, nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
