// Package config provides configuration parsing and validation for the
// batch mailer. Transport credentials and provider selection come from the
// environment (optionally a local .env file); per-run inputs come from
// command-line flags in cmd.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds transport and directory configuration.
type Config struct {
	Provider string

	SMTPHost string
	SMTPPort int
	Sender   string
	Password string

	ResendAPIKey string
	AWSRegion    string

	// UnitDirectory is the reference table for unit-keyed dispatch (status
	// and collection modes); RestaurantDirectory for the text-order mode.
	UnitDirectory       string
	RestaurantDirectory string
}

// Load reads configuration from environment variables, loading a .env file
// first when one exists. Existing env variables win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:            getEnvOrDefault("MAIL_PROVIDER", "smtp"),
		SMTPHost:            getEnvOrDefault("SMTP_HOST", "email-ssl.com.br"),
		Sender:              os.Getenv("MAIL_SENDER"),
		Password:            os.Getenv("MAIL_PASSWORD"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		AWSRegion:           getEnvOrDefault("AWS_REGION", "us-east-1"),
		UnitDirectory:       getEnvOrDefault("UNIT_DIRECTORY", "emails_unidades.xlsx"),
		RestaurantDirectory: getEnvOrDefault("RESTAURANT_DIRECTORY", "emails_restaurantes.xlsx"),
	}

	port := getEnvOrDefault("SMTP_PORT", "465")
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", port, err)
	}
	cfg.SMTPPort = p

	return cfg, nil
}

// Validate checks that the selected provider has what it needs to
// authenticate. Returns an error naming the first missing field.
func (c *Config) Validate() error {
	if c.Sender == "" {
		return fmt.Errorf("MAIL_SENDER cannot be empty")
	}
	switch c.Provider {
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST cannot be empty")
		}
		if c.Password == "" {
			return fmt.Errorf("MAIL_PASSWORD cannot be empty")
		}
	case "resend":
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY cannot be empty")
		}
	case "ses":
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION cannot be empty")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Provider)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
