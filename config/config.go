// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"servicequote/services"
)

// Prefix is prepended to every variable name, e.g. QUOTE_CATALOG.
const Prefix = "QUOTE"

// Catalog sources.
const (
	CatalogRecords = "records"
	CatalogDemo    = "demo"
)

// Config holds the application settings.
type Config struct {
	Catalog      string `envconfig:"CATALOG" default:"records"`
	Numbering    string `envconfig:"NUMBERING" default:"sequence"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON      bool   `envconfig:"LOG_JSON" default:"false"`
	ValidityDays int    `envconfig:"VALIDITY_DAYS" default:"30"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM"`
}

// Load reads an optional .env file and then the QUOTE_* environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the app cannot run with.
func (c *Config) Validate() error {
	c.Catalog = strings.ToLower(strings.TrimSpace(c.Catalog))
	switch c.Catalog {
	case CatalogRecords, CatalogDemo:
	default:
		return fmt.Errorf("%s_CATALOG: unknown catalog %q", Prefix, c.Catalog)
	}

	c.Numbering = strings.ToLower(strings.TrimSpace(c.Numbering))
	switch c.Numbering {
	case "sequence", "random", "uuid":
	default:
		return fmt.Errorf("%s_NUMBERING: unknown strategy %q", Prefix, c.Numbering)
	}

	if c.ValidityDays <= 0 {
		c.ValidityDays = services.DefaultValidityDays
	}
	return nil
}

// Mail returns the SMTP settings for quote delivery.
func (c *Config) Mail() services.MailSettings {
	return services.MailSettings{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	}
}

// UseDemoCatalog reports whether quotes are priced from the built-in demo catalog.
func (c *Config) UseDemoCatalog() bool {
	return c.Catalog == CatalogDemo
}
