package bulletin

import (
	"time"

	"github.com/spf13/viper"
)

// SiteConfig holds all configuration for a bulletin site.
type SiteConfig struct {
	Name        string `mapstructure:"SITE_NAME"`        // Site name (default "Bulletin")
	URL         string `mapstructure:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"SITE_DESCRIPTION"` // Site description for the feed and meta tags

	Addr         string `mapstructure:"ADDR"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"DATABASE_PATH"` // SQLite path (default "data/bulletin.db")

	SessionSecret string `mapstructure:"SESSION_SECRET"` // Required: session encryption secret
	CookieSecure  bool   `mapstructure:"COOKIE_SECURE"`  // Set true for HTTPS

	FrontPageTTL time.Duration // Front page cache TTL (default 1min)
	StatsTTL     time.Duration // Profile stats cache TTL (default 1min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Bulletin"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/bulletin.db"
	}
	if c.FrontPageTTL == 0 {
		c.FrontPageTTL = time.Minute
	}
	if c.StatsTTL == 0 {
		c.StatsTTL = time.Minute
	}
}

// LoadConfig reads SiteConfig from the environment, optionally seeded from a
// .env-style file at path. Environment variables win over file values.
func LoadConfig(path string) (*SiteConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()
	for _, key := range []string{"SITE_NAME", "SITE_URL", "SITE_DESCRIPTION", "ADDR", "DATABASE_PATH", "SESSION_SECRET", "COOKIE_SECURE"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}
