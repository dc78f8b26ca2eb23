// Package config loads and validates the process configuration.
//
// Everything is read once at startup from environment variables (optionally
// seeded from a .env file) into a single Config value. Missing or malformed
// required values abort startup; nothing is read ad hoc per request.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	SiteBaseURL string `env:"SITE_BASE_URL,required,notEmpty"`

	// Secret is the root key material. Separate keys for signing OAuth state
	// and sealing Instagram tokens are derived from it with HKDF.
	Secret string `env:"APP_SECRET,required,notEmpty"`

	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	DefaultReturnPath string        `env:"DEFAULT_RETURN_PATH" envDefault:"/me"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"true"`

	Instagram Instagram `envPrefix:"INSTAGRAM_"`
	Database  Database  `envPrefix:"DB_"`
	Logging   Logging   `envPrefix:"LOG_"`
	Jobs      Jobs      `envPrefix:"JOBS_"`
}

// Instagram holds the OAuth client registration and provider endpoints.
type Instagram struct {
	ClientID     string        `env:"CLIENT_ID,required,notEmpty"`
	ClientSecret string        `env:"CLIENT_SECRET,required,notEmpty"`
	RedirectURI  string        `env:"REDIRECT_URI,required,notEmpty"`
	Scopes       []string      `env:"SCOPES" envSeparator:"," envDefault:"instagram_business_basic,instagram_business_manage_messages,instagram_business_manage_comments,instagram_business_content_publish,instagram_business_manage_insights"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
	AuthURL      string        `env:"AUTH_URL" envDefault:"https://www.instagram.com/oauth/authorize"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://api.instagram.com/oauth/access_token"`
	GraphURL     string        `env:"GRAPH_URL" envDefault:"https://graph.instagram.com"`
}

// Database selects the storage backend.
type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"` // "sqlite" or "postgres"
	DSN    string `env:"DSN" envDefault:"data/catchme.db"`
}

type Logging struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
	File   string `env:"FILE"`
}

// Jobs configures the background maintenance jobs (cron syntax or
// descriptors such as "@hourly").
type Jobs struct {
	PruneSchedule   string        `env:"PRUNE_SCHEDULE" envDefault:"@hourly"`
	RefreshSchedule string        `env:"REFRESH_SCHEDULE" envDefault:"@daily"`
	RefreshWithin   time.Duration `env:"REFRESH_WITHIN" envDefault:"168h"`
}

// Load reads envFile (if it exists) into the process environment, then
// parses and validates the configuration. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the invariants env tags cannot express.
func (c *Config) validate() error {
	var errs []error

	if err := requireAbsoluteURL("SITE_BASE_URL", c.SiteBaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := requireAbsoluteURL("INSTAGRAM_REDIRECT_URI", c.Instagram.RedirectURI); err != nil {
		errs = append(errs, err)
	}
	if len(c.Secret) < 32 {
		errs = append(errs, errors.New("APP_SECRET must be at least 32 characters"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if !strings.HasPrefix(c.DefaultReturnPath, "/") || strings.HasPrefix(c.DefaultReturnPath, "//") {
		errs = append(errs, fmt.Errorf("DEFAULT_RETURN_PATH %q must be a site-relative path", c.DefaultReturnPath))
	}
	if len(c.Instagram.Scopes) == 0 {
		errs = append(errs, errors.New("INSTAGRAM_SCOPES must list at least one permission"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported (want sqlite or postgres)", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func requireAbsoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute URL", name, raw)
	}
	return nil
}
