package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Notes   NotesConfig       `yaml:"notes"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Search  SearchConfig      `yaml:"search"`
	Context ContextConfig     `yaml:"context"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Context.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig describes where notes live. DailyDir and ProjectsDir are
// relative to Root; CuratedDir defaults to Root.
type NotesConfig struct {
	Root        string `yaml:"root"`
	DailyDir    string `yaml:"daily_dir"`
	ProjectsDir string `yaml:"projects_dir"`
	CuratedDir  string `yaml:"curated_dir"`
	// RetainRootAcrossHeaders keeps a page's root entity across headers.
	RetainRootAcrossHeaders bool `yaml:"retain_root_across_headers"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	if c.CuratedDir == "" {
		c.CuratedDir = c.Root
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.DailyDir, validation.Required),
		validation.Field(&c.ProjectsDir, validation.Required),
	)
}

// Dirs returns the note directories scanned by the indexer.
func (c *NotesConfig) Dirs() []string {
	return []string{c.DailyDir, c.ProjectsDir}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit"`
	HalfLifeDays float64 `yaml:"half_life_days"`
	Recency      bool    `yaml:"recency"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.HalfLifeDays, validation.Required, validation.Min(1.0), validation.Max(365.0)),
	)
}

// ContextConfig holds context assembly defaults.
type ContextConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// Validate validates the context configuration.
func (c *ContextConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1), validation.Max(500)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			Root:        "./notes",
			DailyDir:    "daily",
			ProjectsDir: "projects",
		},
		SQLite: SQLiteConfig{
			Path: "./maxwell.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			HalfLifeDays: 30,
			Recency:      true,
		},
		Context: ContextConfig{
			DefaultLimit: 50,
		},
	}
}
