package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Version is the application version stamped into backup records.
const Version = "1.0.0"

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Limits LimitsConfig      `yaml:"limits"`
	Backup BackupConfig      `yaml:"backup"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Backup.Validate(); err != nil {
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

// StoreConfig selects and locates the durable key-value store.
//
// Driver "file" keeps one JSON file per key under Path (a directory);
// driver "sqlite" keeps a single-table database at Path (a file).
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StoreDriverFile, StoreDriverSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// LimitsConfig holds the note field and collection ceilings.
type LimitsConfig struct {
	MaxNotes          int `yaml:"max_notes"`
	MaxNoteLength     int `yaml:"max_note_length"`
	MaxTitleLength    int `yaml:"max_title_length"`
	MaxTagsPerNote    int `yaml:"max_tags_per_note"`
	MaxTagLength      int `yaml:"max_tag_length"`
	MaxCategoryLength int `yaml:"max_category_length"`
}

// Validate validates the limits configuration.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxNotes, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxNoteLength, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTitleLength, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTagsPerNote, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTagLength, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxCategoryLength, validation.Required, validation.Min(1)),
	)
}

// BackupConfig holds backup retention and auto-backup configuration.
type BackupConfig struct {
	AutoInterval time.Duration `yaml:"auto_interval"`
	MaxFiles     int           `yaml:"max_files"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	if c.AutoInterval <= 0 {
		return fmt.Errorf("backup: auto_interval must be positive")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFiles, validation.Required, validation.Min(1)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Driver: StoreDriverFile,
			Path:   "./data",
		},
		Limits: LimitsConfig{
			MaxNotes:          10000,
			MaxNoteLength:     100000,
			MaxTitleLength:    200,
			MaxTagsPerNote:    10,
			MaxTagLength:      50,
			MaxCategoryLength: 50,
		},
		Backup: BackupConfig{
			AutoInterval: 24 * time.Hour,
			MaxFiles:     5,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
