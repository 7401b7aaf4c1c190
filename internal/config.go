package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeBasic    = "basic"
)

// DefaultBackendURL is the production NAARAD agent backend.
const DefaultBackendURL = "https://narad-agent-backend-production.up.railway.app"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Backend  BackendConfig     `yaml:"backend"`
	Upload   UploadConfig      `yaml:"upload"`
	Auth     AuthConfig        `yaml:"auth"`
	Activity ActivityConfig    `yaml:"activity"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := c.Activity.Validate(); err != nil {
		return fmt.Errorf("activity: %w", err)
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

// BackendConfig describes the remote agent backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// HistoryCacheTTL is how long a fetched history stays fresh. The backend
	// appends entries on its own, so the default of zero only shares
	// concurrent fetches and never serves a stored result.
	HistoryCacheTTL time.Duration `yaml:"history_cache_ttl"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteHTTPURL)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HistoryCacheTTL, validation.Min(time.Duration(0))),
	)
}

func absoluteHTTPURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}

// UploadConfig holds CSV upload limits and the optional drop folder.
type UploadConfig struct {
	MaxBytes     int64         `yaml:"max_bytes"`
	SuccessDelay time.Duration `yaml:"success_delay"`
	// InboxDir enables the drop-folder importer when set.
	InboxDir      string        `yaml:"inbox_dir"`
	InboxDebounce time.Duration `yaml:"inbox_debounce"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.SuccessDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.InboxDebounce, validation.Min(time.Duration(0))),
	)
}

// InboxEnabled reports whether the drop folder is configured.
func (c *UploadConfig) InboxEnabled() bool {
	return c.InboxDir != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "basic": HTTP basic auth on every page and API route; Username and
//     Password must be non-empty. Health checks stay open.
type AuthConfig struct {
	Mode     string `yaml:"mode"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeBasic)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeBasic && (c.Username == "" || c.Password == "") {
		return fmt.Errorf("auth: mode is %q but username or password is empty", AuthModeBasic)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeBasic
}

// Credentials returns the accepted user/password pairs, or nil when
// authentication is disabled.
func (c *AuthConfig) Credentials() map[string]string {
	if !c.AuthEnabled() {
		return nil
	}
	return map[string]string{c.Username: c.Password}
}

// ActivityConfig sizes the in-memory activity feed.
type ActivityConfig struct {
	Capacity int `yaml:"capacity"`
}

// Validate validates the activity configuration.
func (c *ActivityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1), validation.Max(100000)),
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
		Backend: BackendConfig{
			BaseURL:         DefaultBackendURL,
			Timeout:         30 * time.Second,
			HistoryCacheTTL: 0,
		},
		Upload: UploadConfig{
			MaxBytes:      5 << 20,
			SuccessDelay:  1500 * time.Millisecond,
			InboxDebounce: 500 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Activity: ActivityConfig{
			Capacity: 200,
		},
	}
}
