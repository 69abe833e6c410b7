package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all kitlab configuration.
type Config struct {
	// Backend kit assembly service
	Backend BackendConfig `yaml:"backend"`

	// Conversation controller behavior
	Conversation ConversationConfig `yaml:"conversation"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the kit assembly service endpoints.
type BackendConfig struct {
	BaseURL      string `yaml:"base_url"`
	GeneratePath string `yaml:"generate_path"`
	HistoryPath  string `yaml:"history_path"`
	// KitPath is joined with the kit id; the legacy Flask app served kits at "/".
	KitPath  string `yaml:"kit_path"`
	APIToken string `yaml:"api_token"`
	Timeout  string `yaml:"timeout"`
}

// ConversationConfig configures the conversation controller.
type ConversationConfig struct {
	// ResponseDelay is the cosmetic pause before a reply is shown.
	ResponseDelay string `yaml:"response_delay"`

	// IntentKeywords reset the turn history when found in a submission.
	IntentKeywords []string `yaml:"intent_keywords"`

	// DiscardStaleResponses drops a reply when the view was reset while it was in flight.
	DiscardStaleResponses bool `yaml:"discard_stale_responses"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:      "http://localhost:5000/api/kit",
			GeneratePath: "/generate",
			HistoryPath:  "/history",
			KitPath:      "/history/",
			Timeout:      "120s",
		},
		Conversation: ConversationConfig{
			ResponseDelay:         "750ms",
			IntentKeywords:        []string{"build", "find", "kit"},
			DiscardStaleResponses: true,
		},
		UI: UIConfig{
			Theme:        "auto",
			SidebarWidth: 28,
			ShowSidebar:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns <workspace>/.kitlab/config.yaml.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".kitlab", "config.yaml")
}

// EnvPath returns the .env file belonging to the workspace of a config path.
func EnvPath(configPath string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(configPath)), ".env")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// The workspace .env (two levels above <workspace>/.kitlab/config.yaml) is
// loaded first so its values participate in the environment overrides.
func Load(path string) (*Config, error) {
	// Missing .env is the common case; existing variables are never overwritten.
	_ = godotenv.Load(EnvPath(path))

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KITLAB_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("KITLAB_API_TOKEN"); v != "" {
		c.Backend.APIToken = v
	}
	if v := os.Getenv("KITLAB_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("KITLAB_RESPONSE_DELAY"); v != "" {
		c.Conversation.ResponseDelay = v
	}
	if v := os.Getenv("KITLAB_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
	}
}

// GetBackendTimeout returns the backend HTTP timeout as a duration.
func (c *Config) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// GetResponseDelay returns the cosmetic reply delay. Zero is allowed.
func (c *Config) GetResponseDelay() time.Duration {
	d, err := time.ParseDuration(c.Conversation.ResponseDelay)
	if err != nil || d < 0 {
		return 750 * time.Millisecond
	}
	return d
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url not configured (set KITLAB_BACKEND_URL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	if d := c.Conversation.ResponseDelay; d != "" {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid conversation response_delay %q: %w", d, err)
		}
	}
	return nil
}
