package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	GitHub struct {
		ClientID     string `koanf:"client_id"`
		ClientSecret string `koanf:"client_secret"`
		RedirectURI  string `koanf:"redirect_uri"`
	} `koanf:"github"`

	AI struct {
		APIKey  string        `koanf:"api_key"`
		Model   string        `koanf:"model"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"ai"`

	Auth struct {
		JWTSecret string `koanf:"jwt_secret"`
	} `koanf:"auth"`

	Webhook struct {
		PublicEndpoint string `koanf:"public_endpoint"`
	} `koanf:"webhook"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.port": 8080,
		"ai.model":    "gemini-2.0-flash-001",
		"ai.timeout":  "2m",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./reviewloop.toml", "$HOME/.reviewloop.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix REVIEWLOOP_
	if err := k.Load(env.Provider("REVIEWLOOP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "REVIEWLOOP_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# ReviewLoop Configuration

[server]
port = 8080

[github]
client_id = "your-oauth-app-client-id"
client_secret = "your-oauth-app-client-secret"
redirect_uri = "http://localhost:8080/auth/github/callback"

[ai]
api_key = "your-gemini-api-key"
model = "gemini-2.0-flash-001"
timeout = "2m"

[auth]
jwt_secret = "change-me"

[webhook]
public_endpoint = "https://reviewloop.example.com/webhooks/github"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.GitHub.ClientID == "" || config.GitHub.ClientSecret == "" {
		return fmt.Errorf("github client_id and client_secret are required")
	}

	if config.AI.APIKey == "" {
		return fmt.Errorf("ai api_key is required")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}

	if config.AI.Timeout <= 0 {
		return fmt.Errorf("ai timeout must be positive")
	}

	return nil
}
