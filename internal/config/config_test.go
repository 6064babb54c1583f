package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini-2.0-flash-001", cfg.AI.Model)
	assert.Equal(t, 2*time.Minute, cfg.AI.Timeout)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewloop.toml")
	content := `
[server]
port = 9090

[ai]
api_key = "test-key"
timeout = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.AI.APIKey)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	// Defaults survive for keys the file omits.
	assert.Equal(t, "gemini-2.0-flash-001", cfg.AI.Model)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("REVIEWLOOP_SERVER_PORT", "7777")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestInitConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewloop.toml")

	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)

	// Refuses to clobber an existing file.
	assert.Error(t, InitConfig(path))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.GitHub.ClientID = "id"
		cfg.GitHub.ClientSecret = "secret"
		cfg.AI.APIKey = "key"
		cfg.AI.Timeout = time.Minute
		cfg.Auth.JWTSecret = "jwt"
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.GitHub.ClientSecret = ""
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.AI.APIKey = ""
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.AI.Timeout = 0
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Auth.JWTSecret = ""
	assert.Error(t, Validate(cfg))
}
