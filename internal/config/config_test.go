package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, "/get-chef-response", cfg.Backend.Endpoints[EndpointChat])
	assert.Equal(t, "/get_new_recipe", cfg.Backend.Endpoints[EndpointModifyRecipe])
	assert.Equal(t, "/generate_pairing", cfg.Backend.Endpoints[EndpointPairings])
	assert.Equal(t, "bakebot", cfg.Widget.BotName)
	assert.Equal(t, "home_cook", cfg.Widget.ChefStyle)
	assert.Equal(t, "save recipe", cfg.Widget.SaveTrigger)
	assert.Equal(t, 5*time.Second, cfg.Widget.ErrorReset())
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestTimeoutFallback(t *testing.T) {
	assert.Equal(t, 30*time.Second, BackendConfig{}.Timeout())
	assert.Equal(t, 2*time.Second, BackendConfig{TimeoutSeconds: 2}.Timeout())
	assert.Zero(t, WidgetConfig{}.ErrorReset())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("RECIPE_API_KEY", "k-123")

	yaml := `
backend:
  baseUrl: https://recipes.example.com
  timeoutSeconds: 10
  apiKey: ${RECIPE_API_KEY}
  endpoints:
    chat: /v2/chat
widget:
  chefStyle: Snarky Fun Chef
  greeting: Hello cook
gateway:
  port: 9999
  bind: lan
  allowedOrigins: ["https://bakebot.example.com"]
channels:
  irc:
    server: irc.libera.chat
    nick: bakebot
    channels: ["#baking"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://recipes.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, "k-123", cfg.Backend.APIKey)
	assert.Equal(t, "/v2/chat", cfg.Backend.Endpoints[EndpointChat])
	// unspecified endpoints fall back to defaults
	assert.Equal(t, "/generate_pairing", cfg.Backend.Endpoints[EndpointPairings])
	assert.Equal(t, "Snarky Fun Chef", cfg.Widget.ChefStyle)
	assert.Equal(t, "Hello cook", cfg.Widget.Greeting)
	assert.Equal(t, "bakebot", cfg.Widget.BotName)
	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, []string{"https://bakebot.example.com"}, cfg.Gateway.AllowedOrigins)

	require.NotNil(t, cfg.Channels.IRC)
	assert.Equal(t, "per-sender", cfg.Channels.IRC.Scope)
	assert.Equal(t, []string{"#baking"}, cfg.Channels.IRC.Channels)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0o600))

	_, err := Load(path)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BAKEBOT_BACKEND_URL", "http://backend:9000")
	t.Setenv("BAKEBOT_BACKEND_TIMEOUT", "5")
	t.Setenv("BAKEBOT_CHEF_STYLE", "pro_chef")
	t.Setenv("BAKEBOT_GATEWAY_PORT", "7000")
	t.Setenv("BAKEBOT_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, "pro_chef", cfg.Widget.ChefStyle)
	assert.Equal(t, 7000, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAKEBOT_STORE_PATH=/var/lib/bakebot.db\n"), 0o600))
	t.Setenv("BAKEBOT_STORE_PATH", "")
	os.Unsetenv("BAKEBOT_STORE_PATH")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bakebot.db", cfg.Store.Path)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"widget", "chefStyle"}, "pro_chef")
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)
	val, ok := GetValueAtPath(loaded, []string{"widget", "chefStyle"})
	assert.True(t, ok)
	assert.Equal(t, "pro_chef", val)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pro_chef", cfg.Widget.ChefStyle)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("BAKE_TOKEN", "secret")
	assert.Equal(t, "secret", expandEnvVars("${BAKE_TOKEN}"))
	assert.Equal(t, "Bearer secret", expandEnvVars("Bearer ${BAKE_TOKEN}"))
	assert.Equal(t, "${UNSET_BAKE_VAR}", expandEnvVars("${UNSET_BAKE_VAR}"))
}
