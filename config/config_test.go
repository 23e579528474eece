package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"database": {"dsn": "user:pass@tcp(localhost:3306)/peerapi?parseTime=true"},
		"redis": {"addr": "localhost:6379"},
		"auth": {"jwtSecret": "secret", "agentApiKey": "key"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Server.ListenerType)
	assert.Equal(t, ":3000", cfg.Server.Listen)
	assert.Equal(t, 10, cfg.Fetch.RequestTimeout)
	assert.Equal(t, 600, cfg.Redis.TTLSeconds)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no database dsn", `{"redis":{"addr":"x"},"auth":{"jwtSecret":"s","agentApiKey":"k"}}`},
		{"no redis addr", `{"database":{"dsn":"x"},"auth":{"jwtSecret":"s","agentApiKey":"k"}}`},
		{"no jwt secret", `{"database":{"dsn":"x"},"redis":{"addr":"x"},"auth":{"agentApiKey":"k"}}`},
		{"no agent api key", `{"database":{"dsn":"x"},"redis":{"addr":"x"},"auth":{"jwtSecret":"s"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}
