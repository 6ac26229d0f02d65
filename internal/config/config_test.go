package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	require.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	require.Equal(t, DefaultPGDatabase, cfg.Postgres.Database)
	require.Equal(t, DefaultGraphBaseURL, cfg.WhatsApp.GraphBaseURL)
	require.Equal(t, DefaultRunTimeoutSecs, cfg.OpenAI.RunTimeoutSeconds)
	require.Equal(t, DefaultMaxAttempts, cfg.OpenAI.MaxAttempts)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[postgres]
host = "db.internal"
database = "relay"

[whatsapp]
phone_number_id = "123456"
verify_token = "secret"

[openai]
run_timeout_seconds = 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
	require.Equal(t, "relay", cfg.Postgres.Database)
	require.Equal(t, "123456", cfg.WhatsApp.PhoneNumberID)
	require.Equal(t, 30, cfg.OpenAI.RunTimeoutSeconds)
	// untouched sections keep their defaults
	require.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	require.Equal(t, DefaultModel, cfg.OpenAI.Model)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[openai]
run_timeout_seconds = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "pw",
		Database: "relay",
	}
	require.Equal(t, "postgres://app:pw@localhost:5432/relay?sslmode=disable", cfg.DSN())
}
