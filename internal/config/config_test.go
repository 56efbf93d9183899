package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomigrate/internal/config"
	"github.com/jonesrussell/gomigrate/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))

	require.NoError(t, err)
	assert.Equal(t, "gomigrate.db", cfg.Migration.StorePath)
	assert.Equal(t, 8, cfg.Migration.Concurrency)
	assert.True(t, cfg.Migration.MigrateDNS)
	assert.False(t, cfg.Migration.Proxied)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
source:
  api_key: key
  api_secret: secret
dest:
  api_token: token
  account_id: acct-1
migration:
  concurrency: 4
  migrate_dns: false
registrant:
  first_name: Ada
  last_name: Lovelace
  email: ada@example.com
`))

	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Source.APIKey)
	assert.Equal(t, "token", cfg.Dest.APIToken)
	assert.Equal(t, 4, cfg.Migration.Concurrency)
	assert.False(t, cfg.Migration.MigrateDNS)
	require.NotNil(t, cfg.Registrant)
	assert.Equal(t, "ada@example.com", cfg.Registrant.Email)
	assert.True(t, cfg.HasRegistrant())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Migration.Concurrency)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GOMIGRATE_SOURCE_API_KEY", "env-key")

	cfg, err := config.Load(writeConfig(t, `
source:
  api_key: file-key
  api_secret: secret
`))

	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Source.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "complete",
			mutate: func(*config.Config) {},
		},
		{
			name:    "missing source key",
			mutate:  func(c *config.Config) { c.Source.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name:    "missing dest token",
			mutate:  func(c *config.Config) { c.Dest.APIToken = "" },
			wantErr: "api_token",
		},
		{
			name:    "missing dest account",
			mutate:  func(c *config.Config) { c.Dest.AccountID = "" },
			wantErr: "account_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Source.APIKey = "key"
			cfg.Source.APISecret = "secret"
			cfg.Dest.APIToken = "token"
			cfg.Dest.AccountID = "acct-1"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestHasRegistrantRequiresEmail(t *testing.T) {
	cfg := &config.Config{}
	assert.False(t, cfg.HasRegistrant())

	cfg.Registrant = &domain.RegistrantContact{FirstName: "Ada"}
	assert.False(t, cfg.HasRegistrant())

	cfg.Registrant.Email = "ada@example.com"
	assert.True(t, cfg.HasRegistrant())
}
