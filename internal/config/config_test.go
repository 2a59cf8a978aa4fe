package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "seed", cfg.Catalog.Source)
	assert.Equal(t, "cart_session", cfg.Cart.CookieName)
	assert.False(t, cfg.Database.HasDatabase())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yml")
	doc := `
server:
  port: "9000"
cache:
  ttl: 10s
cart:
  merge_policy: replace
catalog:
  source: file
  file: /srv/catalog.yml
  watch: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("CART_IDLE_TTL", "30m")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "env wins over file")
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "replace", cfg.Cart.MergePolicy)
	assert.Equal(t, 30*time.Minute, cfg.Cart.IdleTTL)
	assert.Equal(t, "/srv/catalog.yml", cfg.Catalog.File)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, 60, cfg.Database.MaxOpenConns, "bad numbers keep the default")
	assert.Equal(t, "8080", DefaultConfig().Server.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown source":    func(c *Config) { c.Catalog.Source = "ftp" },
		"file without path": func(c *Config) { c.Catalog.Source = "file" },
		"zero idle ttl":     func(c *Config) { c.Cart.IdleTTL = 0 },
		"no workers":        func(c *Config) { c.Leads.Workers = 0 },
		"smtp without to":   func(c *Config) { c.Leads.SMTP.Host = "smtp.example.com" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	d := DefaultConfig().Database
	d.Host = "db"
	assert.True(t, d.HasDatabase())
	assert.Equal(t, "postgres://postgres:postgres@db:5432/horeca_storefront?sslmode=disable", d.DSN())

	d.URL = "postgres://u:p@h/x"
	assert.Equal(t, "postgres://u:p@h/x", d.DSN())
}
