package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points every config source at a fresh temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, k := range []string{
		"GYMTRACK_API_URL", "GYMTRACK_REQUEST_TIMEOUT", "GYMTRACK_RATE_LIMIT",
		"GYMTRACK_RATE_BURST", "GYMTRACK_CATALOG_CACHE_TTL", "GYMTRACK_CONFIG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("GYMTRACK_CONFIG_DIR", filepath.Join(dir, "cfg"))
	return dir
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:3333", cfg.APIURL)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Zero(t, cfg.RateLimit)
	require.Equal(t, 5, cfg.RateBurst)
	require.Equal(t, filepath.Join(dir, "cfg"), cfg.ConfigDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GYMTRACK_API_URL", "https://api.gym.example.com")
	t.Setenv("GYMTRACK_REQUEST_TIMEOUT", "3s")
	t.Setenv("GYMTRACK_RATE_LIMIT", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://api.gym.example.com", cfg.APIURL)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, 2.5, cfg.RateLimit)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	p := writeFile(t, dir, "gym.yaml", `
api_url: "https://file.example.com"
catalog_cache_ttl: "1m"
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com", cfg.APIURL)
	require.Equal(t, time.Minute, cfg.CatalogCacheTTL)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := isolate(t)
	p := writeFile(t, dir, "gym.yaml", `api_url: "https://file.example.com"`)
	t.Setenv("GYMTRACK_API_URL", "https://env.example.com")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.APIURL)
}

func TestLoad_ConfigDirFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "cfg/config.yaml", `api_url: "https://dir.example.com"`)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://dir.example.com", cfg.APIURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".env", "GYMTRACK_API_URL=https://dotenv.example.com\n")
	t.Cleanup(func() { os.Unsetenv("GYMTRACK_API_URL") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://dotenv.example.com", cfg.APIURL)
}

func TestValidate(t *testing.T) {
	base := Config{APIURL: "http://localhost:3333", RequestTimeout: time.Second, RateBurst: 1}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://x" }},
		{"no host", func(c *Config) { c.APIURL = "http://" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"rate without burst", func(c *Config) { c.RateLimit = 1; c.RateBurst = 0 }},
		{"negative ttl", func(c *Config) { c.CatalogCacheTTL = -time.Second }},
	}

	require.NoError(t, base.Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
