package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[server]
addr = "127.0.0.1:8080"

[database]
driver = "mysql"
dsn = "user:pass@tcp(db:3306)/adaptbtc?parseTime=True"
slave_addr = ["replica:3306"]

[exchange]
enable_hyperliquid = true
stream_interval = "5s"

[rate_limit]
requests_per_sec = 2.5
burst = 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	require.NoError(t, Load(path))
	c := Get()

	assert.Equal(t, "127.0.0.1:8080", c.Server.Addr)
	assert.Equal(t, "0.0.0.0:16800", c.Server.HealthAddr, "unset keys keep defaults")
	assert.Equal(t, "mysql", c.Database.Driver)
	assert.Equal(t, []string{"replica:3306"}, c.Database.SlaveAddr)
	assert.True(t, c.Exchange.EnableHyperliquid)
	assert.Equal(t, 5*time.Second, c.Exchange.StreamInterval)
	assert.Equal(t, 2.5, c.RateLimit.RequestsPerSec)
	assert.Equal(t, 4, c.RateLimit.Burst)
	assert.Equal(t, "adaptbtc.consulting_request", c.NATS.Subject)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv(EnvHTTPAddr, "0.0.0.0:9000")
	t.Setenv(EnvNATSURL, "nats://bus:4222")
	t.Setenv(EnvLogLevel, "debug")

	require.NoError(t, Load(path))
	c := Get()

	assert.Equal(t, "0.0.0.0:9000", c.Server.Addr)
	assert.Equal(t, "nats://bus:4222", c.NATS.Endpoint)
	assert.True(t, c.NATS.Enabled)
	assert.Equal(t, "debug", c.Logger.Level)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "[server\naddr = ")
	assert.Error(t, Load(path))

	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	require.NoError(t, Load(""))
	assert.Equal(t, Default().Server.Addr, Get().Server.Addr)
}

func TestReloadIfNeeded(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	require.NoError(t, Load(path))

	updated := `
[server]
addr = "127.0.0.1:7070"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	reloadIfNeeded()

	assert.Equal(t, "127.0.0.1:7070", Get().Server.Addr)
}

func TestReload_NotifiesHooks(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"info\"\n")
	require.NoError(t, Load(path))

	var levels []string
	OnReload(func(c *Config) { levels = append(levels, c.Logger.Level) })
	t.Cleanup(func() {
		hookLock.Lock()
		reloadHooks = nil
		hookLock.Unlock()
	})

	// 未修改不触发
	reloadIfNeeded()
	assert.Empty(t, levels)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	reloadIfNeeded()
	assert.Equal(t, []string{"debug"}, levels)
	assert.Equal(t, "debug", Get().Logger.Level)
}
