package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeLicenseYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "license.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSwitchConfigDefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	v.SetConfigName("license")
	v.SetConfigType("yml")
	v.AddConfigPath(t.TempDir())

	holder, err := newSwitchConfigHolder(v, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultSwitchConfig(), holder.Get())
}

func TestSwitchConfigFromFile(t *testing.T) {
	path := writeLicenseYAML(t, `
subscription:
  switch:
    mode: Saga
    timeout: 3s
    lockTTL: 5s
    compensationTimeout: 1500ms
`)
	v := viper.New()
	v.SetConfigFile(path)

	holder, err := newSwitchConfigHolder(v, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, SwitchModeSaga, cfg.Mode)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.CompensationTimeout)
	assert.False(t, cfg.Atomic())
}

func TestSwitchConfigRejectsUnknownMode(t *testing.T) {
	path := writeLicenseYAML(t, `
subscription:
  switch:
    mode: two-phase
`)
	v := viper.New()
	v.SetConfigFile(path)

	_, err := newSwitchConfigHolder(v, zap.NewNop())
	require.Error(t, err)
}

func TestSwitchConfigPartialFileKeepsDefaults(t *testing.T) {
	path := writeLicenseYAML(t, `
subscription:
  switch:
    mode: procedure
`)
	v := viper.New()
	v.SetConfigFile(path)

	holder, err := newSwitchConfigHolder(v, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.True(t, cfg.Atomic())
	assert.Equal(t, DefaultSwitchConfig().Timeout, cfg.Timeout)
	assert.Equal(t, DefaultSwitchConfig().LockTTL, cfg.LockTTL)
}

func TestSwitchConfigRejectsLeaseShorterThanSwitch(t *testing.T) {
	path := writeLicenseYAML(t, `
subscription:
  switch:
    timeout: 10s
    lockTTL: 1s
`)
	v := viper.New()
	v.SetConfigFile(path)

	_, err := newSwitchConfigHolder(v, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lockTTL")

	cfg := DefaultSwitchConfig()
	cfg.LockTTL = cfg.Timeout + cfg.CompensationTimeout
	assert.NoError(t, validateSwitchConfig(cfg))
	cfg.LockTTL -= time.Millisecond
	assert.Error(t, validateSwitchConfig(cfg))
}

func TestSwitchConfigReloadKeepsRunningMode(t *testing.T) {
	holder := NewStaticSwitchConfigHolder(DefaultSwitchConfig())

	updated := DefaultSwitchConfig()
	updated.Mode = SwitchModeSaga
	updated.Timeout = 4 * time.Second

	applied := holder.reload(updated, zap.NewNop())
	assert.Equal(t, SwitchModeTransaction, applied.Mode)
	assert.Equal(t, 4*time.Second, applied.Timeout)
	assert.Equal(t, applied, holder.Get())
	assert.True(t, holder.Get().Atomic())
}
