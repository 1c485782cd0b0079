package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Switch modes select how a subscription switch reaches the store.
const (
	SwitchModeProcedure   = "procedure"
	SwitchModeTransaction = "transaction"
	SwitchModeSaga        = "saga"
)

// SwitchConfig is the policy applied to every subscription switch.
type SwitchConfig struct {
	Mode                string        `mapstructure:"mode"`
	Timeout             time.Duration `mapstructure:"timeout"`
	LockTTL             time.Duration `mapstructure:"lockTTL"`
	CompensationTimeout time.Duration `mapstructure:"compensationTimeout"`
}

func DefaultSwitchConfig() SwitchConfig {
	return SwitchConfig{
		Mode:                SwitchModeTransaction,
		Timeout:             10 * time.Second,
		LockTTL:             15 * time.Second,
		CompensationTimeout: 5 * time.Second,
	}
}

// Atomic reports whether the mode prefers a single-unit store primitive.
func (c SwitchConfig) Atomic() bool {
	return c.Mode == SwitchModeProcedure || c.Mode == SwitchModeTransaction
}

type SwitchConfigHolder struct {
	current atomic.Value // holds SwitchConfig
}

// NewSwitchConfigHolder reads license.yml and keeps watching it. A missing
// file falls back to DefaultSwitchConfig.
func NewSwitchConfigHolder(log *zap.Logger) (*SwitchConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("license")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/shopdesk")
	v.AddConfigPath(".")

	return newSwitchConfigHolder(v, log)
}

// NewStaticSwitchConfigHolder pins a policy that never reloads.
func NewStaticSwitchConfigHolder(cfg SwitchConfig) *SwitchConfigHolder {
	holder := &SwitchConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func newSwitchConfigHolder(v *viper.Viper, log *zap.Logger) (*SwitchConfigHolder, error) {
	v.SetEnvPrefix("SHOPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSwitchConfig()
	v.SetDefault("subscription.switch.mode", defaults.Mode)
	v.SetDefault("subscription.switch.timeout", defaults.Timeout)
	v.SetDefault("subscription.switch.lockTTL", defaults.LockTTL)
	v.SetDefault("subscription.switch.compensationTimeout", defaults.CompensationTimeout)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	cfg, err := decodeSwitchConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &SwitchConfigHolder{}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeSwitchConfig(v)
			if err != nil {
				log.Warn("switch policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			updated = holder.reload(updated, log)
			log.Info("switch policy reloaded",
				zap.String("file", e.Name),
				zap.String("mode", updated.Mode),
				zap.Duration("timeout", updated.Timeout),
			)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *SwitchConfigHolder) Get() SwitchConfig {
	return h.current.Load().(SwitchConfig)
}

// reload stores updated but keeps the running mode. The active-subscription
// index is created or dropped for the mode at startup, so a mode change only
// takes effect after a restart.
func (h *SwitchConfigHolder) reload(updated SwitchConfig, log *zap.Logger) SwitchConfig {
	running := h.Get().Mode
	if updated.Mode != running {
		log.Warn("switch mode change ignored until restart",
			zap.String("running", running),
			zap.String("requested", updated.Mode),
		)
		updated.Mode = running
	}
	h.current.Store(updated)
	return updated
}

func decodeSwitchConfig(v *viper.Viper) (SwitchConfig, error) {
	var file struct {
		Subscription struct {
			Switch SwitchConfig `mapstructure:"switch"`
		} `mapstructure:"subscription"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return SwitchConfig{}, err
	}
	cfg := file.Subscription.Switch
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if err := validateSwitchConfig(cfg); err != nil {
		return SwitchConfig{}, err
	}
	return cfg, nil
}

func validateSwitchConfig(cfg SwitchConfig) error {
	switch cfg.Mode {
	case SwitchModeProcedure, SwitchModeTransaction, SwitchModeSaga:
	default:
		return fmt.Errorf("subscription.switch.mode %q is not one of procedure, transaction, saga", cfg.Mode)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("subscription.switch.timeout must be positive")
	}
	if cfg.LockTTL <= 0 {
		return fmt.Errorf("subscription.switch.lockTTL must be positive")
	}
	if cfg.CompensationTimeout <= 0 {
		return fmt.Errorf("subscription.switch.compensationTimeout must be positive")
	}
	// the lease is held through the switch and its detached compensation
	if held := cfg.Timeout + cfg.CompensationTimeout; cfg.LockTTL < held {
		return fmt.Errorf("subscription.switch.lockTTL %s is shorter than timeout plus compensationTimeout (%s)", cfg.LockTTL, held)
	}
	return nil
}
