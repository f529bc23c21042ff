package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TierConfig maps a subscription status to its daily question allowance.
type TierConfig struct {
	FreeDailyLimit   int `mapstructure:"freeDailyLimit"`
	ActiveDailyLimit int `mapstructure:"activeDailyLimit"`
	LapsedDailyLimit int `mapstructure:"lapsedDailyLimit"`
}

func DefaultTierConfig() TierConfig {
	return TierConfig{
		FreeDailyLimit:   5,
		ActiveDailyLimit: 100,
		LapsedDailyLimit: 5,
	}
}

// TierConfigHolder serves the current tier limits and hot-reloads them from
// tiers.yml when the file changes.
type TierConfigHolder struct {
	current atomic.Value // holds TierConfig
}

func NewTierConfigHolder() (*TierConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("tiers")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tutor/config")
	v.AddConfigPath("/etc/tutor")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultTierConfig()
		v.SetDefault("tiers.freeDailyLimit", defaults.FreeDailyLimit)
		v.SetDefault("tiers.activeDailyLimit", defaults.ActiveDailyLimit)
		v.SetDefault("tiers.lapsedDailyLimit", defaults.LapsedDailyLimit)
	}

	var cfg TierConfig
	if err := v.UnmarshalKey("tiers", &cfg); err != nil {
		return nil, err
	}
	if err := validateTierConfig(cfg); err != nil {
		return nil, err
	}

	holder := &TierConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TierConfig
		if err := v.UnmarshalKey("tiers", &updated); err != nil {
			log.Printf("[tier-config] reload failed: %v", err)
			return
		}
		if err := validateTierConfig(updated); err != nil {
			log.Printf("[tier-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tier-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticTierConfigHolder wraps a fixed config, for tests.
func NewStaticTierConfigHolder(cfg TierConfig) *TierConfigHolder {
	holder := &TierConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// Current returns the limits as of the last successful load.
func (h *TierConfigHolder) Current() TierConfig {
	return h.current.Load().(TierConfig)
}

func validateTierConfig(cfg TierConfig) error {
	if cfg.FreeDailyLimit <= 0 {
		return errors.New("tiers.freeDailyLimit must be positive")
	}
	if cfg.ActiveDailyLimit <= 0 {
		return errors.New("tiers.activeDailyLimit must be positive")
	}
	if cfg.LapsedDailyLimit <= 0 {
		return errors.New("tiers.lapsedDailyLimit must be positive")
	}
	return nil
}
