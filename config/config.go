// Package config loads application settings from a config file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/tim-projects/otpkit/category"
)

const envPrefix string = "OTPKIT"

type Notifications struct {
	CodeExpiry         bool `mapstructure:"codeExpiry"`
	EmailVerifications bool `mapstructure:"emailVerifications"`
	SyncStatus         bool `mapstructure:"syncStatus"`
}

// AppSettings are the user-facing preferences.
type AppSettings struct {
	Theme           string            `mapstructure:"theme" validate:"oneof=light dark auto"`
	AutoLock        bool              `mapstructure:"autoLock"`
	AutoLockTimeout int               `mapstructure:"autoLockTimeout" validate:"min=1,max=60"` // minutes
	BiometricAuth   bool              `mapstructure:"biometricAuth"`
	ShowCodes       bool              `mapstructure:"showCodes"`
	DefaultCategory category.Category `mapstructure:"defaultCategory" validate:"required"`
	SyncEnabled     bool              `mapstructure:"syncEnabled"`
	SyncProvider    string            `mapstructure:"syncProvider" validate:"omitempty,oneof=webdav icloud gdrive dropbox"`
	SyncURL         string            `mapstructure:"syncUrl" validate:"omitempty,url"`
	Notifications   Notifications     `mapstructure:"notifications"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type Config struct {
	Settings AppSettings `mapstructure:"settings"`
	Log      Log         `mapstructure:"log"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.theme", "auto")
	v.SetDefault("settings.autoLock", true)
	v.SetDefault("settings.autoLockTimeout", 5)
	v.SetDefault("settings.biometricAuth", false)
	v.SetDefault("settings.showCodes", true)
	v.SetDefault("settings.defaultCategory", string(category.Other))
	v.SetDefault("settings.syncEnabled", false)
	v.SetDefault("settings.syncProvider", "")
	v.SetDefault("settings.syncUrl", "")
	v.SetDefault("settings.notifications.codeExpiry", true)
	v.SetDefault("settings.notifications.emailVerifications", true)
	v.SetDefault("settings.notifications.syncStatus", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the config file at path, if any, then applies OTPKIT_
// environment overrides (settings.showCodes -> OTPKIT_SETTINGS_SHOWCODES).
func Load(path string) (*Config, error) {
	var v *viper.Viper = viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every setting is in range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("config: %s failed on %s", fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}

		return fmt.Errorf("config: %w", err)
	}

	if c.Settings.SyncEnabled && c.Settings.SyncProvider == "" {
		return fmt.Errorf("config: sync enabled without a provider")
	}

	if dc := c.Settings.DefaultCategory; !dc.Valid() || dc == category.All {
		return fmt.Errorf("config: unsupported default category %q", dc)
	}

	return nil
}
