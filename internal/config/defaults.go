package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TenantDefaults is the settings seed applied to every new tenant.
type TenantDefaults struct {
	Settings map[string]any `mapstructure:"settings"`
}

func DefaultTenantDefaults() TenantDefaults {
	return TenantDefaults{
		Settings: map[string]any{
			"company_name":             "",
			"company_address":          "",
			"company_email":            "",
			"company_phone":            "",
			"company_currency":         "USD",
			"company_currency_symbol":  "$",
			"date_format":              "DD/MM/YYYY",
			"default_tax_rate":         20,
			"default_payment_terms":    14,
			"default_invoice_due_days": 30,
			"default_quote_valid_days": 30,
			"last_invoice_number":      0,
			"last_quote_number":        0,
			"last_payment_number":      0,
		},
	}
}

type DefaultsHolder struct {
	current atomic.Value // holds TenantDefaults
}

// NewDefaultsHolder reads defaults.yml and keeps it current while the
// process runs. A missing file falls back to built-in defaults.
func NewDefaultsHolder(cfg Config) (*DefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("defaults")
	v.SetConfigType("yml")
	if path := strings.TrimSpace(cfg.DefaultsPath); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("/etc/tenantdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TENANTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
		v.SetDefault("tenant.settings", DefaultTenantDefaults().Settings)
	}

	var defaults TenantDefaults
	if err := v.UnmarshalKey("tenant", &defaults); err != nil {
		return nil, err
	}
	if err := validateTenantDefaults(defaults); err != nil {
		return nil, err
	}

	holder := &DefaultsHolder{}
	holder.current.Store(defaults)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated TenantDefaults
			if err := v.UnmarshalKey("tenant", &updated); err != nil {
				log.Printf("[tenant-defaults] reload failed: %v", err)
				return
			}
			if err := validateTenantDefaults(updated); err != nil {
				log.Printf("[tenant-defaults] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[tenant-defaults] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// NewStaticDefaultsHolder wraps fixed defaults, mostly for tests.
func NewStaticDefaultsHolder(defaults TenantDefaults) *DefaultsHolder {
	holder := &DefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func (h *DefaultsHolder) Get() TenantDefaults {
	return h.current.Load().(TenantDefaults)
}

func validateTenantDefaults(d TenantDefaults) error {
	for key := range d.Settings {
		if strings.TrimSpace(key) == "" {
			return errors.New("tenant.settings cannot contain an empty key")
		}
	}
	return nil
}
