package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "LAUNCHBOARD"
	defaultHTTPAddress   = "0.0.0.0:5464"
	defaultDatabasePath  = "data/shortcuts.db"
	defaultStaticDir     = "dist"
	defaultLogLevel      = "info"
	defaultRetentionDays = 30
	defaultAdminUsername = "admin"
	defaultAdminPassword = "miniappadmin"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress           string
	DatabasePath          string
	StaticDir             string
	LogLevel              string
	ClickLogRetentionDays int
	AdminUsername         string
	AdminPassword         string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("static.dir", defaultStaticDir)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("retention.click_log_days", defaultRetentionDays)
	configViper.SetDefault("admin.username", defaultAdminUsername)
	configViper.SetDefault("admin.password", defaultAdminPassword)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           configViper.GetString("http.address"),
		DatabasePath:          configViper.GetString("database.path"),
		StaticDir:             configViper.GetString("static.dir"),
		LogLevel:              configViper.GetString("log.level"),
		ClickLogRetentionDays: configViper.GetInt("retention.click_log_days"),
		AdminUsername:         configViper.GetString("admin.username"),
		AdminPassword:         configViper.GetString("admin.password"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("admin.username is required")
	}
	if c.ClickLogRetentionDays < 0 {
		return fmt.Errorf("retention.click_log_days must not be negative")
	}
	return nil
}
