// Package config resolves runtime settings from defaults, an optional YAML
// file, SUBLINK_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/group"
	"github.com/provolone8305/sublink-worker/internal/label"
	"github.com/provolone8305/sublink-worker/internal/ruleset"
)

const EnvPrefix = "SUBLINK"

type Config struct {
	Server struct {
		Listen            string        `mapstructure:"listen"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
		ConvertTimeout    time.Duration `mapstructure:"convert_timeout"`
		FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Build struct {
		Language        string   `mapstructure:"language"`
		Categories      []string `mapstructure:"categories"`
		CatalogFile     string   `mapstructure:"catalog_file"`
		SiteRuleBaseURL string   `mapstructure:"site_rule_base_url"`
		IPRuleBaseURL   string   `mapstructure:"ip_rule_base_url"`
		RuleSetInterval int      `mapstructure:"rule_set_interval"`
		ProbeURL        string   `mapstructure:"probe_url"`
		ProbeInterval   int      `mapstructure:"probe_interval"`
	} `mapstructure:"build"`
}

// flagKeys maps command-line flag names to config keys. Only flags present in
// the given set are bound.
var flagKeys = map[string]string{
	"listen":              "server.listen",
	"read-header-timeout": "server.read_header_timeout",
	"convert-timeout":     "server.convert_timeout",
	"fetch-timeout":       "server.fetch_timeout",
	"shutdown-timeout":    "server.shutdown_timeout",
	"db":                  "database.path",
	"log-level":           "logging.level",
	"log-format":          "logging.format",
	"lang":                "build.language",
	"catalog":             "build.catalog_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.convert_timeout", 60*time.Second)
	v.SetDefault("server.fetch_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", defaultDBPath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("build.language", label.DefaultLang)
	v.SetDefault("build.categories", category.DefaultSelection)
	v.SetDefault("build.catalog_file", "")
	v.SetDefault("build.site_rule_base_url", ruleset.DefaultSiteBaseURL)
	v.SetDefault("build.ip_rule_base_url", ruleset.DefaultIPBaseURL)
	v.SetDefault("build.rule_set_interval", ruleset.DefaultInterval)
	v.SetDefault("build.probe_url", group.DefaultProbeURL)
	v.SetDefault("build.probe_interval", group.DefaultProbeInterval)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sublink.db"
	}
	return filepath.Join(dir, "sublink", "sublink.db")
}

// Load resolves the configuration. cfgFile may be empty, in which case
// sublink.yaml is looked up in the working directory and the user config
// directory; a missing file is not an error. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
	} else {
		v.SetConfigName("sublink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "sublink"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// AutomaticEnv yields a single string for list keys.
	cfg.Build.Categories = splitList(cfg.Build.Categories)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.Build.RuleSetInterval <= 0 {
		return fmt.Errorf("build.rule_set_interval must be > 0, got %d", c.Build.RuleSetInterval)
	}
	if c.Build.ProbeInterval <= 0 {
		return fmt.Errorf("build.probe_interval must be > 0, got %d", c.Build.ProbeInterval)
	}
	return nil
}

// RuleSetOptions returns the provider settings for a build.
func (c *Config) RuleSetOptions() ruleset.Options {
	return ruleset.Options{
		SiteBaseURL: c.Build.SiteRuleBaseURL,
		IPBaseURL:   c.Build.IPRuleBaseURL,
		IntervalSec: c.Build.RuleSetInterval,
	}
}

// AutoOptions returns the auto-select probe settings for a build.
func (c *Config) AutoOptions() group.AutoOptions {
	return group.AutoOptions{
		ProbeURL:    c.Build.ProbeURL,
		IntervalSec: c.Build.ProbeInterval,
	}
}

// Catalog returns the built-in category catalog, extended by the configured
// catalog file when one is set.
func (c *Config) Catalog() (*category.Catalog, error) {
	return category.LoadCatalog(c.Build.CatalogFile)
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
