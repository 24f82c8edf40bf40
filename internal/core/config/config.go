package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// DefaultResultTemplate renders the line printed after a successful update
const DefaultResultTemplate = `Workbook update succeeded: {{action}} Workbook Acceleration for {{path}}{{#sheet}} (sheet: {{sheet}}){{/sheet}}{{#accelerate_now}}, accelerating now{{/accelerate_now}}.`

type Config struct {
	Server         string
	Site           string
	SiteSet        bool // Site was configured, even if empty (the Default site)
	Username       string
	Password       string
	TLSCertPath    string
	LoggingLevel   string
	TokenFile      string
	HistoryDB      string
	ResultTemplate string
}

type tomlConfig struct {
	Server         string  `toml:"server"`
	Site           *string `toml:"site"`
	Username       string  `toml:"username"`
	TLSCertPath    string  `toml:"ssl_cert_pem"`
	LoggingLevel   string  `toml:"logging_level"`
	TokenFile      string  `toml:"token_file"`
	HistoryDB      string  `toml:"history_db"`
	ResultTemplate string  `toml:"result_template"`
}

// envConfig holds WBACCEL_* overrides
type envConfig struct {
	Server       string  `envconfig:"SERVER"`
	Site         *string `envconfig:"SITE"`
	Username     string  `envconfig:"USERNAME"`
	Password     string  `envconfig:"PASSWORD"`
	TLSCertPath  string  `envconfig:"SSL_CERT_PEM"`
	LoggingLevel string  `envconfig:"LOGGING_LEVEL"`
	TokenFile    string  `envconfig:"TOKEN_FILE"`
	HistoryDB    string  `envconfig:"HISTORY_DB"`
}

// Dir returns ~/.config/wbaccel, or a relative fallback when there is no home
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wbaccel"
	}
	return filepath.Join(home, ".config", "wbaccel")
}

// DefaultPath is the config file read when --config is not given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

func defaults() *Config {
	dir := Dir()
	return &Config{
		LoggingLevel:   "error",
		TokenFile:      filepath.Join(dir, "token_profile"),
		HistoryDB:      filepath.Join(dir, "history.db"),
		ResultTemplate: DefaultResultTemplate,
	}
}

// Load reads the TOML file at path (missing file means defaults) and
// applies WBACCEL_* environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(path, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.applyFile(tc)
	}

	var ec envConfig
	if err := envconfig.Process("wbaccel", &ec); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.applyEnv(ec)

	return cfg, nil
}

func (c *Config) applyFile(tc tomlConfig) {
	setIfNotEmpty(&c.Server, tc.Server)
	if tc.Site != nil {
		c.Site = *tc.Site
		c.SiteSet = true
	}
	setIfNotEmpty(&c.Username, tc.Username)
	setIfNotEmpty(&c.TLSCertPath, tc.TLSCertPath)
	setIfNotEmpty(&c.LoggingLevel, tc.LoggingLevel)
	setIfNotEmpty(&c.TokenFile, expandHome(tc.TokenFile))
	setIfNotEmpty(&c.HistoryDB, expandHome(tc.HistoryDB))
	setIfNotEmpty(&c.ResultTemplate, tc.ResultTemplate)
}

func (c *Config) applyEnv(ec envConfig) {
	setIfNotEmpty(&c.Server, ec.Server)
	if ec.Site != nil {
		c.Site = *ec.Site
		c.SiteSet = true
	}
	setIfNotEmpty(&c.Username, ec.Username)
	setIfNotEmpty(&c.Password, ec.Password)
	setIfNotEmpty(&c.TLSCertPath, ec.TLSCertPath)
	setIfNotEmpty(&c.LoggingLevel, ec.LoggingLevel)
	setIfNotEmpty(&c.TokenFile, expandHome(ec.TokenFile))
	setIfNotEmpty(&c.HistoryDB, expandHome(ec.HistoryDB))
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
