package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vulncorr/pkg/engine"
	"github.com/user/vulncorr/pkg/source"
)

type Config struct {
	ServersURL         string        `yaml:"servers_url"`
	VulnerabilitiesURL string        `yaml:"vulnerabilities_url"`
	AuthToken          string        `yaml:"auth_token"`
	PageSize           int           `yaml:"page_size"`
	StartID            int           `yaml:"start_id"`
	RulesPath          string        `yaml:"rules_path"`
	OutputPath         string        `yaml:"output_path"`
	AlertTemplate      string        `yaml:"alert_template"`
	Timeout            time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ServersURL:         "http://localhost:3000/servers",
		VulnerabilitiesURL: "http://localhost:3000/vulns",
		PageSize:           source.DefaultPageSize,
		StartID:            source.DefaultStartID,
		RulesPath:          "rules.csv",
		OutputPath:         "logfile.log",
		AlertTemplate:      engine.DefaultAlertTemplate,
		Timeout:            source.DefaultTimeout,
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".vulncorr")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// LoadConfig reads the file at path, or the default location when path is
// empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	// unset keys keep their defaults
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions, the file holds the API token
	return os.WriteFile(path, data, 0600)
}

var setters = map[string]func(c *Config, v string) error{
	"servers_url":         func(c *Config, v string) error { c.ServersURL = v; return nil },
	"vulnerabilities_url": func(c *Config, v string) error { c.VulnerabilitiesURL = v; return nil },
	"auth_token":          func(c *Config, v string) error { c.AuthToken = v; return nil },
	"rules_path":          func(c *Config, v string) error { c.RulesPath = v; return nil },
	"output_path":         func(c *Config, v string) error { c.OutputPath = v; return nil },
	"alert_template":      func(c *Config, v string) error { c.AlertTemplate = v; return nil },
	"page_size": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("page_size must be a positive integer, got %q", v)
		}
		c.PageSize = n
		return nil
	},
	"start_id": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("start_id must be an integer, got %q", v)
		}
		c.StartID = n
		return nil
	},
	"timeout": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
		return nil
	},
}

// Set updates one setting by its YAML key.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return set(c, value)
}

// Keys lists the settable keys.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
