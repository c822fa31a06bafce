package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config is the optional YAML file. Command line flags take precedence.
type config struct {
	// Dir holds the installed tools.
	Dir string `yaml:"dir"`
	// ADB and Fastboot override the tool paths found in Dir.
	ADB      string `yaml:"adb"`
	Fastboot string `yaml:"fastboot"`
	// Source is where install-tools copies the tools from.
	Source string `yaml:"source"`
	// Debug is nil when not set, so that --no-debug can override the file.
	Debug *bool `yaml:"debug"`
}

func (cfg config) debug() bool {
	return cfg.Debug != nil && *cfg.Debug
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".adbexec", "config.yaml")
}

// loadConfig reads the file at path. A missing file is only an error if
// required is set.
func loadConfig(path string, required bool) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrap(err, "error reading config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "error parsing config %s", path)
	}
	return cfg, nil
}

// merge fills the zero fields of cfg with defaults.
func (cfg config) merge(defaults config) config {
	if cfg.Dir == "" {
		cfg.Dir = defaults.Dir
	}
	if cfg.ADB == "" {
		cfg.ADB = defaults.ADB
	}
	if cfg.Fastboot == "" {
		cfg.Fastboot = defaults.Fastboot
	}
	if cfg.Source == "" {
		cfg.Source = defaults.Source
	}
	if cfg.Debug == nil {
		cfg.Debug = defaults.Debug
	}
	return cfg
}
