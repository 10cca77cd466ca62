package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the optional per-project sagara.yaml. Zero values fall back
// to defaults.
type Config struct {
	PackagesRoot string   `yaml:"packages_root"`
	ModulePaths  []string `yaml:"module_paths"`
	NoColor      bool     `yaml:"no_color"`
}

// Load reads dir/sagara.yaml. A missing file is not an error and yields
// defaults.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PackagesRoot == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.PackagesRoot = filepath.Join(home, DefaultPackagesDir)
		}
	}
}
