package config

import (
	"fmt"
	"os"

	"github.com/BDNK1/httpdiff/errclass"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a declarative config file, the way the teacher's
// cli/internal/config.Load reads flow-config.yaml: read bytes, apply
// struct-tag defaults, yaml.Unmarshal over them (so a value written in the
// file, including false or 0, replaces its default), then run Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.InvalidConfig(fmt.Sprintf("config file not found: %s", path))
		}
		return nil, errclass.IOError(fmt.Errorf("reading config %s: %w", path, err))
	}

	var cfg Config
	if err := defaults.Set(&cfg.Global); err != nil {
		return nil, errclass.InvalidConfig(fmt.Sprintf("applying defaults: %v", err))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errclass.InvalidConfig(fmt.Sprintf("parsing config %s: %v", path, err))
	}

	if len(cfg.Global.IgnoredHeaders) == 0 {
		cfg.Global.IgnoredHeaders = append([]string(nil), DefaultIgnoredHeaders...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
