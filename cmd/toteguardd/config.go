package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"toteguard.dev/config"
)

// loadConfig decodes a TOML file at path into a config.Config, seeded with
// config.Default() so any field the file omits keeps its documented
// default.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return config.Config{}, fmt.Errorf("toteguardd: load config %s: %w", path, err)
	}
	return cfg, nil
}
