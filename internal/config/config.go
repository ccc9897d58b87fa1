package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration. Every field has a sensible
// default so the server runs with no config file at all.
type Config struct {
	Port         int    `yaml:"port"`
	DBPath       string `yaml:"db_path"`
	CompanyName  string `yaml:"company_name"`
	CompanyEmail string `yaml:"company_email"`
}

// Load reads the YAML config at path, applying defaults and
// DEPOT_COMPANY_NAME / DEPOT_COMPANY_EMAIL env overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:         9000,
		DBPath:       "depot.db",
		CompanyName:  "Your Company",
		CompanyEmail: "admin@example.com",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if v := os.Getenv("DEPOT_COMPANY_NAME"); v != "" {
		cfg.CompanyName = v
	}
	if v := os.Getenv("DEPOT_COMPANY_EMAIL"); v != "" {
		cfg.CompanyEmail = v
	}
	return cfg, nil
}
