package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// AppConfig is the application-level settings document (config/app.yaml).
type AppConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Paths struct {
		Scenarios   string `yaml:"scenarios"`
		Annotations string `yaml:"annotations"`
		Thresholds  string `yaml:"thresholds"`
	} `yaml:"paths"`
	Forecast struct {
		HorizonMonths int `yaml:"horizon_months"`
	} `yaml:"forecast"`
}

// LoadAppConfig reads the YAML settings file and applies defaults and
// environment overrides. DATABASE_URL always wins over the file, so deploys
// can keep credentials out of the config document.
func LoadAppConfig(path string) (AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Forecast.HorizonMonths == 0 {
		cfg.Forecast.HorizonMonths = 12
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	return cfg, nil
}
