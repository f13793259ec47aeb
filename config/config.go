package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type API struct {
	BaseURL string `yaml:"baseURL"`
	Timeout string `yaml:"timeout"` // "10s"
}

type Realtime struct {
	URL string `yaml:"url"` // ws://host/ws
}

type Cache struct {
	Path string `yaml:"path"`
}

type Auth struct {
	AccessToken string `yaml:"accessToken"`
	IDToken     string `yaml:"idToken"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // codeshare
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	API      API      `yaml:"api"`
	Realtime Realtime `yaml:"realtime"`
	Cache    Cache    `yaml:"cache"`
	Auth     Auth     `yaml:"auth"`
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" && c.Realtime.URL != "" {
		return errors.New("api.baseURL is required when realtime.url is set")
	}
	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "recent_rooms.json"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "codeshare"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// APITimeout — таймаут REST-клиента с дефолтом.
func (c *Config) APITimeout() time.Duration {
	return parseDurationOr(10*time.Second, c.API.Timeout)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
