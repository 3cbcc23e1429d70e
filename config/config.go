package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int    `yaml:"port"`
		CorsOrigin  string `yaml:"corsOrigin"`
		MaxClients  int    `yaml:"maxClients"`
		Environment string `yaml:"environment"`
	} `yaml:"server"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	Session struct {
		ChannelURL    string `yaml:"channelUrl"`
		EvaluationURL string `yaml:"evaluationUrl"`
		Language      string `yaml:"language"`
	} `yaml:"session"`
}

// LoadConfig reads the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = 10
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Session.Language == "" {
		cfg.Session.Language = "javascript"
	}

	return &cfg, nil
}
