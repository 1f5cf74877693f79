package main

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// config mirrors the flags for deployments that keep their settings in a
// file. Flags win over the file, the file wins over the environment.
type config struct {
	BaseURL      string `yaml:"base_url"`
	AccessToken  string `yaml:"access_token"`
	TokenInQuery bool   `yaml:"token_in_query"`
	Prefix       string `yaml:"prefix"`
	Parallel     int    `yaml:"parallel"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	// a .env next to the binary may carry the secret bits
	godotenv.Load()
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("REPO_BASE_URL")
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("REPO_ACCESS_TOKEN")
	}
	return cfg, nil
}
