package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah-addons/providers/firestore"
	"github.com/oklahomer/go-sarah-addons/providers/memory"
	"github.com/oklahomer/go-sarah-addons/providers/sqlstore"
	"github.com/oklahomer/go-sarah-addons/providers/valkey"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/oklahomer/go-sarah/v4/slack"
	"gopkg.in/yaml.v2"
	"os"
)

const (
	providerMemory    = "memory"
	providerSQL       = "sql"
	providerValkey    = "valkey"
	providerFirestore = "firestore"
)

type providerConfig struct {
	Type      string            `yaml:"type"`
	Memory    *memory.Config    `yaml:"memory"`
	SQL       *sqlstore.Config  `yaml:"sql"`
	Valkey    *valkey.Config    `yaml:"valkey"`
	Firestore *firestore.Config `yaml:"firestore"`
}

type appConfig struct {
	CacheConfig     *sarah.CacheConfig `yaml:"cache"`
	Slack           *slack.Config      `yaml:"slack"`
	Runner          *sarah.Config      `yaml:"runner"`
	Provider        *providerConfig    `yaml:"provider"`
	PluginConfigDir string             `yaml:"plugin_config_dir"`
}

func newAppConfig() *appConfig {
	// Use constructor for each config struct, so default values are pre-set.
	return &appConfig{
		CacheConfig: sarah.NewCacheConfig(),
		Slack:       slack.NewConfig(),
		Runner:      sarah.NewConfig(),
		Provider: &providerConfig{
			Type:      providerMemory,
			Memory:    memory.NewConfig(),
			SQL:       sqlstore.NewConfig(),
			Valkey:    valkey.NewConfig(),
			Firestore: firestore.NewConfig(),
		},
	}
}

// readConfig decodes the YAML file over the defaults. An empty path leaves the defaults as-is.
func readConfig(path string) (*appConfig, error) {
	config := newAppConfig()
	if path == "" {
		return config, nil
	}

	configBody, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = yaml.Unmarshal(configBody, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}

// loadEnv reads variables from the given .env files. A missing file is not an error.
func loadEnv(files ...string) {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			logger.Warnf("Failed to load %s: %s", file, err.Error())
		}
	}
}

// applyEnv lets environment variables override secrets in the file.
func applyEnv(config *appConfig, getenv func(string) string) {
	if v := getenv("SLACK_TOKEN"); v != "" {
		config.Slack.Token = v
	}

	if v := getenv("FIREBASE_PROJECT"); v != "" {
		config.Provider.Firestore.ProjectID = v
	}

	if v := getenv("FIREBASE_EMAIL"); v != "" {
		config.Provider.Firestore.ClientEmail = v
	}

	if v := getenv("FIREBASE_KEY"); v != "" {
		config.Provider.Firestore.PrivateKey = v
	}
}
