package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peteski22/steward/internal/agent"
)

const (
	configDirName  = ".steward"
	configFileName = "config.yaml"
	stateFileName  = "state.yaml"
)

// LocalConfig holds configuration loaded from a local file.
type LocalConfig struct {
	// AI contains personalised message generation settings. The API key is stored inline.
	AI LocalAI

	// Agents are the parsed and validated agent configurations.
	Agents []agent.Config

	// Church contains the tenant identity.
	Church Church

	// ChurchAPI contains church data platform credentials.
	ChurchAPI LocalService

	// Messaging contains messaging gateway credentials.
	Messaging LocalMessaging
}

// LocalAI holds AI provider settings from the config file.
type LocalAI struct {
	APIKey   string
	Model    string
	Provider string
}

// LocalMessaging holds messaging gateway settings from the config file.
type LocalMessaging struct {
	LocalService

	FromEmail  string
	FromNumber string
}

// LocalService holds the credentials of an HTTP service from the config file.
type LocalService struct {
	APIKey  string
	BaseURL string
}

// localAI represents the ai section of the config file.
type localAI struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
}

// localChurch represents the church section of the config file.
type localChurch struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// localConfig represents the local configuration file structure.
type localConfig struct {
	AI        localAI         `yaml:"ai"`
	Agents    []agentDocument `yaml:"agents"`
	Church    localChurch     `yaml:"church"`
	ChurchAPI localService    `yaml:"church_api"`
	Messaging localMessaging  `yaml:"messaging"`
}

// localMessaging represents the messaging section of the config file.
type localMessaging struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	FromEmail  string `yaml:"from_email"`
	FromNumber string `yaml:"from_number"`
}

// localService represents an HTTP service section of the config file.
type localService struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ConfigDir returns the steward configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigFilePath returns the path to the local config file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadLocal loads configuration from the local config file.
func LoadLocal(now time.Time) (*LocalConfig, error) {
	configPath, err := ConfigFilePath()
	if err != nil {
		return nil, err
	}
	return LoadLocalFile(configPath, now)
}

// LoadLocalFile loads configuration from the given file.
func LoadLocalFile(configPath string, now time.Time) (*LocalConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run 'steward init' to create)", configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var local localConfig
	if err := yaml.Unmarshal(data, &local); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &LocalConfig{
		AI: LocalAI{
			APIKey:   local.AI.APIKey,
			Model:    local.AI.Model,
			Provider: local.AI.Provider,
		},
		Church: Church{
			ID:       local.Church.ID,
			Name:     local.Church.Name,
			Timezone: local.Church.Timezone,
		},
		ChurchAPI: LocalService{
			APIKey:  local.ChurchAPI.APIKey,
			BaseURL: local.ChurchAPI.BaseURL,
		},
		Messaging: LocalMessaging{
			LocalService: LocalService{
				APIKey:  local.Messaging.APIKey,
				BaseURL: local.Messaging.BaseURL,
			},
			FromEmail:  local.Messaging.FromEmail,
			FromNumber: local.Messaging.FromNumber,
		},
	}

	if cfg.Church.Timezone == "" {
		cfg.Church.Timezone = defaultTimezone
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	agents, err := buildAgents(local.Agents, cfg.Church.Name, now)
	if err != nil {
		return nil, fmt.Errorf("invalid agents: %w", err)
	}
	cfg.Agents = agents

	return cfg, nil
}

// LocalConfigExists checks if a local config file exists.
func LocalConfigExists() bool {
	configPath, err := ConfigFilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(configPath)
	return err == nil
}

// StateFilePath returns the path to the local scheduling state file.
func StateFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// validate checks that required fields are set.
func (c *LocalConfig) validate() error {
	var errs []error

	if c.Church.ID == "" {
		errs = append(errs, errors.New("church.id is required"))
	}
	if c.Church.Name == "" {
		errs = append(errs, errors.New("church.name is required"))
	}
	if _, err := c.Church.Location(); err != nil {
		errs = append(errs, fmt.Errorf("church.timezone: %w", err))
	}
	if c.ChurchAPI.APIKey == "" {
		errs = append(errs, errors.New("church_api.api_key is required"))
	}
	if c.Messaging.APIKey == "" {
		errs = append(errs, errors.New("messaging.api_key is required"))
	}
	if err := validateProvider(c.AI.Provider); err != nil {
		errs = append(errs, fmt.Errorf("ai.provider: %w", err))
	}
	if c.AI.Provider != "" && c.AI.APIKey == "" {
		errs = append(errs, errors.New("ai.api_key is required when ai.provider is set"))
	}

	return errors.Join(errs...)
}
