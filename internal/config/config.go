// Package config provides configuration loading from environment variables, local files and agent documents.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Lambda images do not ship zoneinfo.
)

const (
	// EnvAIAPIKeySecretARN is the Secrets Manager ARN for the AI provider API key.
	EnvAIAPIKeySecretARN = "AI_API_KEY_SECRET_ARN"

	// EnvAIModel overrides the AI provider's default model.
	EnvAIModel = "AI_MODEL"

	// EnvAIProvider selects the AI provider for personalised messages (anthropic, openai or empty).
	EnvAIProvider = "AI_PROVIDER"

	// EnvChurchAPIBaseURL is the base URL for the church data platform API.
	EnvChurchAPIBaseURL = "CHURCH_API_BASE_URL"

	// EnvChurchAPIKeySecretARN is the Secrets Manager ARN for the church data platform API key.
	EnvChurchAPIKeySecretARN = "CHURCH_API_KEY_SECRET_ARN"

	// EnvChurchID is the tenant identifier.
	EnvChurchID = "CHURCH_ID"

	// EnvChurchName is the church display name used in messages.
	EnvChurchName = "CHURCH_NAME"

	// EnvChurchTimezone is the IANA timezone that decides the church's current date.
	EnvChurchTimezone = "CHURCH_TIMEZONE"

	// EnvDryRun suppresses all outbound sends when set to true.
	EnvDryRun = "DRY_RUN"

	// EnvLogRetentionDays is how long agent logs are kept in DynamoDB.
	EnvLogRetentionDays = "LOG_RETENTION_DAYS"

	// EnvLogTableName is the DynamoDB table for agent logs and run statistics.
	EnvLogTableName = "LOG_TABLE_NAME"

	// EnvMessagingAPIKeySecretARN is the Secrets Manager ARN for the messaging gateway API key.
	EnvMessagingAPIKeySecretARN = "MESSAGING_API_KEY_SECRET_ARN"

	// EnvMessagingBaseURL is the base URL for the messaging gateway.
	EnvMessagingBaseURL = "MESSAGING_BASE_URL"

	// EnvMessagingFromEmail is the sender address for email.
	EnvMessagingFromEmail = "MESSAGING_FROM_EMAIL"

	// EnvMessagingFromNumber is the sender number for SMS.
	EnvMessagingFromNumber = "MESSAGING_FROM_NUMBER"

	// EnvRunGuardTableName is the DynamoDB table recording which agents ran on which date.
	EnvRunGuardTableName = "RUN_GUARD_TABLE_NAME"

	// EnvSSMAgentConfigParameter is the SSM parameter holding the agent configuration document.
	EnvSSMAgentConfigParameter = "SSM_AGENT_CONFIG_PARAMETER"

	// EnvSSMStatePrefix is the SSM parameter path for per-agent scheduling state.
	EnvSSMStatePrefix = "SSM_STATE_PREFIX"
)

const (
	defaultLogRetentionDays = 90
	defaultTimezone         = "UTC"
)

// AI holds personalised message generation configuration.
type AI struct {
	// APIKeySecretARN is the Secrets Manager ARN storing the provider API key.
	APIKeySecretARN string

	// Model overrides the provider's default model (optional).
	Model string

	// Provider is anthropic, openai, or empty to disable generation.
	Provider string
}

// Church holds the tenant identity.
type Church struct {
	// ID is the tenant identifier.
	ID string

	// Name is the display name used in messages.
	Name string

	// Timezone is the IANA timezone name.
	Timezone string
}

// Location returns the church's timezone.
func (c Church) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// ChurchAPI holds church data platform configuration.
type ChurchAPI struct {
	// APIKeySecretARN is the Secrets Manager ARN storing the API key.
	APIKeySecretARN string

	// BaseURL is the base URL for API requests.
	BaseURL string
}

// DynamoDB holds AWS DynamoDB configuration.
type DynamoDB struct {
	// LogRetention is how long logs are kept before DynamoDB expires them.
	LogRetention time.Duration

	// LogTableName is the table for agent logs and run statistics.
	LogTableName string

	// RunGuardTableName is the table recording daily run claims.
	RunGuardTableName string
}

// Messaging holds messaging gateway configuration.
type Messaging struct {
	// APIKeySecretARN is the Secrets Manager ARN storing the API key.
	APIKeySecretARN string

	// BaseURL is the base URL for the gateway.
	BaseURL string

	// FromEmail is the sender address for email (optional).
	FromEmail string

	// FromNumber is the sender number for SMS (optional).
	FromNumber string
}

// SSM holds AWS Systems Manager Parameter Store configuration.
type SSM struct {
	// AgentConfigParameter is the parameter holding the agent configuration document.
	AgentConfigParameter string

	// StatePrefix is the parameter path for per-agent scheduling state.
	StatePrefix string
}

// Settings holds all configuration for the Lambda deployment.
type Settings struct {
	// AI contains personalised message generation settings.
	AI AI

	// Church contains the tenant identity.
	Church Church

	// ChurchAPI contains church data platform settings.
	ChurchAPI ChurchAPI

	// DryRun suppresses all outbound sends.
	DryRun bool

	// DynamoDB contains AWS DynamoDB settings.
	DynamoDB DynamoDB

	// Messaging contains messaging gateway settings.
	Messaging Messaging

	// SSM contains AWS Systems Manager Parameter Store settings.
	SSM SSM
}

func (s *Settings) validate() error {
	var errs []error

	if s.Church.ID == "" {
		errs = append(errs, requiredError(EnvChurchID))
	}
	if s.Church.Name == "" {
		errs = append(errs, requiredError(EnvChurchName))
	}
	if _, err := s.Church.Location(); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvChurchTimezone, err))
	}
	if s.ChurchAPI.APIKeySecretARN == "" {
		errs = append(errs, requiredError(EnvChurchAPIKeySecretARN))
	}
	if s.Messaging.APIKeySecretARN == "" {
		errs = append(errs, requiredError(EnvMessagingAPIKeySecretARN))
	}
	if err := validateProvider(s.AI.Provider); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvAIProvider, err))
	}
	if s.AI.Provider != "" && s.AI.APIKeySecretARN == "" {
		errs = append(errs, requiredError(EnvAIAPIKeySecretARN))
	}
	if s.DynamoDB.LogTableName == "" {
		errs = append(errs, requiredError(EnvLogTableName))
	}
	if s.DynamoDB.RunGuardTableName == "" {
		errs = append(errs, requiredError(EnvRunGuardTableName))
	}
	if s.SSM.AgentConfigParameter == "" {
		errs = append(errs, requiredError(EnvSSMAgentConfigParameter))
	}
	if s.SSM.StatePrefix == "" {
		errs = append(errs, requiredError(EnvSSMStatePrefix))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Settings, error) {
	var errs []error

	dryRun, err := envBool(EnvDryRun)
	if err != nil {
		errs = append(errs, err)
	}

	retentionDays, err := envInt(EnvLogRetentionDays, defaultLogRetentionDays)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Settings{
		AI: AI{
			APIKeySecretARN: strings.TrimSpace(os.Getenv(EnvAIAPIKeySecretARN)),
			Model:           strings.TrimSpace(os.Getenv(EnvAIModel)),
			Provider:        strings.ToLower(strings.TrimSpace(os.Getenv(EnvAIProvider))),
		},
		Church: Church{
			ID:       strings.TrimSpace(os.Getenv(EnvChurchID)),
			Name:     strings.TrimSpace(os.Getenv(EnvChurchName)),
			Timezone: envOrDefault(EnvChurchTimezone, defaultTimezone),
		},
		ChurchAPI: ChurchAPI{
			APIKeySecretARN: strings.TrimSpace(os.Getenv(EnvChurchAPIKeySecretARN)),
			BaseURL:         envOrDefault(EnvChurchAPIBaseURL, "https://api.churchplatform.example/v1"),
		},
		DryRun: dryRun,
		DynamoDB: DynamoDB{
			LogRetention:      time.Duration(retentionDays) * 24 * time.Hour,
			LogTableName:      strings.TrimSpace(os.Getenv(EnvLogTableName)),
			RunGuardTableName: strings.TrimSpace(os.Getenv(EnvRunGuardTableName)),
		},
		Messaging: Messaging{
			APIKeySecretARN: strings.TrimSpace(os.Getenv(EnvMessagingAPIKeySecretARN)),
			BaseURL:         envOrDefault(EnvMessagingBaseURL, "https://messaging.churchplatform.example/v1"),
			FromEmail:       strings.TrimSpace(os.Getenv(EnvMessagingFromEmail)),
			FromNumber:      strings.TrimSpace(os.Getenv(EnvMessagingFromNumber)),
		},
		SSM: SSM{
			AgentConfigParameter: strings.TrimSpace(os.Getenv(EnvSSMAgentConfigParameter)),
			StatePrefix:          strings.TrimSpace(os.Getenv(EnvSSMStatePrefix)),
		},
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envBool(key string) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func envInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func envOrDefault(key string, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func requiredError(envVar string) error {
	return fmt.Errorf("%s is required", envVar)
}

func validateProvider(provider string) error {
	switch provider {
	case "", "anthropic", "openai":
		return nil
	default:
		return fmt.Errorf("unknown AI provider %q", provider)
	}
}
