package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI defines the SSM operations used by the state and config stores.
type SSMAPI interface {
	// GetParameter retrieves a parameter from SSM.
	GetParameter(
		ctx context.Context,
		params *ssm.GetParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParameterOutput, error)

	// PutParameter stores a parameter in SSM.
	PutParameter(
		ctx context.Context,
		params *ssm.PutParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.PutParameterOutput, error)
}

// ConfigStore keeps the church's agent configuration document in SSM Parameter Store.
type ConfigStore struct {
	// client is the SSM API client.
	client SSMAPI

	// parameterName is the SSM parameter holding the YAML document.
	parameterName string
}

// AgentConfigs returns the raw agent configuration document, or nil if none has been saved.
func (c *ConfigStore) AgentConfigs(ctx context.Context) ([]byte, error) {
	value, err := getParameter(ctx, c.client, c.parameterName)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return []byte(value), nil
}

// SaveAgentConfigs replaces the agent configuration document.
func (c *ConfigStore) SaveAgentConfigs(ctx context.Context, doc []byte) error {
	if len(doc) == 0 {
		return errors.New("agent config document cannot be empty")
	}
	return putParameter(ctx, c.client, c.parameterName, string(doc))
}

// StateStore keeps per-agent scheduling state in SSM Parameter Store.
type StateStore struct {
	// client is the SSM API client.
	client SSMAPI

	// prefix is the parameter path under which per-agent parameters live.
	prefix string
}

// LastRunTime returns when the agent last completed a live run, or the zero time if it never has.
func (s *StateStore) LastRunTime(ctx context.Context, agentID string) (time.Time, error) {
	value, err := getParameter(ctx, s.client, s.parameterName(agentID))
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time from parameter: %w", err)
	}

	return t, nil
}

// SetLastRunTime records when the agent completed a live run.
func (s *StateStore) SetLastRunTime(ctx context.Context, agentID string, t time.Time) error {
	return putParameter(ctx, s.client, s.parameterName(agentID), t.UTC().Format(time.RFC3339))
}

func (s *StateStore) parameterName(agentID string) string {
	return s.prefix + "/" + agentID + "/last-run-time"
}

// getParameter reads a parameter. A missing parameter is returned as an empty value.
func getParameter(ctx context.Context, client SSMAPI, name string) (string, error) {
	output, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFoundErr *types.ParameterNotFound
		if errors.As(err, &notFoundErr) {
			return "", nil
		}
		return "", fmt.Errorf("getting parameter from SSM: %w", err)
	}

	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", nil
	}

	return *output.Parameter.Value, nil
}

func putParameter(ctx context.Context, client SSMAPI, name string, value string) error {
	_, err := client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Overwrite: aws.Bool(true),
		Type:      types.ParameterTypeString,
		Value:     aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("putting parameter to SSM: %w", err)
	}

	return nil
}

// NewConfigStore creates a new SSM-backed agent config store.
func NewConfigStore(client SSMAPI, parameterName string) (*ConfigStore, error) {
	if client == nil {
		return nil, errors.New("ssm client is required")
	}
	if parameterName == "" {
		return nil, errors.New("parameter name is required")
	}

	return &ConfigStore{
		client:        client,
		parameterName: parameterName,
	}, nil
}

// NewStateStore creates a new SSM-backed state store rooted at prefix, such as /steward/church-1.
func NewStateStore(client SSMAPI, prefix string) (*StateStore, error) {
	if client == nil {
		return nil, errors.New("ssm client is required")
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return nil, errors.New("parameter prefix is required")
	}

	return &StateStore{
		client: client,
		prefix: prefix,
	}, nil
}
