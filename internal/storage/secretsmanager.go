package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI defines the Secrets Manager operations used by the secret store.
type SecretsManagerAPI interface {
	// GetSecretValue retrieves a secret value.
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretStore reads API keys from AWS Secrets Manager.
type SecretStore struct {
	// client is the Secrets Manager API client.
	client SecretsManagerAPI
}

// Secret returns the string value of the secret identified by arn.
func (s *SecretStore) Secret(ctx context.Context, arn string) (string, error) {
	if arn == "" {
		return "", errors.New("secret ARN is required")
	}

	output, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret from Secrets Manager: %w", err)
	}

	if output.SecretString == nil {
		return "", errors.New("secret has no string value")
	}

	value := strings.TrimSpace(*output.SecretString)
	if value == "" {
		return "", errors.New("secret is empty")
	}

	return value, nil
}

// NewSecretStore creates a new Secrets Manager-backed secret store.
func NewSecretStore(client SecretsManagerAPI) (*SecretStore, error) {
	if client == nil {
		return nil, errors.New("secrets manager client is required")
	}

	return &SecretStore{client: client}, nil
}
