package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"
)

type mockSecretsManagerAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecretsManagerAPI) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecretValueFunc(ctx, params, optFns...)
}

func TestNewSecretStore(t *testing.T) {
	t.Parallel()

	store, err := NewSecretStore(nil)
	require.ErrorContains(t, err, "secrets manager client is required")
	require.Nil(t, store)

	store, err = NewSecretStore(&mockSecretsManagerAPI{})
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestSecretStore_Secret(t *testing.T) {
	t.Parallel()

	const arn = "arn:aws:secretsmanager:us-east-1:123456789012:secret:church-api"

	tests := map[string]struct {
		arn     string
		client  *mockSecretsManagerAPI
		errMsg  string
		want    string
		wantErr bool
	}{
		"returns trimmed secret": {
			arn: arn,
			client: &mockSecretsManagerAPI{
				getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
					require.Equal(t, arn, aws.ToString(params.SecretId))
					return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(" api-key\n")}, nil
				},
			},
			want: "api-key",
		},
		"missing ARN": {
			client:  &mockSecretsManagerAPI{},
			wantErr: true,
			errMsg:  "secret ARN is required",
		},
		"binary secret": {
			arn: arn,
			client: &mockSecretsManagerAPI{
				getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
					return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1}}, nil
				},
			},
			wantErr: true,
			errMsg:  "secret has no string value",
		},
		"empty secret": {
			arn: arn,
			client: &mockSecretsManagerAPI{
				getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
					return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("  ")}, nil
				},
			},
			wantErr: true,
			errMsg:  "secret is empty",
		},
		"api error": {
			arn: arn,
			client: &mockSecretsManagerAPI{
				getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
					return nil, errors.New("access denied")
				},
			},
			wantErr: true,
			errMsg:  "getting secret from Secrets Manager",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewSecretStore(tc.client)
			require.NoError(t, err)

			got, err := store.Secret(context.Background(), tc.arn)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.want, got)
			}
		})
	}
}
