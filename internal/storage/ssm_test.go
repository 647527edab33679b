package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type mockSSMClient struct {
	getParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	putParameterFunc func(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

func (m *mockSSMClient) GetParameter(
	ctx context.Context,
	params *ssm.GetParameterInput,
	optFns ...func(*ssm.Options),
) (*ssm.GetParameterOutput, error) {
	if m.getParameterFunc != nil {
		return m.getParameterFunc(ctx, params, optFns...)
	}
	return &ssm.GetParameterOutput{}, nil
}

func (m *mockSSMClient) PutParameter(
	ctx context.Context,
	params *ssm.PutParameterInput,
	optFns ...func(*ssm.Options),
) (*ssm.PutParameterOutput, error) {
	if m.putParameterFunc != nil {
		return m.putParameterFunc(ctx, params, optFns...)
	}
	return &ssm.PutParameterOutput{}, nil
}

func TestNewStateStore(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		client  SSMAPI
		errMsg  string
		prefix  string
		wantErr bool
	}{
		"valid inputs": {
			client: &mockSSMClient{},
			prefix: "/steward/church-1",
		},
		"nil client": {
			client:  nil,
			prefix:  "/steward/church-1",
			wantErr: true,
			errMsg:  "ssm client is required",
		},
		"empty prefix": {
			client:  &mockSSMClient{},
			prefix:  "/",
			wantErr: true,
			errMsg:  "parameter prefix is required",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewStateStore(tc.client, tc.prefix)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				require.Nil(t, store)
			} else {
				require.NoError(t, err)
				require.NotNil(t, store)
			}
		})
	}
}

func TestStateStore_LastRunTime(t *testing.T) {
	t.Parallel()

	testTime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := map[string]struct {
		client  *mockSSMClient
		errMsg  string
		want    time.Time
		wantErr bool
	}{
		"returns time when found": {
			client: &mockSSMClient{
				getParameterFunc: func(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
					require.Equal(t, "/steward/church-1/donation-processing/last-run-time", aws.ToString(params.Name))
					return &ssm.GetParameterOutput{
						Parameter: &types.Parameter{
							Value: aws.String("2024-01-15T10:30:00Z"),
						},
					}, nil
				},
			},
			want: testTime,
		},
		"returns zero time when parameter not found": {
			client: &mockSSMClient{
				getParameterFunc: func(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
					return nil, &types.ParameterNotFound{}
				},
			},
			want: time.Time{},
		},
		"returns zero time when parameter is nil": {
			client: &mockSSMClient{
				getParameterFunc: func(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
					return &ssm.GetParameterOutput{Parameter: nil}, nil
				},
			},
			want: time.Time{},
		},
		"returns error on invalid time format": {
			client: &mockSSMClient{
				getParameterFunc: func(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
					return &ssm.GetParameterOutput{
						Parameter: &types.Parameter{Value: aws.String("yesterday")},
					}, nil
				},
			},
			wantErr: true,
			errMsg:  "parsing time from parameter",
		},
		"returns error on SSM failure": {
			client: &mockSSMClient{
				getParameterFunc: func(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
					return nil, errors.New("access denied")
				},
			},
			wantErr: true,
			errMsg:  "getting parameter from SSM",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewStateStore(tc.client, "/steward/church-1/")
			require.NoError(t, err)

			got, err := store.LastRunTime(context.Background(), "donation-processing")

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

func TestStateStore_SetLastRunTime(t *testing.T) {
	t.Parallel()

	var got *ssm.PutParameterInput
	client := &mockSSMClient{
		putParameterFunc: func(_ context.Context, params *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
			got = params
			return &ssm.PutParameterOutput{}, nil
		},
	}
	store, err := NewStateStore(client, "/steward/church-1")
	require.NoError(t, err)

	loc := time.FixedZone("EST", -5*60*60)
	err = store.SetLastRunTime(context.Background(), "donation-processing", time.Date(2024, 1, 15, 5, 30, 0, 0, loc))

	require.NoError(t, err)
	require.Equal(t, "/steward/church-1/donation-processing/last-run-time", aws.ToString(got.Name))
	require.Equal(t, "2024-01-15T10:30:00Z", aws.ToString(got.Value))
	require.True(t, aws.ToBool(got.Overwrite))
}

func TestConfigStore(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when never saved", func(t *testing.T) {
		t.Parallel()

		client := &mockSSMClient{
			getParameterFunc: func(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				return nil, &types.ParameterNotFound{}
			},
		}
		store, err := NewConfigStore(client, "/steward/church-1/agents")
		require.NoError(t, err)

		doc, err := store.AgentConfigs(context.Background())

		require.NoError(t, err)
		require.Nil(t, doc)
	})

	t.Run("round trips document", func(t *testing.T) {
		t.Parallel()

		var saved string
		client := &mockSSMClient{
			putParameterFunc: func(_ context.Context, params *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
				saved = aws.ToString(params.Value)
				return &ssm.PutParameterOutput{}, nil
			},
			getParameterFunc: func(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				require.True(t, aws.ToBool(params.WithDecryption))
				return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(saved)}}, nil
			},
		}
		store, err := NewConfigStore(client, "/steward/church-1/agents")
		require.NoError(t, err)

		require.NoError(t, store.SaveAgentConfigs(context.Background(), []byte("- kind: life_event\n")))
		doc, err := store.AgentConfigs(context.Background())

		require.NoError(t, err)
		require.Equal(t, "- kind: life_event\n", string(doc))
	})

	t.Run("rejects empty document", func(t *testing.T) {
		t.Parallel()

		store, err := NewConfigStore(&mockSSMClient{}, "/steward/church-1/agents")
		require.NoError(t, err)

		require.ErrorContains(t, store.SaveAgentConfigs(context.Background(), nil), "cannot be empty")
	})

	t.Run("requires parameter name", func(t *testing.T) {
		t.Parallel()

		store, err := NewConfigStore(&mockSSMClient{}, "")

		require.ErrorContains(t, err, "parameter name is required")
		require.Nil(t, store)
	})
}
