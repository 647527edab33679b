package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func TestRunGuard_Claim(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		putErr    error
		agentID   string
		want      bool
		wantErr   string
		wantCalls int
	}{
		"first claim wins": {
			agentID:   "life-events",
			want:      true,
			wantCalls: 1,
		},
		"already ran today": {
			putErr:    &types.ConditionalCheckFailedException{Message: aws.String("exists")},
			agentID:   "life-events",
			want:      false,
			wantCalls: 1,
		},
		"dynamodb error": {
			putErr:    errors.New("throttled"),
			agentID:   "life-events",
			wantErr:   "putting run claim to DynamoDB",
			wantCalls: 1,
		},
		"missing agent": {
			wantErr: "agent ID is required",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			client := &mockDynamoDBClient{
				putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					calls++
					require.Equal(t, "attribute_not_exists(run_key)", aws.ToString(params.ConditionExpression))
					require.Equal(t, &types.AttributeValueMemberS{Value: "church-1#life-events#2024-06-15"}, params.Item["run_key"])
					return &dynamodb.PutItemOutput{}, tc.putErr
				},
			}
			guard, err := NewRunGuard(client, "agent-runs", 48*time.Hour)
			require.NoError(t, err)

			got, err := guard.Claim(context.Background(), "church-1", tc.agentID, date)

			require.Equal(t, tc.wantCalls, calls)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNewRunGuard(t *testing.T) {
	t.Parallel()

	_, err := NewRunGuard(nil, "agent-runs", time.Hour)
	require.ErrorContains(t, err, "dynamodb client is required")

	_, err = NewRunGuard(&mockDynamoDBClient{}, "", time.Hour)
	require.ErrorContains(t, err, "table name is required")

	_, err = NewRunGuard(&mockDynamoDBClient{}, "agent-runs", 0)
	require.ErrorContains(t, err, "retention must be positive")

	guard, err := NewRunGuard(&mockDynamoDBClient{}, "agent-runs", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, guard)
}
