package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RunGuard records which agents have already run on a given date so a scheduled run is not repeated.
type RunGuard struct {
	// client is the DynamoDB API client.
	client DynamoDBAPI

	// retention is how long a claim is kept before DynamoDB expires it.
	retention time.Duration

	// tableName is the name of the DynamoDB table.
	tableName string
}

// Claim marks the agent as run for date. It returns false if the agent already ran on that date.
func (g *RunGuard) Claim(ctx context.Context, churchID string, agentID string, date time.Time) (bool, error) {
	if churchID == "" {
		return false, errors.New("church ID is required")
	}
	if agentID == "" {
		return false, errors.New("agent ID is required")
	}

	day := date.Format(time.DateOnly)
	_, err := g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(g.tableName),
		Item: map[string]types.AttributeValue{
			"run_key":    &types.AttributeValueMemberS{Value: RunKey(churchID, agentID, date)},
			"church_id":  &types.AttributeValueMemberS{Value: churchID},
			"agent_id":   &types.AttributeValueMemberS{Value: agentID},
			"run_date":   &types.AttributeValueMemberS{Value: day},
			"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(date.Add(g.retention).Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(run_key)"),
	})
	if err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return false, nil
		}
		return false, fmt.Errorf("putting run claim to DynamoDB: %w", err)
	}

	return true, nil
}

// RunKey is the guard key for an agent's run on a date.
func RunKey(churchID string, agentID string, date time.Time) string {
	return churchID + "#" + agentID + "#" + date.Format(time.DateOnly)
}

// NewRunGuard creates a new DynamoDB-backed run guard. Claims expire after retention.
func NewRunGuard(client DynamoDBAPI, tableName string, retention time.Duration) (*RunGuard, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}

	return &RunGuard{
		client:    client,
		retention: retention,
		tableName: tableName,
	}, nil
}
