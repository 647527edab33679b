// Package storage provides persistence for agent logs, run statistics and scheduling state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/peteski22/steward/internal/agent"
)

const (
	// DefaultLogLimit is the number of logs returned when no limit is given.
	DefaultLogLimit = 100

	// MaxLogLimit is the largest number of logs returned by one query.
	MaxLogLimit = 500

	logPrefix   = "LOG#"
	statsPrefix = "STATS#"
)

// AgentStats are the running totals for one agent.
type AgentStats struct {
	// AgentID is the agent identifier.
	AgentID string

	// FailedActions is the total number of failed actions.
	FailedActions int

	// LastRunAt is when the agent last ran.
	LastRunAt time.Time

	// LastRunSuccess reports whether the last run had no failed actions.
	LastRunSuccess bool

	// Runs is the number of recorded runs.
	Runs int

	// SuccessfulActions is the total number of successful actions.
	SuccessfulActions int
}

// DynamoDBAPI defines the DynamoDB operations used by the stores.
type DynamoDBAPI interface {
	// GetItem retrieves an item from DynamoDB.
	GetItem(
		ctx context.Context,
		params *dynamodb.GetItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	// PutItem stores an item in DynamoDB.
	PutItem(
		ctx context.Context,
		params *dynamodb.PutItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.PutItemOutput, error)

	// Query retrieves items matching a key condition from DynamoDB.
	Query(
		ctx context.Context,
		params *dynamodb.QueryInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.QueryOutput, error)

	// UpdateItem modifies attributes of an item in DynamoDB.
	UpdateItem(
		ctx context.Context,
		params *dynamodb.UpdateItemInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.UpdateItemOutput, error)
}

// LogQuery selects logs to read.
type LogQuery struct {
	// AgentID restricts results to one agent. Empty means all agents.
	AgentID string

	// ChurchID is the church whose logs are read. Required.
	ChurchID string

	// Level restricts results to one level. Empty means all levels.
	Level agent.LogLevel

	// Limit caps the number of results. Zero means DefaultLogLimit; values above MaxLogLimit are clamped.
	Limit int
}

// limit returns the effective result limit.
func (q LogQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLogLimit
	case q.Limit > MaxLogLimit:
		return MaxLogLimit
	default:
		return q.Limit
	}
}

// matches reports whether l passes the query's agent and level filters.
func (q LogQuery) matches(l agent.Log) bool {
	if q.AgentID != "" && l.AgentID != q.AgentID {
		return false
	}
	if q.Level != "" && l.Level != q.Level {
		return false
	}
	return true
}

// LogStore persists agent logs and per-agent counters in DynamoDB.
// Logs and counters share one table keyed by church_id and sk.
type LogStore struct {
	// client is the DynamoDB API client.
	client DynamoDBAPI

	// retention is how long log items live before DynamoDB expires them.
	retention time.Duration

	// tableName is the name of the DynamoDB table.
	tableName string
}

// Logs returns the most recent logs matching q, newest first.
func (s *LogStore) Logs(ctx context.Context, q LogQuery) ([]agent.Log, error) {
	if q.ChurchID == "" {
		return nil, errors.New("church ID is required")
	}

	limit := q.limit()
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("church_id = :cid AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid":    &types.AttributeValueMemberS{Value: q.ChurchID},
			":prefix": &types.AttributeValueMemberS{Value: logPrefix},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var filters string
	if q.AgentID != "" {
		filters = "agent_id = :aid"
		input.ExpressionAttributeValues[":aid"] = &types.AttributeValueMemberS{Value: q.AgentID}
	}
	if q.Level != "" {
		if filters != "" {
			filters += " AND "
		}
		filters += "#lvl = :lvl"
		input.ExpressionAttributeNames = map[string]string{"#lvl": "level"}
		input.ExpressionAttributeValues[":lvl"] = &types.AttributeValueMemberS{Value: string(q.Level)}
	}
	if filters != "" {
		input.FilterExpression = aws.String(filters)
	}

	logs := make([]agent.Log, 0, limit)
	for {
		output, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("querying DynamoDB: %w", err)
		}

		for _, item := range output.Items {
			l, err := parseLog(item)
			if err != nil {
				return nil, fmt.Errorf("parsing item: %w", err)
			}
			logs = append(logs, l)
			if len(logs) == limit {
				return logs, nil
			}
		}

		if len(output.LastEvaluatedKey) == 0 {
			return logs, nil
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}
}

// RecordResult adds a run's action counts to the agent's running totals.
func (s *LogStore) RecordResult(ctx context.Context, churchID string, result agent.Result, at time.Time) error {
	if churchID == "" {
		return errors.New("church ID is required")
	}
	if result.AgentID == "" {
		return errors.New("agent ID is required")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"church_id": &types.AttributeValueMemberS{Value: churchID},
			"sk":        &types.AttributeValueMemberS{Value: statsPrefix + result.AgentID},
		},
		UpdateExpression: aws.String("ADD runs :one, successful_actions :ok, failed_actions :failed " +
			"SET last_run_at = :at, last_run_success = :success, agent_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":     &types.AttributeValueMemberN{Value: "1"},
			":ok":      &types.AttributeValueMemberN{Value: strconv.Itoa(result.SuccessfulActions)},
			":failed":  &types.AttributeValueMemberN{Value: strconv.Itoa(result.FailedActions)},
			":at":      &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
			":success": &types.AttributeValueMemberBOOL{Value: result.Success},
			":aid":     &types.AttributeValueMemberS{Value: result.AgentID},
		},
	})
	if err != nil {
		return fmt.Errorf("updating stats in DynamoDB: %w", err)
	}

	return nil
}

// SaveLogs stores each log entry for the church.
func (s *LogStore) SaveLogs(ctx context.Context, churchID string, logs []agent.Log) error {
	if churchID == "" {
		return errors.New("church ID is required")
	}

	for _, l := range logs {
		item, err := logItem(churchID, l, s.retention)
		if err != nil {
			return err
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      item,
		})
		if err != nil {
			return fmt.Errorf("putting log to DynamoDB: %w", err)
		}
	}

	return nil
}

// Stats returns the running totals for an agent. An agent that has never run has zero stats.
func (s *LogStore) Stats(ctx context.Context, churchID string, agentID string) (AgentStats, error) {
	if churchID == "" {
		return AgentStats{}, errors.New("church ID is required")
	}
	if agentID == "" {
		return AgentStats{}, errors.New("agent ID is required")
	}

	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"church_id": &types.AttributeValueMemberS{Value: churchID},
			"sk":        &types.AttributeValueMemberS{Value: statsPrefix + agentID},
		},
	})
	if err != nil {
		return AgentStats{}, fmt.Errorf("getting item from DynamoDB: %w", err)
	}

	stats := AgentStats{AgentID: agentID}
	if output.Item == nil {
		return stats, nil
	}

	if stats.Runs, err = intAttr(output.Item, "runs"); err != nil {
		return AgentStats{}, err
	}
	if stats.SuccessfulActions, err = intAttr(output.Item, "successful_actions"); err != nil {
		return AgentStats{}, err
	}
	if stats.FailedActions, err = intAttr(output.Item, "failed_actions"); err != nil {
		return AgentStats{}, err
	}
	if v, ok := output.Item["last_run_success"].(*types.AttributeValueMemberBOOL); ok {
		stats.LastRunSuccess = v.Value
	}
	if v, ok := output.Item["last_run_at"].(*types.AttributeValueMemberS); ok {
		t, err := time.Parse(time.RFC3339, v.Value)
		if err != nil {
			return AgentStats{}, fmt.Errorf("parsing last_run_at: %w", err)
		}
		stats.LastRunAt = t
	}

	return stats, nil
}

func intAttr(item map[string]types.AttributeValue, name string) (int, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return n, nil
}

func logItem(churchID string, l agent.Log, retention time.Duration) (map[string]types.AttributeValue, error) {
	ts := l.Timestamp.UTC()
	item := map[string]types.AttributeValue{
		"church_id":  &types.AttributeValueMemberS{Value: churchID},
		"sk":         &types.AttributeValueMemberS{Value: logPrefix + ts.Format(time.RFC3339Nano) + "#" + l.ID},
		"id":         &types.AttributeValueMemberS{Value: l.ID},
		"agent_id":   &types.AttributeValueMemberS{Value: l.AgentID},
		"level":      &types.AttributeValueMemberS{Value: string(l.Level)},
		"message":    &types.AttributeValueMemberS{Value: l.Message},
		"timestamp":  &types.AttributeValueMemberS{Value: ts.Format(time.RFC3339Nano)},
		"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(ts.Add(retention).Unix(), 10)},
	}

	if len(l.Metadata) > 0 {
		meta, err := json.Marshal(l.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata for log %s: %w", l.ID, err)
		}
		item["metadata"] = &types.AttributeValueMemberS{Value: string(meta)}
	}

	return item, nil
}

func parseLog(item map[string]types.AttributeValue) (agent.Log, error) {
	l := agent.Log{}

	if v, ok := item["id"].(*types.AttributeValueMemberS); ok {
		l.ID = v.Value
	}
	if v, ok := item["agent_id"].(*types.AttributeValueMemberS); ok {
		l.AgentID = v.Value
	}
	if v, ok := item["level"].(*types.AttributeValueMemberS); ok {
		l.Level = agent.LogLevel(v.Value)
	}
	if v, ok := item["message"].(*types.AttributeValueMemberS); ok {
		l.Message = v.Value
	}
	if v, ok := item["timestamp"].(*types.AttributeValueMemberS); ok {
		t, err := time.Parse(time.RFC3339Nano, v.Value)
		if err != nil {
			return l, fmt.Errorf("parsing timestamp: %w", err)
		}
		l.Timestamp = t
	}
	if v, ok := item["metadata"].(*types.AttributeValueMemberS); ok {
		if err := json.Unmarshal([]byte(v.Value), &l.Metadata); err != nil {
			return l, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	return l, nil
}

// NewLogStore creates a new DynamoDB-backed log store. Log items expire after retention.
func NewLogStore(client DynamoDBAPI, tableName string, retention time.Duration) (*LogStore, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.New("table name is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}

	return &LogStore{
		client:    client,
		retention: retention,
		tableName: tableName,
	}, nil
}
