package storage

import (
	"context"
	"sync"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

// MemoryLogCapacity is the number of logs the in-memory store keeps.
const MemoryLogCapacity = 1000

// MemoryLogStore keeps the most recent logs and per-agent counters in memory.
// Used when no DynamoDB table is configured, such as local CLI runs.
type MemoryLogStore struct {
	mu    sync.Mutex
	logs  []memoryLog
	stats map[string]AgentStats
}

type memoryLog struct {
	churchID string
	log      agent.Log
}

// NewMemoryLogStore creates an empty in-memory log store.
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{stats: map[string]AgentStats{}}
}

// Logs returns the most recent logs matching q, newest first.
func (s *MemoryLogStore) Logs(_ context.Context, q LogQuery) ([]agent.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := q.limit()
	var out []agent.Log
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.logs[i]
		if q.ChurchID != "" && entry.churchID != q.ChurchID {
			continue
		}
		if !q.matches(entry.log) {
			continue
		}
		out = append(out, entry.log)
	}
	return out, nil
}

// RecordResult adds a run's action counts to the agent's running totals.
func (s *MemoryLogStore) RecordResult(_ context.Context, churchID string, result agent.Result, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := churchID + "#" + result.AgentID
	stats := s.stats[key]
	stats.AgentID = result.AgentID
	stats.Runs++
	stats.SuccessfulActions += result.SuccessfulActions
	stats.FailedActions += result.FailedActions
	stats.LastRunAt = at
	stats.LastRunSuccess = result.Success
	s.stats[key] = stats
	return nil
}

// SaveLogs appends logs, dropping the oldest beyond MemoryLogCapacity.
func (s *MemoryLogStore) SaveLogs(_ context.Context, churchID string, logs []agent.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range logs {
		s.logs = append(s.logs, memoryLog{churchID: churchID, log: l})
	}
	if over := len(s.logs) - MemoryLogCapacity; over > 0 {
		s.logs = append([]memoryLog(nil), s.logs[over:]...)
	}
	return nil
}

// Stats returns the running totals for an agent.
func (s *MemoryLogStore) Stats(_ context.Context, churchID string, agentID string) (AgentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.stats[churchID+"#"+agentID]
	if !ok {
		return AgentStats{AgentID: agentID}, nil
	}
	return stats, nil
}

// NoopStateStore is a state store that does nothing.
// Used for dry-run mode where we don't persist state.
type NoopStateStore struct {
	since time.Time
}

// NewNoopStateStore creates a new NoopStateStore that reports since as every agent's last run.
func NewNoopStateStore(since time.Time) *NoopStateStore {
	return &NoopStateStore{since: since}
}

// LastRunTime returns the configured time.
func (s *NoopStateStore) LastRunTime(_ context.Context, _ string) (time.Time, error) {
	return s.since, nil
}

// SetLastRunTime does nothing.
func (s *NoopStateStore) SetLastRunTime(_ context.Context, _ string, _ time.Time) error {
	return nil
}
