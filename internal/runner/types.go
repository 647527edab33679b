// Package runner orchestrates agent runs for one church: it loads church data, executes agents and persists their output.
package runner

import (
	"context"
	"time"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/donation"
	"github.com/peteski22/steward/internal/lifeevent"
)

// LogStore persists agent logs and run statistics.
type LogStore interface {
	// RecordResult adds a run's action counts to the agent's running totals.
	RecordResult(ctx context.Context, churchID string, result agent.Result, at time.Time) error

	// SaveLogs stores the logs of a run.
	SaveLogs(ctx context.Context, churchID string, logs []agent.Log) error
}

// RunGuard records which agents already ran on a date.
type RunGuard interface {
	// Claim marks the agent as run for date. It returns false if it already ran.
	Claim(ctx context.Context, churchID string, agentID string, date time.Time) (bool, error)
}

// Source provides the church data agents work on.
type Source interface {
	// Donations returns donations recorded after since.
	Donations(ctx context.Context, since time.Time) ([]donation.Donation, error)

	// GivingHistory returns lifetime giving summaries keyed by donor ID.
	GivingHistory(ctx context.Context) (map[string]donation.GivingHistory, error)

	// KnownDonorIDs returns the donors whose first gift was before the given time.
	KnownDonorIDs(ctx context.Context, before time.Time) ([]string, error)

	// People returns the full roster.
	People(ctx context.Context) ([]agent.Person, error)
}

// StateStore manages per-agent scheduling state.
type StateStore interface {
	// LastRunTime returns when the agent last completed a live run.
	LastRunTime(ctx context.Context, agentID string) (time.Time, error)

	// SetLastRunTime records when the agent completed a live run.
	SetLastRunTime(ctx context.Context, agentID string, t time.Time) error
}

// Preview is a side-effect free look at what the agents would act on.
type Preview struct {
	// Date is the church-local date the preview starts from.
	Date time.Time

	// Events are upcoming birthdays and membership anniversaries, soonest first.
	Events []lifeevent.Event

	// NewMembers are members who joined within the preview window, most recent first.
	NewMembers []agent.Person
}

// Summary contains the outcome of running every configured agent.
type Summary struct {
	// AlreadyRan lists agents skipped because they already ran on Date.
	AlreadyRan []string

	// Date is the church-local date the agents ran for.
	Date time.Time

	// DryRun indicates sends were suppressed.
	DryRun bool

	// Errors contains setup and persistence errors. Failed sends are reported in Results.
	Errors []error

	// Results holds one result per agent that was considered, including skipped agents.
	Results []agent.Result
}

// FailedActions totals failed actions across all results.
func (s *Summary) FailedActions() int {
	n := 0
	for _, r := range s.Results {
		n += r.FailedActions
	}
	return n
}

// Success reports whether no error occurred and no action failed.
func (s *Summary) Success() bool {
	if len(s.Errors) > 0 {
		return false
	}
	for _, r := range s.Results {
		if !r.Success {
			return false
		}
	}
	return true
}

// SuccessfulActions totals successful actions across all results.
func (s *Summary) SuccessfulActions() int {
	n := 0
	for _, r := range s.Results {
		n += r.SuccessfulActions
	}
	return n
}
