package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/lifeevent"
	"github.com/peteski22/steward/internal/runner"
	"github.com/peteski22/steward/internal/storage"
)

// printSummary prints one line per agent followed by the totals.
func printSummary(w io.Writer, summary *runner.Summary) {
	if summary.DryRun {
		fmt.Fprintln(w, "[DRY-RUN] No messages were sent and no state was saved.")
	}
	fmt.Fprintf(w, "Agent run for %s\n\n", summary.Date.Format(time.DateOnly))

	fmt.Fprintf(w, "  %-22s %-8s %-4s %s\n", "AGENT", "STATUS", "OK", "FAILED")
	for _, r := range summary.Results {
		fmt.Fprintf(w, "  %-22s %-8s %-4d %d\n", r.AgentID, resultStatus(r), r.SuccessfulActions, r.FailedActions)
	}
	for _, id := range summary.AlreadyRan {
		fmt.Fprintf(w, "  %-22s %-8s %-4s %s\n", id, "ran", "-", "-")
	}

	fmt.Fprintf(w, "\nActions: %d successful, %d failed\n", summary.SuccessfulActions(), summary.FailedActions())
	for _, err := range summary.Errors {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

// printResult prints the outcome of a single agent invocation.
func printResult(w io.Writer, result agent.Result) {
	prefix := ""
	if result.DryRun {
		prefix = "[DRY-RUN] "
	}
	fmt.Fprintf(w, "%s%s: %s, %d successful, %d failed\n",
		prefix, result.AgentID, resultStatus(result), result.SuccessfulActions, result.FailedActions)
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
}

// printPreview prints upcoming life events and recent new members.
func printPreview(w io.Writer, preview *runner.Preview, days int) {
	fmt.Fprintf(w, "== UPCOMING EVENTS (next %d days from %s) ==\n", days, preview.Date.Format(time.DateOnly))
	if len(preview.Events) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, e := range preview.Events {
		fmt.Fprintf(w, "  %s  %-24s %s\n", e.Date.Format(time.DateOnly), eventLabel(e), fullName(e.FirstName, e.LastName))
	}

	fmt.Fprintf(w, "\n== NEW MEMBERS (last %d days) ==\n", days)
	if len(preview.NewMembers) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, p := range preview.NewMembers {
		fmt.Fprintf(w, "  %s  %s\n", p.JoinDate.Format(time.DateOnly), p.FullName())
	}
}

// printLogs prints one line per log entry.
func printLogs(w io.Writer, logs []agent.Log) {
	for _, l := range logs {
		fmt.Fprintf(w, "%s  %-7s %-22s %s\n",
			l.Timestamp.UTC().Format(time.RFC3339), strings.ToUpper(string(l.Level)), l.AgentID, l.Message)
	}
}

// printStats prints an agent's running totals.
func printStats(w io.Writer, stats storage.AgentStats) {
	fmt.Fprintf(w, "Agent:              %s\n", stats.AgentID)
	fmt.Fprintf(w, "Runs:               %d\n", stats.Runs)
	fmt.Fprintf(w, "Successful actions: %d\n", stats.SuccessfulActions)
	fmt.Fprintf(w, "Failed actions:     %d\n", stats.FailedActions)
	if stats.Runs == 0 {
		return
	}
	fmt.Fprintf(w, "Last run:           %s (success: %t)\n", stats.LastRunAt.UTC().Format(time.RFC3339), stats.LastRunSuccess)
}

func resultStatus(r agent.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Success:
		return "ok"
	default:
		return "failed"
	}
}

func eventLabel(e lifeevent.Event) string {
	switch e.Type {
	case lifeevent.EventBirthday:
		return "birthday"
	case lifeevent.EventMembershipAnniversary:
		return fmt.Sprintf("membership (%d years)", e.YearsCount)
	default:
		return string(e.Type)
	}
}

func fullName(first, last string) string {
	return agent.Person{FirstName: first, LastName: last}.FullName()
}
