package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/lifeevent"
	"github.com/peteski22/steward/internal/runner"
	"github.com/peteski22/steward/internal/storage"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	require.ElementsMatch(t, []string{"agents", "init", "lapsed-check", "logs", "preview", "run", "welcome"}, names)
}

func TestRunCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := newRunCmd()

	require.NoError(t, cmd.ParseFlags([]string{"--dry-run", "--since=2024-01-01T00:00:00Z", "-v"}))

	dryRun, err := cmd.Flags().GetBool("dry-run")
	require.NoError(t, err)
	require.True(t, dryRun)

	since, err := cmd.Flags().GetString("since")
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T00:00:00Z", since)
}

func TestParseSince(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value   string
		want    *time.Time
		wantErr string
	}{
		"empty": {},
		"RFC3339": {
			value: "2024-01-01T00:00:00Z",
			want:  func() *time.Time { t := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC); return &t }(),
		},
		"date only": {
			value:   "2024-01-01",
			wantErr: `invalid --since value "2024-01-01"`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := parseSince(tc.value)

			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.True(t, tc.want.Equal(*got))
		})
	}
}

func TestLogsFlagsQuery(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		flags   logsFlags
		want    storage.LogQuery
		errMsgs []string
	}{
		"valid": {
			flags: logsFlags{agentID: "life-events", churchID: "church-1", level: "error", limit: 20, table: "logs"},
			want:  storage.LogQuery{AgentID: "life-events", ChurchID: "church-1", Level: agent.LevelError, Limit: 20},
		},
		"stats needs agent": {
			flags:   logsFlags{churchID: "church-1", stats: true, table: "logs"},
			errMsgs: []string{"--stats requires --agent"},
		},
		"everything wrong": {
			flags: logsFlags{level: "debug", limit: -1},
			errMsgs: []string{
				"--table is required",
				"--church is required",
				`invalid --level "debug"`,
				"--limit must not be negative",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := tc.flags.query()

			if len(tc.errMsgs) > 0 {
				require.Error(t, err)
				for _, msg := range tc.errMsgs {
					require.Contains(t, err.Error(), msg)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLocalStateStore(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv().

	t.Setenv("HOME", t.TempDir())

	dry, err := localStateStore(true)
	require.NoError(t, err)
	require.IsType(t, &storage.NoopStateStore{}, dry)

	live, err := localStateStore(false)
	require.NoError(t, err)
	require.IsType(t, &storage.FileStateStore{}, live)
}

func TestNewClients(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		creds      credentials
		wantErr    string
		wantWriter bool
	}{
		"minimal": {
			creds: credentials{ChurchAPIKey: "church", MessagingKey: "msg"},
		},
		"with writer and overrides": {
			creds: credentials{
				AIKey:            "ai",
				AIModel:          "claude-sonnet-4-5",
				AIProvider:       "anthropic",
				ChurchAPIBaseURL: "https://church.example/v1",
				ChurchAPIKey:     "church",
				FromEmail:        "hello@gracechapel.org",
				MessagingKey:     "msg",
			},
			wantWriter: true,
		},
		"missing church key": {
			creds:   credentials{MessagingKey: "msg"},
			wantErr: "creating church API client",
		},
		"bad sender": {
			creds:   credentials{ChurchAPIKey: "church", MessagingKey: "msg", FromEmail: "nobody"},
			wantErr: "creating messaging client",
		},
		"unknown provider": {
			creds:   credentials{ChurchAPIKey: "church", MessagingKey: "msg", AIProvider: "llama"},
			wantErr: `unknown AI provider "llama"`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c, err := newClients(tc.creds)

			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c.church)
			require.NotNil(t, c.notifier)
			require.Equal(t, tc.wantWriter, c.writer != nil)
		})
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printSummary(&out, &runner.Summary{
		AlreadyRan: []string{"new-member"},
		Date:       time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		DryRun:     true,
		Errors:     []error{errors.New("agent donation-processing: fetching donations: timeout")},
		Results: []agent.Result{
			{AgentID: "life-events", Success: true, SuccessfulActions: 2},
			{AgentID: "donation-processing", Skipped: true, Success: true},
		},
	})

	got := out.String()
	require.Contains(t, got, "[DRY-RUN]")
	require.Contains(t, got, "Agent run for 2024-06-15")
	require.Regexp(t, `life-events\s+ok\s+2\s+0`, got)
	require.Regexp(t, `donation-processing\s+skipped`, got)
	require.Regexp(t, `new-member\s+ran`, got)
	require.Contains(t, got, "Actions: 2 successful, 0 failed")
	require.Contains(t, got, "Error: agent donation-processing: fetching donations: timeout")
}

func TestPrintPreview(t *testing.T) {
	t.Parallel()

	joined := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	printPreview(&out, &runner.Preview{
		Date: time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		Events: []lifeevent.Event{
			{Date: time.Date(2024, time.June, 16, 0, 0, 0, 0, time.UTC), FirstName: "Ben", LastName: "Birthday", Type: lifeevent.EventBirthday},
			{Date: time.Date(2024, time.June, 18, 0, 0, 0, 0, time.UTC), FirstName: "Ada", Type: lifeevent.EventMembershipAnniversary, YearsCount: 5},
		},
		NewMembers: []agent.Person{{FirstName: "Cara", LastName: "Newcomer", JoinDate: &joined}},
	}, 7)

	got := out.String()
	require.Contains(t, got, "next 7 days from 2024-06-15")
	require.Contains(t, got, "2024-06-16  birthday")
	require.Contains(t, got, "Ben Birthday")
	require.Contains(t, got, "membership (5 years)")
	require.Contains(t, got, "2024-06-10  Cara Newcomer")
}

func TestPrintPreviewEmpty(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printPreview(&out, &runner.Preview{Date: time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)}, 3)

	require.Equal(t, 2, bytes.Count(out.Bytes(), []byte("  none\n")))
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printResult(&out, agent.Result{
		AgentID:       "donation-processing",
		DryRun:        true,
		Errors:        []string{"failed to send email: mailbox full"},
		FailedActions: 1,
	})

	require.Equal(t,
		"[DRY-RUN] donation-processing: failed, 0 successful, 1 failed\n  error: failed to send email: mailbox full\n",
		out.String())
}

func TestPrintStats(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printStats(&out, storage.AgentStats{AgentID: "life-events"})
	require.NotContains(t, out.String(), "Last run")

	out.Reset()
	printStats(&out, storage.AgentStats{
		AgentID:           "life-events",
		LastRunAt:         time.Date(2024, time.June, 15, 14, 0, 0, 0, time.UTC),
		LastRunSuccess:    true,
		Runs:              4,
		SuccessfulActions: 9,
	})
	require.Contains(t, out.String(), "Runs:               4")
	require.Contains(t, out.String(), "Last run:           2024-06-15T14:00:00Z (success: true)")
}
