package donation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peteski22/steward/internal/agent"
)

func TestDetectLapsedGivers(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		history map[string]GivingHistory
		wantIDs []string
	}{
		"too few donations regardless of recency": {
			history: map[string]GivingHistory{
				"d1": {DonorID: "d1", TotalDonations: 2, TotalAmount: 200, LastDonationDate: today.AddDate(-2, 0, 0)},
			},
		},
		"regular giver lapsed 31 days": {
			history: map[string]GivingHistory{
				"d1": {DonorID: "d1", TotalDonations: 5, TotalAmount: 500, LastDonationDate: today.AddDate(0, 0, -31)},
			},
			wantIDs: []string{"d1"},
		},
		"exactly at the window": {
			history: map[string]GivingHistory{
				"d1": {DonorID: "d1", TotalDonations: 3, TotalAmount: 90, LastDonationDate: today.AddDate(0, 0, -30)},
			},
			wantIDs: []string{"d1"},
		},
		"gave recently": {
			history: map[string]GivingHistory{
				"d1": {DonorID: "d1", TotalDonations: 10, TotalAmount: 1000, LastDonationDate: today.AddDate(0, 0, -29)},
			},
		},
		"sorted by lifetime giving": {
			history: map[string]GivingHistory{
				"d1": {DonorID: "d1", TotalDonations: 4, TotalAmount: 400, LastDonationDate: today.AddDate(0, -3, 0)},
				"d2": {DonorID: "d2", TotalDonations: 4, TotalAmount: 4000, LastDonationDate: today.AddDate(0, -3, 0)},
				"d3": {DonorID: "d3", TotalDonations: 4, TotalAmount: 1200, LastDonationDate: today.AddDate(0, -3, 0)},
			},
			wantIDs: []string{"d2", "d3", "d1"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := newTestAgent(t, agentOpts{history: tc.history})

			lapsed := a.DetectLapsedGivers()

			var ids []string
			for _, lg := range lapsed {
				ids = append(ids, lg.DonorID)
			}
			require.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestDetectLapsedGiversAverage(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, agentOpts{history: map[string]GivingHistory{
		"d1": {DonorID: "d1", TotalDonations: 5, TotalAmount: 612.5, LastDonationDate: today.AddDate(0, 0, -31)},
	}})

	lapsed := a.DetectLapsedGivers()

	require.Len(t, lapsed, 1)
	require.InDelta(t, 612.5/5, lapsed[0].AverageGift, 1e-9)
	require.Equal(t, 31, lapsed[0].DaysSinceLastDonation)
	require.NotNil(t, lapsed[0].Donor)
	require.Equal(t, "Ada", lapsed[0].Donor.FirstName)
}

func lapsedSettings() *Settings {
	s := testSettings()
	s.DetectLapsedGivers = true
	return s
}

func TestCheckLapsedGivers(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{
		notifier: notifier,
		settings: lapsedSettings(),
		history: map[string]GivingHistory{
			"d1": {DonorID: "d1", TotalDonations: 5, TotalAmount: 500, LastDonationDate: today.AddDate(0, 0, -45)},
			"d2": {DonorID: "d2", TotalDonations: 4, TotalAmount: 2000, LastDonationDate: today.AddDate(0, 0, -60)},
			"d3": {DonorID: "d3", TotalDonations: 1, TotalAmount: 50, LastDonationDate: today.AddDate(0, 0, -365)},
		},
	})

	result := a.CheckLapsedGivers(context.Background())

	require.True(t, result.Success)
	require.Len(t, notifier.emails, 1, "one consolidated alert, not one per donor")
	alert := notifier.emails[0]
	require.Equal(t, "finance@grace.example", alert.To)
	require.Equal(t, agent.TemplateLapsedGiverAlert, alert.Template)
	require.Equal(t, "2", alert.Data["count"])
	require.Equal(t, "600.00", alert.Data["totalAverageGift"])
	require.Contains(t, alert.Body, "Ada Lovelace")

	audit := actionsTagged(result, TagLapsedGiver)
	require.Len(t, audit, 2)
	require.Equal(t, "d2", audit[0].TargetPersonID)
	require.Equal(t, "d1", audit[1].TargetPersonID)
}

func TestCheckLapsedGiversNoneFound(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{notifier: notifier, settings: lapsedSettings()})

	result := a.CheckLapsedGivers(context.Background())

	require.True(t, result.Success)
	require.False(t, result.Skipped)
	require.Empty(t, result.Actions)
	require.Empty(t, notifier.emails)
	require.Equal(t, 1, result.CountLogs(agent.LevelInfo))
}

func TestCheckLapsedGiversSkippedWhenDetectionDisabled(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.LapsedGiverDays = 0
	settings.LapsedGiverAlertEmail = ""

	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{
		notifier: notifier,
		settings: settings,
		history: map[string]GivingHistory{
			"d1": {DonorID: "d1", TotalDonations: 5, TotalAmount: 500, LastDonationDate: today},
		},
	})

	result := a.CheckLapsedGivers(context.Background())

	require.True(t, result.Skipped)
	require.True(t, result.Success)
	require.Empty(t, result.Actions)
	require.Empty(t, notifier.emails)
}

func TestExecuteRunsLapsedCheckOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	history := map[string]GivingHistory{
		"d1": {DonorID: "d1", TotalDonations: 5, TotalAmount: 500, LastDonationDate: today.AddDate(0, 0, -45)},
	}

	disabled := newTestAgent(t, agentOpts{history: history}).Execute(context.Background())
	require.Empty(t, actionsTagged(disabled, TagLapsedGiver))

	enabled := newTestAgent(t, agentOpts{settings: lapsedSettings(), history: history}).Execute(context.Background())
	require.Len(t, actionsTagged(enabled, TagLapsedGiver), 1)
}
