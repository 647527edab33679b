package donation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peteski22/steward/internal/agent"
)

// mockNotifier implements agent.Notifier for testing.
type mockNotifier struct {
	emailErr error
	emails   []agent.Message
	texts    []agent.Message
}

func (m *mockNotifier) SendEmail(_ context.Context, msg agent.Message) (agent.SendResult, error) {
	m.emails = append(m.emails, msg)
	if m.emailErr != nil {
		return agent.SendResult{}, m.emailErr
	}
	return agent.SendResult{Success: true, MessageID: "email"}, nil
}

func (m *mockNotifier) SendSMS(_ context.Context, msg agent.Message) (agent.SendResult, error) {
	m.texts = append(m.texts, msg)
	return agent.SendResult{Success: true, MessageID: "sms"}, nil
}

var today = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func testSettings() *Settings {
	return &Settings{
		AlertOnLargeGifts:       true,
		AutoSendReceipts:        true,
		ChurchName:              "Grace Church",
		LapsedGiverAlertEmail:   "finance@grace.example",
		LapsedGiverDays:         30,
		LapsedGiverMinDonations: 3,
		LargeGiftThreshold:      1000,
		ReceiptMethod:           ReceiptEmail,
		SendThankYouMessage:     true,
		TaxID:                   "12-3456789",
		TrackFirstTimeGivers:    true,
	}
}

func testPeople() map[string]agent.Person {
	return map[string]agent.Person{
		"d1": {ID: "d1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+15550001"},
		"d2": {ID: "d2", FirstName: "Ben", Email: "ben@example.com"},
		"d3": {ID: "d3", FirstName: "Cy", Phone: "+15550003"},
	}
}

type agentOpts struct {
	clock     func() time.Time
	donations []Donation
	dryRun    bool
	history   map[string]GivingHistory
	known     KnownDonors
	notifier  agent.Notifier
	settings  *Settings
}

func newTestAgent(t *testing.T, o agentOpts) *Agent {
	t.Helper()

	cfg := DefaultConfig("Grace Church", today)
	if o.settings != nil {
		cfg.Settings = o.settings
	} else {
		cfg.Settings = testSettings()
	}
	if o.notifier == nil {
		o.notifier = &mockNotifier{}
	}

	a, err := New(Config{
		BaseConfig: agent.BaseConfig{
			Agent:    cfg,
			Clock:    o.clock,
			Context:  agent.Context{ChurchID: "church-1", ChurchName: "Grace Church", CurrentDate: today, DryRun: o.dryRun},
			Notifier: o.notifier,
		},
		Donations:   o.donations,
		History:     o.history,
		KnownDonors: o.known,
		People:      testPeople(),
	})
	require.NoError(t, err)
	return a
}

func actionsTagged(result agent.Result, tag string) []agent.Action {
	var out []agent.Action
	for _, a := range result.Actions {
		if a.Metadata["tag"] == tag {
			out = append(out, a)
		}
	}
	return out
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate       func(s *Settings)
		errFragments []string
	}{
		"valid": {
			mutate: func(_ *Settings) {},
		},
		"unknown receipt method": {
			mutate:       func(s *Settings) { s.ReceiptMethod = "fax" },
			errFragments: []string{`unknown receipt method "fax"`},
		},
		"large gifts without threshold": {
			mutate:       func(s *Settings) { s.LargeGiftThreshold = 0 },
			errFragments: []string{"large gift threshold must be positive"},
		},
		"lapsed detection incomplete": {
			mutate: func(s *Settings) {
				s.DetectLapsedGivers = true
				s.LapsedGiverDays = 0
				s.LapsedGiverMinDonations = 0
				s.LapsedGiverAlertEmail = ""
			},
			errFragments: []string{
				"lapsed giver days must be positive",
				"lapsed giver minimum donations must be at least 1",
				"lapsed giver alert email is required",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := testSettings()
			tc.mutate(s)
			err := s.Validate()

			if len(tc.errFragments) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, fragment := range tc.errFragments {
				require.Contains(t, err.Error(), fragment)
			}
		})
	}
}

func TestFirstGiftWithinBatch(t *testing.T) {
	t.Parallel()

	known := NewKnownDonors()
	a := newTestAgent(t, agentOpts{known: known})
	run := a.base.Start()

	first := a.processDonation(context.Background(), run, Donation{ID: "g1", DonorID: "d1", Amount: 50, Date: today})
	second := a.processDonation(context.Background(), run, Donation{ID: "g2", DonorID: "d1", Amount: 75, Date: today})

	require.True(t, first.IsFirstGift)
	require.False(t, second.IsFirstGift)
	require.True(t, known.Has("d1"))
	require.Len(t, actionsTagged(run.Result(), TagFirstTimeGiver), 1)
}

func TestFirstGiftKnownDonor(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{
		known:     NewKnownDonors("d1"),
		notifier:  notifier,
		donations: []Donation{{ID: "g1", DonorID: "d1", Amount: 50, Date: today, Fund: "General"}},
	})

	result := a.Execute(context.Background())

	require.True(t, result.Success)
	require.Empty(t, actionsTagged(result, TagFirstTimeGiver))
	require.Len(t, notifier.emails, 1)
	require.Equal(t, agent.TemplateDonationReceipt, notifier.emails[0].Template)
}

func TestExecuteBatch(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	known := NewKnownDonors("d2")
	a := newTestAgent(t, agentOpts{
		known:    known,
		notifier: notifier,
		donations: []Donation{
			{ID: "g1", DonorID: "d1", Amount: 100, Fund: "General", Date: today},
			{ID: "g2", DonorID: "d2", Amount: 2500, Fund: "Building", Date: today},
			{ID: "g3", DonorID: "d1", Amount: 40, Fund: "Missions", Date: today},
			{ID: "g4", Amount: 20, Fund: "General", Date: today},
		},
	})

	result := a.Execute(context.Background())

	require.True(t, result.Success)
	// Receipts: g1, g2, g3 (g4 is anonymous). First-gift welcome: d1 once.
	require.Len(t, notifier.emails, 4)
	require.Len(t, actionsTagged(result, TagFirstTimeGiver), 1)
	require.Len(t, actionsTagged(result, TagLargeGiftAlert), 1)
	require.Equal(t, "d2", actionsTagged(result, TagLargeGiftAlert)[0].TargetPersonID)
	require.True(t, known.Has("d1"))
	require.Len(t, known, 2, "anonymous gifts are not tracked as donors")

	receipt := notifier.emails[0]
	require.Equal(t, "ada@example.com", receipt.To)
	require.Equal(t, "100.00", receipt.Data["amount"])
	require.Contains(t, receipt.Data["receiptNumber"], "RCP-")
	require.Contains(t, receipt.Body, "Tax ID 12-3456789")
	require.Contains(t, receipt.Body, "Thank you for your generosity!")
	require.Equal(t, agent.TemplateFirstGift, notifier.emails[1].Template)
}

func TestReceiptNumberUsesClock(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2024, time.June, 15, 14, 30, 0, 0, time.UTC)
	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{
		clock:    func() time.Time { return sentAt },
		notifier: notifier,
		known:    NewKnownDonors("d1"),
	})

	a.ProcessDonation(context.Background(), Donation{ID: "g1", DonorID: "d1", Amount: 25, Date: today})

	require.Len(t, notifier.emails, 1)
	want := "RCP-" + strings.ToUpper(strconv.FormatInt(sentAt.UnixMilli(), 36)) + "-"
	require.True(t, strings.HasPrefix(notifier.emails[0].Data["receiptNumber"], want))
}

func TestReceiptMethods(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method     ReceiptMethod
		donorID    string
		wantEmails int
		wantTexts  int
	}{
		"email":             {method: ReceiptEmail, donorID: "d1", wantEmails: 1},
		"sms":               {method: ReceiptSMS, donorID: "d1", wantTexts: 1},
		"both":              {method: ReceiptBoth, donorID: "d1", wantEmails: 1, wantTexts: 1},
		"both without sms":  {method: ReceiptBoth, donorID: "d2", wantEmails: 1},
		"both without mail": {method: ReceiptBoth, donorID: "d3", wantTexts: 1},
		"unknown donor":     {method: ReceiptBoth, donorID: "nobody"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			settings := testSettings()
			settings.ReceiptMethod = tc.method
			settings.TrackFirstTimeGivers = false
			notifier := &mockNotifier{}
			a := newTestAgent(t, agentOpts{
				settings:  settings,
				notifier:  notifier,
				donations: []Donation{{ID: "g1", DonorID: tc.donorID, Amount: 10, Date: today}},
			})

			result := a.Execute(context.Background())

			require.True(t, result.Success)
			require.Len(t, notifier.emails, tc.wantEmails)
			require.Len(t, notifier.texts, tc.wantTexts)
			require.Equal(t, tc.wantEmails+tc.wantTexts, result.SuccessfulActions)
		})
	}
}

func TestLargeGiftThreshold(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		amount float64
		want   int
	}{
		"exactly threshold": {amount: 1000, want: 1},
		"above threshold":   {amount: 1000.01, want: 1},
		"one cent below":    {amount: 1000 - 0.01, want: 0},
		"well below":        {amount: 25, want: 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := newTestAgent(t, agentOpts{
				known:     NewKnownDonors("d1"),
				donations: []Donation{{ID: "g1", DonorID: "d1", Amount: tc.amount, Date: today}},
			})

			result := a.Execute(context.Background())

			require.Len(t, actionsTagged(result, TagLargeGiftAlert), tc.want)
		})
	}
}

func TestLargeGiftAlertDisabled(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.AlertOnLargeGifts = false
	a := newTestAgent(t, agentOpts{
		settings:  settings,
		donations: []Donation{{ID: "g1", DonorID: "d1", Amount: 50000, Date: today}},
	})

	require.Empty(t, actionsTagged(a.Execute(context.Background()), TagLargeGiftAlert))
}

func TestReceiptFailureContinuesBatch(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.TrackFirstTimeGivers = false
	notifier := &mockNotifier{emailErr: errors.New("smtp down")}
	known := NewKnownDonors()
	a := newTestAgent(t, agentOpts{
		settings: settings,
		notifier: notifier,
		known:    known,
		donations: []Donation{
			{ID: "g1", DonorID: "d1", Amount: 10, Date: today},
			{ID: "g2", DonorID: "d2", Amount: 1500, Date: today},
		},
	})

	result := a.Execute(context.Background())

	require.False(t, result.Success)
	require.Equal(t, 2, result.FailedActions)
	require.Len(t, notifier.emails, 2)
	require.Len(t, actionsTagged(result, TagLargeGiftAlert), 1)
	require.Len(t, result.Errors, 2)
	require.True(t, known.Has("d1"))
	require.True(t, known.Has("d2"))
}

func TestProcessDonationInactive(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig("Grace Church", today)
	cfg.Enabled = false
	notifier := &mockNotifier{}
	a, err := New(Config{BaseConfig: agent.BaseConfig{
		Agent:    cfg,
		Context:  agent.Context{CurrentDate: today},
		Notifier: notifier,
	}})
	require.NoError(t, err)

	result := a.ProcessDonation(context.Background(), Donation{ID: "g1", DonorID: "d1", Amount: 10})

	require.True(t, result.Skipped)
	require.Empty(t, notifier.emails)
}

func TestProcessDonationSingle(t *testing.T) {
	t.Parallel()

	notifier := &mockNotifier{}
	a := newTestAgent(t, agentOpts{notifier: notifier})

	result := a.ProcessDonation(context.Background(), Donation{ID: "g1", DonorID: "d1", Amount: 10, Date: today})

	require.True(t, result.Success)
	require.Len(t, notifier.emails, 2)
	require.Len(t, actionsTagged(result, TagFirstTimeGiver), 1)
}

func TestExecuteDryRunMatchesLiveRun(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.ReceiptMethod = ReceiptBoth
	settings.DetectLapsedGivers = true
	donations := []Donation{
		{ID: "g1", DonorID: "d1", Amount: 100, Date: today},
		{ID: "g2", DonorID: "d1", Amount: 5000, Date: today},
		{ID: "g3", DonorID: "d3", Amount: 5, Date: today},
	}
	history := map[string]GivingHistory{
		"d2": {DonorID: "d2", TotalDonations: 6, TotalAmount: 600, LastDonationDate: today.AddDate(0, 0, -90)},
	}

	live := &mockNotifier{}
	liveResult := newTestAgent(t, agentOpts{settings: settings, notifier: live, donations: donations, history: history}).
		Execute(context.Background())

	dry := &mockNotifier{}
	dryResult := newTestAgent(t, agentOpts{settings: settings, notifier: dry, donations: donations, history: history, dryRun: true}).
		Execute(context.Background())

	require.Len(t, dryResult.Actions, len(liveResult.Actions))
	require.Equal(t, liveResult.CountLogs(agent.LevelInfo), dryResult.CountLogs(agent.LevelInfo))
	require.Equal(t, liveResult.CountLogs(agent.LevelWarning), dryResult.CountLogs(agent.LevelWarning))
	require.NotEmpty(t, live.emails)
	require.NotEmpty(t, live.texts)
	require.Empty(t, dry.emails)
	require.Empty(t, dry.texts)
}
