package donation

import (
	"context"
	"fmt"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

const (
	receiptSubject = "Thank you for your gift to {{churchName}}"
	receiptBody    = "Dear {{firstName}}, we received your gift of ${{amount}} to the {{fund}} fund on {{date}}. " +
		"Receipt {{receiptNumber}}. {{churchName}} (Tax ID {{taxId}})."
	receiptThanks = " Thank you for your generosity!"
	receiptSMS    = "{{churchName}}: we received your ${{amount}} gift to {{fund}}. Receipt {{receiptNumber}}. Thank you!"

	firstGiftSubject = "Welcome to the {{churchName}} giving family"
	firstGiftBody    = "Dear {{firstName}}, thank you for your first gift to {{churchName}}. " +
		"We're so glad you're partnering with us."
)

// Config holds the required configuration for creating an Agent.
type Config struct {
	agent.BaseConfig

	// Donations is the batch processed by Execute.
	Donations []Donation

	// History is the per-donor giving history used for lapsed-giver detection.
	History map[string]GivingHistory

	// KnownDonors is the set of donors that have given before. It is updated in place.
	KnownDonors KnownDonors

	// People maps person ID to the person record.
	People map[string]agent.Person
}

// Agent acknowledges donations and watches for lapsed givers.
type Agent struct {
	base        *agent.Base
	donations   []Donation
	history     map[string]GivingHistory
	knownDonors KnownDonors
	people      map[string]agent.Person
	settings    *Settings
}

// New creates a donation processing agent.
func New(cfg Config) (*Agent, error) {
	base, err := agent.NewBase(cfg.BaseConfig, agent.KindDonationProcessing)
	if err != nil {
		return nil, err
	}

	settings, ok := cfg.Agent.Settings.(*Settings)
	if !ok {
		return nil, fmt.Errorf("unexpected settings type %T", cfg.Agent.Settings)
	}

	known := cfg.KnownDonors
	if known == nil {
		known = KnownDonors{}
	}

	return &Agent{
		base:        base,
		donations:   cfg.Donations,
		history:     cfg.History,
		knownDonors: known,
		people:      cfg.People,
		settings:    settings,
	}, nil
}

// Execute processes every donation in the batch in order, then runs lapsed-giver detection when enabled.
func (a *Agent) Execute(ctx context.Context) agent.Result {
	if !a.base.IsActive() {
		return a.base.Skipped()
	}

	run := a.base.Start()
	run.Info(fmt.Sprintf("processing %d donations", len(a.donations)), nil)

	var firstGifts, largeGifts int
	for _, d := range a.donations {
		event := a.processDonation(ctx, run, d)
		if event.IsFirstGift {
			firstGifts++
		}
		if a.isLargeGift(event.Amount) {
			largeGifts++
		}
	}

	if a.settings.DetectLapsedGivers {
		a.checkLapsedGivers(ctx, run)
	}

	result := run.Result()
	run.Info("donation run completed", map[string]any{
		"donations":   len(a.donations),
		"first_gifts": firstGifts,
		"large_gifts": largeGifts,
		"successful":  result.SuccessfulActions,
		"failed":      result.FailedActions,
	})
	return run.Result()
}

// ProcessDonation acknowledges a single donation outside of a batch run.
func (a *Agent) ProcessDonation(ctx context.Context, d Donation) agent.Result {
	if !a.base.IsActive() {
		return a.base.Skipped()
	}

	run := a.base.Start()
	a.processDonation(ctx, run, d)
	return run.Result()
}

// isLargeGift reports whether amount triggers a large-gift alert.
func (a *Agent) isLargeGift(amount float64) bool {
	return a.settings.AlertOnLargeGifts && amount >= a.settings.LargeGiftThreshold
}

// processDonation classifies and acknowledges one donation.
// First-gift status is decided before the donor is added to the known set,
// so a donor's second gift later in the same batch is a repeat gift.
func (a *Agent) processDonation(ctx context.Context, run *agent.Run, d Donation) Event {
	event := Event{
		Amount:      d.Amount,
		Date:        d.Date,
		DonationID:  d.ID,
		Fund:        d.Fund,
		IsFirstGift: d.DonorID != "" && !a.knownDonors.Has(d.DonorID),
		IsRecurring: d.IsRecurring,
		Method:      d.Method,
	}
	if p, ok := a.people[d.DonorID]; ok && d.DonorID != "" {
		event.Donor = &p
	}

	if a.settings.AutoSendReceipts && event.Donor != nil {
		a.sendReceipt(ctx, run, event)
	}

	if a.settings.TrackFirstTimeGivers && event.IsFirstGift {
		a.welcomeFirstTimeGiver(ctx, run, event, d.DonorID)
	}

	if a.isLargeGift(event.Amount) {
		run.Info(fmt.Sprintf("large gift of %.2f received", event.Amount), map[string]any{
			"donation_id": event.DonationID,
			"threshold":   a.settings.LargeGiftThreshold,
		})
		run.RecordAction(agent.ActionNotification, true, agent.ActionOptions{
			TargetPersonID: d.DonorID,
			Metadata: map[string]any{
				"tag":         TagLargeGiftAlert,
				"donation_id": event.DonationID,
				"amount":      event.Amount,
				"fund":        event.Fund,
			},
		})
	}

	if d.DonorID != "" {
		a.knownDonors.Add(d.DonorID)
	}

	return event
}

// sendReceipt sends the receipt on the configured channels. The thank-you is part of the receipt text.
func (a *Agent) sendReceipt(ctx context.Context, run *agent.Run, event Event) {
	donor := event.Donor
	data := map[string]string{
		"amount":        fmt.Sprintf("%.2f", event.Amount),
		"churchName":    a.settings.ChurchName,
		"date":          event.Date.Format(time.DateOnly),
		"firstName":     donor.FirstName,
		"fund":          event.Fund,
		"method":        event.Method,
		"receiptNumber": agent.ReceiptNumber(a.base.Now()),
		"taxId":         a.settings.TaxID,
	}

	body := receiptBody
	if a.settings.SendThankYouMessage {
		body += receiptThanks
	}

	sent := false
	method := a.settings.ReceiptMethod
	if method == ReceiptEmail || method == ReceiptBoth {
		_, ok := run.Send(ctx, agent.ChannelEmail, agent.Message{
			To:       donor.Email,
			Template: agent.TemplateDonationReceipt,
			Subject:  agent.Substitute(receiptSubject, data),
			Body:     agent.Substitute(body, data),
			Data:     data,
		}, donor.ID)
		sent = sent || ok
	}
	if method == ReceiptSMS || method == ReceiptBoth {
		_, ok := run.Send(ctx, agent.ChannelSMS, agent.Message{
			To:       donor.Phone,
			Template: agent.TemplateDonationReceipt,
			Body:     agent.Substitute(receiptSMS, data),
			Data:     data,
		}, donor.ID)
		sent = sent || ok
	}

	if sent && a.settings.SendThankYouMessage {
		run.Info("thank-you included in receipt", map[string]any{
			"donation_id":    event.DonationID,
			"receipt_number": data["receiptNumber"],
		})
	}
}

// welcomeFirstTimeGiver sends the first-gift welcome and records a staff notification.
func (a *Agent) welcomeFirstTimeGiver(ctx context.Context, run *agent.Run, event Event, donorID string) {
	name := donorID
	if event.Donor != nil {
		name = event.Donor.FullName()
		data := map[string]string{
			"churchName": a.settings.ChurchName,
			"firstName":  event.Donor.FirstName,
			"amount":     fmt.Sprintf("%.2f", event.Amount),
		}
		run.Send(ctx, agent.ChannelEmail, agent.Message{
			To:       event.Donor.Email,
			Template: agent.TemplateFirstGift,
			Subject:  agent.Substitute(firstGiftSubject, data),
			Body:     agent.Substitute(firstGiftBody, data),
			Data:     data,
		}, donorID)
	}

	run.Info(fmt.Sprintf("first-time giver: %s", name), map[string]any{
		"donation_id": event.DonationID,
	})
	run.RecordAction(agent.ActionNotification, true, agent.ActionOptions{
		TargetPersonID: donorID,
		Metadata: map[string]any{
			"tag":         TagFirstTimeGiver,
			"donation_id": event.DonationID,
			"amount":      event.Amount,
		},
	})
}
