// Package donation processes incoming donations and detects lapsed givers.
package donation

import (
	"errors"
	"fmt"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

const (
	// ReceiptBoth sends receipts by email and SMS.
	ReceiptBoth ReceiptMethod = "both"

	// ReceiptEmail sends receipts by email.
	ReceiptEmail ReceiptMethod = "email"

	// ReceiptSMS sends receipts by SMS.
	ReceiptSMS ReceiptMethod = "sms"
)

const (
	// TagFirstTimeGiver marks the notification raised for a donor's first gift.
	TagFirstTimeGiver = "first_time_giver"

	// TagLargeGiftAlert marks the notification raised for a gift at or above the threshold.
	TagLargeGiftAlert = "large_gift_alert"

	// TagLapsedGiver marks the audit notification raised for each lapsed donor.
	TagLapsedGiver = "lapsed_giver"
)

// Donation is a single gift record as received from the giving platform.
type Donation struct {
	// Amount is the gift amount in the church's currency.
	Amount float64 `json:"amount"`

	// Date is when the gift was made.
	Date time.Time `json:"date"`

	// DonorID identifies the donor. Empty for anonymous gifts.
	DonorID string `json:"donorId,omitempty"`

	// Fund is the fund the gift is designated to.
	Fund string `json:"fund"`

	// ID is the unique donation identifier.
	ID string `json:"id"`

	// IsRecurring reports whether the gift is part of a recurring schedule.
	IsRecurring bool `json:"isRecurring"`

	// Method is the payment method.
	Method string `json:"method"`
}

// Event is a classified donation ready for acknowledgement.
type Event struct {
	// Amount is the gift amount.
	Amount float64

	// Date is when the gift was made.
	Date time.Time

	// DonationID identifies the donation.
	DonationID string

	// Donor is the donor, nil for anonymous or unknown donors.
	Donor *agent.Person

	// Fund is the designated fund.
	Fund string

	// IsFirstGift reports the donor had not given before this donation.
	IsFirstGift bool

	// IsRecurring reports a recurring gift.
	IsRecurring bool

	// Method is the payment method.
	Method string
}

// GivingHistory is the aggregate giving record of one donor.
type GivingHistory struct {
	// DonorID identifies the donor.
	DonorID string `json:"donorId"`

	// FirstDonationDate is the donor's first gift date.
	FirstDonationDate time.Time `json:"firstDonationDate"`

	// LastDonationDate is the donor's most recent gift date.
	LastDonationDate time.Time `json:"lastDonationDate"`

	// TotalAmount is the lifetime total given.
	TotalAmount float64 `json:"totalAmount"`

	// TotalDonations is the lifetime number of gifts.
	TotalDonations int `json:"totalDonations"`
}

// KnownDonors is the set of donor IDs that have given before.
// The agent adds each processed donor to it, so the set is shared state across a batch.
type KnownDonors map[string]struct{}

// NewKnownDonors builds a set from a list of IDs.
func NewKnownDonors(ids ...string) KnownDonors {
	k := make(KnownDonors, len(ids))
	for _, id := range ids {
		k.Add(id)
	}
	return k
}

// Add marks id as a known donor.
func (k KnownDonors) Add(id string) {
	k[id] = struct{}{}
}

// Has reports whether id has given before.
func (k KnownDonors) Has(id string) bool {
	_, ok := k[id]
	return ok
}

// LapsedGiver is a previously regular donor who has not given recently.
type LapsedGiver struct {
	// AverageGift is TotalAmount divided by TotalDonations.
	AverageGift float64

	// DaysSinceLastDonation is the whole days since the last gift.
	DaysSinceLastDonation int

	// Donor is the donor's record, if found.
	Donor *agent.Person

	// DonorID identifies the donor.
	DonorID string

	// LastDonationDate is the most recent gift date.
	LastDonationDate time.Time

	// TotalAmount is the lifetime total given.
	TotalAmount float64

	// TotalDonations is the lifetime number of gifts.
	TotalDonations int
}

// ReceiptMethod selects the receipt channels.
type ReceiptMethod string

// Settings configures the donation processing agent.
type Settings struct {
	// AlertOnLargeGifts raises a staff notification for gifts at or above LargeGiftThreshold.
	AlertOnLargeGifts bool `yaml:"alert_on_large_gifts"`

	// AutoSendReceipts sends a receipt for every gift.
	AutoSendReceipts bool `yaml:"auto_send_receipts"`

	// ChurchName is used in receipts.
	ChurchName string `yaml:"church_name"`

	// DetectLapsedGivers runs lapsed-giver detection after each batch.
	DetectLapsedGivers bool `yaml:"detect_lapsed_givers"`

	// LapsedGiverAlertEmail receives the consolidated lapsed-giver report.
	LapsedGiverAlertEmail string `yaml:"lapsed_giver_alert_email"`

	// LapsedGiverDays is the number of days without a gift after which a donor counts as lapsed.
	LapsedGiverDays int `yaml:"lapsed_giver_days"`

	// LapsedGiverMinDonations is the minimum lifetime gift count for a donor to count as a regular giver.
	LapsedGiverMinDonations int `yaml:"lapsed_giver_min_donations"`

	// LargeGiftThreshold is the amount at which a gift counts as large.
	LargeGiftThreshold float64 `yaml:"large_gift_threshold"`

	// ReceiptMethod selects the receipt channels.
	ReceiptMethod ReceiptMethod `yaml:"receipt_method"`

	// SendThankYouMessage includes a thank-you in the receipt.
	SendThankYouMessage bool `yaml:"send_thank_you_message"`

	// TaxID is the church's charity or tax identifier printed on receipts.
	TaxID string `yaml:"tax_id"`

	// TrackFirstTimeGivers sends a first-gift welcome and raises a staff notification.
	TrackFirstTimeGivers bool `yaml:"track_first_time_givers"`
}

// Kind implements agent.Settings.
func (s *Settings) Kind() agent.Kind {
	return agent.KindDonationProcessing
}

// Validate implements agent.Settings.
func (s *Settings) Validate() error {
	var errs []error
	if s.ChurchName == "" {
		errs = append(errs, errors.New("church name is required"))
	}
	switch s.ReceiptMethod {
	case ReceiptBoth, ReceiptEmail, ReceiptSMS:
	default:
		errs = append(errs, fmt.Errorf("unknown receipt method %q", s.ReceiptMethod))
	}
	if s.AlertOnLargeGifts && s.LargeGiftThreshold <= 0 {
		errs = append(errs, errors.New("large gift threshold must be positive"))
	}
	if s.DetectLapsedGivers {
		if s.LapsedGiverDays <= 0 {
			errs = append(errs, errors.New("lapsed giver days must be positive"))
		}
		if s.LapsedGiverMinDonations < 1 {
			errs = append(errs, errors.New("lapsed giver minimum donations must be at least 1"))
		}
		if s.LapsedGiverAlertEmail == "" {
			errs = append(errs, errors.New("lapsed giver alert email is required"))
		}
	}
	return errors.Join(errs...)
}

// DefaultConfig returns the default donation processing agent configuration for a church.
func DefaultConfig(churchName string, now time.Time) agent.Config {
	return agent.Config{
		Category:  agent.CategoryFinance,
		CreatedAt: now,
		Enabled:   true,
		ID:        "donation-processing",
		Name:      "Donation Processing",
		Settings: &Settings{
			AlertOnLargeGifts:       true,
			AutoSendReceipts:        true,
			ChurchName:              churchName,
			DetectLapsedGivers:      false,
			LapsedGiverDays:         60,
			LapsedGiverMinDonations: 3,
			LargeGiftThreshold:      1000,
			ReceiptMethod:           ReceiptEmail,
			SendThankYouMessage:     true,
			TrackFirstTimeGivers:    true,
		},
		Status:    agent.StatusActive,
		UpdatedAt: now,
	}
}
