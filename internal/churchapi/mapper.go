package churchapi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/donation"
)

// ToDomainType converts a Donation to its agent representation.
func (d *Donation) ToDomainType() (*donation.Donation, error) {
	if d == nil {
		return nil, nil
	}

	amount, err := strconv.ParseFloat(d.Amount, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing donation amount %s: %w", d.Amount, err)
	}

	return &donation.Donation{
		Amount:      amount,
		Date:        d.CreatedAt,
		DonorID:     d.DonorID,
		Fund:        d.Fund,
		ID:          d.ID,
		IsRecurring: d.IsRecurring,
		Method:      d.PaymentMethod.ToDomainType(),
	}, nil
}

// ToDomainType converts a GivingSummary to the donor's giving history.
func (g *GivingSummary) ToDomainType() donation.GivingHistory {
	return donation.GivingHistory{
		DonorID:           g.DonorID,
		FirstDonationDate: g.FirstDonationDate,
		LastDonationDate:  g.LastDonationDate,
		TotalAmount:       g.TotalAmount,
		TotalDonations:    g.TotalDonations,
	}
}

// ToDomainType converts a PaymentMethod to the label shown on receipts.
func (pm PaymentMethod) ToDomainType() string {
	switch pm {
	case PaymentMethodCard, PaymentMethodOnline:
		return "Credit card"
	case PaymentMethodACH:
		return "Bank transfer"
	case PaymentMethodCheck:
		return "Check"
	case PaymentMethodCash:
		return "Cash"
	default:
		return "Other"
	}
}

// ToDomainType converts a Person to its agent representation.
func (p *Person) ToDomainType() (*agent.Person, error) {
	if p == nil {
		return nil, nil
	}

	birth, err := parseDate(p.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("parsing birth date for person %s: %w", p.ID, err)
	}

	join, err := parseDate(p.JoinDate)
	if err != nil {
		return nil, fmt.Errorf("parsing join date for person %s: %w", p.ID, err)
	}

	return &agent.Person{
		BirthDate: birth,
		Email:     p.Email,
		FirstName: p.FirstName,
		ID:        p.ID,
		JoinDate:  join,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Status:    p.Status,
	}, nil
}

// parseDate parses a YYYY-MM-DD date. An empty string is not an error.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
