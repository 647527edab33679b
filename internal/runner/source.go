package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/churchapi"
	"github.com/peteski22/steward/internal/donation"
)

// ChurchAPIClient defines the church data platform operations used by ChurchSource.
type ChurchAPIClient interface {
	// Donations fetches donations recorded after since.
	Donations(ctx context.Context, since time.Time) ([]churchapi.Donation, error)

	// GivingHistory fetches lifetime giving summaries.
	GivingHistory(ctx context.Context) ([]churchapi.GivingSummary, error)

	// KnownDonorIDs fetches donors whose first gift was before the given time.
	KnownDonorIDs(ctx context.Context, before time.Time) ([]string, error)

	// People fetches the roster.
	People(ctx context.Context) ([]churchapi.Person, error)
}

// ChurchSource adapts the church data platform API to Source.
type ChurchSource struct {
	client ChurchAPIClient
}

// NewChurchSource creates a Source backed by the church data platform API.
func NewChurchSource(client ChurchAPIClient) (*ChurchSource, error) {
	if client == nil {
		return nil, errors.New("church API client is required")
	}
	return &ChurchSource{client: client}, nil
}

// Donations implements Source.
func (s *ChurchSource) Donations(ctx context.Context, since time.Time) ([]donation.Donation, error) {
	raw, err := s.client.Donations(ctx, since)
	if err != nil {
		return nil, err
	}

	donations := make([]donation.Donation, 0, len(raw))
	for i := range raw {
		d, err := raw[i].ToDomainType()
		if err != nil {
			return nil, fmt.Errorf("mapping donation %s: %w", raw[i].ID, err)
		}
		donations = append(donations, *d)
	}
	return donations, nil
}

// GivingHistory implements Source.
func (s *ChurchSource) GivingHistory(ctx context.Context) (map[string]donation.GivingHistory, error) {
	raw, err := s.client.GivingHistory(ctx)
	if err != nil {
		return nil, err
	}

	history := make(map[string]donation.GivingHistory, len(raw))
	for i := range raw {
		history[raw[i].DonorID] = raw[i].ToDomainType()
	}
	return history, nil
}

// KnownDonorIDs implements Source.
func (s *ChurchSource) KnownDonorIDs(ctx context.Context, before time.Time) ([]string, error) {
	return s.client.KnownDonorIDs(ctx, before)
}

// People implements Source.
func (s *ChurchSource) People(ctx context.Context) ([]agent.Person, error) {
	raw, err := s.client.People(ctx)
	if err != nil {
		return nil, err
	}

	people := make([]agent.Person, 0, len(raw))
	for i := range raw {
		p, err := raw[i].ToDomainType()
		if err != nil {
			return nil, err
		}
		people = append(people, *p)
	}
	return people, nil
}
