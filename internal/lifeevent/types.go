// Package lifeevent detects birthdays and membership anniversaries and sends greetings.
package lifeevent

import (
	"errors"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

const (
	// EventAnniversary is a wedding anniversary. It is recognised but not yet detected from the roster.
	EventAnniversary EventType = "anniversary"

	// EventBirthday is a birthday.
	EventBirthday EventType = "birthday"

	// EventMembershipAnniversary is the anniversary of joining the church.
	EventMembershipAnniversary EventType = "membership_anniversary"
)

// Event is a detected life event for one person.
type Event struct {
	// Date is the date the event falls on.
	Date time.Time

	// Email is the person's email address, if known.
	Email string

	// FirstName is the person's given name.
	FirstName string

	// LastName is the person's family name.
	LastName string

	// PersonID identifies the person.
	PersonID string

	// Phone is the person's mobile number, if known.
	Phone string

	// Type is the kind of event.
	Type EventType

	// YearsCount is the age or tenure reached on Date.
	YearsCount int
}

// EventType is the kind of life event.
type EventType string

// Settings configures the life event agent.
type Settings struct {
	// AutoSend sends greetings directly. When false, staff notifications are recorded for review instead.
	AutoSend bool `yaml:"auto_send"`

	// ChurchName is used in greetings.
	ChurchName string `yaml:"church_name"`

	// EnableBirthdays turns on birthday detection.
	EnableBirthdays bool `yaml:"enable_birthdays"`

	// EnableMembershipAnniversaries turns on membership anniversary detection.
	EnableMembershipAnniversaries bool `yaml:"enable_membership_anniversaries"`

	// SendEmail allows the email channel.
	SendEmail bool `yaml:"send_email"`

	// SendSMS allows the SMS channel.
	SendSMS bool `yaml:"send_sms"`
}

// Kind implements agent.Settings.
func (s *Settings) Kind() agent.Kind {
	return agent.KindLifeEvent
}

// Validate implements agent.Settings.
func (s *Settings) Validate() error {
	if s.ChurchName == "" {
		return errors.New("church name is required")
	}
	return nil
}

// DefaultConfig returns the default life event agent configuration for a church.
func DefaultConfig(churchName string, now time.Time) agent.Config {
	return agent.Config{
		Category:  agent.CategoryEngagement,
		CreatedAt: now,
		Enabled:   true,
		ID:        "life-events",
		Name:      "Birthday & Anniversary Greetings",
		Settings: &Settings{
			AutoSend:                      true,
			ChurchName:                    churchName,
			EnableBirthdays:               true,
			EnableMembershipAnniversaries: true,
			SendEmail:                     true,
			SendSMS:                       false,
		},
		Status:    agent.StatusActive,
		UpdatedAt: now,
	}
}
