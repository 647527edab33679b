// Package newmember welcomes new members and runs the post-join drip campaign.
package newmember

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

// DripMessage is one step of the drip campaign.
type DripMessage struct {
	// Day is the number of days after joining on which the step is sent.
	Day int `yaml:"day"`

	// EmailBody is the email text. Supports {{firstName}}, {{churchName}} and {{pastorName}}.
	EmailBody string `yaml:"email_body,omitempty"`

	// EmailSubject is the email subject line.
	EmailSubject string `yaml:"email_subject,omitempty"`

	// SMSBody is the text message. Empty skips SMS for this step.
	SMSBody string `yaml:"sms_body,omitempty"`
}

// Event is a status transition into membership.
type Event struct {
	// JoinDate is the membership join date.
	JoinDate time.Time

	// NewStatus is the status after the transition.
	NewStatus string

	// Person is the new member.
	Person agent.Person

	// PreviousStatus is the status before the transition.
	PreviousStatus string
}

// MessageWriter produces personalised message text.
type MessageWriter interface {
	// Write returns generated text for the prompt.
	Write(ctx context.Context, prompt string) (string, error)
}

// Settings configures the new member agent.
type Settings struct {
	// AssignFollowUpTask creates a follow-up task for each new member.
	AssignFollowUpTask bool `yaml:"assign_follow_up_task"`

	// ChurchName is used in messages.
	ChurchName string `yaml:"church_name"`

	// DripCampaignDays lists the day offsets on which drip steps are sent.
	DripCampaignDays []int `yaml:"drip_campaign_days"`

	// DripMessages overrides the built-in drip steps.
	DripMessages []DripMessage `yaml:"drip_messages,omitempty"`

	// EnableDripCampaign turns on the drip campaign.
	EnableDripCampaign bool `yaml:"enable_drip_campaign"`

	// EnableWelcomeSequence sends a welcome when someone becomes a member.
	EnableWelcomeSequence bool `yaml:"enable_welcome_sequence"`

	// FollowUpAssignee is the staff member follow-up tasks are assigned to.
	FollowUpAssignee string `yaml:"follow_up_assignee,omitempty"`

	// PastorName signs messages.
	PastorName string `yaml:"pastor_name"`

	// UseAIMessages personalises the welcome with generated text.
	UseAIMessages bool `yaml:"use_ai_messages"`
}

// Kind implements agent.Settings.
func (s *Settings) Kind() agent.Kind {
	return agent.KindNewMember
}

// Validate implements agent.Settings.
func (s *Settings) Validate() error {
	var errs []error
	if s.ChurchName == "" {
		errs = append(errs, errors.New("church name is required"))
	}
	for _, d := range s.DripCampaignDays {
		if d < 0 {
			errs = append(errs, fmt.Errorf("drip campaign day %d must not be negative", d))
		}
	}
	for i, m := range s.DripMessages {
		if m.Day < 0 {
			errs = append(errs, fmt.Errorf("drip message %d: day must not be negative", i))
		}
		if m.EmailBody == "" && m.SMSBody == "" {
			errs = append(errs, fmt.Errorf("drip message %d: email or sms body is required", i))
		}
	}
	return errors.Join(errs...)
}

// dripMessages returns the configured steps, or the built-in steps when none are configured.
func (s *Settings) dripMessages() []DripMessage {
	if len(s.DripMessages) > 0 {
		return s.DripMessages
	}
	return defaultDripMessages
}

// schedules reports whether day is one of the configured drip days.
func (s *Settings) schedules(day int) bool {
	for _, d := range s.DripCampaignDays {
		if d == day {
			return true
		}
	}
	return false
}

var defaultDripMessages = []DripMessage{
	{
		Day:          1,
		EmailSubject: "Welcome to the family, {{firstName}}!",
		EmailBody:    "Hi {{firstName}}, we're so glad you joined {{churchName}}. If you have any questions, just reply to this email. - {{pastorName}}",
		SMSBody:      "Hi {{firstName}}, welcome to {{churchName}}! We're glad you're here. - {{pastorName}}",
	},
	{
		Day:          3,
		EmailSubject: "Getting connected at {{churchName}}",
		EmailBody:    "Hi {{firstName}}, small groups are the best way to get to know people at {{churchName}}. We'd love to help you find one.",
	},
	{
		Day:          7,
		EmailSubject: "Ways to serve at {{churchName}}",
		EmailBody:    "Hi {{firstName}}, there are many ways to serve at {{churchName}}. Let us know where you'd like to get involved.",
		SMSBody:      "Hi {{firstName}}, thinking about serving at {{churchName}}? Reply and we'll help you get started.",
	},
	{
		Day:          14,
		EmailSubject: "How are you settling in, {{firstName}}?",
		EmailBody:    "Hi {{firstName}}, it's been two weeks since you joined {{churchName}}. How can we pray for you? - {{pastorName}}",
	},
	{
		Day:          30,
		EmailSubject: "One month at {{churchName}}",
		EmailBody:    "Hi {{firstName}}, thank you for a wonderful first month at {{churchName}}. We're grateful for you. - {{pastorName}}",
	},
}

// DefaultConfig returns the default new member agent configuration for a church.
func DefaultConfig(churchName string, now time.Time) agent.Config {
	return agent.Config{
		Category:  agent.CategoryPastoral,
		CreatedAt: now,
		Enabled:   true,
		ID:        "new-member",
		Name:      "New Member Welcome",
		Settings: &Settings{
			AssignFollowUpTask:    true,
			ChurchName:            churchName,
			DripCampaignDays:      []int{1, 3, 7, 14, 30},
			EnableDripCampaign:    true,
			EnableWelcomeSequence: true,
			PastorName:            "Pastor",
			UseAIMessages:         false,
		},
		Status:    agent.StatusActive,
		UpdatedAt: now,
	}
}
