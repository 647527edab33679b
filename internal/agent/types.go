// Package agent provides the shared model and execution engine for congregation automation agents.
package agent

import (
	"errors"
	"fmt"
	"time"
)

const (
	// CategoryAdministration covers record keeping and housekeeping agents.
	CategoryAdministration Category = "administration"

	// CategoryEngagement covers agents that reach out to congregants.
	CategoryEngagement Category = "engagement"

	// CategoryFinance covers giving and donation agents.
	CategoryFinance Category = "finance"

	// CategoryPastoral covers care and follow-up agents.
	CategoryPastoral Category = "pastoral"
)

const (
	// StatusActive marks an agent that may execute.
	StatusActive Status = "active"

	// StatusDisabled marks an agent that has been switched off by an administrator.
	StatusDisabled Status = "disabled"

	// StatusPaused marks an agent that is temporarily suspended.
	StatusPaused Status = "paused"
)

const (
	// ActionEmail records an email send.
	ActionEmail ActionType = "email"

	// ActionNotification records an internal staff-facing notification. No external send happens.
	ActionNotification ActionType = "notification"

	// ActionSMS records an SMS send.
	ActionSMS ActionType = "sms"

	// ActionStatusChange records a membership status transition.
	ActionStatusChange ActionType = "status_change"

	// ActionTask records creation of a follow-up task.
	ActionTask ActionType = "task"
)

const (
	// KindDonationProcessing is the donation processing agent.
	KindDonationProcessing Kind = "donation_processing"

	// KindLifeEvent is the birthday and anniversary agent.
	KindLifeEvent Kind = "life_event"

	// KindNewMember is the welcome and drip campaign agent.
	KindNewMember Kind = "new_member"
)

const (
	// LevelError is used for failed sends and other faults.
	LevelError LogLevel = "error"

	// LevelInfo is used for normal progress messages.
	LevelInfo LogLevel = "info"

	// LevelWarning is used for degraded but recoverable situations.
	LevelWarning LogLevel = "warning"
)

const (
	// PersonStatusInactive marks a person excluded from life-event greetings.
	PersonStatusInactive = "inactive"

	// PersonStatusMember marks a full member.
	PersonStatusMember = "member"

	// PersonStatusVisitor marks someone attending who has not yet joined.
	PersonStatusVisitor = "visitor"
)

// Action is a record of one attempted external effect. Actions are never mutated after creation.
type Action struct {
	// AgentID is the agent that produced the action.
	AgentID string `json:"agentId"`

	// Error is the failure reason when Success is false.
	Error string `json:"error,omitempty"`

	// ID is a unique action identifier.
	ID string `json:"id"`

	// Metadata carries additional structured context such as tags.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Success reports whether the effect completed.
	Success bool `json:"success"`

	// TargetPersonID is the person the action concerns, if any.
	TargetPersonID string `json:"targetPersonId,omitempty"`

	// Template is the message template used, if any.
	Template Template `json:"template,omitempty"`

	// TemplateData holds the substitution values sent with the template.
	TemplateData map[string]string `json:"templateData,omitempty"`

	// Timestamp is when the action was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Type is the channel or kind of action.
	Type ActionType `json:"type"`
}

// ActionType identifies the channel of an Action.
type ActionType string

// Category groups agents for display.
type Category string

// Config describes one configured agent.
type Config struct {
	// Category groups the agent for display.
	Category Category

	// CreatedAt is when the configuration was created.
	CreatedAt time.Time

	// Enabled is the administrator on/off switch.
	Enabled bool

	// ID is the unique agent identifier.
	ID string

	// Name is the display name.
	Name string

	// Settings holds the agent-specific settings.
	Settings Settings

	// Status is the lifecycle status.
	Status Status

	// UpdatedAt is when the configuration was last changed.
	UpdatedAt time.Time
}

// IsActive reports whether the agent may execute: it must be enabled and in the active status.
func (c Config) IsActive() bool {
	return c.Enabled && c.Status == StatusActive
}

// SetEnabled toggles the enabled flag and stamps the update time.
func (c *Config) SetEnabled(enabled bool, now time.Time) {
	c.Enabled = enabled
	c.UpdatedAt = now
}

// Validate checks identity fields and the agent settings.
func (c Config) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("agent ID is required"))
	}
	switch c.Category {
	case CategoryAdministration, CategoryEngagement, CategoryFinance, CategoryPastoral:
	default:
		errs = append(errs, fmt.Errorf("unknown agent category %q", c.Category))
	}
	switch c.Status {
	case StatusActive, StatusDisabled, StatusPaused:
	default:
		errs = append(errs, fmt.Errorf("unknown agent status %q", c.Status))
	}
	if c.Settings == nil {
		errs = append(errs, errors.New("agent settings are required"))
	} else if err := c.Settings.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid %s settings: %w", c.Settings.Kind(), err))
	}
	return errors.Join(errs...)
}

// Context is the execution context of a single invocation.
type Context struct {
	// ChurchID identifies the tenant.
	ChurchID string

	// ChurchName is the display name used in messages.
	ChurchName string

	// CurrentDate is the date the run treats as "today". It is injected rather than read from the clock.
	CurrentDate time.Time

	// DryRun suppresses all outbound sends.
	DryRun bool
}

// Log is a leveled trace entry produced during a run.
type Log struct {
	// AgentID is the agent that wrote the entry.
	AgentID string `json:"agentId"`

	// ID is a unique log identifier.
	ID string `json:"id"`

	// Level is the severity.
	Level LogLevel `json:"level"`

	// Message is the free-text message.
	Message string `json:"message"`

	// Metadata carries structured context.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Timestamp is when the entry was written.
	Timestamp time.Time `json:"timestamp"`
}

// LogLevel is the severity of a Log.
type LogLevel string

// Person is a congregant as seen by the agents.
type Person struct {
	// BirthDate is the date of birth, if known.
	BirthDate *time.Time `json:"birthDate,omitempty"`

	// Email is the email address, if known.
	Email string `json:"email,omitempty"`

	// FirstName is the given name.
	FirstName string `json:"firstName"`

	// ID is the unique person identifier.
	ID string `json:"id"`

	// JoinDate is the membership join date, if known.
	JoinDate *time.Time `json:"joinDate,omitempty"`

	// LastName is the family name.
	LastName string `json:"lastName"`

	// Phone is the mobile number, if known.
	Phone string `json:"phone,omitempty"`

	// Status is the membership status, such as visitor, member or inactive.
	Status string `json:"status"`
}

// FullName joins the first and last name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Result summarises one invocation. It is derived from the actions and logs of the run.
type Result struct {
	// Actions lists every action recorded.
	Actions []Action

	// AgentID is the agent that ran.
	AgentID string

	// DryRun reports whether sends were suppressed.
	DryRun bool

	// Errors is a flat list of error messages suitable for display.
	Errors []string

	// FailedActions counts actions with Success false.
	FailedActions int

	// Logs lists every log entry.
	Logs []Log

	// Skipped reports that the agent was not active and did nothing.
	Skipped bool

	// Success is true when no action failed.
	Success bool

	// SuccessfulActions counts actions with Success true.
	SuccessfulActions int
}

// CountLogs returns the number of log entries at the given level.
func (r Result) CountLogs(level LogLevel) int {
	n := 0
	for _, l := range r.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// Settings is implemented by each agent's concrete settings struct.
type Settings interface {
	// Kind returns the agent kind the settings belong to.
	Kind() Kind

	// Validate checks the settings are internally consistent.
	Validate() error
}

// Kind identifies which agent implementation a configuration drives.
type Kind string

// Status is the lifecycle status of an agent.
type Status string
