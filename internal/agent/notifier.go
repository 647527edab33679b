package agent

import (
	"context"
	"time"
)

const (
	// TemplateAnniversary is the membership anniversary greeting.
	TemplateAnniversary Template = "membership_anniversary"

	// TemplateBirthday is the birthday greeting.
	TemplateBirthday Template = "birthday"

	// TemplateDonationReceipt is the per-donation receipt.
	TemplateDonationReceipt Template = "donation_receipt"

	// TemplateDrip is a drip campaign step.
	TemplateDrip Template = "drip_campaign"

	// TemplateFirstGift is the first-time giver welcome.
	TemplateFirstGift Template = "first_gift"

	// TemplateGeneric is a free-form templated message.
	TemplateGeneric Template = "generic"

	// TemplateGivingThanks is the short thank-you for a gift.
	TemplateGivingThanks Template = "giving_thanks"

	// TemplateLapsedGiverAlert is the consolidated lapsed-giver report for finance staff.
	TemplateLapsedGiverAlert Template = "lapsed_giver_alert"

	// TemplateWelcome is the new member welcome.
	TemplateWelcome Template = "welcome"
)

const (
	// ChannelEmail delivers by email.
	ChannelEmail Channel = "email"

	// ChannelSMS delivers by text message.
	ChannelSMS Channel = "sms"
)

// Channel is an outbound delivery channel.
type Channel string

// actionType maps a channel to the action recorded for it.
func (c Channel) actionType() ActionType {
	if c == ChannelSMS {
		return ActionSMS
	}
	return ActionEmail
}

// Message is a single outbound message handed to a Notifier.
type Message struct {
	// Body is the rendered text. Providers may ignore it when rendering Template themselves.
	Body string `json:"body,omitempty"`

	// Data holds the template substitution values.
	Data map[string]string `json:"data,omitempty"`

	// Subject is the email subject line.
	Subject string `json:"subject,omitempty"`

	// Template identifies the provider-side template.
	Template Template `json:"template"`

	// To is the email address or phone number.
	To string `json:"to"`
}

// Notifier delivers messages over email and SMS.
// Implementations report provider rejections in SendResult and transport faults as errors.
type Notifier interface {
	// SendEmail sends an email message.
	SendEmail(ctx context.Context, msg Message) (SendResult, error)

	// SendSMS sends a text message.
	SendSMS(ctx context.Context, msg Message) (SendResult, error)
}

// SendResult is the provider's answer to a send.
type SendResult struct {
	// Error is the provider's failure reason.
	Error string `json:"error,omitempty"`

	// MessageID is the provider message identifier.
	MessageID string `json:"messageId,omitempty"`

	// Success reports whether the provider accepted the message.
	Success bool `json:"success"`
}

// Task is a follow-up item for church staff.
type Task struct {
	// AssignedTo is the staff member responsible, if any.
	AssignedTo string `json:"assignedTo,omitempty"`

	// Category groups the task.
	Category string `json:"category"`

	// Description is the task detail.
	Description string `json:"description,omitempty"`

	// DueDate is when the task is due.
	DueDate time.Time `json:"dueDate"`

	// PersonID is the person the task concerns.
	PersonID string `json:"personId"`

	// Priority is low, medium or high.
	Priority string `json:"priority"`

	// Title is the task summary.
	Title string `json:"title"`
}

// TaskSink creates follow-up tasks.
type TaskSink interface {
	// CreateTask creates a task.
	CreateTask(ctx context.Context, task Task) error
}

// Template identifies a message template.
type Template string
