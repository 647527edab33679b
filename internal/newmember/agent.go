package newmember

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

const (
	welcomeSubject = "Welcome to {{churchName}}, {{firstName}}!"
	welcomeBody    = "Dear {{firstName}}, welcome to the {{churchName}} family! We're so glad you've made it official. " +
		"Someone from our team will be in touch this week. - {{pastorName}}"
	welcomeSMS = "Welcome to {{churchName}}, {{firstName}}! We're so glad you're part of the family. - {{pastorName}}"

	welcomePrompt = "Write a short, warm welcome email body (under 120 words, no subject line) from %s, pastor of %s, " +
		"to %s, who has just become a member of the church. Sign it from the pastor."

	followUpDays = 3
)

// Config holds the required configuration for creating an Agent.
type Config struct {
	agent.BaseConfig

	// People is the roster scanned by the drip campaign.
	People []agent.Person

	// Writer generates personalised welcome text when UseAIMessages is set. Optional.
	Writer MessageWriter
}

// Agent welcomes new members and runs the drip campaign.
type Agent struct {
	base     *agent.Base
	people   []agent.Person
	settings *Settings
	writer   MessageWriter
}

// New creates a new member agent.
func New(cfg Config) (*Agent, error) {
	base, err := agent.NewBase(cfg.BaseConfig, agent.KindNewMember)
	if err != nil {
		return nil, err
	}

	settings, ok := cfg.Agent.Settings.(*Settings)
	if !ok {
		return nil, fmt.Errorf("unexpected settings type %T", cfg.Agent.Settings)
	}

	return &Agent{
		base:     base,
		people:   cfg.People,
		settings: settings,
		writer:   cfg.Writer,
	}, nil
}

// Execute runs the drip campaign. Welcomes are triggered separately through HandleNewMember.
func (a *Agent) Execute(ctx context.Context) agent.Result {
	return a.ProcessDripCampaign(ctx)
}

// FindNewMembers returns members who joined within the last sinceDays days, most recent first.
func (a *Agent) FindNewMembers(sinceDays int) []agent.Person {
	if sinceDays < 0 {
		return nil
	}

	today := a.base.Context().CurrentDate

	var members []agent.Person
	for _, p := range a.people {
		if p.Status != agent.PersonStatusMember || p.JoinDate == nil {
			continue
		}
		days := agent.DaysBetween(*p.JoinDate, today)
		if days < 0 || days > sinceDays {
			continue
		}
		members = append(members, p)
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinDate.After(*members[j].JoinDate)
	})
	return members
}

// HandleNewMember welcomes a person who has just become a member, creates the follow-up task
// and records the status change.
func (a *Agent) HandleNewMember(ctx context.Context, event Event) agent.Result {
	if !a.base.IsActive() {
		return a.base.Skipped()
	}

	run := a.base.Start()
	person := event.Person

	run.Info(fmt.Sprintf("new member: %s", person.FullName()), map[string]any{
		"person_id":       person.ID,
		"previous_status": event.PreviousStatus,
		"new_status":      event.NewStatus,
	})

	if a.settings.EnableWelcomeSequence {
		a.welcome(ctx, run, person)
	}

	if a.settings.AssignFollowUpTask {
		run.CreateTask(ctx, agent.Task{
			AssignedTo:  a.settings.FollowUpAssignee,
			Category:    "new_member",
			Description: fmt.Sprintf("Reach out to %s, who joined %s on %s.", person.FullName(), a.settings.ChurchName, event.JoinDate.Format(time.DateOnly)),
			DueDate:     agent.Day(a.base.Context().CurrentDate).AddDate(0, 0, followUpDays),
			PersonID:    person.ID,
			Priority:    "medium",
			Title:       fmt.Sprintf("Follow up with new member %s", person.FullName()),
		})
	}

	run.RecordAction(agent.ActionStatusChange, true, agent.ActionOptions{
		TargetPersonID: person.ID,
		Metadata: map[string]any{
			"previous_status": event.PreviousStatus,
			"new_status":      event.NewStatus,
			"join_date":       event.JoinDate.Format(time.DateOnly),
		},
	})

	return run.Result()
}

// ProcessDripCampaign sends each member the drip step whose day equals their days since joining.
// Missed days are not caught up.
func (a *Agent) ProcessDripCampaign(ctx context.Context) agent.Result {
	if !a.base.IsActive() {
		return a.base.Skipped()
	}

	run := a.base.Start()
	if !a.settings.EnableDripCampaign {
		run.Info("drip campaign disabled", nil)
		return run.Result()
	}

	today := a.base.Context().CurrentDate
	steps := a.settings.dripMessages()

	var sent int
	for _, p := range a.people {
		if p.Status != agent.PersonStatusMember || p.JoinDate == nil {
			continue
		}

		days := agent.DaysBetween(*p.JoinDate, today)
		for _, step := range steps {
			if step.Day != days || !a.settings.schedules(step.Day) {
				continue
			}
			a.sendDripStep(ctx, run, p, step)
			sent++
		}
	}

	result := run.Result()
	run.Info("drip campaign completed", map[string]any{
		"members":    len(a.people),
		"steps_due":  sent,
		"successful": result.SuccessfulActions,
		"failed":     result.FailedActions,
	})
	return run.Result()
}

func (a *Agent) data(p agent.Person) map[string]string {
	return map[string]string{
		"churchName": a.settings.ChurchName,
		"firstName":  p.FirstName,
		"pastorName": a.settings.PastorName,
	}
}

func (a *Agent) sendDripStep(ctx context.Context, run *agent.Run, p agent.Person, step DripMessage) {
	data := a.data(p)
	data["day"] = strconv.Itoa(step.Day)

	if step.EmailBody != "" {
		run.Send(ctx, agent.ChannelEmail, agent.Message{
			To:       p.Email,
			Template: agent.TemplateDrip,
			Subject:  agent.Substitute(step.EmailSubject, data),
			Body:     agent.Substitute(step.EmailBody, data),
			Data:     data,
		}, p.ID)
	}
	if step.SMSBody != "" {
		run.Send(ctx, agent.ChannelSMS, agent.Message{
			To:       p.Phone,
			Template: agent.TemplateDrip,
			Body:     agent.Substitute(step.SMSBody, data),
			Data:     data,
		}, p.ID)
	}
}

// welcome sends the welcome email and SMS, using generated text for the email when enabled.
func (a *Agent) welcome(ctx context.Context, run *agent.Run, p agent.Person) {
	data := a.data(p)
	body := agent.Substitute(welcomeBody, data)

	if generated, ok := a.generateWelcome(ctx, run, p); ok {
		body = generated
	}

	run.Send(ctx, agent.ChannelEmail, agent.Message{
		To:       p.Email,
		Template: agent.TemplateWelcome,
		Subject:  agent.Substitute(welcomeSubject, data),
		Body:     body,
		Data:     data,
	}, p.ID)

	run.Send(ctx, agent.ChannelSMS, agent.Message{
		To:       p.Phone,
		Template: agent.TemplateWelcome,
		Body:     agent.Substitute(welcomeSMS, data),
		Data:     data,
	}, p.ID)
}

// generateWelcome asks the writer for a personalised welcome. Failures fall back to the static text.
func (a *Agent) generateWelcome(ctx context.Context, run *agent.Run, p agent.Person) (string, bool) {
	if !a.settings.UseAIMessages {
		return "", false
	}

	if a.writer == nil {
		run.Warn("AI messages enabled but no writer configured, using default template", map[string]any{
			"person_id": p.ID,
		})
		return "", false
	}

	// A dry run logs in place of the live success entry so both produce the same log counts.
	if a.base.Context().DryRun {
		run.Info("[DRY-RUN] would generate personalised welcome", map[string]any{"person_id": p.ID})
		return "", false
	}

	prompt := fmt.Sprintf(welcomePrompt, a.settings.PastorName, a.settings.ChurchName, p.FirstName)
	text, err := a.writer.Write(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		run.Warn("AI message generation failed, using default template", map[string]any{
			"person_id": p.ID,
			"error":     err.Error(),
		})
		return "", false
	}

	run.Info("generated personalised welcome", map[string]any{"person_id": p.ID})
	return strings.TrimSpace(text), true
}
