package lifeevent

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/peteski22/steward/internal/agent"
)

// message holds the subject and text used for one event type.
type message struct {
	smsBody      string
	emailSubject string
	emailBody    string
	template     agent.Template
}

var messages = map[EventType]message{
	EventBirthday: {
		template:     agent.TemplateBirthday,
		emailSubject: "Happy Birthday, {{firstName}}!",
		emailBody:    "Dear {{firstName}}, everyone at {{churchName}} is celebrating you today. Happy Birthday!",
		smsBody:      "Happy Birthday, {{firstName}}! Everyone at {{churchName}} is celebrating you today.",
	},
	EventMembershipAnniversary: {
		template:     agent.TemplateAnniversary,
		emailSubject: "Happy {{years}}-year anniversary at {{churchName}}!",
		emailBody:    "Dear {{firstName}}, {{years}} years ago today you joined {{churchName}}. Thank you for being part of our family.",
		smsBody:      "Happy {{years}}-year membership anniversary, {{firstName}}! We're grateful you're part of {{churchName}}.",
	},
}

// Config holds the required configuration for creating an Agent.
type Config struct {
	agent.BaseConfig

	// People is the roster scanned for events.
	People []agent.Person
}

// Agent greets people on their birthdays and membership anniversaries.
type Agent struct {
	base     *agent.Base
	people   []agent.Person
	settings *Settings
}

// New creates a life event agent.
func New(cfg Config) (*Agent, error) {
	base, err := agent.NewBase(cfg.BaseConfig, agent.KindLifeEvent)
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
	}, nil
}

// Execute finds today's events and greets each person, or records a staff notification when AutoSend is off.
func (a *Agent) Execute(ctx context.Context) agent.Result {
	if !a.base.IsActive() {
		return a.base.Skipped()
	}

	run := a.base.Start()
	events := a.FindTodaysEvents()

	run.Info(fmt.Sprintf("found %d life events", len(events)), map[string]any{
		"date":    a.base.Context().CurrentDate.Format(time.DateOnly),
		"people":  len(a.people),
		"preview": !a.settings.AutoSend,
	})

	for _, event := range events {
		if a.settings.AutoSend {
			a.greet(ctx, run, event)
			continue
		}
		a.notifyStaff(run, event)
	}

	result := run.Result()
	run.Info("life event run completed", map[string]any{
		"events":     len(events),
		"successful": result.SuccessfulActions,
		"failed":     result.FailedActions,
	})
	return run.Result()
}

// FindTodaysEvents returns the events falling on the context's current date.
func (a *Agent) FindTodaysEvents() []Event {
	return a.eventsOn(a.base.Context().CurrentDate)
}

// UpcomingEvents returns the events falling within the next daysAhead days, today included, sorted by date.
// It sends nothing and records no actions.
func (a *Agent) UpcomingEvents(daysAhead int) []Event {
	if daysAhead < 0 {
		return nil
	}

	today := agent.Day(a.base.Context().CurrentDate)

	var events []Event
	for offset := 0; offset <= daysAhead; offset++ {
		events = append(events, a.eventsOn(today.AddDate(0, 0, offset))...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// eventsOn applies the month/day matching rules to the whole roster for one date.
// Membership anniversaries are only reported from the first full year onwards.
func (a *Agent) eventsOn(day time.Time) []Event {
	var events []Event

	for _, p := range a.people {
		if p.Status == agent.PersonStatusInactive {
			continue
		}

		if a.settings.EnableBirthdays && p.BirthDate != nil && agent.IsSameMonthDay(*p.BirthDate, day) {
			events = append(events, newEvent(EventBirthday, p, day, agent.YearsBetween(*p.BirthDate, day)))
		}

		if a.settings.EnableMembershipAnniversaries && p.JoinDate != nil && agent.IsSameMonthDay(*p.JoinDate, day) {
			if years := agent.YearsBetween(*p.JoinDate, day); years > 0 {
				events = append(events, newEvent(EventMembershipAnniversary, p, day, years))
			}
		}
	}

	return events
}

// greet sends the event's greeting on each enabled channel. A failure on one channel does not stop the other.
func (a *Agent) greet(ctx context.Context, run *agent.Run, event Event) {
	msg, ok := messages[event.Type]
	if !ok {
		run.Warn("no greeting configured for event type", map[string]any{
			"event_type": string(event.Type),
			"person_id":  event.PersonID,
		})
		return
	}

	data := map[string]string{
		"churchName": a.settings.ChurchName,
		"firstName":  event.FirstName,
		"lastName":   event.LastName,
		"years":      strconv.Itoa(event.YearsCount),
	}

	if a.settings.SendEmail && event.Email != "" {
		run.Send(ctx, agent.ChannelEmail, agent.Message{
			To:       event.Email,
			Template: msg.template,
			Subject:  agent.Substitute(msg.emailSubject, data),
			Body:     agent.Substitute(msg.emailBody, data),
			Data:     data,
		}, event.PersonID)
	}

	if a.settings.SendSMS && event.Phone != "" {
		run.Send(ctx, agent.ChannelSMS, agent.Message{
			To:       event.Phone,
			Template: msg.template,
			Body:     agent.Substitute(msg.smsBody, data),
			Data:     data,
		}, event.PersonID)
	}
}

// notifyStaff records a heads-up for staff to review instead of greeting directly.
func (a *Agent) notifyStaff(run *agent.Run, event Event) {
	name := agent.Person{FirstName: event.FirstName, LastName: event.LastName}.FullName()

	run.Info(fmt.Sprintf("%s for %s awaiting review", event.Type, name), map[string]any{
		"person_id": event.PersonID,
	})
	run.RecordAction(agent.ActionNotification, true, agent.ActionOptions{
		TargetPersonID: event.PersonID,
		Metadata: map[string]any{
			"event_type":  string(event.Type),
			"years_count": event.YearsCount,
			"date":        event.Date.Format(time.DateOnly),
		},
	})
}

func newEvent(eventType EventType, p agent.Person, day time.Time, years int) Event {
	return Event{
		Date:       day,
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		PersonID:   p.ID,
		Phone:      p.Phone,
		Type:       eventType,
		YearsCount: years,
	}
}
