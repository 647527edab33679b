package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/donation"
	"github.com/peteski22/steward/internal/lifeevent"
	"github.com/peteski22/steward/internal/newmember"
)

// defaultDonationWindow is how far back the first donation run looks.
const defaultDonationWindow = 24 * time.Hour

// ErrAlreadyRan is returned when the run guard shows the work was already done on the church's current date.
var ErrAlreadyRan = errors.New("agent already ran today")

// lapsedCheckSuffix distinguishes the lapsed-giver check from the agent's daily run in the run guard.
const lapsedCheckSuffix = "#lapsed-check"

// Config holds the required configuration for creating a Service.
type Config struct {
	// Agents are the church's agent configurations.
	Agents []agent.Config

	// ChurchID identifies the tenant.
	ChurchID string

	// ChurchName is the display name used in messages.
	ChurchName string

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// DryRun suppresses sends, run claims and state updates.
	DryRun bool

	// Guard prevents a second scheduled run on the same date (optional).
	Guard RunGuard

	// Location is the church's timezone, used to decide the current date. Defaults to UTC.
	Location *time.Location

	// Logger is the structured logger for the service.
	Logger *slog.Logger

	// Logs persists agent logs and run statistics.
	Logs LogStore

	// Notifier delivers email and SMS. Required unless DryRun is set.
	Notifier agent.Notifier

	// SinceOverride optionally overrides the start of the donation window.
	SinceOverride *time.Time

	// Source provides the church data.
	Source Source

	// State manages per-agent scheduling state.
	State StateStore

	// Tasks creates follow-up tasks (optional).
	Tasks agent.TaskSink

	// Writer generates personalised welcome messages (optional).
	Writer newmember.MessageWriter
}

// validate checks that all required Config fields are set.
func (c *Config) validate() error {
	var errs []error
	if c.ChurchID == "" {
		errs = append(errs, errors.New("church ID is required"))
	}
	if c.ChurchName == "" {
		errs = append(errs, errors.New("church name is required"))
	}
	if c.Logs == nil {
		errs = append(errs, errors.New("log store is required"))
	}
	if c.Notifier == nil && !c.DryRun {
		errs = append(errs, errors.New("notifier is required"))
	}
	if c.Source == nil {
		errs = append(errs, errors.New("source is required"))
	}
	if c.State == nil {
		errs = append(errs, errors.New("state store is required"))
	}
	for _, a := range c.Agents {
		if err := a.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", a.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Service runs a church's agents.
type Service struct {
	agents        []agent.Config
	churchID      string
	churchName    string
	clock         func() time.Time
	dryRun        bool
	guard         RunGuard
	location      *time.Location
	logger        *slog.Logger
	logs          LogStore
	notifier      agent.Notifier
	sinceOverride *time.Time
	source        Source
	state         StateStore
	tasks         agent.TaskSink
	writer        newmember.MessageWriter
}

// executor is implemented by every agent.
type executor interface {
	Execute(ctx context.Context) agent.Result
}

// New creates a new runner service.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	return &Service{
		agents:        cfg.Agents,
		churchID:      cfg.ChurchID,
		churchName:    cfg.ChurchName,
		clock:         clock,
		dryRun:        cfg.DryRun,
		guard:         cfg.Guard,
		location:      location,
		logger:        logger.With("church_id", cfg.ChurchID),
		logs:          cfg.Logs,
		notifier:      cfg.Notifier,
		sinceOverride: cfg.SinceOverride,
		source:        cfg.Source,
		state:         cfg.State,
		tasks:         cfg.Tasks,
		writer:        cfg.Writer,
	}, nil
}

// Run executes every configured agent once for the church's current date.
// Failures of one agent are collected in the summary and do not stop the others.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	startedAt := s.clock()
	today := s.today(startedAt)
	summary := &Summary{Date: today, DryRun: s.dryRun}

	people, err := s.source.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching people: %w", err)
	}

	s.logger.Info("starting agent run",
		"date", today.Format(time.DateOnly),
		"agents", len(s.agents),
		"people", len(people),
		"dry_run", s.dryRun)

	for _, cfg := range s.agents {
		result, err := s.runAgent(ctx, cfg, people, today, startedAt)
		if errors.Is(err, ErrAlreadyRan) {
			summary.AlreadyRan = append(summary.AlreadyRan, cfg.ID)
			continue
		}
		if result != nil {
			summary.Results = append(summary.Results, *result)
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("agent %s: %w", cfg.ID, err))
			s.logger.Error("agent run failed", "agent_id", cfg.ID, "error", err)
		}
	}

	s.logRunComplete(summary)
	return summary, nil
}

// NewMember welcomes a person who has just become a member.
func (s *Service) NewMember(ctx context.Context, event newmember.Event) (agent.Result, error) {
	cfg, ok := s.findAgent(agent.KindNewMember)
	if !ok {
		return agent.Result{}, errors.New("no new member agent is configured")
	}

	startedAt := s.clock()
	a, err := newmember.New(newmember.Config{
		BaseConfig: s.baseConfig(cfg, s.today(startedAt)),
		Writer:     s.writer,
	})
	if err != nil {
		return agent.Result{}, err
	}

	result := a.HandleNewMember(ctx, event)
	return result, s.persist(ctx, result, startedAt)
}

// LapsedCheck runs lapsed-giver detection on its own cadence. It is claimed separately from the daily run.
func (s *Service) LapsedCheck(ctx context.Context) (agent.Result, error) {
	cfg, ok := s.findAgent(agent.KindDonationProcessing)
	if !ok {
		return agent.Result{}, errors.New("no donation processing agent is configured")
	}

	startedAt := s.clock()
	today := s.today(startedAt)

	if !cfg.IsActive() {
		return skippedResult(cfg, s.dryRun), nil
	}
	if settings, ok := cfg.Settings.(*donation.Settings); !ok || !settings.DetectLapsedGivers {
		return agent.Result{}, fmt.Errorf("lapsed giver detection is disabled for agent %s", cfg.ID)
	}

	history, err := s.source.GivingHistory(ctx)
	if err != nil {
		return agent.Result{}, fmt.Errorf("fetching giving history: %w", err)
	}

	people, err := s.source.People(ctx)
	if err != nil {
		return agent.Result{}, fmt.Errorf("fetching people: %w", err)
	}

	a, err := donation.New(donation.Config{
		BaseConfig: s.baseConfig(cfg, today),
		History:    history,
		People:     indexPeople(people),
	})
	if err != nil {
		return agent.Result{}, err
	}

	if err := s.claim(ctx, cfg.ID+lapsedCheckSuffix, today); err != nil {
		return agent.Result{}, err
	}

	result := a.CheckLapsedGivers(ctx)
	return result, s.persist(ctx, result, startedAt)
}

// Preview returns the life events and new members of the next days without executing any agent.
func (s *Service) Preview(ctx context.Context, days int) (*Preview, error) {
	if days < 0 {
		return nil, errors.New("days must not be negative")
	}

	today := s.today(s.clock())
	people, err := s.source.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching people: %w", err)
	}

	preview := &Preview{Date: today}

	if cfg, ok := s.findAgent(agent.KindLifeEvent); ok {
		a, err := lifeevent.New(lifeevent.Config{BaseConfig: s.previewConfig(cfg, today), People: people})
		if err != nil {
			return nil, err
		}
		preview.Events = a.UpcomingEvents(days)
	}

	if cfg, ok := s.findAgent(agent.KindNewMember); ok {
		a, err := newmember.New(newmember.Config{BaseConfig: s.previewConfig(cfg, today), People: people})
		if err != nil {
			return nil, err
		}
		preview.NewMembers = a.FindNewMembers(days)
	}

	return preview, nil
}

// runAgent prepares, claims, executes and persists one agent. The returned result is nil when nothing ran.
func (s *Service) runAgent(
	ctx context.Context,
	cfg agent.Config,
	people []agent.Person,
	today time.Time,
	startedAt time.Time,
) (*agent.Result, error) {
	if !cfg.IsActive() {
		s.logger.Info("agent inactive, skipping", "agent_id", cfg.ID, "status", cfg.Status, "enabled", cfg.Enabled)
		result := skippedResult(cfg, s.dryRun)
		return &result, nil
	}

	exec, err := s.prepare(ctx, cfg, people, today)
	if err != nil {
		return nil, err
	}

	if err := s.claim(ctx, cfg.ID, today); err != nil {
		return nil, err
	}

	result := exec.Execute(ctx)
	var errs []error

	if err := s.persist(ctx, result, startedAt); err != nil {
		errs = append(errs, err)
	}

	if !s.dryRun && cfg.Settings.Kind() == agent.KindDonationProcessing {
		if err := s.state.SetLastRunTime(ctx, cfg.ID, startedAt); err != nil {
			errs = append(errs, fmt.Errorf("updating last run time: %w", err))
		}
	}

	return &result, errors.Join(errs...)
}

// prepare loads the data an agent needs and constructs it.
func (s *Service) prepare(ctx context.Context, cfg agent.Config, people []agent.Person, today time.Time) (executor, error) {
	base := s.baseConfig(cfg, today)

	switch cfg.Settings.Kind() {
	case agent.KindLifeEvent:
		return lifeevent.New(lifeevent.Config{BaseConfig: base, People: people})
	case agent.KindNewMember:
		return newmember.New(newmember.Config{BaseConfig: base, People: people, Writer: s.writer})
	case agent.KindDonationProcessing:
		return s.prepareDonations(ctx, base, people)
	default:
		return nil, fmt.Errorf("unsupported agent kind %q", cfg.Settings.Kind())
	}
}

func (s *Service) prepareDonations(ctx context.Context, base agent.BaseConfig, people []agent.Person) (executor, error) {
	since, err := s.donationWindow(ctx, base.Agent.ID)
	if err != nil {
		return nil, err
	}

	donations, err := s.source.Donations(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetching donations: %w", err)
	}

	known, err := s.source.KnownDonorIDs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetching known donors: %w", err)
	}

	var history map[string]donation.GivingHistory
	if settings, ok := base.Agent.Settings.(*donation.Settings); ok && settings.DetectLapsedGivers {
		history, err = s.source.GivingHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching giving history: %w", err)
		}
	}

	s.logger.Info("fetched donations",
		"agent_id", base.Agent.ID,
		"since", since,
		"count", len(donations),
		"known_donors", len(known))

	return donation.New(donation.Config{
		BaseConfig:  base,
		Donations:   donations,
		History:     history,
		KnownDonors: donation.NewKnownDonors(known...),
		People:      indexPeople(people),
	})
}

// donationWindow returns the start of the donation window: the override, the last live run, or the default window.
func (s *Service) donationWindow(ctx context.Context, agentID string) (time.Time, error) {
	if s.sinceOverride != nil {
		s.logger.Info("using override donation window", "agent_id", agentID, "since", *s.sinceOverride)
		return *s.sinceOverride, nil
	}

	since, err := s.state.LastRunTime(ctx, agentID)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last run time: %w", err)
	}

	if since.IsZero() {
		since = s.clock().Add(-defaultDonationWindow)
		s.logger.Info("initial donation run detected", "agent_id", agentID, "since", since)
	}

	return since, nil
}

// claim takes the run guard for key on date. Dry runs and services without a guard always proceed.
func (s *Service) claim(ctx context.Context, key string, date time.Time) error {
	if s.dryRun || s.guard == nil {
		return nil
	}

	claimed, err := s.guard.Claim(ctx, s.churchID, key, date)
	if err != nil {
		return fmt.Errorf("claiming run: %w", err)
	}
	if !claimed {
		s.logger.Info("agent already ran today, skipping", "agent_id", key, "date", date.Format(time.DateOnly))
		return ErrAlreadyRan
	}
	return nil
}

// persist stores the run's logs, and for live runs its statistics.
func (s *Service) persist(ctx context.Context, result agent.Result, at time.Time) error {
	var errs []error

	if len(result.Logs) > 0 {
		if err := s.logs.SaveLogs(ctx, s.churchID, result.Logs); err != nil {
			errs = append(errs, fmt.Errorf("saving logs: %w", err))
		}
	}

	if !s.dryRun && !result.Skipped {
		if err := s.logs.RecordResult(ctx, s.churchID, result, at); err != nil {
			errs = append(errs, fmt.Errorf("recording result: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Service) baseConfig(cfg agent.Config, today time.Time) agent.BaseConfig {
	return agent.BaseConfig{
		Agent: cfg,
		Clock: s.clock,
		Context: agent.Context{
			ChurchID:    s.churchID,
			ChurchName:  s.churchName,
			CurrentDate: today,
			DryRun:      s.dryRun,
		},
		Logger:   s.logger,
		Notifier: s.notifier,
		Tasks:    s.tasks,
	}
}

// previewConfig is a dry-run base config so previews can never send.
func (s *Service) previewConfig(cfg agent.Config, today time.Time) agent.BaseConfig {
	base := s.baseConfig(cfg, today)
	base.Context.DryRun = true
	return base
}

func (s *Service) findAgent(kind agent.Kind) (agent.Config, bool) {
	for _, cfg := range s.agents {
		if cfg.Settings != nil && cfg.Settings.Kind() == kind {
			return cfg, true
		}
	}
	return agent.Config{}, false
}

// today is the church-local calendar date of t.
func (s *Service) today(t time.Time) time.Time {
	return agent.Day(t.In(s.location))
}

// logRunComplete logs the final run summary.
func (s *Service) logRunComplete(summary *Summary) {
	s.logger.Info("agent run completed",
		"date", summary.Date.Format(time.DateOnly),
		"agents_run", len(summary.Results),
		"already_ran", len(summary.AlreadyRan),
		"successful_actions", summary.SuccessfulActions(),
		"failed_actions", summary.FailedActions(),
		"errors", len(summary.Errors),
		"dry_run", s.dryRun)
}

func indexPeople(people []agent.Person) map[string]agent.Person {
	byID := make(map[string]agent.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}
	return byID
}

func skippedResult(cfg agent.Config, dryRun bool) agent.Result {
	return agent.Result{
		AgentID: cfg.ID,
		DryRun:  dryRun,
		Skipped: true,
		Success: true,
	}
}
