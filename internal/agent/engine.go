package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ActionOptions holds the optional fields of a recorded action.
type ActionOptions struct {
	// Error is the failure reason for an unsuccessful action.
	Error string

	// Metadata carries additional structured context.
	Metadata map[string]any

	// TargetPersonID is the person the action concerns.
	TargetPersonID string

	// Template is the message template used.
	Template Template

	// TemplateData holds the substitution values used.
	TemplateData map[string]string
}

// Base holds what every agent shares: its configuration, the execution context and the collaborators.
// Concrete agents embed no behaviour from it; they call Start for each invocation.
type Base struct {
	clock    func() time.Time
	config   Config
	context  Context
	logger   *slog.Logger
	notifier Notifier
	tasks    TaskSink
}

// BaseConfig holds the required configuration for creating a Base.
type BaseConfig struct {
	// Agent is the agent configuration.
	Agent Config

	// Clock returns the wall-clock time used for log and action timestamps. Defaults to time.Now.
	Clock func() time.Time

	// Context is the execution context.
	Context Context

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Notifier delivers email and SMS. Required unless Context.DryRun is set.
	Notifier Notifier

	// Tasks creates follow-up tasks. Optional.
	Tasks TaskSink
}

// validate checks that all required BaseConfig fields are set.
func (c *BaseConfig) validate(kind Kind) error {
	var errs []error
	if err := c.Agent.Validate(); err != nil {
		errs = append(errs, err)
	} else if c.Agent.Settings.Kind() != kind {
		errs = append(errs, fmt.Errorf("agent %s has %s settings, want %s", c.Agent.ID, c.Agent.Settings.Kind(), kind))
	}
	if c.Context.CurrentDate.IsZero() {
		errs = append(errs, errors.New("current date is required"))
	}
	if c.Notifier == nil && !c.Context.DryRun {
		errs = append(errs, errors.New("notifier is required"))
	}
	return errors.Join(errs...)
}

// NewBase validates cfg for an agent of the given kind and returns the shared engine state.
func NewBase(cfg BaseConfig, kind Kind) (*Base, error) {
	if err := cfg.validate(kind); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent_id", cfg.Agent.ID, "church_id", cfg.Context.ChurchID)

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	notifier := cfg.Notifier
	tasks := cfg.Tasks
	if cfg.Context.DryRun {
		notifier = newDryRunNotifier(logger)
		if tasks != nil {
			tasks = &dryRunTaskSink{logger: logger}
		}
	}

	return &Base{
		clock:    clock,
		config:   cfg.Agent,
		context:  cfg.Context,
		logger:   logger,
		notifier: notifier,
		tasks:    tasks,
	}, nil
}

// CalculateYears returns whole years from the given date to the context's current date.
func (b *Base) CalculateYears(from time.Time) int {
	return YearsBetween(from, b.context.CurrentDate)
}

// Config returns the agent configuration.
func (b *Base) Config() Config {
	return b.config
}

// Context returns the execution context.
func (b *Base) Context() Context {
	return b.context
}

// IsActive reports whether the agent may execute.
func (b *Base) IsActive() bool {
	return b.config.IsActive()
}

// Skipped returns the result of an invocation that did nothing because the agent is inactive.
func (b *Base) Skipped() Result {
	return Result{
		AgentID: b.config.ID,
		DryRun:  b.context.DryRun,
		Skipped: true,
		Success: true,
	}
}

// Now returns the current wall-clock time from the configured clock.
func (b *Base) Now() time.Time {
	return b.clock()
}

// Start begins a new invocation with empty log and action buffers.
func (b *Base) Start() *Run {
	return &Run{base: b}
}

// Run accumulates the logs and actions of one invocation. It is not safe for concurrent use.
type Run struct {
	actions []Action
	base    *Base
	logs    []Log
}

// CreateTask hands a follow-up task to the TaskSink and records the outcome.
// When no TaskSink is configured it logs a warning and returns false without recording an action.
func (r *Run) CreateTask(ctx context.Context, task Task) (Action, bool) {
	if r.base.tasks == nil {
		r.Warn("no task sink configured, skipping follow-up task", map[string]any{
			"person_id": task.PersonID,
			"title":     task.Title,
		})
		return Action{}, false
	}

	meta := map[string]any{
		"title":    task.Title,
		"due_date": task.DueDate.Format(time.DateOnly),
		"priority": task.Priority,
		"category": task.Category,
	}
	if task.AssignedTo != "" {
		meta["assigned_to"] = task.AssignedTo
	}

	if err := r.base.tasks.CreateTask(ctx, task); err != nil {
		r.Error("failed to create task", map[string]any{
			"person_id": task.PersonID,
			"title":     task.Title,
			"error":     err.Error(),
		})
		return r.RecordAction(ActionTask, false, ActionOptions{
			TargetPersonID: task.PersonID,
			Metadata:       meta,
			Error:          err.Error(),
		}), true
	}

	r.Info(r.prefix()+"created follow-up task", map[string]any{
		"person_id": task.PersonID,
		"title":     task.Title,
	})
	return r.RecordAction(ActionTask, true, ActionOptions{
		TargetPersonID: task.PersonID,
		Metadata:       meta,
	}), true
}

// Error appends an error-level log entry.
func (r *Run) Error(message string, metadata map[string]any) {
	r.log(LevelError, message, metadata)
}

// Info appends an info-level log entry.
func (r *Run) Info(message string, metadata map[string]any) {
	r.log(LevelInfo, message, metadata)
}

// RecordAction appends an action and returns it.
func (r *Run) RecordAction(actionType ActionType, success bool, opts ActionOptions) Action {
	action := Action{
		AgentID:        r.base.config.ID,
		Error:          opts.Error,
		ID:             uuid.NewString(),
		Metadata:       opts.Metadata,
		Success:        success,
		TargetPersonID: opts.TargetPersonID,
		Template:       opts.Template,
		TemplateData:   opts.TemplateData,
		Timestamp:      r.base.clock(),
		Type:           actionType,
	}
	r.actions = append(r.actions, action)
	return action
}

// Result computes the summary of the invocation so far.
func (r *Run) Result() Result {
	result := Result{
		Actions: append([]Action(nil), r.actions...),
		AgentID: r.base.config.ID,
		DryRun:  r.base.context.DryRun,
		Logs:    append([]Log(nil), r.logs...),
	}

	for _, a := range r.actions {
		if a.Success {
			result.SuccessfulActions++
			continue
		}
		result.FailedActions++
	}
	for _, l := range r.logs {
		if l.Level == LevelError {
			result.Errors = append(result.Errors, l.Message+errorSuffix(l.Metadata))
		}
	}
	result.Success = result.FailedActions == 0

	return result
}

// Send delivers msg on the given channel and records the outcome as an action.
// A message without a recipient is skipped silently and reports false.
// Provider rejections, transport errors and panics are logged and recorded as failed actions.
func (r *Run) Send(ctx context.Context, channel Channel, msg Message, targetPersonID string) (Action, bool) {
	if msg.To == "" {
		return Action{}, false
	}

	opts := ActionOptions{
		Template:       msg.Template,
		TemplateData:   msg.Data,
		TargetPersonID: targetPersonID,
	}

	res, err := r.deliver(ctx, channel, msg)
	if err == nil && !res.Success {
		err = errors.New(res.Error)
		if res.Error == "" {
			err = errors.New("provider rejected message")
		}
	}
	if err != nil {
		r.Error(fmt.Sprintf("failed to send %s", channel), map[string]any{
			"to":        msg.To,
			"template":  string(msg.Template),
			"person_id": targetPersonID,
			"error":     err.Error(),
		})
		opts.Error = err.Error()
		return r.RecordAction(channel.actionType(), false, opts), true
	}

	r.Info(fmt.Sprintf("%ssent %s", r.prefix(), channel), map[string]any{
		"to":         msg.To,
		"template":   string(msg.Template),
		"person_id":  targetPersonID,
		"message_id": res.MessageID,
	})
	opts.Metadata = map[string]any{"message_id": res.MessageID}
	return r.RecordAction(channel.actionType(), true, opts), true
}

// Warn appends a warning-level log entry.
func (r *Run) Warn(message string, metadata map[string]any) {
	r.log(LevelWarning, message, metadata)
}

// deliver calls the notifier, converting a panic into an error so one bad send cannot abort the run.
func (r *Run) deliver(ctx context.Context, channel Channel, msg Message) (res SendResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panicked: %v", p)
		}
	}()

	if channel == ChannelSMS {
		return r.base.notifier.SendSMS(ctx, msg)
	}
	return r.base.notifier.SendEmail(ctx, msg)
}

func (r *Run) log(level LogLevel, message string, metadata map[string]any) {
	entry := Log{
		AgentID:   r.base.config.ID,
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Metadata:  metadata,
		Timestamp: r.base.clock(),
	}
	r.logs = append(r.logs, entry)

	attrs := make([]any, 0, len(metadata)*2)
	for k, v := range metadata {
		attrs = append(attrs, k, v)
	}
	switch level {
	case LevelError:
		r.base.logger.Error(message, attrs...)
	case LevelWarning:
		r.base.logger.Warn(message, attrs...)
	default:
		r.base.logger.Info(message, attrs...)
	}
}

// prefix marks dry-run messages so operators can tell them apart from live sends.
func (r *Run) prefix() string {
	if r.base.context.DryRun {
		return "[DRY-RUN] would have "
	}
	return ""
}

func errorSuffix(metadata map[string]any) string {
	if e, ok := metadata["error"].(string); ok && e != "" {
		return ": " + e
	}
	return ""
}
