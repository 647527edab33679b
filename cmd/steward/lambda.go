package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/churchapi"
	"github.com/peteski22/steward/internal/config"
	"github.com/peteski22/steward/internal/newmember"
	"github.com/peteski22/steward/internal/runner"
	"github.com/peteski22/steward/internal/storage"
)

const (
	// KindConfigureAgent updates one agent's configuration.
	KindConfigureAgent = "configure_agent"

	// KindLapsedCheck runs lapsed-giver detection.
	KindLapsedCheck = "lapsed_check"

	// KindNewMember welcomes a person who has just become a member.
	KindNewMember = "new_member"

	// KindRun runs every active agent. Scheduled events without a kind are treated as runs.
	KindRun = "run"
)

// Request is the Lambda invocation payload.
type Request struct {
	// Configure is the agent update for configure_agent requests.
	Configure *ConfigureRequest `json:"configure,omitempty"`

	// Kind selects the operation.
	Kind string `json:"kind"`

	// NewMember is the status transition for new_member requests.
	NewMember *NewMemberRequest `json:"newMember,omitempty"`
}

// ConfigureRequest changes one agent's switch or settings.
type ConfigureRequest struct {
	// AgentID is the agent to change.
	AgentID string `json:"agentId"`

	// Enabled turns the agent on or off when set.
	Enabled *bool `json:"enabled,omitempty"`

	// Settings is a partial YAML settings document merged over the current settings.
	Settings string `json:"settings,omitempty"`
}

// NewMemberRequest is a membership status transition reported by the church platform.
type NewMemberRequest struct {
	// JoinDate is the membership date as YYYY-MM-DD. Defaults to the invocation date.
	JoinDate string `json:"joinDate,omitempty"`

	// NewStatus is the status after the transition.
	NewStatus string `json:"newStatus"`

	// Person is the platform's person record.
	Person churchapi.Person `json:"person"`

	// PreviousStatus is the status before the transition.
	PreviousStatus string `json:"previousStatus"`
}

// Response is the Lambda invocation result.
type Response struct {
	// AlreadyRan lists agents that had already run on Date.
	AlreadyRan []string `json:"alreadyRan,omitempty"`

	// Date is the church-local date of the run.
	Date string `json:"date,omitempty"`

	// DryRun indicates sends were suppressed.
	DryRun bool `json:"dryRun"`

	// Errors contains run-level error messages.
	Errors []string `json:"errors,omitempty"`

	// Kind echoes the request kind.
	Kind string `json:"kind"`

	// Results holds one entry per agent invocation.
	Results []AgentResponse `json:"results,omitempty"`

	// Success is false when any error occurred or any action failed.
	Success bool `json:"success"`
}

// AgentResponse summarises one agent invocation.
type AgentResponse struct {
	AgentID           string   `json:"agentId"`
	Errors            []string `json:"errors,omitempty"`
	FailedActions     int      `json:"failedActions"`
	Skipped           bool     `json:"skipped,omitempty"`
	Success           bool     `json:"success"`
	SuccessfulActions int      `json:"successfulActions"`
}

// agentRunner is the runner behaviour the handler dispatches to.
type agentRunner interface {
	LapsedCheck(ctx context.Context) (agent.Result, error)
	NewMember(ctx context.Context, event newmember.Event) (agent.Result, error)
	Run(ctx context.Context) (*runner.Summary, error)
}

// agentConfigStore reads and replaces the agent configuration document.
type agentConfigStore interface {
	AgentConfigs(ctx context.Context) ([]byte, error)
	SaveAgentConfigs(ctx context.Context, doc []byte) error
}

// deployment holds what the handler builds from the environment on each invocation.
type deployment struct {
	agents   []agent.Config
	aws      awsClients
	configs  agentConfigStore
	settings *config.Settings
}

func handler(ctx context.Context, req Request) (*Response, error) {
	if req.Kind == "" {
		req.Kind = KindRun
	}
	slog.InfoContext(ctx, "starting invocation", "kind", req.Kind)

	d, err := loadDeployment(ctx)
	if err != nil {
		return nil, err
	}

	if req.Kind == KindConfigureAgent {
		return configureAgent(ctx, d.configs, d.agents, req.Configure, time.Now())
	}

	svc, err := newLambdaService(ctx, d)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if loc, err := d.settings.Church.Location(); err == nil {
		now = now.In(loc)
	}

	resp, err := dispatch(ctx, svc, req, d.settings.DryRun, now)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "invocation complete", "kind", req.Kind, "success", resp.Success)
	return resp, nil
}

// loadDeployment reads the environment configuration and the stored agent configurations.
func loadDeployment(ctx context.Context) (*deployment, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	ac := awsClients{
		dynamo:  dynamodb.NewFromConfig(awsCfg),
		secrets: secretsmanager.NewFromConfig(awsCfg),
		ssm:     ssm.NewFromConfig(awsCfg),
	}

	configs, err := storage.NewConfigStore(ac.ssm, settings.SSM.AgentConfigParameter)
	if err != nil {
		return nil, err
	}

	doc, err := configs.AgentConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading agent configs: %w", err)
	}

	agents, err := config.ParseAgents(doc, settings.Church.Name, time.Now())
	if err != nil {
		return nil, err
	}

	return &deployment{agents: agents, aws: ac, configs: configs, settings: settings}, nil
}

// awsClients are the AWS service clients used by the Lambda deployment.
type awsClients struct {
	dynamo  *dynamodb.Client
	secrets *secretsmanager.Client
	ssm     *ssm.Client
}

// newLambdaService resolves secrets and wires the runner to the AWS-backed stores.
func newLambdaService(ctx context.Context, d *deployment) (*runner.Service, error) {
	settings := d.settings
	awsc := d.aws

	secrets, err := storage.NewSecretStore(awsc.secrets)
	if err != nil {
		return nil, err
	}

	creds := credentials{
		AIModel:          settings.AI.Model,
		AIProvider:       settings.AI.Provider,
		ChurchAPIBaseURL: settings.ChurchAPI.BaseURL,
		FromEmail:        settings.Messaging.FromEmail,
		FromNumber:       settings.Messaging.FromNumber,
		MessagingBaseURL: settings.Messaging.BaseURL,
	}
	if creds.ChurchAPIKey, err = secrets.Secret(ctx, settings.ChurchAPI.APIKeySecretARN); err != nil {
		return nil, fmt.Errorf("getting church API key: %w", err)
	}
	if creds.MessagingKey, err = secrets.Secret(ctx, settings.Messaging.APIKeySecretARN); err != nil {
		return nil, fmt.Errorf("getting messaging API key: %w", err)
	}
	if settings.AI.Provider != "" {
		if creds.AIKey, err = secrets.Secret(ctx, settings.AI.APIKeySecretARN); err != nil {
			return nil, fmt.Errorf("getting AI API key: %w", err)
		}
	}

	c, err := newClients(creds)
	if err != nil {
		return nil, err
	}

	source, err := runner.NewChurchSource(c.church)
	if err != nil {
		return nil, err
	}

	logs, err := storage.NewLogStore(awsc.dynamo, settings.DynamoDB.LogTableName, settings.DynamoDB.LogRetention)
	if err != nil {
		return nil, err
	}

	guard, err := storage.NewRunGuard(awsc.dynamo, settings.DynamoDB.RunGuardTableName, settings.DynamoDB.LogRetention)
	if err != nil {
		return nil, err
	}

	state, err := storage.NewStateStore(awsc.ssm, settings.SSM.StatePrefix)
	if err != nil {
		return nil, err
	}

	location, err := settings.Church.Location()
	if err != nil {
		return nil, err
	}

	return runner.New(runner.Config{
		Agents:     d.agents,
		ChurchID:   settings.Church.ID,
		ChurchName: settings.Church.Name,
		DryRun:     settings.DryRun,
		Guard:      guard,
		Location:   location,
		Logger:     slog.Default(),
		Logs:       logs,
		Notifier:   c.notifier,
		Source:     source,
		State:      state,
		Tasks:      c.church,
		Writer:     c.writer,
	})
}

// dispatch runs the requested operation. now is the church-local invocation time.
func dispatch(ctx context.Context, svc agentRunner, req Request, dryRun bool, now time.Time) (*Response, error) {
	switch req.Kind {
	case KindRun:
		summary, err := svc.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("running agents: %w", err)
		}
		return summaryResponse(summary), nil

	case KindNewMember:
		event, err := newMemberEvent(req.NewMember, now)
		if err != nil {
			return nil, err
		}
		result, err := svc.NewMember(ctx, event)
		return resultResponse(req.Kind, result, dryRun, err), nil

	case KindLapsedCheck:
		result, err := svc.LapsedCheck(ctx)
		if errors.Is(err, runner.ErrAlreadyRan) {
			return &Response{Kind: req.Kind, DryRun: dryRun, AlreadyRan: []string{KindLapsedCheck}, Success: true}, nil
		}
		return resultResponse(req.Kind, result, dryRun, err), nil

	default:
		return nil, fmt.Errorf("unknown request kind %q", req.Kind)
	}
}

// newMemberEvent converts the request into the agent's event.
func newMemberEvent(req *NewMemberRequest, now time.Time) (newmember.Event, error) {
	if req == nil {
		return newmember.Event{}, errors.New("newMember is required for new_member requests")
	}

	person, err := req.Person.ToDomainType()
	if err != nil {
		return newmember.Event{}, err
	}
	if person.ID == "" {
		return newmember.Event{}, errors.New("newMember.person.id is required")
	}

	joinDate := agent.Day(now)
	if req.JoinDate != "" {
		joinDate, err = time.Parse(time.DateOnly, req.JoinDate)
		if err != nil {
			return newmember.Event{}, fmt.Errorf("parsing join date: %w", err)
		}
	}

	newStatus := req.NewStatus
	if newStatus == "" {
		newStatus = agent.PersonStatusMember
	}

	return newmember.Event{
		JoinDate:       joinDate,
		NewStatus:      newStatus,
		Person:         *person,
		PreviousStatus: req.PreviousStatus,
	}, nil
}

// configureAgent applies a configuration change to one agent and saves the whole document.
func configureAgent(
	ctx context.Context,
	store agentConfigStore,
	agents []agent.Config,
	req *ConfigureRequest,
	now time.Time,
) (*Response, error) {
	if req == nil || req.AgentID == "" {
		return nil, errors.New("configure.agentId is required for configure_agent requests")
	}

	idx := -1
	for i := range agents {
		if agents[i].ID == req.AgentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("agent %q not found", req.AgentID)
	}

	updated := make([]agent.Config, len(agents))
	copy(updated, agents)
	cfg := &updated[idx]

	if req.Settings != "" {
		if err := config.MergeSettings(cfg, []byte(req.Settings), now); err != nil {
			return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
		}
	}
	if req.Enabled != nil {
		cfg.SetEnabled(*req.Enabled, now)
	}

	doc, err := config.MarshalAgents(updated)
	if err != nil {
		return nil, err
	}
	if err := store.SaveAgentConfigs(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving agent configs: %w", err)
	}

	slog.InfoContext(ctx, "agent configuration updated",
		"agent_id", cfg.ID,
		"enabled", cfg.Enabled,
		"settings_changed", req.Settings != "")

	return &Response{Kind: KindConfigureAgent, Success: true}, nil
}

func summaryResponse(summary *runner.Summary) *Response {
	resp := &Response{
		AlreadyRan: summary.AlreadyRan,
		Date:       summary.Date.Format(time.DateOnly),
		DryRun:     summary.DryRun,
		Kind:       KindRun,
		Success:    summary.Success(),
	}
	for _, err := range summary.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	for _, r := range summary.Results {
		resp.Results = append(resp.Results, agentResponse(r))
	}
	return resp
}

func resultResponse(kind string, result agent.Result, dryRun bool, err error) *Response {
	resp := &Response{
		DryRun:  dryRun,
		Kind:    kind,
		Success: err == nil && result.Success,
	}
	if result.AgentID != "" {
		resp.Results = []AgentResponse{agentResponse(result)}
	}
	if err != nil {
		resp.Errors = []string{err.Error()}
	}
	return resp
}

func agentResponse(r agent.Result) AgentResponse {
	return AgentResponse{
		AgentID:           r.AgentID,
		Errors:            r.Errors,
		FailedActions:     r.FailedActions,
		Skipped:           r.Skipped,
		Success:           r.Success,
		SuccessfulActions: r.SuccessfulActions,
	}
}

