package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/donation"
	"github.com/peteski22/steward/internal/lifeevent"
	"github.com/peteski22/steward/internal/newmember"
)

// agentDocument is one entry of an agent configuration document.
// Omitted fields keep the defaults of the agent's kind.
type agentDocument struct {
	Category agent.Category `yaml:"category,omitempty"`
	Enabled  *bool          `yaml:"enabled,omitempty"`
	ID       string         `yaml:"id,omitempty"`
	Kind     agent.Kind     `yaml:"kind"`
	Name     string         `yaml:"name,omitempty"`
	Settings yaml.Node      `yaml:"settings,omitempty"`
	Status   agent.Status   `yaml:"status,omitempty"`
}

// agentOutput is the encoded form of one agent configuration.
type agentOutput struct {
	Category agent.Category `yaml:"category"`
	Enabled  bool           `yaml:"enabled"`
	ID       string         `yaml:"id"`
	Kind     agent.Kind     `yaml:"kind"`
	Name     string         `yaml:"name"`
	Settings agent.Settings `yaml:"settings"`
	Status   agent.Status   `yaml:"status"`
}

// DefaultAgentConfig returns the default configuration for an agent kind.
func DefaultAgentConfig(kind agent.Kind, churchName string, now time.Time) (agent.Config, error) {
	switch kind {
	case agent.KindDonationProcessing:
		return donation.DefaultConfig(churchName, now), nil
	case agent.KindLifeEvent:
		return lifeevent.DefaultConfig(churchName, now), nil
	case agent.KindNewMember:
		return newmember.DefaultConfig(churchName, now), nil
	default:
		return agent.Config{}, fmt.Errorf("unknown agent kind %q", kind)
	}
}

// DefaultAgents returns the default configuration of every agent kind.
func DefaultAgents(churchName string, now time.Time) []agent.Config {
	return []agent.Config{
		lifeevent.DefaultConfig(churchName, now),
		donation.DefaultConfig(churchName, now),
		newmember.DefaultConfig(churchName, now),
	}
}

// MarshalAgents encodes agent configurations as a YAML document that ParseAgents accepts.
func MarshalAgents(cfgs []agent.Config) ([]byte, error) {
	out := make([]agentOutput, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Settings == nil {
			return nil, fmt.Errorf("agent %s has no settings", c.ID)
		}
		out = append(out, agentOutput{
			Category: c.Category,
			Enabled:  c.Enabled,
			ID:       c.ID,
			Kind:     c.Settings.Kind(),
			Name:     c.Name,
			Settings: c.Settings,
			Status:   c.Status,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding agent configs: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding agent configs: %w", err)
	}
	return buf.Bytes(), nil
}

// MergeSettings applies a partial YAML settings document onto the agent's settings.
// Keys present in patch replace the current values and absent keys are kept. The merged settings
// are validated before cfg is changed.
func MergeSettings(cfg *agent.Config, patch []byte, now time.Time) error {
	merged, err := cloneSettings(cfg.Settings)
	if err != nil {
		return err
	}

	if err := decodeSettings(patch, merged); err != nil {
		return fmt.Errorf("parsing settings patch: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("invalid %s settings: %w", merged.Kind(), err)
	}

	cfg.Settings = merged
	cfg.UpdatedAt = now
	return nil
}

// ParseAgents decodes an agent configuration document. An empty document yields DefaultAgents.
// Each entry selects its settings type by kind, starts from that kind's defaults and is validated.
func ParseAgents(data []byte, churchName string, now time.Time) ([]agent.Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return DefaultAgents(churchName, now), nil
	}

	var docs []agentDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing agent configs: %w", err)
	}

	return buildAgents(docs, churchName, now)
}

func buildAgents(docs []agentDocument, churchName string, now time.Time) ([]agent.Config, error) {
	if len(docs) == 0 {
		return DefaultAgents(churchName, now), nil
	}

	var errs []error
	cfgs := make([]agent.Config, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))

	for i, doc := range docs {
		cfg, err := doc.toConfig(churchName, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("agent %d: %w", i, err))
			continue
		}
		if _, ok := seen[cfg.ID]; ok {
			errs = append(errs, fmt.Errorf("agent %d: duplicate agent ID %q", i, cfg.ID))
			continue
		}
		seen[cfg.ID] = struct{}{}
		cfgs = append(cfgs, cfg)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfgs, nil
}

func (d *agentDocument) toConfig(churchName string, now time.Time) (agent.Config, error) {
	cfg, err := DefaultAgentConfig(d.Kind, churchName, now)
	if err != nil {
		return agent.Config{}, err
	}

	if d.Category != "" {
		cfg.Category = d.Category
	}
	if d.Enabled != nil {
		cfg.Enabled = *d.Enabled
	}
	if d.ID != "" {
		cfg.ID = d.ID
	}
	if d.Name != "" {
		cfg.Name = d.Name
	}
	if d.Status != "" {
		cfg.Status = d.Status
	}

	if !d.Settings.IsZero() {
		raw, err := yaml.Marshal(&d.Settings)
		if err != nil {
			return agent.Config{}, fmt.Errorf("reading %s settings: %w", d.Kind, err)
		}
		if err := decodeSettings(raw, cfg.Settings); err != nil {
			return agent.Config{}, fmt.Errorf("decoding %s settings: %w", d.Kind, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return agent.Config{}, fmt.Errorf("%s: %w", cfg.ID, err)
	}
	return cfg, nil
}

// decodeSettings decodes a settings document onto s, rejecting keys s does not define.
// An empty document leaves s unchanged.
func decodeSettings(data []byte, s agent.Settings) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func cloneSettings(s agent.Settings) (agent.Settings, error) {
	switch v := s.(type) {
	case *donation.Settings:
		c := *v
		return &c, nil
	case *lifeevent.Settings:
		c := *v
		return &c, nil
	case *newmember.Settings:
		c := *v
		c.DripCampaignDays = slices.Clone(v.DripCampaignDays)
		c.DripMessages = slices.Clone(v.DripMessages)
		return &c, nil
	default:
		return nil, fmt.Errorf("unsupported settings type %T", s)
	}
}
