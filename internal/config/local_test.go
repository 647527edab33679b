package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/lifeevent"
	"github.com/peteski22/steward/internal/newmember"
)

var testNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

func TestConfigDir(t *testing.T) {
	t.Parallel()

	dir, err := ConfigDir()

	require.NoError(t, err)
	require.Contains(t, dir, ".steward")
}

func TestConfigFilePath(t *testing.T) {
	t.Parallel()

	path, err := ConfigFilePath()

	require.NoError(t, err)
	require.Contains(t, path, ".steward")
	require.Contains(t, path, "config.yaml")
}

func TestStateFilePath(t *testing.T) {
	t.Parallel()

	path, err := StateFilePath()

	require.NoError(t, err)
	require.Contains(t, path, ".steward")
	require.Contains(t, path, "state.yaml")
}

func TestLocalConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() LocalConfig {
		return LocalConfig{
			Church:    Church{ID: "church-1", Name: "Grace Chapel", Timezone: "UTC"},
			ChurchAPI: LocalService{APIKey: "church-key"},
			Messaging: LocalMessaging{LocalService: LocalService{APIKey: "messaging-key"}},
		}
	}

	tests := map[string]struct {
		config       func() LocalConfig
		wantErr      bool
		errFragments []string
	}{
		"valid config": {
			config:  valid,
			wantErr: false,
		},
		"missing all required fields": {
			config:  func() LocalConfig { return LocalConfig{} },
			wantErr: true,
			errFragments: []string{
				"church.id is required",
				"church.name is required",
				"church_api.api_key is required",
				"messaging.api_key is required",
			},
		},
		"AI provider without key": {
			config: func() LocalConfig {
				c := valid()
				c.AI.Provider = "anthropic"
				return c
			},
			wantErr:      true,
			errFragments: []string{"ai.api_key is required"},
		},
		"unknown AI provider": {
			config: func() LocalConfig {
				c := valid()
				c.AI = LocalAI{APIKey: "k", Provider: "gemini"}
				return c
			},
			wantErr:      true,
			errFragments: []string{"ai.provider"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := tc.config()
			err := cfg.validate()

			if tc.wantErr {
				require.Error(t, err)
				for _, fragment := range tc.errFragments {
					require.Contains(t, err.Error(), fragment)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadLocalFile(t *testing.T) {
	t.Parallel()

	const base = `
church:
  id: "church-1"
  name: "Grace Chapel"
church_api:
  api_key: "church-key"
messaging:
  api_key: "messaging-key"
  from_email: "office@gracechapel.org"
`

	tests := map[string]struct {
		content     string
		wantErr     bool
		errContains string
		validateCfg func(t *testing.T, cfg *LocalConfig)
	}{
		"defaults without agents section": {
			content: base,
			validateCfg: func(t *testing.T, cfg *LocalConfig) {
				t.Helper()
				require.Equal(t, "UTC", cfg.Church.Timezone)
				require.Equal(t, "church-key", cfg.ChurchAPI.APIKey)
				require.Equal(t, "messaging-key", cfg.Messaging.APIKey)
				require.Equal(t, "office@gracechapel.org", cfg.Messaging.FromEmail)
				require.Len(t, cfg.Agents, 3)
				for _, a := range cfg.Agents {
					require.NoError(t, a.Validate())
				}
			},
		},
		"agents section": {
			content: base + `
ai:
  provider: "openai"
  api_key: "ai-key"
agents:
  - kind: new_member
    settings:
      pastor_name: "Pastor Dan"
      use_ai_messages: true
  - kind: life_event
    enabled: false
`,
			validateCfg: func(t *testing.T, cfg *LocalConfig) {
				t.Helper()
				require.Equal(t, "openai", cfg.AI.Provider)
				require.Len(t, cfg.Agents, 2)

				nm, ok := cfg.Agents[0].Settings.(*newmember.Settings)
				require.True(t, ok)
				require.Equal(t, "Pastor Dan", nm.PastorName)
				require.Equal(t, "Grace Chapel", nm.ChurchName)
				require.True(t, nm.UseAIMessages)

				require.Equal(t, "life-events", cfg.Agents[1].ID)
				require.False(t, cfg.Agents[1].Enabled)
				_, ok = cfg.Agents[1].Settings.(*lifeevent.Settings)
				require.True(t, ok)
			},
		},
		"invalid agent": {
			content: base + `
agents:
  - kind: prayer_chain
`,
			wantErr:     true,
			errContains: `unknown agent kind "prayer_chain"`,
		},
		"invalid yaml": {
			content:     `invalid: yaml: content: [}`,
			wantErr:     true,
			errContains: "parsing config",
		},
		"missing required fields": {
			content: `
church:
  id: "church-1"
`,
			wantErr:     true,
			errContains: "invalid config",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tc.content), 0o600))

			cfg, err := LoadLocalFile(configPath, testNow)

			if tc.wantErr {
				require.Error(t, err)
				if tc.errContains != "" {
					require.Contains(t, err.Error(), tc.errContains)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tc.validateCfg != nil {
					tc.validateCfg(t, cfg)
				}
			}
		})
	}
}

func TestLoadLocalFileNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "nonexistent.yaml")

	_, err := LoadLocalFile(configPath, testNow)

	require.Error(t, err)
	require.Contains(t, err.Error(), "config file not found")
}

func TestLocalConfigExists(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv().
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.False(t, LocalConfigExists())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".steward"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".steward", "config.yaml"), []byte("church: {}\n"), 0o600))

	require.True(t, LocalConfigExists())
}

func TestLocalAgentsUseChurchName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
church: {id: "c", name: "St Mark"}
church_api: {api_key: "k"}
messaging: {api_key: "k"}
agents:
  - kind: donation_processing
    status: paused
`), 0o600))

	cfg, err := LoadLocalFile(configPath, testNow)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 1)
	require.Equal(t, agent.StatusPaused, cfg.Agents[0].Status)
	require.False(t, cfg.Agents[0].IsActive())
}
