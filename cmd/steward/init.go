package main

import (
	"fmt"
	"io"
	"os"

	"github.com/peteski22/steward/internal/config"
)

const configTemplate = `# Steward Configuration

church:
  # Required: the church ID on the church data platform.
  id: ""
  # Required: the name used in greetings and receipts.
  name: ""
  # IANA timezone deciding what "today" is (default: UTC).
  timezone: "America/Chicago"

church_api:
  # From the church platform -> Settings -> Integrations -> API keys.
  api_key: ""
  # Optional: override the API base URL.
  base_url: ""

messaging:
  # From the messaging gateway dashboard -> API keys.
  api_key: ""
  # Optional: sender address and number, otherwise the gateway defaults are used.
  from_email: ""
  from_number: ""

ai:
  # Optional: personalised welcome emails. Provider is "anthropic" or "openai".
  provider: ""
  api_key: ""
  model: ""

# Agents to run. Remove this section to run all agents with default settings.
# Run 'steward agents' to see every setting and its current value.
agents:
  - kind: life_event
    settings:
      send_sms: false
  - kind: donation_processing
    settings:
      large_gift_threshold: 1000
      detect_lapsed_givers: false
  - kind: new_member
    settings:
      pastor_name: "Pastor"
`

// runInit creates a sample configuration file.
func runInit(w io.Writer) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	configPath, err := config.ConfigFilePath()
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	statePath, err := config.StateFilePath()
	if err != nil {
		return fmt.Errorf("getting state path: %w", err)
	}

	fmt.Fprintln(w, "Created config file:", configPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Edit the config file with your church details and API keys")
	fmt.Fprintln(w, "  2. Run 'steward preview' to see upcoming birthdays and new members")
	fmt.Fprintln(w, "  3. Run 'steward run --dry-run' to test without sending anything")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run state will be stored at: %s\n", statePath)

	return nil
}
