package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/config"
	"github.com/peteski22/steward/internal/newmember"
	"github.com/peteski22/steward/internal/runner"
	"github.com/peteski22/steward/internal/storage"
)

// localOptions adjust how the CLI builds the runner.
type localOptions struct {
	dryRun bool
	since  *time.Time
}

// localRunner is a runner built from the local config file.
type localRunner struct {
	churchID string
	logs     *storage.MemoryLogStore
	source   *runner.ChurchSource
	svc      *runner.Service
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "steward",
		Short: "Congregation care automation",
		Long: `Steward runs automation agents for a church: birthday and anniversary greetings,
donation receipts and giving alerts, and new member welcomes.

Run 'steward init' to create a config file, then 'steward run --dry-run' to see
what the agents would do without sending anything.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		newAgentsCmd(),
		newInitCmd(),
		newLapsedCmd(),
		newLogsCmd(),
		newPreviewCmd(),
		newRunCmd(),
		newWelcomeCmd(),
	)
	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a sample config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout())
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		dryRun  bool
		since   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every active agent once",
		Long: `Run every active agent once for the church's current date.

Donations are read since the last live run recorded in the local state file, or
the last 24 hours on the first run. Use --since to override the window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sinceTime, err := parseSince(since)
			if err != nil {
				return err
			}

			lr, err := loadLocalRunner(localOptions{dryRun: dryRun, since: sinceTime})
			if err != nil {
				return err
			}

			summary, err := lr.svc.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, summary)

			level := agent.LevelError
			if verbose {
				level = ""
			}
			logs, err := lr.logs.Logs(cmd.Context(), storage.LogQuery{ChurchID: lr.churchID, Level: level, Limit: storage.MaxLogLimit})
			if err != nil {
				return err
			}
			printLogs(out, logs)

			if !summary.Success() {
				return errors.New("run finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be sent without sending or saving state")
	cmd.Flags().StringVar(&since, "since", "", "Process donations since this time (RFC3339), e.g. 2024-01-01T00:00:00Z")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every agent log, not only errors")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List upcoming life events and recent new members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lr, err := loadLocalRunner(localOptions{dryRun: true})
			if err != nil {
				return err
			}

			preview, err := lr.svc.Preview(cmd.Context(), days)
			if err != nil {
				return err
			}

			printPreview(cmd.OutOrStdout(), preview, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to look ahead for events and back for new members")
	return cmd
}

func newWelcomeCmd() *cobra.Command {
	var (
		dryRun         bool
		joinDate       string
		previousStatus string
	)

	cmd := &cobra.Command{
		Use:   "welcome <person-id>",
		Short: "Welcome a person who has just become a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lr, err := loadLocalRunner(localOptions{dryRun: dryRun})
			if err != nil {
				return err
			}

			people, err := lr.source.People(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching people: %w", err)
			}
			person, ok := findPerson(people, args[0])
			if !ok {
				return fmt.Errorf("person %q not found", args[0])
			}

			joined := agent.Day(time.Now())
			if joinDate != "" {
				joined, err = time.Parse(time.DateOnly, joinDate)
				if err != nil {
					return fmt.Errorf("invalid --join-date value %q: expected YYYY-MM-DD", joinDate)
				}
			}

			result, err := lr.svc.NewMember(cmd.Context(), newmember.Event{
				JoinDate:       joined,
				NewStatus:      agent.PersonStatusMember,
				Person:         person,
				PreviousStatus: previousStatus,
			})
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			if !result.Success {
				return errors.New("welcome finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be sent without sending")
	cmd.Flags().StringVar(&joinDate, "join-date", "", "Membership date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&previousStatus, "previous-status", agent.PersonStatusVisitor, "Status before the person became a member")
	return cmd
}

func newLapsedCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "lapsed-check",
		Short: "Report regular givers who have stopped giving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lr, err := loadLocalRunner(localOptions{dryRun: dryRun})
			if err != nil {
				return err
			}

			result, err := lr.svc.LapsedCheck(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			if !result.Success {
				return errors.New("lapsed giver check finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the alert without sending it")
	return cmd
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Print the effective agent configuration, defaults included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			local, err := config.LoadLocal(time.Now())
			if err != nil {
				return err
			}

			doc, err := config.MarshalAgents(local.Agents)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}
}

// loadLocalRunner loads the local config file and builds a runner from it.
func loadLocalRunner(opts localOptions) (*localRunner, error) {
	local, err := config.LoadLocal(time.Now())
	if err != nil {
		return nil, err
	}
	return newLocalRunner(local, opts)
}

// newLocalRunner wires the runner for a local run: logs stay in memory and state lives in a file next to the config.
func newLocalRunner(local *config.LocalConfig, opts localOptions) (*localRunner, error) {
	c, err := newClients(credentials{
		AIKey:            local.AI.APIKey,
		AIModel:          local.AI.Model,
		AIProvider:       local.AI.Provider,
		ChurchAPIBaseURL: local.ChurchAPI.BaseURL,
		ChurchAPIKey:     local.ChurchAPI.APIKey,
		FromEmail:        local.Messaging.FromEmail,
		FromNumber:       local.Messaging.FromNumber,
		MessagingBaseURL: local.Messaging.BaseURL,
		MessagingKey:     local.Messaging.APIKey,
	})
	if err != nil {
		return nil, err
	}

	source, err := runner.NewChurchSource(c.church)
	if err != nil {
		return nil, err
	}

	location, err := local.Church.Location()
	if err != nil {
		return nil, err
	}

	state, err := localStateStore(opts.dryRun)
	if err != nil {
		return nil, err
	}

	logs := storage.NewMemoryLogStore()

	svc, err := runner.New(runner.Config{
		Agents:        local.Agents,
		ChurchID:      local.Church.ID,
		ChurchName:    local.Church.Name,
		DryRun:        opts.dryRun,
		Location:      location,
		Logger:        slog.Default(),
		Logs:          logs,
		Notifier:      c.notifier,
		SinceOverride: opts.since,
		Source:        source,
		State:         state,
		Tasks:         c.church,
		Writer:        c.writer,
	})
	if err != nil {
		return nil, err
	}

	return &localRunner{
		churchID: local.Church.ID,
		logs:     logs,
		source:   source,
		svc:      svc,
	}, nil
}

// localStateStore returns the file-backed state store, or a no-op store for dry runs so they never touch it.
func localStateStore(dryRun bool) (runner.StateStore, error) {
	if dryRun {
		return storage.NewNoopStateStore(time.Time{}), nil
	}

	path, err := config.StateFilePath()
	if err != nil {
		return nil, err
	}
	return storage.NewFileStateStore(path)
}

// parseSince parses the --since flag. An empty value means no override.
func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value %q: expected RFC3339, e.g. 2024-01-01T00:00:00Z", value)
	}
	return &t, nil
}

func findPerson(people []agent.Person, id string) (agent.Person, bool) {
	for _, p := range people {
		if p.ID == id {
			return p, true
		}
	}
	return agent.Person{}, false
}
