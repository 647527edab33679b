package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/peteski22/steward/internal/agent"
	"github.com/peteski22/steward/internal/config"
	"github.com/peteski22/steward/internal/storage"
)

// readRetention satisfies the log store constructor. Only writes use retention.
const readRetention = 90 * 24 * time.Hour

// logsFlags are the options of the logs command.
type logsFlags struct {
	agentID  string
	churchID string
	level    string
	limit    int
	stats    bool
	table    string
}

func newLogsCmd() *cobra.Command {
	var flags logsFlags

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read agent logs from the deployed log table",
		Long: `Read agent logs written by the Lambda deployment, newest first.

AWS credentials are taken from the environment, as for the AWS CLI. The table and
church default to the LOG_TABLE_NAME and CHURCH_ID environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := flags.query()
			if err != nil {
				return err
			}

			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading AWS config: %w", err)
			}

			store, err := storage.NewLogStore(dynamodb.NewFromConfig(awsCfg), flags.table, readRetention)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if flags.stats {
				stats, err := store.Stats(cmd.Context(), query.ChurchID, query.AgentID)
				if err != nil {
					return err
				}
				printStats(out, stats)
				return nil
			}

			logs, err := store.Logs(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(out, "No logs found.")
				return nil
			}
			printLogs(out, logs)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.agentID, "agent", "", "Only show logs of this agent")
	cmd.Flags().StringVar(&flags.churchID, "church", os.Getenv(config.EnvChurchID), "Church ID")
	cmd.Flags().StringVar(&flags.level, "level", "", "Only show logs of this level (info, warning, error)")
	cmd.Flags().IntVar(&flags.limit, "limit", storage.DefaultLogLimit, "Maximum number of logs")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "Show the agent's run statistics instead of logs (requires --agent)")
	cmd.Flags().StringVar(&flags.table, "table", os.Getenv(config.EnvLogTableName), "DynamoDB log table name")
	return cmd
}

// query validates the flags and builds the log query.
func (f logsFlags) query() (storage.LogQuery, error) {
	var errs []error

	if f.table == "" {
		errs = append(errs, errors.New("--table is required"))
	}
	if f.churchID == "" {
		errs = append(errs, errors.New("--church is required"))
	}
	if f.stats && f.agentID == "" {
		errs = append(errs, errors.New("--stats requires --agent"))
	}

	level := agent.LogLevel(f.level)
	switch level {
	case "", agent.LevelError, agent.LevelInfo, agent.LevelWarning:
	default:
		errs = append(errs, fmt.Errorf("invalid --level %q: expected info, warning or error", f.level))
	}

	if f.limit < 0 {
		errs = append(errs, errors.New("--limit must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return storage.LogQuery{}, err
	}

	return storage.LogQuery{
		AgentID:  f.agentID,
		ChurchID: f.churchID,
		Level:    level,
		Limit:    f.limit,
	}, nil
}
