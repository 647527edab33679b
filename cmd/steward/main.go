// Package main provides the steward entry point: the Lambda handler on AWS and the local CLI everywhere else.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
)

// lambdaRuntimeEnv is set by the Lambda runtime.
const lambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"

func main() {
	if os.Getenv(lambdaRuntimeEnv) != "" {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		lambda.Start(handler)
		return
	}

	// CLI output goes to stdout, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
