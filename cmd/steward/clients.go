package main

import (
	"fmt"

	"github.com/peteski22/steward/internal/ai"
	"github.com/peteski22/steward/internal/churchapi"
	"github.com/peteski22/steward/internal/messaging"
)

// credentials are the resolved keys and endpoints of the external services.
type credentials struct {
	AIKey            string
	AIModel          string
	AIProvider       string
	ChurchAPIBaseURL string
	ChurchAPIKey     string
	FromEmail        string
	FromNumber       string
	MessagingBaseURL string
	MessagingKey     string
}

// clients are the external service clients shared by the Lambda handler and the CLI.
type clients struct {
	church   *churchapi.Client
	notifier *messaging.Client
	writer   ai.Writer
}

// newClients creates the service clients. Empty optional settings leave the client defaults in place.
func newClients(creds credentials) (*clients, error) {
	var churchOpts []churchapi.Option
	if creds.ChurchAPIBaseURL != "" {
		churchOpts = append(churchOpts, churchapi.WithBaseURL(creds.ChurchAPIBaseURL))
	}
	church, err := churchapi.NewClient(creds.ChurchAPIKey, churchOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating church API client: %w", err)
	}

	var msgOpts []messaging.Option
	if creds.MessagingBaseURL != "" {
		msgOpts = append(msgOpts, messaging.WithBaseURL(creds.MessagingBaseURL))
	}
	if creds.FromEmail != "" {
		msgOpts = append(msgOpts, messaging.WithFromEmail(creds.FromEmail))
	}
	if creds.FromNumber != "" {
		msgOpts = append(msgOpts, messaging.WithFromNumber(creds.FromNumber))
	}
	notifier, err := messaging.NewClient(creds.MessagingKey, msgOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating messaging client: %w", err)
	}

	var aiOpts []ai.Option
	if creds.AIModel != "" {
		aiOpts = append(aiOpts, ai.WithModel(creds.AIModel))
	}
	writer, err := ai.New(ai.Provider(creds.AIProvider), creds.AIKey, aiOpts...)
	if err != nil {
		return nil, err
	}

	return &clients{
		church:   church,
		notifier: notifier,
		writer:   writer,
	}, nil
}
