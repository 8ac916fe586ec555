package events

import (
	"context"

	"fulfillment-api/pkg/logging"
)

// Event names are the observable contract other components subscribe
// to. Payloads carry the affected serviceId/subscriptionId only,
// never credential secrets.
const (
	CredentialStockUpdated = "credential-stock-updated"
	SubscriptionAdded      = "subscription-added"
	SubscriptionUpdated    = "subscription-updated"
	StockIssueResolved     = "stock-issue-resolved"
)

// Sink is the narrow publishing capability the core subsystem depends
// on; the host application injects the concrete transport.
type Sink interface {
	Publish(ctx context.Context, event, subjectID string) error
}

// LogSink writes events to the application log. Used when no Redis
// URL is configured.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, event, subjectID string) error {
	logging.Infof("Event %s: %s", event, subjectID)
	return nil
}
