package services

import (
	"context"
	"fmt"

	"fulfillment-api/internal/events"
	"fulfillment-api/pkg/logging"
)

// Dispatcher fans fulfillment signals out to external collaborators:
// the event bus, the operations mailbox, and an optional webhook
// endpoint. Delivery is best-effort; a failed notification is logged
// and swallowed, never rolled back into the allocation or resolution
// it accompanies.
type Dispatcher struct {
	sink     events.Sink
	mailer   Mailer
	webhook  *WebhookAlerter
	opsEmail string
}

// NewDispatcher wires the dispatcher. mailer and webhook may be nil.
func NewDispatcher(sink events.Sink, mailer Mailer, webhook *WebhookAlerter, opsEmail string) *Dispatcher {
	if sink == nil {
		sink = events.LogSink{}
	}
	return &Dispatcher{
		sink:     sink,
		mailer:   mailer,
		webhook:  webhook,
		opsEmail: opsEmail,
	}
}

// publish emits a bus event, swallowing failures.
func (d *Dispatcher) publish(ctx context.Context, event, subjectID string) {
	if err := d.sink.Publish(ctx, event, subjectID); err != nil {
		logging.Errorf("Failed to publish %s for %s: %v", event, subjectID, err)
	}
}

// email sends to the operations mailbox, swallowing failures.
func (d *Dispatcher) email(ctx context.Context, subject, htmlContent, textContent string) {
	if d.mailer == nil || d.opsEmail == "" {
		return
	}
	if err := d.mailer.Send(ctx, d.opsEmail, subject, htmlContent, textContent); err != nil {
		logging.Errorf("Failed to send ops email %q: %v", subject, err)
	}
}

// StockUpdated announces a change to a service's credential pool.
func (d *Dispatcher) StockUpdated(ctx context.Context, serviceID string) {
	d.publish(ctx, events.CredentialStockUpdated, serviceID)
}

// SubscriptionAdded announces a newly created subscription.
func (d *Dispatcher) SubscriptionAdded(ctx context.Context, subscriptionID string) {
	d.publish(ctx, events.SubscriptionAdded, subscriptionID)
}

// SubscriptionUpdated announces a subscription change, typically a
// credential attachment.
func (d *Dispatcher) SubscriptionUpdated(ctx context.Context, subscriptionID string) {
	d.publish(ctx, events.SubscriptionUpdated, subscriptionID)
}

// NotifyShortage alerts operators that an allocation request found an
// empty pool.
func (d *Dispatcher) NotifyShortage(ctx context.Context, serviceID, userID string) {
	subject := fmt.Sprintf("Credential stock exhausted for service %s", serviceID)
	text := fmt.Sprintf("A purchase by user %s for service %s could not be fulfilled: no credentials left in the pool. A stock issue has been logged.", userID, serviceID)
	html := fmt.Sprintf("<p>A purchase by user <b>%s</b> for service <b>%s</b> could not be fulfilled: no credentials left in the pool.</p><p>A stock issue has been logged and is waiting in the operator console.</p>", userID, serviceID)
	d.email(ctx, subject, html, text)

	if d.webhook != nil {
		d.webhook.Alert("stock.shortage", serviceID, userID)
	}
}

// NotifyResolved signals that a customer's pending request has been
// fulfilled.
func (d *Dispatcher) NotifyResolved(ctx context.Context, userID, serviceID string) {
	d.publish(ctx, events.StockIssueResolved, serviceID)

	subject := fmt.Sprintf("Stock issue resolved for service %s", serviceID)
	text := fmt.Sprintf("The pending credential request of user %s for service %s has been fulfilled.", userID, serviceID)
	html := fmt.Sprintf("<p>The pending credential request of user <b>%s</b> for service <b>%s</b> has been fulfilled.</p>", userID, serviceID)
	d.email(ctx, subject, html, text)

	if d.webhook != nil {
		d.webhook.Alert("stock.resolved", serviceID, userID)
	}
}
