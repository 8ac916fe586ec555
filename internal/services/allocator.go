package services

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"
	"fulfillment-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Allocator binds exactly one available credential to a
// (service, user, order) request. Claims run only against the durable
// store, where the conditional-update primitive guarantees at-most-
// once assignment even across processes.
type Allocator struct {
	store        *store.FallbackStore
	tracker      *IssueTracker
	synchronizer *Synchronizer
	dispatcher   *Dispatcher
}

// NewAllocator wires the allocator.
func NewAllocator(st *store.FallbackStore, tracker *IssueTracker, synchronizer *Synchronizer, dispatcher *Dispatcher) *Allocator {
	return &Allocator{
		store:        st,
		tracker:      tracker,
		synchronizer: synchronizer,
		dispatcher:   dispatcher,
	}
}

// Assign claims one available credential for the request. On an empty
// pool it returns ErrNoStock after logging a stock issue (deduped by
// order) and alerting operators; transient store failures are retried
// once and surface as ErrStoreUnavailable, never as a spurious
// shortage. Re-assigning an order that already holds a credential
// returns that credential.
func (a *Allocator) Assign(ctx context.Context, serviceID, userID, orderID string) (*models.Credential, error) {
	if serviceID == "" || userID == "" {
		return nil, fmt.Errorf("service id and user id are required")
	}

	if orderID != "" {
		existing, err := a.store.Durable().AssignedToOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 1 {
			logging.Errorf("Integrity violation: order %s holds %d credentials", orderID, len(existing))
			return nil, fmt.Errorf("%w: order %s holds %d credentials",
				store.ErrDuplicateAllocation, orderID, len(existing))
		}
		if len(existing) == 1 {
			return &existing[0], nil
		}
	}

	var credential *models.Credential
	err := store.WithRetry(func() error {
		var claimErr error
		credential, claimErr = a.store.Durable().ClaimAvailable(ctx, serviceID, userID, orderID)
		return claimErr
	})

	if errors.Is(err, store.ErrNoStock) {
		if _, logErr := a.tracker.LogIssue(ctx, userID, serviceID, orderID, ""); logErr != nil {
			logging.Errorf("Failed to log stock issue - service: %s, order: %s: %v", serviceID, orderID, logErr)
		}
		a.dispatcher.NotifyShortage(ctx, serviceID, userID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	a.dispatcher.StockUpdated(ctx, serviceID)
	logging.Infof("Assigned credential %s - service: %s, user: %s, order: %s",
		credential.ID, serviceID, userID, orderID)
	return credential, nil
}

// ResolveWithNewCredential fulfills a pending stock issue with an
// operator-supplied credential, created already bound to the issue's
// user and order. Re-running a half-completed resolution reuses the
// credential already written and only retries the issue transition,
// so no duplicate credential can be created. If the customer has a
// pending subscription for the service, the new credential is
// attached to it.
func (a *Allocator) ResolveWithNewCredential(ctx context.Context, issueID string, payload models.Payload) (*models.Credential, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	issue, err := a.store.Durable().GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Terminal() {
		logging.Warnf("Resolution ignored: issue %s is already %s", issue.ID, issue.Status)
		return nil, fmt.Errorf("%w: issue %s is already %s",
			store.ErrInvalidTransition, issue.ID, issue.Status)
	}

	credential, err := a.boundCredentialForIssue(ctx, issue)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		credential = &models.Credential{
			BaseModel:       models.BaseModel{ID: uuid.NewString()},
			ServiceID:       issue.ServiceID,
			Payload:         payload,
			Status:          models.CredentialStatusAssigned,
			AssignedUserID:  issue.UserID,
			AssignedOrderID: issue.OrderID,
		}
		err = store.WithRetry(func() error {
			return a.store.Durable().CreateCredential(ctx, credential)
		})
		if err != nil {
			return nil, err
		}
	}

	// The credential is in place; the issue transition gets its own
	// retry so a transient failure here cannot strand the resolution.
	err = store.WithRetry(func() error {
		return a.store.Durable().TransitionIssue(ctx, issue.ID, models.IssueStatusFulfilled)
	})
	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		return credential, err
	}

	if subscription, subErr := a.store.Durable().PendingSubscriptionFor(ctx, issue.UserID, issue.ServiceID); subErr == nil {
		if attachErr := a.synchronizer.Attach(ctx, subscription.ID, credential.ID); attachErr != nil {
			logging.Errorf("Failed to attach credential %s to subscription %s: %v",
				credential.ID, subscription.ID, attachErr)
		}
	} else if !errors.Is(subErr, gorm.ErrRecordNotFound) {
		logging.Errorf("Failed to look up subscription for user %s, service %s: %v",
			issue.UserID, issue.ServiceID, subErr)
	}

	a.dispatcher.NotifyResolved(ctx, issue.UserID, issue.ServiceID)
	logging.Infof("Resolved stock issue %s with credential %s", issue.ID, credential.ID)
	return credential, nil
}

// boundCredentialForIssue finds a credential already assigned to the
// issue's order, guarding resolution re-runs. More than one is an
// integrity violation surfaced loudly.
func (a *Allocator) boundCredentialForIssue(ctx context.Context, issue *models.StockIssue) (*models.Credential, error) {
	if issue.OrderID == "" {
		return nil, nil
	}
	existing, err := a.store.Durable().AssignedToOrder(ctx, issue.OrderID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 1 {
		logging.Errorf("Integrity violation: order %s holds %d credentials", issue.OrderID, len(existing))
		return nil, fmt.Errorf("%w: order %s holds %d credentials",
			store.ErrDuplicateAllocation, issue.OrderID, len(existing))
	}
	if len(existing) == 1 {
		return &existing[0], nil
	}
	return nil, nil
}
