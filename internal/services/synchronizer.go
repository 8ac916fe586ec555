package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"
	"fulfillment-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Synchronizer keeps subscriptions and the credential pool
// consistent: it attaches credentials left unlinked by interrupted
// writes and replays records cached in the local fallback store back
// into the durable one.
type Synchronizer struct {
	store      *store.FallbackStore
	dispatcher *Dispatcher
}

// NewSynchronizer wires the synchronizer.
func NewSynchronizer(st *store.FallbackStore, dispatcher *Dispatcher) *Synchronizer {
	return &Synchronizer{store: st, dispatcher: dispatcher}
}

// Register creates a subscription at purchase time. credentialID may
// be empty when the purchase hit an empty pool; the subscription then
// stays pending until resolution or a reconcile sweep attaches one.
func (s *Synchronizer) Register(ctx context.Context, userID, serviceID string, durationMonths int, credentialID string) (*models.Subscription, error) {
	if userID == "" || serviceID == "" {
		return nil, fmt.Errorf("user id and service id are required")
	}
	if durationMonths <= 0 {
		durationMonths = 1
	}

	now := time.Now()
	subscription := &models.Subscription{
		BaseModel:      models.BaseModel{ID: uuid.NewString()},
		UserID:         userID,
		ServiceID:      serviceID,
		StartDate:      now,
		EndDate:        now.AddDate(0, durationMonths, 0),
		DurationMonths: durationMonths,
		Status:         models.SubscriptionStatusPending,
		CredentialID:   credentialID,
	}
	if credentialID != "" {
		subscription.Status = models.SubscriptionStatusActive
	}

	if err := s.store.CreateSubscription(ctx, subscription); err != nil {
		return nil, err
	}

	s.dispatcher.SubscriptionAdded(ctx, subscription.ID)
	return subscription, nil
}

// Attach links a credential to a subscription. Idempotent: attaching
// the credential already linked is a no-op; attaching over a
// different one is a warned ErrInvalidTransition.
func (s *Synchronizer) Attach(ctx context.Context, subscriptionID, credentialID string) error {
	changed, err := s.store.Durable().AttachCredential(ctx, subscriptionID, credentialID)
	if errors.Is(err, store.ErrInvalidTransition) {
		logging.Warnf("Attach ignored: %v", err)
		return err
	}
	if err != nil {
		return err
	}
	if changed {
		s.dispatcher.SubscriptionUpdated(ctx, subscriptionID)
	}
	return nil
}

// Reconcile sweeps subscriptions that still lack a credential and
// attaches any assigned credential of the same user and service that
// no subscription references. Idempotent: a second run with no
// intervening writes attaches nothing.
func (s *Synchronizer) Reconcile(ctx context.Context) (int, error) {
	subscriptions, err := s.store.Durable().ListUnlinkedSubscriptions(ctx)
	if err != nil {
		return 0, err
	}

	attached := 0
	for i := range subscriptions {
		subscription := subscriptions[i]
		credential, err := s.store.Durable().UnlinkedAssignedCredential(ctx, subscription.UserID, subscription.ServiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return attached, err
		}

		changed, err := s.store.Durable().AttachCredential(ctx, subscription.ID, credential.ID)
		if err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				logging.Warnf("Reconcile attach skipped: %v", err)
				continue
			}
			return attached, err
		}
		if changed {
			attached++
			s.dispatcher.SubscriptionUpdated(ctx, subscription.ID)
			logging.Infof("Reconciled subscription %s with credential %s", subscription.ID, credential.ID)
		}
	}
	return attached, nil
}

// Sweep runs one reconciliation pass: replay cached fallback writes
// into the durable store, then attach whatever is now linkable.
func (s *Synchronizer) Sweep(ctx context.Context) (replayed, attached int, err error) {
	replayed, err = s.store.Replay(ctx)
	if err != nil {
		return replayed, 0, err
	}
	attached, err = s.Reconcile(ctx)
	return replayed, attached, err
}

// Get fetches one subscription.
func (s *Synchronizer) Get(ctx context.Context, id string) (*models.Subscription, error) {
	return s.store.Durable().GetSubscription(ctx, id)
}
