package store

import (
	"context"
	"errors"
	"time"

	"fulfillment-api/internal/models"
	"fulfillment-api/pkg/logging"
)

// FallbackStore fronts the durable store with a local store that
// absorbs writes while the durable one is unreachable. Every write
// gets one retry against the durable store before falling back; reads
// always go to the durable store. Replay drains the local store back
// into the durable one once it is reachable again.
type FallbackStore struct {
	durable *Store
	local   *Store

	probeTimeout time.Duration
}

// NewFallbackStore wraps a durable store and its local fallback.
func NewFallbackStore(durable, local *Store) *FallbackStore {
	return &FallbackStore{
		durable:      durable,
		local:        local,
		probeTimeout: 3 * time.Second,
	}
}

// Durable exposes the durable store for operations that must never be
// served from the fallback, such as credential claims.
func (f *FallbackStore) Durable() *Store {
	return f.durable
}

// Local exposes the local fallback store.
func (f *FallbackStore) Local() *Store {
	return f.local
}

// WithRetry runs a durable-store operation with one retry on
// transient failure, so a blip is never downgraded into a fallback
// write or a spurious shortage.
func WithRetry(op func() error) error {
	err := op()
	if errors.Is(err, ErrStoreUnavailable) {
		err = op()
	}
	return err
}

// CreateCredential writes to the durable store, falling back to the
// local store when it is unreachable.
func (f *FallbackStore) CreateCredential(ctx context.Context, credential *models.Credential) error {
	err := WithRetry(func() error {
		return f.durable.CreateCredential(ctx, credential)
	})
	if errors.Is(err, ErrStoreUnavailable) {
		logging.Warnf("Durable store unreachable, caching credential %s locally: %v", credential.ID, err)
		return f.local.CreateCredential(ctx, credential)
	}
	return err
}

// CreateIssue writes a shortage record, falling back locally when the
// durable store is down so the request is never lost.
func (f *FallbackStore) CreateIssue(ctx context.Context, issue *models.StockIssue) error {
	err := WithRetry(func() error {
		return f.durable.CreateIssue(ctx, issue)
	})
	if errors.Is(err, ErrStoreUnavailable) {
		logging.Warnf("Durable store unreachable, caching stock issue %s locally: %v", issue.ID, err)
		return f.local.CreateIssue(ctx, issue)
	}
	return err
}

// CreateSubscription writes a subscription with the same fallback
// discipline.
func (f *FallbackStore) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	err := WithRetry(func() error {
		return f.durable.CreateSubscription(ctx, subscription)
	})
	if errors.Is(err, ErrStoreUnavailable) {
		logging.Warnf("Durable store unreachable, caching subscription %s locally: %v", subscription.ID, err)
		return f.local.CreateSubscription(ctx, subscription)
	}
	return err
}

// Replay pushes records cached in the local store into the durable
// store, upserting by id so records that already exist there are
// skipped, and drains successfully replayed rows from the local
// store. Replay never claims credentials; it only moves records that
// were already written. Returns the number of rows actually inserted
// into the durable store.
func (f *FallbackStore) Replay(ctx context.Context) (int, error) {
	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()
	if err := f.durable.Ping(probeCtx); err != nil {
		return 0, err
	}

	replayed := 0

	credentials, err := f.local.ListAllCredentials(ctx)
	if err != nil {
		return replayed, err
	}
	for i := range credentials {
		credential := credentials[i]
		written, err := f.durable.UpsertCredential(ctx, &credential)
		if err != nil {
			return replayed, err
		}
		if written {
			replayed++
		}
		if err := f.local.DeleteCredential(ctx, credential.ID); err != nil {
			return replayed, err
		}
	}

	issues, err := f.local.ListAllIssues(ctx)
	if err != nil {
		return replayed, err
	}
	for i := range issues {
		issue := issues[i]
		written, err := f.durable.UpsertIssue(ctx, &issue)
		if err != nil {
			return replayed, err
		}
		if written {
			replayed++
		}
		if err := f.local.DeleteIssue(ctx, issue.ID); err != nil {
			return replayed, err
		}
	}

	subscriptions, err := f.local.ListAllSubscriptions(ctx)
	if err != nil {
		return replayed, err
	}
	for i := range subscriptions {
		subscription := subscriptions[i]
		written, err := f.durable.UpsertSubscription(ctx, &subscription)
		if err != nil {
			return replayed, err
		}
		if written {
			replayed++
		}
		if err := f.local.DeleteSubscription(ctx, subscription.ID); err != nil {
			return replayed, err
		}
	}

	if replayed > 0 {
		logging.Infof("Replayed %d cached records into the durable store", replayed)
	}
	return replayed, nil
}
