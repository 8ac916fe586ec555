package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the credential inventory storage layer. The same
// implementation backs both the durable store and the local fallback
// store; FallbackStore decides which one a write lands in.
type Store struct {
	db *gorm.DB
}

// New creates a store over an initialized gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping probes the underlying database, used as the capability check
// that selects between durable and fallback writes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// wrap converts driver-level failures into ErrStoreUnavailable while
// letting not-found results pass through untouched.
func (s *Store) wrap(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// --- Credentials ---

// CreateCredential inserts a new credential record.
func (s *Store) CreateCredential(ctx context.Context, credential *models.Credential) error {
	return s.wrap(s.db.WithContext(ctx).Create(credential).Error)
}

// UpsertCredential inserts a credential unless one with the same id
// already exists. Used by fallback replay; returns whether a row was
// actually written.
func (s *Store) UpsertCredential(ctx context.Context, credential *models.Credential) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(credential)
	if result.Error != nil {
		return false, s.wrap(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetCredential fetches a credential by id.
func (s *Store) GetCredential(ctx context.Context, id string) (*models.Credential, error) {
	var credential models.Credential
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&credential).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &credential, nil
}

// ListAvailable returns the unassigned pool for a service, oldest
// first. Read-only; allocation decisions go through ClaimAvailable.
func (s *Store) ListAvailable(ctx context.Context, serviceID string) ([]models.Credential, error) {
	var credentials []models.Credential
	err := s.db.WithContext(ctx).
		Where("service_id = ? AND status = ?", serviceID, models.CredentialStatusAvailable).
		Order("created_at ASC, id ASC").
		Find(&credentials).Error
	return credentials, s.wrap(err)
}

// CountAvailable returns the pool depth for a service.
func (s *Store) CountAvailable(ctx context.Context, serviceID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("service_id = ? AND status = ?", serviceID, models.CredentialStatusAvailable).
		Count(&count).Error
	return count, s.wrap(err)
}

// ClaimAvailable binds one available credential to a (user, order)
// pair. The select-and-mark step is a conditional update guarded on
// the row still being available, checked via RowsAffected, so two
// concurrent claims can never win the same row even when the store is
// shared by multiple processes. Candidates are taken oldest first;
// losing a race moves on to the next candidate.
func (s *Store) ClaimAvailable(ctx context.Context, serviceID, userID, orderID string) (*models.Credential, error) {
	for {
		var candidate models.Credential
		err := s.db.WithContext(ctx).
			Where("service_id = ? AND status = ?", serviceID, models.CredentialStatusAvailable).
			Order("created_at ASC, id ASC").
			First(&candidate).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoStock
			}
			return nil, s.wrap(err)
		}

		result := s.db.WithContext(ctx).Model(&models.Credential{}).
			Where("id = ? AND status = ?", candidate.ID, models.CredentialStatusAvailable).
			Updates(map[string]interface{}{
				"status":            models.CredentialStatusAssigned,
				"assigned_user_id":  userID,
				"assigned_order_id": orderID,
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return nil, s.wrap(result.Error)
		}
		if result.RowsAffected == 1 {
			candidate.Status = models.CredentialStatusAssigned
			candidate.AssignedUserID = userID
			candidate.AssignedOrderID = orderID
			return &candidate, nil
		}
		// Another request claimed this row first; try the next one.
	}
}

// AssignedToOrder returns every credential bound to an order. More
// than one element indicates a data-integrity bug.
func (s *Store) AssignedToOrder(ctx context.Context, orderID string) ([]models.Credential, error) {
	var credentials []models.Credential
	err := s.db.WithContext(ctx).
		Where("assigned_order_id = ? AND status = ?", orderID, models.CredentialStatusAssigned).
		Find(&credentials).Error
	return credentials, s.wrap(err)
}

// UnlinkedAssignedCredential finds a credential assigned to the given
// user and service that no subscription references yet. Used by the
// reconciliation sweep.
func (s *Store) UnlinkedAssignedCredential(ctx context.Context, userID, serviceID string) (*models.Credential, error) {
	linked := s.db.Model(&models.Subscription{}).
		Select("credential_id").
		Where("credential_id <> ''")

	var credential models.Credential
	err := s.db.WithContext(ctx).
		Where("assigned_user_id = ? AND service_id = ? AND status = ?",
			userID, serviceID, models.CredentialStatusAssigned).
		Where("id NOT IN (?)", linked).
		Order("created_at ASC, id ASC").
		First(&credential).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &credential, nil
}

// ListAllCredentials returns every credential record; used when
// replaying the fallback store.
func (s *Store) ListAllCredentials(ctx context.Context) ([]models.Credential, error) {
	var credentials []models.Credential
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&credentials).Error
	return credentials, s.wrap(err)
}

// DeleteCredential removes a record, used to drain the fallback store
// after a successful replay.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	return s.wrap(s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Credential{}).Error)
}

// --- Stock issues ---

// CreateIssue inserts a new shortage record.
func (s *Store) CreateIssue(ctx context.Context, issue *models.StockIssue) error {
	return s.wrap(s.db.WithContext(ctx).Create(issue).Error)
}

// UpsertIssue inserts an issue unless its id already exists.
func (s *Store) UpsertIssue(ctx context.Context, issue *models.StockIssue) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(issue)
	if result.Error != nil {
		return false, s.wrap(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetIssue fetches a stock issue by id.
func (s *Store) GetIssue(ctx context.Context, id string) (*models.StockIssue, error) {
	var issue models.StockIssue
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &issue, nil
}

// PendingIssueForOrder finds the pending issue logged for an order,
// the dedupe key for repeated failed assigns.
func (s *Store) PendingIssueForOrder(ctx context.Context, orderID string) (*models.StockIssue, error) {
	var issue models.StockIssue
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, models.IssueStatusPending).
		First(&issue).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &issue, nil
}

// TransitionIssue moves a pending issue to a terminal status and
// stamps fulfilled_at. The update is guarded on the issue still being
// pending; a lost guard on an existing record reports
// ErrInvalidTransition, keeping the lifecycle monotonic.
func (s *Store) TransitionIssue(ctx context.Context, id, toStatus string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.StockIssue{}).
		Where("id = ? AND status = ?", id, models.IssueStatusPending).
		Updates(map[string]interface{}{
			"status":       toStatus,
			"fulfilled_at": &now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return s.wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		var issue models.StockIssue
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error; err != nil {
			return s.wrap(err)
		}
		return fmt.Errorf("%w: issue %s is already %s", ErrInvalidTransition, id, issue.Status)
	}
	return nil
}

// ListIssues returns issues filtered by status, newest first; an empty
// status returns everything. Presentation helper for the operator
// console.
func (s *Store) ListIssues(ctx context.Context, status string) ([]models.StockIssue, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var issues []models.StockIssue
	err := query.Find(&issues).Error
	return issues, s.wrap(err)
}

// ListAllIssues returns every issue record for fallback replay.
func (s *Store) ListAllIssues(ctx context.Context) ([]models.StockIssue, error) {
	var issues []models.StockIssue
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&issues).Error
	return issues, s.wrap(err)
}

// DeleteIssue removes a record after a successful replay.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	return s.wrap(s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.StockIssue{}).Error)
}

// --- Subscriptions ---

// CreateSubscription inserts a new subscription record.
func (s *Store) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return s.wrap(s.db.WithContext(ctx).Create(subscription).Error)
}

// UpsertSubscription inserts a subscription unless its id exists.
func (s *Store) UpsertSubscription(ctx context.Context, subscription *models.Subscription) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(subscription)
	if result.Error != nil {
		return false, s.wrap(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetSubscription fetches a subscription by id.
func (s *Store) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&subscription).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &subscription, nil
}

// PendingSubscriptionFor finds a user's credential-less subscription
// for a service, if one exists.
func (s *Store) PendingSubscriptionFor(ctx context.Context, userID, serviceID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND service_id = ? AND credential_id = '' AND status <> ?",
			userID, serviceID, models.SubscriptionStatusCancelled).
		Order("created_at ASC").
		First(&subscription).Error
	if err != nil {
		return nil, s.wrap(err)
	}
	return &subscription, nil
}

// ListUnlinkedSubscriptions returns non-cancelled subscriptions that
// still have no credential attached.
func (s *Store) ListUnlinkedSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := s.db.WithContext(ctx).
		Where("credential_id = '' AND status <> ?", models.SubscriptionStatusCancelled).
		Order("created_at ASC").
		Find(&subscriptions).Error
	return subscriptions, s.wrap(err)
}

// AttachCredential links a credential to a subscription. Guarded on
// the link still being empty; attaching the same credential twice is
// an idempotent no-op, attaching a different one reports
// ErrInvalidTransition. Returns whether the link was written.
func (s *Store) AttachCredential(ctx context.Context, subscriptionID, credentialID string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND credential_id = ''", subscriptionID).
		Updates(map[string]interface{}{
			"credential_id": credentialID,
			"status":        models.SubscriptionStatusActive,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, s.wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		var subscription models.Subscription
		if err := s.db.WithContext(ctx).Where("id = ?", subscriptionID).First(&subscription).Error; err != nil {
			return false, s.wrap(err)
		}
		if subscription.CredentialID == credentialID {
			return false, nil
		}
		return false, fmt.Errorf("%w: subscription %s already linked to %s",
			ErrInvalidTransition, subscriptionID, subscription.CredentialID)
	}
	return true, nil
}

// ListAllSubscriptions returns every subscription for fallback replay.
func (s *Store) ListAllSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&subscriptions).Error
	return subscriptions, s.wrap(err)
}

// DeleteSubscription removes a record after a successful replay.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	return s.wrap(s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscription{}).Error)
}
