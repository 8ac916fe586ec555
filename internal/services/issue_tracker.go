package services

import (
	"context"
	"errors"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"
	"fulfillment-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssueTracker manages the lifecycle of shortage records: logged when
// an allocation finds an empty pool, then fulfilled by an operator
// supplying a credential or cancelled. The lifecycle is monotonic;
// terminal issues never reopen.
type IssueTracker struct {
	store *store.FallbackStore
}

// NewIssueTracker wires the tracker.
func NewIssueTracker(st *store.FallbackStore) *IssueTracker {
	return &IssueTracker{store: st}
}

// LogIssue records a shortage as a pending issue. Deduped by order:
// a second failed assign for the same order returns the issue already
// logged instead of creating another.
func (t *IssueTracker) LogIssue(ctx context.Context, userID, serviceID, orderID, priority string) (*models.StockIssue, error) {
	if priority == "" {
		priority = models.IssuePriorityMedium
	}

	if orderID != "" {
		existing, err := t.store.Durable().PendingIssueForOrder(ctx, orderID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	issue := &models.StockIssue{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		UserID:    userID,
		ServiceID: serviceID,
		OrderID:   orderID,
		Status:    models.IssueStatusPending,
		Priority:  priority,
	}
	if err := t.store.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}

	logging.Infof("Logged stock issue %s - service: %s, user: %s, order: %s",
		issue.ID, serviceID, userID, orderID)
	return issue, nil
}

// Cancel moves a pending issue to cancelled. Cancelling a terminal
// issue is a warned no-op.
func (t *IssueTracker) Cancel(ctx context.Context, issueID string) error {
	err := t.store.Durable().TransitionIssue(ctx, issueID, models.IssueStatusCancelled)
	if errors.Is(err, store.ErrInvalidTransition) {
		logging.Warnf("Cancel ignored: %v", err)
	}
	return err
}

// Fulfill moves a pending issue to fulfilled. Invoked only from the
// allocator's resolution path.
func (t *IssueTracker) Fulfill(ctx context.Context, issueID string) error {
	err := t.store.Durable().TransitionIssue(ctx, issueID, models.IssueStatusFulfilled)
	if errors.Is(err, store.ErrInvalidTransition) {
		logging.Warnf("Fulfill ignored: %v", err)
	}
	return err
}

// Get fetches one issue.
func (t *IssueTracker) Get(ctx context.Context, issueID string) (*models.StockIssue, error) {
	return t.store.Durable().GetIssue(ctx, issueID)
}

// PendingForOrder returns the pending issue logged for an order, if
// any.
func (t *IssueTracker) PendingForOrder(ctx context.Context, orderID string) (*models.StockIssue, error) {
	return t.store.Durable().PendingIssueForOrder(ctx, orderID)
}

// List returns issues for the operator console, optionally filtered
// by status.
func (t *IssueTracker) List(ctx context.Context, status string) ([]models.StockIssue, error) {
	return t.store.Durable().ListIssues(ctx, status)
}
