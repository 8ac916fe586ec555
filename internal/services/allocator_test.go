package services_test

import (
	"context"
	"testing"

	"fulfillment-api/internal/events"
	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignLastCredentialRace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	credential := e.addCredential(t, "s1")

	first, err1 := e.allocator.Assign(ctx, "s1", "u1", "o1")
	second, err2 := e.allocator.Assign(ctx, "s1", "u2", "o2")

	// Exactly one of the two requests wins the single credential.
	require.NoError(t, err1)
	assert.Equal(t, credential.ID, first.ID)
	assert.ErrorIs(t, err2, store.ErrNoStock)
	assert.Nil(t, second)

	// The loser leaves a pending stock issue behind.
	issue, err := e.tracker.PendingForOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "u2", issue.UserID)
	assert.Equal(t, "s1", issue.ServiceID)
	assert.Equal(t, "o2", issue.OrderID)
	assert.Equal(t, models.IssueStatusPending, issue.Status)
	assert.Equal(t, models.IssuePriorityMedium, issue.Priority)
}

func TestAssignIdempotentIssueLogging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.allocator.Assign(ctx, "s1", "u1", "o1")
	assert.ErrorIs(t, err, store.ErrNoStock)
	_, err = e.allocator.Assign(ctx, "s1", "u1", "o1")
	assert.ErrorIs(t, err, store.ErrNoStock)

	issues, err := e.tracker.List(ctx, models.IssueStatusPending)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestAssignReturnsCredentialAlreadyBoundToOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addCredential(t, "s1")
	e.addCredential(t, "s1")

	first, err := e.allocator.Assign(ctx, "s1", "u1", "o1")
	require.NoError(t, err)

	// A retried checkout for the same order does not claim a second
	// credential.
	again, err := e.allocator.Assign(ctx, "s1", "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	remaining, err := e.durable.CountAvailable(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining)
}

func TestResolveWithNewCredentialBindsIssue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// u2's subscription waits without a credential.
	subscription, err := e.synchronizer.Register(ctx, "u2", "s1", 1, "")
	require.NoError(t, err)

	_, err = e.allocator.Assign(ctx, "s1", "u2", "o2")
	require.ErrorIs(t, err, store.ErrNoStock)
	issue, err := e.tracker.PendingForOrder(ctx, "o2")
	require.NoError(t, err)

	credential, err := e.allocator.ResolveWithNewCredential(ctx, issue.ID,
		models.Payload{"email": "a@b.com", "password": "x"})
	require.NoError(t, err)

	assert.Equal(t, models.CredentialStatusAssigned, credential.Status)
	assert.Equal(t, "u2", credential.AssignedUserID)
	assert.Equal(t, "o2", credential.AssignedOrderID)
	assert.Equal(t, "a@b.com", credential.Payload["email"])

	resolved, err := e.tracker.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusFulfilled, resolved.Status)
	require.NotNil(t, resolved.FulfilledAt)

	// The waiting subscription picks up the new credential.
	got, err := e.synchronizer.Get(ctx, subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, credential.ID, got.CredentialID)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)

	assert.Equal(t, 1, e.sink.count(events.StockIssueResolved))
}

func TestResolveTerminalIssueIsNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.allocator.Assign(ctx, "s1", "u1", "o1")
	require.ErrorIs(t, err, store.ErrNoStock)
	issue, err := e.tracker.PendingForOrder(ctx, "o1")
	require.NoError(t, err)

	payload := models.Payload{"email": "a@b.com", "password": "x"}
	_, err = e.allocator.ResolveWithNewCredential(ctx, issue.ID, payload)
	require.NoError(t, err)

	// A second resolution must neither duplicate the credential nor
	// touch the issue.
	_, err = e.allocator.ResolveWithNewCredential(ctx, issue.ID, payload)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	bound, err := e.durable.AssignedToOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, bound, 1)
}

func TestResolveValidatesPayload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.allocator.Assign(ctx, "s1", "u1", "o1")
	require.ErrorIs(t, err, store.ErrNoStock)
	issue, err := e.tracker.PendingForOrder(ctx, "o1")
	require.NoError(t, err)

	_, err = e.allocator.ResolveWithNewCredential(ctx, issue.ID,
		models.Payload{"email": "a@b.com"})
	assert.Error(t, err)

	_, err = e.allocator.ResolveWithNewCredential(ctx, issue.ID,
		models.Payload{"password": "x"})
	assert.Error(t, err)

	unresolved, err := e.tracker.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusPending, unresolved.Status)
}

func TestCancelIssueLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	issue, err := e.tracker.LogIssue(ctx, "u1", "s1", "o1", models.IssuePriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, models.IssuePriorityHigh, issue.Priority)

	require.NoError(t, e.tracker.Cancel(ctx, issue.ID))

	cancelled, err := e.tracker.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.FulfilledAt)

	// Cancelled issues stay cancelled.
	err = e.tracker.Fulfill(ctx, issue.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}
