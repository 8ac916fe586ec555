package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "store.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Credential{},
		&models.StockIssue{},
		&models.Subscription{},
	))
	return db
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(openTestDB(t))
}

func addCredential(t *testing.T, s *store.Store, serviceID string, createdAt time.Time) *models.Credential {
	t.Helper()
	credential := &models.Credential{
		BaseModel: models.BaseModel{ID: uuid.NewString(), CreatedAt: createdAt},
		ServiceID: serviceID,
		Payload:   models.Payload{"email": "pool@example.com", "password": "secret"},
		Status:    models.CredentialStatusAvailable,
	}
	require.NoError(t, s.CreateCredential(context.Background(), credential))
	return credential
}

func TestClaimAvailablePicksOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	newer := addCredential(t, s, "s1", time.Now())
	older := addCredential(t, s, "s1", time.Now().Add(-time.Hour))

	claimed, err := s.ClaimAvailable(ctx, "s1", "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, models.CredentialStatusAssigned, claimed.Status)
	assert.Equal(t, "u1", claimed.AssignedUserID)
	assert.Equal(t, "o1", claimed.AssignedOrderID)

	claimed, err = s.ClaimAvailable(ctx, "s1", "u2", "o2")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, claimed.ID)
}

func TestClaimAvailableEmptyPool(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ClaimAvailable(context.Background(), "s1", "u1", "o1")
	assert.ErrorIs(t, err, store.ErrNoStock)
}

func TestClaimAvailableIgnoresOtherServices(t *testing.T) {
	s := openTestStore(t)
	addCredential(t, s, "s2", time.Now())

	_, err := s.ClaimAvailable(context.Background(), "s1", "u1", "o1")
	assert.ErrorIs(t, err, store.ErrNoStock)
}

func TestClaimAvailableAtMostOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const available = 3
	const requests = 8
	for i := 0; i < available; i++ {
		addCredential(t, s, "s1", time.Now().Add(time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	results := make([]error, requests)
	claimed := make([]*models.Credential, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed[i], results[i] = s.ClaimAvailable(ctx, "s1",
				fmt.Sprintf("u%d", i), fmt.Sprintf("o%d", i))
		}(i)
	}
	wg.Wait()

	successes := 0
	seen := make(map[string]bool)
	for i, err := range results {
		if err == nil {
			successes++
			assert.False(t, seen[claimed[i].ID], "credential %s claimed twice", claimed[i].ID)
			seen[claimed[i].ID] = true
		} else {
			assert.ErrorIs(t, err, store.ErrNoStock)
		}
	}
	assert.Equal(t, available, successes)

	remaining, err := s.CountAvailable(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestTransitionIssueMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issue := &models.StockIssue{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		UserID:    "u1",
		ServiceID: "s1",
		OrderID:   "o1",
		Status:    models.IssueStatusPending,
		Priority:  models.IssuePriorityMedium,
	}
	require.NoError(t, s.CreateIssue(ctx, issue))

	require.NoError(t, s.TransitionIssue(ctx, issue.ID, models.IssueStatusFulfilled))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusFulfilled, got.Status)
	require.NotNil(t, got.FulfilledAt)

	// Terminal issues never transition again.
	err = s.TransitionIssue(ctx, issue.ID, models.IssueStatusCancelled)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err = s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusFulfilled, got.Status)
}

func TestTransitionIssueMissing(t *testing.T) {
	s := openTestStore(t)

	err := s.TransitionIssue(context.Background(), uuid.NewString(), models.IssueStatusCancelled)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttachCredentialIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	subscription := &models.Subscription{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		UserID:    "u1",
		ServiceID: "s1",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 1, 0),
		Status:    models.SubscriptionStatusPending,
	}
	require.NoError(t, s.CreateSubscription(ctx, subscription))

	changed, err := s.AttachCredential(ctx, subscription.ID, "cred-1")
	require.NoError(t, err)
	assert.True(t, changed)

	// Same credential again: no-op, no error.
	changed, err = s.AttachCredential(ctx, subscription.ID, "cred-1")
	require.NoError(t, err)
	assert.False(t, changed)

	// A different credential is an invalid transition.
	_, err = s.AttachCredential(ctx, subscription.ID, "cred-2")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := s.GetSubscription(ctx, subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, "cred-1", got.CredentialID)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)
}

func TestUpsertCredentialSkipsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	credential := addCredential(t, s, "s1", time.Now())

	written, err := s.UpsertCredential(ctx, credential)
	require.NoError(t, err)
	assert.False(t, written)

	other := &models.Credential{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		ServiceID: "s1",
		Payload:   models.Payload{"username": "acct", "password": "secret"},
		Status:    models.CredentialStatusAvailable,
	}
	written, err = s.UpsertCredential(ctx, other)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestUnlinkedAssignedCredential(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	credential := addCredential(t, s, "s1", time.Now())
	claimed, err := s.ClaimAvailable(ctx, "s1", "u1", "o1")
	require.NoError(t, err)
	require.Equal(t, credential.ID, claimed.ID)

	found, err := s.UnlinkedAssignedCredential(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, credential.ID, found.ID)

	subscription := &models.Subscription{
		BaseModel:    models.BaseModel{ID: uuid.NewString()},
		UserID:       "u1",
		ServiceID:    "s1",
		EndDate:      time.Now().AddDate(0, 1, 0),
		Status:       models.SubscriptionStatusActive,
		CredentialID: credential.ID,
	}
	require.NoError(t, s.CreateSubscription(ctx, subscription))

	// Linked credentials are no longer candidates.
	_, err = s.UnlinkedAssignedCredential(ctx, "u1", "s1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWrapMarksDriverFailuresUnavailable(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = s.CreateCredential(context.Background(), &models.Credential{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		ServiceID: "s1",
		Status:    models.CredentialStatusAvailable,
	})
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}
