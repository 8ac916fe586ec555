package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/services"
	"fulfillment-api/internal/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Publish(_ context.Context, event, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event+":"+subjectID)
	return nil
}

func (r *recordingSink) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if len(e) >= len(event) && e[:len(event)] == event {
			n++
		}
	}
	return n
}

type env struct {
	durable      *store.Store
	local        *store.Store
	fallback     *store.FallbackStore
	sink         *recordingSink
	tracker      *services.IssueTracker
	synchronizer *services.Synchronizer
	allocator    *services.Allocator
	inventory    *services.Inventory
}

func openStore(t *testing.T, name string) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL",
		filepath.Join(t.TempDir(), name))
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
	return store.New(db)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		durable: openStore(t, "durable.db"),
		local:   openStore(t, "local.db"),
		sink:    &recordingSink{},
	}
	e.fallback = store.NewFallbackStore(e.durable, e.local)

	dispatcher := services.NewDispatcher(e.sink, nil, nil, "")
	e.tracker = services.NewIssueTracker(e.fallback)
	e.synchronizer = services.NewSynchronizer(e.fallback, dispatcher)
	e.allocator = services.NewAllocator(e.fallback, e.tracker, e.synchronizer, dispatcher)
	e.inventory = services.NewInventory(e.fallback, dispatcher)
	return e
}

func (e *env) addCredential(t *testing.T, serviceID string) *models.Credential {
	t.Helper()
	credential, err := e.inventory.AddCredential(context.Background(), serviceID,
		models.Payload{"email": "pool@example.com", "password": "secret"})
	require.NoError(t, err)
	return credential
}
