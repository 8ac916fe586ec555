package services

import (
	"context"
	"fmt"
	"strings"

	"fulfillment-api/internal/models"
	"fulfillment-api/internal/store"

	"github.com/google/uuid"
)

// Inventory manages the credential pool: operator adds (single and
// bulk) and read-only pool views. Allocation goes through Allocator.
type Inventory struct {
	store      *store.FallbackStore
	dispatcher *Dispatcher
}

// NewInventory wires the inventory service.
func NewInventory(st *store.FallbackStore, dispatcher *Dispatcher) *Inventory {
	return &Inventory{store: st, dispatcher: dispatcher}
}

// AddCredential provisions one credential in the available state. When
// the durable store is unreachable the record lands in the local
// fallback store and is replayed later.
func (inv *Inventory) AddCredential(ctx context.Context, serviceID string, payload models.Payload) (*models.Credential, error) {
	if serviceID == "" {
		return nil, fmt.Errorf("service id is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	credential := &models.Credential{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		ServiceID: serviceID,
		Payload:   payload,
		Status:    models.CredentialStatusAvailable,
	}
	if err := inv.store.CreateCredential(ctx, credential); err != nil {
		return nil, err
	}

	inv.dispatcher.StockUpdated(ctx, serviceID)
	return credential, nil
}

// BulkImport adds one credential per non-empty line of text, each
// line formatted as identifier:secret. Identifiers containing @ are
// stored as email, others as username. The whole batch is validated
// before anything is written.
func (inv *Inventory) BulkImport(ctx context.Context, serviceID, text string) ([]models.Credential, error) {
	payloads, err := ParsePayloadLines(text)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("no credential lines found")
	}

	credentials := make([]models.Credential, 0, len(payloads))
	for _, payload := range payloads {
		credential, err := inv.AddCredential(ctx, serviceID, payload)
		if err != nil {
			return credentials, fmt.Errorf("imported %d of %d credentials: %w",
				len(credentials), len(payloads), err)
		}
		credentials = append(credentials, *credential)
	}
	return credentials, nil
}

// ListAvailable returns the unassigned pool for a service.
func (inv *Inventory) ListAvailable(ctx context.Context, serviceID string) ([]models.Credential, error) {
	return inv.store.Durable().ListAvailable(ctx, serviceID)
}

// ParsePayloadLines parses bulk-import text, one identifier:secret
// pair per line. Blank lines are skipped; a malformed line fails the
// whole batch with its line number.
func ParsePayloadLines(text string) ([]models.Payload, error) {
	var payloads []models.Payload
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("line %d: expected identifier:secret", i+1)
		}

		identifier := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])

		payload := models.Payload{"password": secret}
		if strings.Contains(identifier, "@") {
			payload["email"] = identifier
		} else {
			payload["username"] = identifier
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}
