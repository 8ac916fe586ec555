package services_test

import (
	"context"
	"testing"

	"fulfillment-api/internal/events"
	"fulfillment-api/internal/models"
	"fulfillment-api/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCredentialValidatesPayload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.inventory.AddCredential(ctx, "s1", models.Payload{"email": "a@b.com"})
	assert.Error(t, err)

	_, err = e.inventory.AddCredential(ctx, "s1", models.Payload{"password": "x"})
	assert.Error(t, err)

	_, err = e.inventory.AddCredential(ctx, "", models.Payload{"email": "a@b.com", "password": "x"})
	assert.Error(t, err)

	credential, err := e.inventory.AddCredential(ctx, "s1",
		models.Payload{"username": "acct", "password": "x", "pin_code": "1234"})
	require.NoError(t, err)
	assert.Equal(t, models.CredentialStatusAvailable, credential.Status)
	assert.Equal(t, "1234", credential.Payload["pin_code"])
	assert.Equal(t, 1, e.sink.count(events.CredentialStockUpdated))
}

func TestParsePayloadLines(t *testing.T) {
	payloads, err := services.ParsePayloadLines("a@b.com:pw1\n\n  acct2:pw2  \n")
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	assert.Equal(t, "a@b.com", payloads[0]["email"])
	assert.Equal(t, "pw1", payloads[0]["password"])

	assert.Equal(t, "acct2", payloads[1]["username"])
	assert.Equal(t, "pw2", payloads[1]["password"])
	assert.Empty(t, payloads[1]["email"])
}

func TestParsePayloadLinesRejectsMalformed(t *testing.T) {
	_, err := services.ParsePayloadLines("a@b.com:pw\nno-secret-here\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = services.ParsePayloadLines(":\n")
	assert.Error(t, err)
}

func TestBulkImport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	credentials, err := e.inventory.BulkImport(ctx, "s1", "a@b.com:pw1\nacct2:pw2")
	require.NoError(t, err)
	assert.Len(t, credentials, 2)

	available, err := e.inventory.ListAvailable(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, available, 2)
	assert.Equal(t, 2, e.sink.count(events.CredentialStockUpdated))

	_, err = e.inventory.BulkImport(ctx, "s1", "   \n")
	assert.Error(t, err)
}
