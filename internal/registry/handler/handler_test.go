package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/ledger"
	"custodia/internal/registry"
)

var testAuthority = ledger.Derive(ledger.KindMintAuthority, []byte("authority")).String()

type allowAll struct{}

func (allowAll) AuthorizeTransfer(context.Context, ledger.TransferParties) error { return nil }

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	svc := registry.NewService(registry.NewInMemoryStore(), ledger.NewTokenLedger(), allowAll{})
	h := New(svc, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	r.Route("/v1", h.Register)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAssetLifecycleEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/registry/init", map[string]any{
		"authority": testAuthority, "platform_fee_bps": 250,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	mint := registry.NewMintAddress(ledger.Address(testAuthority), "Tower One").String()
	rec = doJSON(t, r, http.MethodPost, "/v1/assets", map[string]any{
		"authority":    testAuthority,
		"mint":         mint,
		"name":         "Tower One",
		"asset_type":   "real_estate",
		"total_value":  75000000,
		"total_supply": 1000000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var asset assetDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, "pending", asset.Status)

	rec = doJSON(t, r, http.MethodPost, "/v1/assets/"+mint+"/activate", map[string]any{
		"authority": testAuthority,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, "active", asset.Status)

	// Freeze from active, listed under status filter.
	rec = doJSON(t, r, http.MethodPost, "/v1/assets/"+mint+"/freeze", map[string]any{
		"authority": testAuthority,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/assets?status=frozen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var assets []assetDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, mint, assets[0].Mint)
}

func TestCreateMintEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/mints", map[string]any{
		"authority":          testAuthority,
		"name":               "Tower One Shares",
		"symbol":             "TWR1",
		"decimals":           6,
		"bind_transfer_hook": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var mint mintDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mint))
	assert.True(t, mint.TransferHook)

	// Hook binding is immutable.
	rec = doJSON(t, r, http.MethodPost, "/v1/mints/"+mint.Mint+"/transfer-hook", map[string]any{
		"authority": testAuthority,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestInvalidTransitionMapsTo422(t *testing.T) {
	r := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/v1/registry/init", map[string]any{"authority": testAuthority})

	mint := registry.NewMintAddress(ledger.Address(testAuthority), "X").String()
	doJSON(t, r, http.MethodPost, "/v1/assets", map[string]any{
		"authority": testAuthority, "mint": mint, "name": "X",
		"asset_type": "other", "total_value": 1, "total_supply": 1,
	})

	// Burn from pending is invalid.
	rec := doJSON(t, r, http.MethodPost, "/v1/assets/"+mint+"/burn", map[string]any{
		"authority": testAuthority,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
