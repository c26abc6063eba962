package api_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/ledger-core/api"
	"github.com/warp/ledger-core/ledger"
	"github.com/warp/ledger-core/store/memory"
)

func newTestServer(t *testing.T) *api.Handler {
	t.Helper()
	store := memory.New()
	l, err := ledger.New(ledger.Config{
		DefaultCurrency: ledger.DefaultCurrencyConfig{Identifier: "coin", Name: "Coin", Precision: 2, DefaultMaxBalance: -1},
	}, store, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(l.Shutdown)
	return api.NewHandler(l)
}

func TestDeposit_DirectEndToEnd(t *testing.T) {
	// GIVEN: a fresh ledger exposed over the router
	// WHEN: a direct deposit is posted for a new player
	// THEN: the response reports success and the new balance
	h := newTestServer(t)
	router := api.NewRouter(h)

	body, err := json.Marshal(api.MutationRequest{Currency: "coin", Amount: "25.00", Reason: "test", Operator: "system", Direct: true})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/players/alice/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)

	var resp api.MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "25", trimZeros(resp.Balance))
}

func TestWithdraw_InsufficientFunds_Returns422(t *testing.T) {
	h := newTestServer(t)
	router := api.NewRouter(h)

	body, err := json.Marshal(api.MutationRequest{Currency: "coin", Amount: "5.00", Reason: "test", Operator: "system", Direct: true})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/players/bob/withdraw", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 422, rec.Code)

	var resp api.MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(ledger.CodeInsufficientFunds), resp.Code)
}

func TestGetBalance_UnknownCurrency_Returns404(t *testing.T) {
	h := newTestServer(t)
	router := api.NewRouter(h)

	req := httptest.NewRequest("GET", "/api/players/carol/balance?currency=doesnotexist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestCreateCurrency_DuplicateIdentifier_Returns409(t *testing.T) {
	h := newTestServer(t)
	router := api.NewRouter(h)

	body, err := json.Marshal(api.CreateCurrencyRequest{Identifier: "coin", Name: "Coin Again"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/currencies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 409, rec.Code)
}

// trimZeros strips a trailing ".00"-shaped fractional part so assertions
// don't depend on shopspring/decimal's exact String() formatting.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
