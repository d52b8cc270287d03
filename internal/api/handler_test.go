package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/api"
	"github.com/ayo6706/custody-ledger/internal/api/middleware"
	"github.com/ayo6706/custody-ledger/internal/api/problem"
	"github.com/ayo6706/custody-ledger/internal/config"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/gateway"
	"github.com/ayo6706/custody-ledger/internal/idempotency"
	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/ayo6706/custody-ledger/internal/oracle"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/ayo6706/custody-ledger/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "custody-ledger-test"
	testJWTAudience = "custody-ledger-api-test"

	adminAddr = "0x00000000000000000000000000000000000000a1"
	aliceAddr = "0x00000000000000000000000000000000000000b2"
	usdcAddr  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"

	oneNative = "1000000000000000000"
)

func TestMain(m *testing.M) {
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
	os.Exit(m.Run())
}

type testAPI struct {
	router  chi.Router
	custody *gateway.MockAdapter
	worker  *worker.ReconciliationWorker
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	pub := events.NewLogPublisher(zap.NewNop())
	custody := gateway.NewMockAdapter()

	client, err := oracle.NewStaticClient("0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419", decimal.NewFromInt(200_000_000_000))
	require.NoError(t, err)
	normalizer, err := service.NewNormalizer(client, 0)
	require.NoError(t, err)

	access := service.NewAccessControl(store, pub)
	require.NoError(t, access.Bootstrap(ctx, domain.NewPrincipal(adminAddr)))
	assets := service.NewAssetRegistry(store, pub)
	ledger, err := service.NewLedger(store, normalizer, custody, pub, domain.DefaultCapUSD6)
	require.NoError(t, err)
	recon := worker.NewReconciliationWorker(service.NewReconciliationService(store, normalizer, domain.DefaultCapUSD6))

	cfg := &config.Config{
		JWTSecret:          testJWTSecret,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
		DevTokens:          true,
		TokenTTL:           time.Hour,
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		IdempotencyTTL:     time.Hour,
	}
	idem := idempotency.NewStore(nil, idempotency.NewMemoryBackend(), cfg.IdempotencyTTL)
	router, err := api.NewRouter(cfg, zap.NewNop(), nil, nil, idem, api.Services{
		Access:  access,
		Assets:  assets,
		Ledger:  ledger,
		Reports: recon,
		Prices:  normalizer,
	})
	require.NoError(t, err)
	return &testAPI{router: router.Routes(), custody: custody, worker: recon}
}

func token(t *testing.T, principal string) string {
	t.Helper()
	tok, _, err := middleware.IssueToken(domain.NewPrincipal(principal), time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, principal string, body interface{}, idemKey string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, principal))
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) post(t *testing.T, path, principal string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, path, principal, body, uuid.NewString())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthEndpoints(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/health/live", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/health/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","components":{"database":"disabled","redis":"disabled","oracle":"ok"}}`, w.Body.String())
}

func TestPublicDocumentationRoutes(t *testing.T) {
	a := setupAPI(t)
	for _, path := range []string{"/metrics", "/openapi.yaml", "/swagger/index.html"} {
		t.Run(path, func(t *testing.T) {
			w := a.do(t, http.MethodGet, path, "", nil, "")
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/cap", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestDevTokenIssuance(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{"principal": aliceAddr}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[models.TokenResponse](t, w)
	require.NotEmpty(t, tok.Token)

	req := httptest.NewRequest(http.MethodGet, "/v1/cap", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/token", "", map[string]string{"principal": "not-an-address"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAssetRequiresAdministrator(t *testing.T) {
	a := setupAPI(t)
	body := map[string]interface{}{"asset_id": usdcAddr, "decimals": 6}

	w := a.post(t, "/v1/assets", aliceAddr, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.post(t, "/v1/roles/administrator/grants", adminAddr, map[string]string{"principal": aliceAddr})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.post(t, "/v1/assets", aliceAddr, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	asset := decode[models.Asset](t, w)
	assert.Equal(t, uint8(6), asset.Decimals)
	assert.True(t, asset.Registered)

	w = a.do(t, http.MethodGet, "/v1/assets/"+usdcAddr, aliceAddr, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/v1/roles/administrator/grants/"+aliceAddr, aliceAddr, nil, "")
	grant := decode[models.RoleGrant](t, w)
	assert.True(t, grant.Granted)
}

func TestRegisterNativeSentinelRejected(t *testing.T) {
	a := setupAPI(t)
	w := a.post(t, "/v1/assets", adminAddr, map[string]interface{}{"asset_id": string(domain.NativeAsset), "decimals": 18})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNativeDepositAndWithdraw(t *testing.T) {
	a := setupAPI(t)

	w := a.post(t, "/v1/deposits/native", aliceAddr, map[string]string{"amount": oneNative})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	receipt := decode[models.Receipt](t, w)
	assert.Equal(t, "2000000000", receipt.ValueUSD6)
	assert.Equal(t, "2000000000", receipt.TotalNormalized)
	assert.Equal(t, oneNative, receipt.Balance)

	w = a.do(t, http.MethodGet, "/v1/balances/"+aliceAddr, aliceAddr, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	bals := decode[models.Balances](t, w)
	require.Len(t, bals.Balances, 1)
	assert.Equal(t, "2000000000", bals.NativeValueUSD6)

	w = a.post(t, "/v1/withdrawals/native", aliceAddr, map[string]string{"amount": "2000000000000000000"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.post(t, "/v1/withdrawals/native", aliceAddr, map[string]string{"amount": oneNative})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/v1/cap", aliceAddr, nil, "")
	capState := decode[models.CapState](t, w)
	assert.Equal(t, "0", capState.TotalNormalized)
	assert.Equal(t, "100000000000", capState.Remaining)
}

func TestLedgerErrorMapping(t *testing.T) {
	a := setupAPI(t)
	w := a.post(t, "/v1/deposits/native", aliceAddr, map[string]string{"amount": "50000000000000000000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	testCases := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{name: "zero native deposit", path: "/v1/deposits/native", body: map[string]string{"amount": "0"}, status: http.StatusBadRequest},
		{name: "fractional amount", path: "/v1/deposits/native", body: map[string]string{"amount": "1.5"}, status: http.StatusBadRequest},
		{name: "cap exceeded", path: "/v1/deposits/native", body: map[string]string{"amount": oneNative}, status: http.StatusUnprocessableEntity},
		{name: "unregistered asset", path: "/v1/deposits/asset", body: map[string]string{"asset_id": usdcAddr, "amount": "10"}, status: http.StatusNotFound},
		{name: "unknown field", path: "/v1/deposits/native", body: map[string]string{"amount": "1", "memo": "x"}, status: http.StatusBadRequest},
		{name: "bad receive path", path: "/v1/receive", body: map[string]string{"amount": "1", "path": "other"}, status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.post(t, tc.path, aliceAddr, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	w = a.post(t, "/v1/deposits/native", aliceAddr, map[string]string{"amount": oneNative})
	assert.Equal(t, "102000000000", w.Header().Get("X-Cap-Attempted"))
	body := decode[problem.Details](t, w)
	assert.Equal(t, "cap_exceeded", body.Kind)
	assert.Equal(t, "102000000000", body.Attempted)
	assert.Equal(t, "100000000000", body.Cap)
	assert.Equal(t, problem.Type("ledger/cap-exceeded"), body.Type)
}

func TestAssetTransferFailureMapsToBadGateway(t *testing.T) {
	a := setupAPI(t)
	w := a.post(t, "/v1/assets", adminAddr, map[string]interface{}{"asset_id": usdcAddr, "decimals": 6})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	key := uuid.NewString()
	body := map[string]string{"asset_id": usdcAddr, "amount": "1000"}
	a.custody.FailAsset(domain.NewAssetID(usdcAddr), assert.AnError)
	w = a.do(t, http.MethodPost, "/v1/deposits/asset", aliceAddr, body, key)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "transfer_failed", decode[problem.Details](t, w).Kind)

	// The failed attempt released its key, so the retry runs for real.
	a.custody.Recover(domain.NewAssetID(usdcAddr))
	w = a.do(t, http.MethodPost, "/v1/deposits/asset", aliceAddr, body, key)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, "1000", decode[models.Receipt](t, w).Balance)
}

func TestReceivePaths(t *testing.T) {
	a := setupAPI(t)

	w := a.post(t, "/v1/receive", aliceAddr, map[string]string{"amount": "0", "path": "fallback"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Receipt](t, w).Noop)

	w = a.post(t, "/v1/receive", aliceAddr, map[string]string{"amount": "0", "path": "receive"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.post(t, "/v1/receive", aliceAddr, map[string]string{"amount": oneNative, "path": "receive"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, oneNative, decode[models.Receipt](t, w).Balance)
}

func TestDepositIdempotency(t *testing.T) {
	a := setupAPI(t)
	key := uuid.NewString()
	body := map[string]string{"amount": oneNative}

	w1 := a.do(t, http.MethodPost, "/v1/deposits/native", aliceAddr, body, key)
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())

	w2 := a.do(t, http.MethodPost, "/v1/deposits/native", aliceAddr, body, key)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "memory", w2.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, w1.Body.String(), w2.Body.String())

	w3 := a.do(t, http.MethodPost, "/v1/deposits/native", aliceAddr, map[string]string{"amount": "5"}, key)
	assert.Equal(t, http.StatusConflict, w3.Code)

	w := a.do(t, http.MethodGet, "/v1/cap", aliceAddr, nil, "")
	assert.Equal(t, "2000000000", decode[models.CapState](t, w).TotalNormalized)

	w = a.do(t, http.MethodPost, "/v1/deposits/native", aliceAddr, body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleLifecycle(t *testing.T) {
	a := setupAPI(t)

	w := a.post(t, "/v1/roles/administrator/grants", aliceAddr, map[string]string{"principal": aliceAddr})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.post(t, "/v1/roles/minter/grants", adminAddr, map[string]string{"principal": aliceAddr})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.post(t, "/v1/roles/administrator/grants", adminAddr, map[string]string{"principal": aliceAddr})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodDelete, "/v1/roles/administrator/self", aliceAddr, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/v1/roles/administrator/grants/"+aliceAddr, adminAddr, nil, "")
	assert.False(t, decode[models.RoleGrant](t, w).Granted)

	w = a.post(t, "/v1/roles/administrator/grants", adminAddr, map[string]string{"principal": aliceAddr})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodDelete, "/v1/roles/administrator/grants/"+aliceAddr, adminAddr, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, "/v1/roles/administrator/grants/"+aliceAddr, adminAddr, nil, "")
	assert.False(t, decode[models.RoleGrant](t, w).Granted)
}

func TestReconciliationEndpoint(t *testing.T) {
	a := setupAPI(t)

	w := a.do(t, http.MethodGet, "/v1/reconciliation", adminAddr, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.post(t, "/v1/deposits/native", aliceAddr, map[string]string{"amount": oneNative})
	require.Equal(t, http.StatusOK, w.Code)
	a.worker.RunOnce(context.Background())

	w = a.do(t, http.MethodGet, "/v1/reconciliation", aliceAddr, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, "/v1/reconciliation", adminAddr, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[models.Reconciliation](t, w)
	assert.Equal(t, "0", rep.Drift)
	assert.Equal(t, 1, rep.Holders)
}
