package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/bridge"
	"github.com/devlas/sumup-bridge/internal/config"
	"github.com/devlas/sumup-bridge/internal/taptopay"
	"github.com/devlas/sumup-bridge/internal/telemetry"
	"github.com/devlas/sumup-bridge/internal/terminal/simulated"
)

// fakeTapSDK completes init and payments on its own, like the simulated
// reader driver does for the hosted flows.
type fakeTapSDK struct {
	mu       sync.Mutex
	listener taptopay.Listener
	ready    bool
}

func (f *fakeTapSDK) SetListener(l taptopay.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeTapSDK) Initialize(affiliateKey, apiToken string, onResult func(ok bool, errMsg string)) {
	f.mu.Lock()
	f.ready = true
	f.mu.Unlock()
	onResult(true, "")
}

func (f *fakeTapSDK) StartPayment(req taptopay.PaymentRequest) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	go l.OnPaymentSuccess(map[string]any{
		"transaction_code": "TAP-" + req.ForeignTransactionID,
		"amount":           float64(req.Amount),
		"currency":         req.Currency,
		"status":           "SUCCESSFUL",
		"payment_type":     "TAP_TO_PAY",
	})
}

func (f *fakeTapSDK) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTapSDK) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = false
}

func newTestServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:             "0",
		OperationTimeout: 2 * time.Second,
		SimulatedDelay:   time.Millisecond,
	}
	logger := zap.NewNop()
	metrics := telemetry.NewMetrics()

	driver := simulated.NewDriver(cfg.SimulatedDelay, logger)
	br := bridge.New(driver, nil, metrics, logger)
	driver.SetSink(br)
	t.Cleanup(br.Close)

	tap := taptopay.NewManager(func() taptopay.SDK { return &fakeTapSDK{} }, br.Registry(), metrics, logger)
	t.Cleanup(func() { _ = tap.Teardown() })

	s, err := newServer(br, tap, metrics, cfg, logger)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestSetup(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/setup", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_HappyPath(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/login", `{"affiliateKey": "abc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["code"])
	assert.Equal(t, "login successful", body["message"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/isLoggedIn", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["isLoggedIn"])
}

func TestLogin_MissingAffiliateKeyFailsContract(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/login", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeBody(t, w)["code"])
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/login", `{"affiliateKey": "abc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/isLoggedIn", "")
	assert.Equal(t, false, decodeBody(t, w)["isLoggedIn"])
}

func TestCheckout_HappyPath(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout",
		`{"amount": 25.5, "currencyCode": "EUR", "foreignTransactionId": "order-7"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "SIM-order-7", body["transaction_code"])
	assert.Equal(t, 25.5, body["amount"])
	assert.Equal(t, "EUR", body["currency"])
	assert.Contains(t, body, "receipt_sent")
}

func TestCheckout_MissingAmountFailsContract(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", `{"title": "Coffee"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeBody(t, w)["code"])
}

func TestCheckout_SubMinimumAmountIsDomainError(t *testing.T) {
	s := newTestServer(t)

	// 0.5 passes the schema; the dispatcher owns the minimum.
	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", `{"amount": 0.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decodeBody(t, w)["code"])
}

func TestCheckout_UnknownCurrency(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", `{"amount": 10, "currencyCode": "XYZ"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CURRENCY", decodeBody(t, w)["code"])
}

func TestOpenCardReaderPage(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/openCardReaderPage", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "card reader page closed", decodeBody(t, w)["message"])
}

func TestPrepareForCheckout(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/prepareForCheckout", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCloseConnection(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/closeConnection", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTapToPay_CheckoutBeforeInitConflicts(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/tapToPayCheckout", `{"amount": 1500}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_INITIALIZED", decodeBody(t, w)["code"])
}

func TestTapToPay_InitValidatesCredentials(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/initTapToPay", `{"apiToken": "tok"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_AFFILIATE_KEY", decodeBody(t, w)["code"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/initTapToPay", `{"affiliateKey": "abc"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_API_TOKEN", decodeBody(t, w)["code"])
}

func TestTapToPay_FullLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/isTapToPayReady", "")
	assert.Equal(t, false, decodeBody(t, w)["ready"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/initTapToPay", `{"affiliateKey": "abc", "apiToken": "tok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/api/v1/isTapToPayReady", "")
	assert.Equal(t, true, decodeBody(t, w)["ready"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/tapToPayCheckout",
		`{"amount": 1500, "foreignTransactionId": "order-9"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "TAP-order-9", body["transaction_code"])
	assert.Equal(t, float64(1500), body["amount"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/teardownTapToPay", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/isTapToPayReady", "")
	assert.Equal(t, false, decodeBody(t, w)["ready"])
}

func TestTapToPay_CheckoutFailsContractOnFractionalAmount(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/tapToPayCheckout", `{"amount": 15.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeBody(t, w)["code"])
}
