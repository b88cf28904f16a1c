package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "chemdist-fulfillment/internal/adapter/http/handler"
	redisStorage "chemdist-fulfillment/internal/adapter/storage/redis"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the full HTTP stack: real middleware, handlers, and services
// over in-memory repositories, with rate limiting backed by miniredis.
type testApp struct {
	server     *httptest.Server
	redis      *miniredis.Miniredis
	walletRepo *inMemoryWalletRepo
	orderRepo  *inMemoryOrderRepo
	eventRepo  *inMemoryEventRepo
	tokens     map[string]string // username -> JWT
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	log := zerolog.Nop()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	walletRepo := newInMemoryWalletRepo()
	orderRepo := newInMemoryOrderRepo()
	verificationRepo := newInMemoryVerificationRepo()
	eventRepo := newInMemoryEventRepo()
	staffRepo := newInMemoryStaffRepo()
	transactor := newInMemoryTransactor()

	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("integration-test-secret-32-chars!!!!", time.Hour, "chemdist-fulfillment")

	emitter := service.NewEventEmitter(eventRepo, service.NewLogPublisher(log), sigSvc, "outbox-secret", log)
	smsSender := redisStorage.NewInstrumentedSMSSender(service.NewLogSMSSender(log), redisStorage.NewSMSStatsStore(rdb), log)

	authSvc := service.NewAuthService(staffRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, orderRepo, emitter, transactor, "IQD", log)
	orderSvc := service.NewOrderService(orderRepo, "IQD", log)
	paymentSvc := service.NewPaymentService(orderRepo, walletRepo, walletSvc, emitter, transactor, 7, "IQD", log)
	deliverySvc := service.NewDeliveryService(orderRepo, verificationRepo, smsSender, emitter, transactor, log)
	custodySvc := service.NewCustodyService(orderRepo, walletSvc, deliverySvc, emitter, transactor, log)
	locationSvc := service.NewLocationService(orderRepo)
	reportingSvc := service.NewReportingService(orderRepo)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		OrderSvc:       orderSvc,
		PaymentSvc:     paymentSvc,
		CustodySvc:     custodySvc,
		DeliverySvc:    deliverySvc,
		WalletSvc:      walletSvc,
		LocationSvc:    locationSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		Currency:       "IQD",
		Logger:         log,
	})

	app := &testApp{
		server:     httptest.NewServer(router),
		redis:      mr,
		walletRepo: walletRepo,
		orderRepo:  orderRepo,
		eventRepo:  eventRepo,
		tokens:     make(map[string]string),
	}

	// Seed one account per department.
	accounts := []struct {
		username string
		role     domain.StaffRole
	}{
		{"admin1", domain.RoleAdmin},
		{"huda", domain.RoleFinancial},
		{"ali", domain.RoleWarehouse},
		{"omar", domain.RoleLogistics},
		{"karim", domain.RoleCourier},
	}
	ctx := t.Context()
	for _, acc := range accounts {
		_, err := authSvc.CreateStaff(ctx, acc.username, acc.username, "Password123!", acc.role)
		require.NoError(t, err)
		app.tokens[acc.username] = app.login(t, acc.username, "Password123!")
	}

	return app
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := a.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status)
	return body["data"].(map[string]interface{})["token"].(string)
}

// request performs an HTTP call and decodes the JSON envelope.
func (a *testApp) request(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func data(body map[string]interface{}) map[string]interface{} {
	return body["data"].(map[string]interface{})
}

// TestOrderWorkflow_EndToEnd walks one order through the entire custody
// chain: intake, partial wallet payment, financial approval, warehouse
// approval with code issuance, logistics, and code-verified delivery.
func TestOrderWorkflow_EndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	// Fund the customer wallet.
	status, body := app.request(t, http.MethodPost, "/api/v1/wallets/"+customerID+"/recharge", admin, map[string]interface{}{
		"amount": 100000,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(100000), data(body)["new_balance"])

	// Register the order.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders", admin, map[string]interface{}{
		"order_number":  "M2511386",
		"customer_id":   customerID,
		"total_amount":  250000,
		"shipping_cost": 5000,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := data(body)["id"].(string)
	assert.Equal(t, "pending_payment", data(body)["current_status"])

	// Payment options: partial wallet coverage splits 100000 / 155000.
	status, body = app.request(t, http.MethodGet, "/api/v1/orders/"+orderID+"/payment-options", admin, nil)
	require.Equal(t, http.StatusOK, status)
	options := data(body)["options"].(map[string]interface{})
	partial, ok := options["wallet_partial"].(map[string]interface{})
	require.True(t, ok, "wallet_partial option missing: %v", options)
	assert.Equal(t, float64(100000), partial["wallet_amount"])
	assert.Equal(t, float64(155000), partial["bank_amount"])
	assert.Equal(t, true, partial["requires_manual_approval"])
	_, fullWallet := options["wallet"]
	assert.False(t, fullWallet, "full wallet option must not appear with insufficient balance")

	// Confirm: debits the wallet share and chains into financial review.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/confirm-payment", admin, map[string]string{
		"method": "wallet_partial",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "financial_pending", data(body)["current_status"])
	assert.Equal(t, float64(100000), data(body)["wallet_amount_applied"])
	assert.Equal(t, float64(155000), data(body)["external_amount_applied"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/balance", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), data(body)["balance"])

	// Double confirmation is rejected.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/confirm-payment", admin, map[string]string{
		"method": "wallet_partial",
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CNF_001", body["error_code"])

	// Warehouse staff may not approve a financial review.
	status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/financial/approve", app.tokens["ali"], map[string]string{
		"notes": "not my desk",
	})
	require.Equal(t, http.StatusForbidden, status)

	// Financial approval requires notes.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/financial/approve", app.tokens["huda"], map[string]string{})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VAL_006", body["error_code"])

	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/financial/approve", app.tokens["huda"], map[string]string{
		"notes": "Bank slip verified",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "warehouse_pending", data(body)["current_status"])

	// Location projection points at the warehouse.
	status, body = app.request(t, http.MethodGet, "/api/v1/orders/"+orderID+"/location", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "warehouse", data(body)["current_department"])

	// Warehouse approval issues the first verification code atomically.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/warehouse/approve", app.tokens["ali"], nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["code_issued"])
	assert.Equal(t, "warehouse_approved", data(body)["order"].(map[string]interface{})["current_status"])

	// Logistics chain: assign, start, dispatch, in transit.
	omar := app.tokens["omar"]
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/logistics/assign", omar, map[string]string{
		"vehicle": "VAN-07",
		"courier": "karim",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VAN-07", data(body)["assigned_vehicle"])

	for _, step := range []string{"start", "dispatch", "in-transit"} {
		status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/logistics/"+step, omar, nil)
		require.Equal(t, http.StatusOK, status, "logistics step %s", step)
	}

	// The courier regenerates the code at the door; the old one is superseded.
	karim := app.tokens["karim"]
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/code", karim, nil)
	require.Equal(t, http.StatusCreated, status)
	code := data(body)["code"].(string)
	require.Len(t, code, 4)

	// A failed doorstep attempt is tracked without touching the code.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/attempt", karim, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(body)["delivery_attempts"])

	// Wrong code is rejected; codes are 1000-9999 so 0000 never matches.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/verify", karim, map[string]string{
		"code": "0000",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VAL_004", body["error_code"])

	// Correct code delivers the order.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/verify", karim, map[string]string{
		"code": code,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "delivered", data(body)["current_status"])

	// Second submission of the consumed code reports it already verified.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/verify", karim, map[string]string{
		"code": code,
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CNF_002", body["error_code"])

	// Verification history keeps every issued row and hides the codes.
	status, body = app.request(t, http.MethodGet, "/api/v1/orders/"+orderID+"/delivery/history", karim, nil)
	require.Equal(t, http.StatusOK, status)
	history := body["data"].([]interface{})
	require.Len(t, history, 2)
	for _, item := range history {
		_, present := item.(map[string]interface{})["code"]
		assert.False(t, present)
	}

	// Custody trail covers the full chain including the system hops.
	status, body = app.request(t, http.MethodGet, "/api/v1/orders/"+orderID+"/history", admin, nil)
	require.Equal(t, http.StatusOK, status)
	trail := body["data"].([]interface{})
	actions := make([]string, 0, len(trail))
	for _, item := range trail {
		actions = append(actions, item.(map[string]interface{})["action"].(string))
	}
	assert.Contains(t, actions, "confirm_payment")
	assert.Contains(t, actions, "submit_financial_review")
	assert.Contains(t, actions, "route_to_warehouse")
	assert.Contains(t, actions, "deliver")

	// Dashboard sees the delivered order.
	status, body = app.request(t, http.MethodGet, "/api/v1/dashboard/stats", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(body)["total"])
	byStatus := data(body)["by_status"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus["delivered"])

	// The outbox recorded the key events.
	assert.Equal(t, 1, app.eventRepo.countByType(domain.EventOrderDelivered))
	assert.Equal(t, 1, app.eventRepo.countByType(domain.EventPaymentConfirmed))
}

// TestFinancialRejection_RefundsWallet verifies that rejecting a financial
// review refunds the wallet share and cancels the order.
func TestFinancialRejection_RefundsWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	status, _ := app.request(t, http.MethodPost, "/api/v1/wallets/"+customerID+"/recharge", admin, map[string]interface{}{
		"amount": 100000,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := app.request(t, http.MethodPost, "/api/v1/orders", admin, map[string]interface{}{
		"order_number": "M2511387",
		"customer_id":  customerID,
		"total_amount": 60000,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := data(body)["id"].(string)

	// Full wallet coverage is available.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/confirm-payment", admin, map[string]string{
		"method": "wallet",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(60000), data(body)["wallet_amount_applied"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/balance", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(40000), data(body)["balance"])

	// Rejection refunds the debited share and cancels.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/financial/reject", app.tokens["huda"], map[string]string{
		"notes": "bank transfer never arrived",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", data(body)["current_status"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/balance", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100000), data(body)["balance"])

	// Ledger and materialized balance agree.
	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["consistent"])
	assert.Equal(t, float64(100000), data(body)["ledger_sum"])

	// Cancelled orders accept no further transitions.
	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/warehouse/approve", app.tokens["ali"], nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "VAL_003", body["error_code"])
}

// TestAuth_Gates verifies the authentication and role perimeter.
func TestAuth_Gates(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// No token.
	status, body := app.request(t, http.MethodGet, "/api/v1/dashboard/stats", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_002", body["error_code"])

	// Garbage token.
	status, _ = app.request(t, http.MethodGet, "/api/v1/dashboard/stats", "not.a.jwt", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Wrong password.
	status, body = app.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "huda",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_001", body["error_code"])

	// Wallet admin surface is closed to non-admin staff.
	status, _ = app.request(t, http.MethodGet, fmt.Sprintf("/api/v1/wallets/%s/balance", uuid.New()), app.tokens["karim"], nil)
	require.Equal(t, http.StatusForbidden, status)
}

// TestLocationLookup_ByNumber verifies the external-number lookup and its
// format gate.
func TestLocationLookup_ByNumber(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	status, _ := app.request(t, http.MethodPost, "/api/v1/orders", admin, map[string]interface{}{
		"order_number": "M2511390",
		"customer_id":  customerID,
		"total_amount": 10000,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := app.request(t, http.MethodGet, "/api/v1/order-locations/M2511390", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sales", data(body)["current_department"])

	// Malformed references are rejected before any lookup.
	status, body = app.request(t, http.MethodGet, "/api/v1/order-locations/DROPTABLE", admin, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VAL_002", body["error_code"])

	status, _ = app.request(t, http.MethodGet, "/api/v1/order-locations/M2599999", admin, nil)
	require.Equal(t, http.StatusNotFound, status)
}

// TestLoginRateLimit verifies the Redis-backed limiter on the login route.
func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// Setup consumed 5 of the 10-per-minute budget; keep failing until the
	// limiter trips.
	limited := false
	for i := 0; i < 10; i++ {
		status, body := app.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": "huda",
			"password": "wrong",
		})
		if status == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_001", body["error_code"])
			limited = true
			break
		}
		require.Equal(t, http.StatusUnauthorized, status)
	}
	assert.True(t, limited, "rate limiter never tripped")
}
