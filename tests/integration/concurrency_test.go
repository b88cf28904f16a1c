package integration

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentConfirmations fires wallet confirmations for several orders
// of the same customer at once. The wallet holds enough for three of the
// five orders; locking must prevent the balance from ever going negative.
func TestConcurrentConfirmations(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	status, _ := app.request(t, http.MethodPost, "/api/v1/wallets/"+customerID+"/recharge", admin, map[string]interface{}{
		"amount": 100000,
	})
	require.Equal(t, http.StatusCreated, status)

	const orders = 5
	const orderAmount = 30000

	orderIDs := make([]string, orders)
	for i := 0; i < orders; i++ {
		status, body := app.request(t, http.MethodPost, "/api/v1/orders", admin, map[string]interface{}{
			"order_number": fmt.Sprintf("M25114%02d", i),
			"customer_id":  customerID,
			"total_amount": orderAmount,
		})
		require.Equal(t, http.StatusCreated, status)
		orderIDs[i] = data(body)["id"].(string)
	}

	var succeeded int64
	var wg sync.WaitGroup
	for _, orderID := range orderIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, _ := app.request(t, http.MethodPost, "/api/v1/orders/"+id+"/confirm-payment", admin, map[string]string{
				"method": "wallet",
			})
			switch status {
			case http.StatusOK:
				atomic.AddInt64(&succeeded, 1)
			case http.StatusPaymentRequired, http.StatusConflict:
				// Balance exhausted; the full-wallet option vanished.
			default:
				t.Errorf("unexpected status %d", status)
			}
		}(orderID)
	}
	wg.Wait()

	// 100000 covers exactly three 30000 orders.
	assert.Equal(t, int64(3), succeeded)

	status, body := app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/balance", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100000-3*orderAmount), data(body)["balance"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["consistent"])
}

// TestConcurrentRecharges verifies the ledger stays consistent under
// concurrent credits to the same wallet.
func TestConcurrentRecharges(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := app.request(t, http.MethodPost, "/api/v1/wallets/"+customerID+"/recharge", admin, map[string]interface{}{
				"amount": 1000,
			})
			if status != http.StatusCreated {
				t.Errorf("recharge failed with status %d", status)
			}
		}()
	}
	wg.Wait()

	status, body := app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/balance", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(workers*1000), data(body)["balance"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["consistent"])
	assert.Equal(t, float64(workers*1000), data(body)["ledger_sum"])

	status, body = app.request(t, http.MethodGet, "/api/v1/wallets/"+customerID+"/entries", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"].([]interface{}), workers)
}

// TestConcurrentDeliveryVerification submits the correct code from two
// couriers at once; exactly one submission may deliver the order.
func TestConcurrentDeliveryVerification(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	admin := app.tokens["admin1"]
	customerID := uuid.New().String()

	status, body := app.request(t, http.MethodPost, "/api/v1/orders", admin, map[string]interface{}{
		"order_number": "M2511450",
		"customer_id":  customerID,
		"total_amount": 50000,
	})
	require.Equal(t, http.StatusCreated, status)
	orderID := data(body)["id"].(string)

	// Walk the order to in_transit through the normal chain.
	status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/confirm-payment", admin, map[string]string{
		"method": "bank_gateway",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/financial/approve", app.tokens["huda"], map[string]string{
		"notes": "slip ok",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/warehouse/approve", app.tokens["ali"], nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/logistics/assign", app.tokens["omar"], map[string]string{
		"vehicle": "VAN-02",
		"courier": "karim",
	})
	require.Equal(t, http.StatusOK, status)
	for _, step := range []string{"start", "dispatch", "in-transit"} {
		status, _ = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/logistics/"+step, app.tokens["omar"], nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body = app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/code", app.tokens["karim"], nil)
	require.Equal(t, http.StatusCreated, status)
	code := data(body)["code"].(string)

	var delivered, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, body := app.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/delivery/verify", app.tokens["karim"], map[string]string{
				"code": code,
			})
			switch status {
			case http.StatusOK:
				atomic.AddInt64(&delivered, 1)
			case http.StatusConflict:
				// The loser must see the code as already verified.
				if body["error_code"] == "CNF_002" {
					atomic.AddInt64(&rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(1), rejected)

	status, body = app.request(t, http.MethodGet, "/api/v1/orders/"+orderID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "delivered", data(body)["current_status"])
}
