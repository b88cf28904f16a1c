package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chemdist-fulfillment/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureAuditService struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (s *captureAuditService) Log(ctx context.Context, entry *domain.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *captureAuditService) get() []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.AuditLog(nil), s.entries...)
}

func TestAuditLog_RecordsSuccessfulWrite(t *testing.T) {
	svc := &captureAuditService{}
	r := gin.New()
	r.Use(AuditLog(svc))
	r.POST("/api/v1/orders/:id/financial/approve", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/orders/abc/financial/approve", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Audit write is synchronous in the middleware; the service stub captures
	// directly.
	assert.Eventually(t, func() bool {
		return len(svc.get()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := svc.get()[0]
	assert.Equal(t, domain.AuditActionFinancialReview, entry.Action)
	assert.Equal(t, "order", entry.ResourceType)
}

func TestAuditLog_SkipsReads(t *testing.T) {
	svc := &captureAuditService{}
	r := gin.New()
	r.Use(AuditLog(svc))
	r.GET("/api/v1/orders/:id/location", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders/abc/location", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.get())
}

func TestAuditLog_SkipsFailedWrites(t *testing.T) {
	svc := &captureAuditService{}
	r := gin.New()
	r.Use(AuditLog(svc))
	r.POST("/api/v1/orders/:id/cancel", func(c *gin.Context) {
		c.String(http.StatusConflict, "conflict")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/orders/abc/cancel", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, svc.get())
}

func TestMapPathToAction(t *testing.T) {
	cases := map[string]domain.AuditAction{
		"/api/v1/auth/login":                       domain.AuditActionLogin,
		"/api/v1/orders/x/confirm-payment":         domain.AuditActionConfirmPayment,
		"/api/v1/orders/x/financial/reject":        domain.AuditActionFinancialReview,
		"/api/v1/orders/x/warehouse/approve":       domain.AuditActionWarehouseApprove,
		"/api/v1/orders/x/logistics/assign":        domain.AuditActionLogistics,
		"/api/v1/orders/x/delivery/verify":         domain.AuditActionDelivery,
		"/api/v1/wallets/corrections":              domain.AuditActionWalletCorrection,
		"/api/v1/wallets/y/recharge":               domain.AuditActionWalletRecharge,
	}
	for path, want := range cases {
		got, _ := mapPathToAction(path)
		assert.Equal(t, want, got, path)
	}

	unmapped, _ := mapPathToAction("/api/v1/unknown")
	assert.Empty(t, unmapped)
}
