package handler

import (
	"chemdist-fulfillment/internal/adapter/http/middleware"
	redisStore "chemdist-fulfillment/internal/adapter/storage/redis"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	OrderSvc       ports.OrderService
	PaymentSvc     ports.PaymentService
	CustodySvc     ports.CustodyService
	DeliverySvc    ports.DeliveryService
	WalletSvc      ports.WalletService
	LocationSvc    ports.LocationService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Currency       string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Staff management (admin) ---
	staff := v1.Group("/auth/staff", jwtAuth, middleware.RequireRole())
	{
		staff.POST("", authHandler.CreateStaff)
	}

	orderHandler := NewOrderHandler(deps.OrderSvc, deps.LocationSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.OrderSvc)
	custodyHandler := NewCustodyHandler(deps.CustodySvc)
	deliveryHandler := NewDeliveryHandler(deps.DeliverySvc, deps.OrderSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.Currency)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)

	// --- Orders: intake and reads (any authenticated staff) ---
	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", middleware.RequireRole(), orderHandler.Create)
		orders.GET("/:id", rl("reads"), orderHandler.Get)
		orders.GET("/:id/history", rl("reads"), orderHandler.History)
		orders.GET("/:id/location", rl("reads"), orderHandler.Locate)
		orders.GET("/:id/payment-options", rl("reads"), paymentHandler.GetOptions)

		// Payment confirmation: the workflow chains into financial review.
		orders.POST("/:id/confirm-payment", rl("custody"), paymentHandler.ConfirmPayment)

		// Financial department
		financial := orders.Group("", middleware.RequireRole(domain.RoleFinancial))
		{
			financial.POST("/:id/financial/approve", rl("custody"), custodyHandler.ApproveFinancial)
			financial.POST("/:id/financial/reject", rl("custody"), custodyHandler.RejectFinancial)
			financial.POST("/:id/cancel", rl("custody"), custodyHandler.Cancel)
		}

		// Warehouse department
		warehouse := orders.Group("", middleware.RequireRole(domain.RoleWarehouse))
		{
			warehouse.POST("/:id/warehouse/approve", rl("custody"), custodyHandler.ApproveWarehouse)
		}

		// Logistics department
		logistics := orders.Group("", middleware.RequireRole(domain.RoleLogistics, domain.RoleCourier))
		{
			logistics.POST("/:id/logistics/assign", rl("custody"), custodyHandler.AssignLogistics)
			logistics.POST("/:id/logistics/start", rl("custody"), custodyHandler.StartProcessing)
			logistics.POST("/:id/logistics/dispatch", rl("custody"), custodyHandler.Dispatch)
			logistics.POST("/:id/logistics/in-transit", rl("custody"), custodyHandler.MarkInTransit)
		}

		// Delivery verification gate
		delivery := orders.Group("", middleware.RequireRole(domain.RoleLogistics, domain.RoleCourier))
		{
			delivery.POST("/:id/delivery/code", rl("custody"), deliveryHandler.GenerateCode)
			delivery.POST("/:id/delivery/attempt", rl("custody"), deliveryHandler.RecordAttempt)
			delivery.POST("/:id/delivery/verify", rl("delivery_verify"), deliveryHandler.Verify)
			delivery.GET("/:id/delivery/history", rl("reads"), deliveryHandler.History)
		}
	}

	// --- Location lookup by external order number ---
	locations := v1.Group("/order-locations", jwtAuth)
	{
		locations.GET("/:number", rl("reads"), orderHandler.LocateByNumber)
	}

	// --- Wallet ledger (admin) ---
	wallets := v1.Group("/wallets", jwtAuth, middleware.RequireRole())
	{
		wallets.GET("/:customer_id/balance", rl("reads"), walletHandler.GetBalance)
		wallets.GET("/:customer_id/entries", rl("reads"), walletHandler.ListEntries)
		wallets.GET("/:customer_id/reconcile", rl("reads"), walletHandler.Reconcile)
		wallets.POST("/:customer_id/recharge", rl("wallet_admin"), walletHandler.Recharge)
		wallets.POST("/corrections", rl("wallet_admin"), walletHandler.ApplyCorrection)
	}

	// --- Dashboard (any authenticated staff) ---
	dashboard := v1.Group("/dashboard", jwtAuth)
	{
		dashboard.GET("/stats", rl("reads"), dashboardHandler.GetStats)
	}

	return r
}
