package handler

import (
	"context"
	"net/http"
	"time"

	"chemdist-fulfillment/internal/adapter/http/dto"
	"chemdist-fulfillment/internal/adapter/http/middleware"
	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
	"chemdist-fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles staff authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, expiry, staff, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:    token,
		Expiry:   expiry.Unix(),
		Username: staff.Username,
		Role:     string(staff.Role),
	})
}

// CreateStaff handles POST /api/v1/auth/staff (admin only).
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	staff, err := h.authSvc.CreateStaff(c.Request.Context(), req.Username, req.DisplayName, req.Password, domain.StaffRole(req.Role))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"id":       staff.ID.String(),
		"username": staff.Username,
		"role":     string(staff.Role),
	})
}

// HealthCheck handles GET /health. It pings every registered dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for _, checker := range checkers {
			if err := checker.Ping(ctx); err != nil {
				deps[checker.Name()] = "unhealthy"
				status = http.StatusServiceUnavailable
			} else {
				deps[checker.Name()] = "ok"
			}
		}

		c.JSON(status, gin.H{
			"status":       map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
			"dependencies": deps,
		})
	}
}

// actorFromContext builds the custody actor from the JWT claims set by the
// auth middleware.
func actorFromContext(c *gin.Context) (ports.Actor, bool) {
	rawID, ok1 := c.Get(middleware.CtxStaffID)
	rawUser, ok2 := c.Get(middleware.CtxUsername)
	rawRole, ok3 := c.Get(middleware.CtxRole)
	if !ok1 || !ok2 || !ok3 {
		return ports.Actor{}, false
	}
	id, ok := rawID.(uuid.UUID)
	if !ok {
		return ports.Actor{}, false
	}
	username, ok := rawUser.(string)
	if !ok {
		return ports.Actor{}, false
	}
	role, ok := rawRole.(domain.StaffRole)
	if !ok {
		return ports.Actor{}, false
	}
	return ports.Actor{ID: id, Username: username, Role: role}, true
}

// orderIDParam parses the :id path parameter.
func orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return uuid.Nil, false
	}
	return id, true
}
