package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/policies"
	authsvc "staybook/internal/app/services/auth"
	domainuser "staybook/internal/domain/user"
)

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type operatorResponse struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  operatorResponse `json:"operator"`
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	res, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "kind": "unauthenticated"})
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, Operator: mapOperator(res.Operator)})
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Service.Logout(c.Request.Context(), c.GetString(tokenContextKey)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		respondError(c, nil, policies.ErrAuthenticationRequired)
		return
	}
	c.JSON(http.StatusOK, mapOperator(op))
}

func mapOperator(op *domainuser.Operator) operatorResponse {
	roles := make([]string, 0, len(op.Roles))
	for _, r := range op.Roles {
		roles = append(roles, string(r))
	}
	return operatorResponse{ID: string(op.ID), Email: op.Email, Name: op.Name, Roles: roles}
}
