package ginserver

import (
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/policies"
	"staybook/internal/app/services/auth"
	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
)

const (
	operatorContextKey = "staybook.operator"
	tokenContextKey    = "staybook.token"
)

// AuthMiddleware resolves bearer tokens into an actor on the request context. Requests
// without a valid token continue anonymously; the command pipeline decides what they may do.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	actor, op, err := m.Service.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Request = c.Request.WithContext(policies.ContextWithActor(c.Request.Context(), actor))
	c.Set(operatorContextKey, op)
	c.Set(tokenContextKey, token)
	c.Next()
}

func currentOperator(c *gin.Context) (*domainuser.Operator, bool) {
	val, exists := c.Get(operatorContextKey)
	if !exists {
		return nil, false
	}
	op, ok := val.(*domainuser.Operator)
	return op, ok
}

// requireOperator rejects admin routes early; commands still authorize on their own.
func requireOperator(c *gin.Context) {
	actor, ok := policies.ActorFromContext(c.Request.Context())
	if !ok {
		respondError(c, nil, policies.ErrAuthenticationRequired)
		return
	}
	if !actor.HasRole(string(domainuser.RoleAdmin)) {
		respondError(c, nil, policies.ErrForbidden)
		return
	}
	c.Next()
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
