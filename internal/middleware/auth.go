package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/auth"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/httputil"
)

const ContextActor = "actor"

type AuthMiddleware struct {
	tokens *auth.JWTService
}

func NewAuthMiddleware(tokens *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores the actor it names in
// the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "invalid authorization format")
			return
		}

		actor, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireRoles rejects actors holding none of roles with 403.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			unauthorized(c, "missing actor")
			return
		}
		if !actor.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, httputil.Response{
				Status:  "error",
				Message: "permission denied",
				Error:   &httputil.Error{Code: "forbidden"},
			})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor for the request.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
		Status:  "error",
		Message: msg,
		Error:   &httputil.Error{Code: "unauthorized"},
	})
}
