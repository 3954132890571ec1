package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
	"github.com/noah-isme/admission-agent-api/pkg/response"
)

// RequireRoles admits only callers whose token carries one of roles. It must
// run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the verified claims attached by JWT, or nil.
func CurrentClaims(c *gin.Context) *models.JWTClaims {
	raw, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := raw.(*models.JWTClaims)
	return claims
}
