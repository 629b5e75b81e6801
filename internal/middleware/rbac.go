package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/survey-api/internal/models"
	appErrors "github.com/noah-isme/survey-api/pkg/errors"
	"github.com/noah-isme/survey-api/pkg/response"
)

// RequireRoles gates a route on the platform role in the token. Campaign
// roles (owner, admin, creator, reader) are resolved by the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return roleGate("", roles)
}

// RequireRolesOrSelf also admits the caller whose ID is in the path
// parameter param.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return roleGate(param, roles)
}

func roleGate(selfParam string, roles []models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if selfParam != "" && c.Param(selfParam) == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient platform role"))
		c.Abort()
	}
}
