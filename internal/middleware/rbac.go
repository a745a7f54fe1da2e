package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

// RequireRoles allows the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff allows teachers and administrators.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin)
}

// RequireSelfOrStaff allows staff, and students whose id matches the :id path parameter.
func RequireSelfOrStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.ActorFromClaims(claims).CanActFor(c.Param("id")) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
