package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"helpfinder/internal/authz"
)

// RoleCheck decides whether a role may use a route.
type RoleCheck func(roleID int) bool

// AnyOf allows exactly the listed roles.
func AnyOf(roles ...int) RoleCheck {
	return func(roleID int) bool { return slices.Contains(roles, roleID) }
}

// RequireRole runs after AuthMiddleware and refuses requests whose role
// fails check. need names the missing role in the 403 body.
func RequireRole(check RoleCheck, need string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxRoleID)
		roleID, isInt := v.(int)
		if !ok || !isInt {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !check(roleID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": need + " role required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(authz.IsAdmin, "admin")
}
