package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminGuard rejects any caller whose token role is not admin. The escrow
// core re-checks admin status through its own Authorizer; this guard just
// keeps non-admins off the admin routes entirely.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if role, _ := c.Get("role").(string); role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		return next(c)
	}
}

// RequireRoles allows a route only for callers holding one of the roles.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
	}
}
