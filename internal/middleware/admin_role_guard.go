package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storebackend/internal/domain/model"
)

// AdminRoleGuard はtokenのrole claimがADMINの場合だけ通す。
// 本人確認はAuthJWTが済ませている前提で、ここはroleしか見ない。
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if model.Role(role) != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}
