package middleware

import (
	"net/http"

	"storebackend/internal/repository"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard は発行時のtv claimとDBの現在値を突き合わせる。
// ForceLogoutでtoken_versionが上がると、期限内のアクセストークンもここで落ちる。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, okID := c.Get(CtxUserIDKey).(int64)
			tv, okTV := c.Get(CtxTokenVersionKey).(int)
			if !okID || userID <= 0 || !okTV || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//停止ユーザーのtokenも同じ401に落とす
			if !user.IsActive || user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			return next(c)
		}
	}
}
