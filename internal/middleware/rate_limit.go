package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPeriod = 1 * time.Minute
	rateLimitCount  = 60 // 1 IPあたり60回/分
)

// IP単位のレートリミット。Redisが無い構成では素通し。
func RateLimiter(rdb *redis.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil {
				return next(c)
			}

			//IPアドレスをkeyにする
			key := "rate_limit:" + c.RealIP()

			count, err := rdb.Incr(c.Request().Context(), key).Result()
			if err != nil {
				//Redisが落ちていても止めない
				return next(c)
			}

			//最初の1回目でTTLを設定
			if count == 1 {
				rdb.Expire(c.Request().Context(), key, rateLimitPeriod)
			}

			if count > rateLimitCount {
				return c.JSON(http.StatusTooManyRequests, errorJSON("too many requests"))
			}

			return next(c)
		}
	}
}
