package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"storebackend/internal/middleware"
)

// New はミドルウェア設定済みのechoを返す。
// rdbがnilの場合レートリミットは無効。
func New(rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(middleware.RateLimiter(rdb))

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
