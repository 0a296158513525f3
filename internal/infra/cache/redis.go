package cache

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Connect はレート制限用のRedisクライアントを返す。
// 接続できなければnilを返し、呼び出し側は制限なしで動く。
func Connect(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable (%v), rate limiting disabled", err)
		return nil
	}

	return client
}
