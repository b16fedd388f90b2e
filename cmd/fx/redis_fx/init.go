package redis_fx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"nexora/internal/infra"
)

var Module = fx.Provide(
	provideRedis)

// provideRedis may return nil; consumers fall back to in-memory stores.
func provideRedis() *redis.Client {
	return infra.InitRedis()
}
