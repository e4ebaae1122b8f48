package ratelimit

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledgerly/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// InvoiceLimiter throttles invoice creation per org. A nil limiter (no
// REDIS_ADDR configured) allows everything.
type InvoiceLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

type LimiterParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Client *redis.Client `optional:"true"`
}

func NewInvoiceLimiter(p LimiterParam) *InvoiceLimiter {
	if p.Client == nil {
		return nil
	}
	return &InvoiceLimiter{
		bucket: NewTokenBucket(p.Client),
		log:    p.Log.Named("ratelimit"),
		rate:   p.Config.InvoiceRatePerSecond,
		burst:  p.Config.InvoiceRateBurst,
	}
}

// Allow reports whether the org may create another invoice right now. Redis
// being down fails open: billing keeps working without the limit.
func (l *InvoiceLimiter) Allow(ctx context.Context, orgID snowflake.ID) (*Result, bool) {
	if l == nil || l.bucket == nil {
		return nil, true
	}

	key := fmt.Sprintf("ledgerly:invoice:%s", orgID.String())
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return nil, true
	}
	return res, res.Allowed
}

// NewRedisClient builds the shared redis client, or nil when REDIS_ADDR is
// unset.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewInvoiceLimiter),
)
