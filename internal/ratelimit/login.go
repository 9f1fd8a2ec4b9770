package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"go.uber.org/zap"
)

const keyLogin = "auth:login:%s"

// LoginLimiter throttles login attempts per client key.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewLoginLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *LoginLimiter {
	l := &LoginLimiter{
		rate:  cfg.LoginRatePerSec,
		burst: cfg.LoginBurst,
		log:   log.Named("ratelimit.login"),
	}
	if client != nil && l.rate > 0 && l.burst > 0 {
		l.bucket = NewTokenBucket(client)
	}
	return l
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether another login attempt from key may proceed. Redis
// failures let the attempt through.
func (l *LoginLimiter) Allow(ctx context.Context, key string) Result {
	if !l.Enabled() {
		return Result{Allowed: true}
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLogin, strings.TrimSpace(key)), l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.String("key", key), zap.Error(err))
		return Result{Allowed: true}
	}
	return res
}
