package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// RateLimiter is a per-IP fixed window limiter shared by every instance
// through Redis.
type RateLimiter struct {
	rdb    *redis.Client
	group  string
	limit  int64
	window time.Duration
	log    zerolog.Logger
}

// NewRateLimiter allows limit requests per window for each client IP of group.
func NewRateLimiter(rdb *redis.Client, group string, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		group:  group,
		limit:  int64(limit),
		window: window,
		log:    log.With().Str("component", "rate_limiter").Str("group", group).Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// Requests pass when Redis is unreachable.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := config.CacheKey.RateLimitKey(rl.group, c.ClientIP())
		ctx := c.Request.Context()

		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			rl.log.Warn().Err(err).Msg("Rate limit check failed, allowing request")
			c.Next()
			return
		}

		if incr.Val() > rl.limit {
			c.Header("Retry-After", retryAfter(rl.window))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
