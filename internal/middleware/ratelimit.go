package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"OnTrack/config"
	"OnTrack/pkg/errors"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/response"
	"OnTrack/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 是否按用户ID限流（需要认证）
	ByUserID bool
	// 是否按IP限流
	ByIP bool
	// 错误消息
	ErrorMessage string
}

// DefaultRateLimitConfig API 整体限流
var DefaultRateLimitConfig = RateLimitConfig{
	Window:       1,
	MaxRequests:  50,
	KeyPrefix:    "rate:limit",
	ByUserID:     true,
	ByIP:         true,
	ErrorMessage: "请求过于频繁，请稍后再试",
}

// PopupPollRateLimitConfig 弹窗轮询接口限流，UI 轮询不应该打爆服务
var PopupPollRateLimitConfig = RateLimitConfig{
	Window:       10,
	MaxRequests:  20,
	KeyPrefix:    "popup:poll:rate",
	ByUserID:     true,
	ByIP:         false,
	ErrorMessage: "轮询过于频繁，请稍后再试",
}

// RateLimitMiddleware 基于 Redis 固定窗口计数的限流。
// Redis 不可用时直接放行，限流是保护而不是依赖。
func RateLimitMiddleware() app.HandlerFunc {
	cfg := DefaultRateLimitConfig
	cfg.MaxRequests = config.Cfg.RateLimitRPS
	return RateLimitMiddlewareWithConfig(cfg)
}

func RateLimitMiddlewareWithConfig(cfg RateLimitConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.RateLimitEnabled || !redis.Available() {
			c.Next(ctx)
			return
		}

		key := buildRateKey(ctx, c, cfg)
		if key == "" {
			c.Next(ctx)
			return
		}

		count, err := redis.Client().Incr(ctx, key).Result()
		if err != nil {
			logger.Logger.Warn("Rate limit counter failed, allowing request", zap.Error(err))
			c.Next(ctx)
			return
		}
		if count == 1 {
			redis.Client().Expire(ctx, key, time.Duration(cfg.Window)*time.Second)
		}

		if count > int64(cfg.MaxRequests) {
			response.ErrorWithDetails(ctx, c, errors.Definition{
				Code:    "RATE_LIMITED",
				Message: cfg.ErrorMessage,
			}, map[string]interface{}{
				"retry_after": cfg.Window,
			})
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

func buildRateKey(ctx context.Context, c *app.RequestContext, cfg RateLimitConfig) string {
	if cfg.ByUserID {
		if userID, ok := GetUserID(ctx, c); ok {
			return redis.Key(cfg.KeyPrefix, "uid", userID)
		}
	}
	if cfg.ByIP {
		return redis.Key(cfg.KeyPrefix, "ip", c.ClientIP())
	}
	return ""
}
