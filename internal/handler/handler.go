package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"OnTrack/internal/middleware"
	"OnTrack/internal/service"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/response"
)

// Handler HTTP 入口的集合。所有依赖显式注入，没有包级单例。
type Handler struct {
	engine       *service.Engine
	works        *service.WorkService
	achievements *service.AchievementService
	profiles     *service.ProfileService

	// 引擎进程归属的用户，token 里的用户必须与之一致
	engineUserID string
}

func New(
	engine *service.Engine,
	works *service.WorkService,
	achievements *service.AchievementService,
	profiles *service.ProfileService,
	engineUserID string,
) *Handler {
	return &Handler{
		engine:       engine,
		works:        works,
		achievements: achievements,
		profiles:     profiles,
		engineUserID: engineUserID,
	}
}

// currentUser 取出已认证用户并校验引擎归属
func (h *Handler) currentUser(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return "", false
	}
	if userID != h.engineUserID {
		response.Error(ctx, c, apperrors.SessionStale)
		return "", false
	}
	return userID, true
}

// requireAccess 试用/订阅闸门，挡住试用过期后的写入
func (h *Handler) requireAccess(ctx context.Context, userID string) error {
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !p.HasAccess {
		return apperrors.SubscriptionRequired
	}
	return nil
}
