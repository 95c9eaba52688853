package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"OnTrack/internal/model/dto"
	"OnTrack/pkg/response"
)

// GetStreaks 当前连胜状态
// GET /v1/streaks
func (h *Handler) GetStreaks(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	response.Success(ctx, c, h.engine.Streaks(ctx))
}

// GetWeeklyGrid 周网格视图
// GET /v1/streaks/grid
func (h *Handler) GetWeeklyGrid(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	response.Success(ctx, c, h.engine.Grid(ctx))
}

// SignalLifecycle 宿主上报前后台切换
// POST /v1/lifecycle/signal
func (h *Handler) SignalLifecycle(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	var req dto.LifecycleSignalRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := h.engine.Signal(ctx, req.Signal); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// PollPopups UI 轮询弹窗队列，取走即清空
// GET /v1/popups
func (h *Handler) PollPopups(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	response.Success(ctx, c, h.engine.PollPopups(ctx))
}
