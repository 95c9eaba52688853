package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"OnTrack/internal/model/dto"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/response"
)

// ListAchievements 某个 work 的全部成就
// GET /v1/works/:id/achievements
func (h *Handler) ListAchievements(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	workID, ok := parseID(c, "id")
	if !ok {
		response.Error(ctx, c, apperrors.WorkNotFound)
		return
	}

	list, err := h.achievements.ListByWork(ctx, workID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, list)
}

// CreateAchievement 记录一条成就
// POST /v1/works/:id/achievements
func (h *Handler) CreateAchievement(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if err := h.requireAccess(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	workID, ok := parseID(c, "id")
	if !ok {
		response.Error(ctx, c, apperrors.WorkNotFound)
		return
	}

	var req dto.CreateAchievementRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.achievements.Create(ctx, workID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// UpdateAchievementText 原地修改成就文本
// PUT /v1/works/:id/achievements/:aid
func (h *Handler) UpdateAchievementText(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if err := h.requireAccess(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	workID, ok := parseID(c, "id")
	if !ok {
		response.Error(ctx, c, apperrors.WorkNotFound)
		return
	}
	achievementID, ok := parseID(c, "aid")
	if !ok {
		response.Error(ctx, c, apperrors.AchievementNotFound)
		return
	}

	var req dto.UpdateAchievementTextRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.achievements.UpdateText(ctx, workID, achievementID, req.Text)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// DeleteAchievement 删除一条成就，重复删除同样返回成功
// DELETE /v1/works/:id/achievements/:aid
func (h *Handler) DeleteAchievement(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if err := h.requireAccess(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	workID, ok := parseID(c, "id")
	if !ok {
		response.Error(ctx, c, apperrors.WorkNotFound)
		return
	}
	achievementID, ok := parseID(c, "aid")
	if !ok {
		response.Error(ctx, c, apperrors.AchievementNotFound)
		return
	}

	if err := h.achievements.Delete(ctx, workID, c.Query("date"), achievementID); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
