package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"OnTrack/internal/model/dto"
	"OnTrack/pkg/response"
)

// GetProfile 档案详情，带试用/订阅闸门结果
// GET /v1/profile
func (h *Handler) GetProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	data, err := h.profiles.Get(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// UpdateProfile 编辑展示名与生日，注册日期不可修改
// PUT /v1/profile
func (h *Handler) UpdateProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.profiles.Update(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

type subscriptionRequest struct {
	Subscribed bool `json:"subscribed"`
}

// SetSubscription 订阅状态切换
// PUT /v1/profile/subscription
func (h *Handler) SetSubscription(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.profiles.SetSubscribed(ctx, userID, req.Subscribed)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}
