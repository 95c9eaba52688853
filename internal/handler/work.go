package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"OnTrack/internal/model/dto"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/response"
)

func parseID(c *app.RequestContext, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ListWorks 全部 work 及其当天追踪状态
// GET /v1/works
func (h *Handler) ListWorks(ctx context.Context, c *app.RequestContext) {
	if _, ok := h.currentUser(ctx, c); !ok {
		return
	}

	response.Success(ctx, c, h.works.List(ctx))
}

// CreateWork 乐观新建 work
// POST /v1/works
func (h *Handler) CreateWork(ctx context.Context, c *app.RequestContext) {
	userID, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if err := h.requireAccess(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req dto.CreateWorkRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.works.Create(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// UpdateWork 更新 work 的可变字段
// PUT /v1/works/:id
func (h *Handler) UpdateWork(ctx context.Context, c *app.RequestContext) {
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

	var req dto.UpdateWorkRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.works.Update(ctx, workID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// SetWorkSkip 写入跳过指令
// PUT /v1/works/:id/skip
func (h *Handler) SetWorkSkip(ctx context.Context, c *app.RequestContext) {
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

	var req dto.SetSkipRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	data, err := h.works.SetSkip(ctx, workID, req.Kind)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// DeleteWork 删除 work 并级联删除其成就
// DELETE /v1/works/:id
func (h *Handler) DeleteWork(ctx context.Context, c *app.RequestContext) {
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

	if err := h.works.Delete(ctx, workID); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
