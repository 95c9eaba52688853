package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/response"
	"OnTrack/pkg/token"
)

type sessionRequest struct {
	UserID string `json:"user_id"`
}

type sessionData struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// CreateSession 为本引擎的设备用户签发会话
// POST /v1/auth/session
func (h *Handler) CreateSession(ctx context.Context, c *app.RequestContext) {
	var req sessionRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if req.UserID == "" {
		response.Error(ctx, c, apperrors.InvalidUserID)
		return
	}
	if req.UserID != h.engineUserID {
		response.Error(ctx, c, apperrors.Unauthorized)
		return
	}

	// 签发前确保档案存在，注册日期在这里被锁定
	if _, err := h.profiles.Ensure(ctx, req.UserID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	accessToken, expiresIn, err := token.Generate(req.UserID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	// 会话失效导致同步休眠的话，这里是唯一的唤醒点
	h.engine.SessionRefreshed(ctx)

	response.Success(ctx, c, sessionData{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}
