package service

import (
	"context"
	"time"

	"OnTrack/internal/clock"
	"OnTrack/internal/model"
	"OnTrack/internal/model/dto"
	"OnTrack/internal/remote"
	apperrors "OnTrack/pkg/errors"
)

// ProfileService 档案读写。注册日期在创建时固定，之后的编辑
// 请求里根本没有这个字段，不存在改掉它的路径。
type ProfileService struct {
	gw  *remote.Gateway
	clk *clock.Service
}

func NewProfileService(gw *remote.Gateway, clk *clock.Service) *ProfileService {
	return &ProfileService{gw: gw, clk: clk}
}

// Ensure 取回档案，首次调用时创建并锁定注册日期为今天
func (s *ProfileService) Ensure(ctx context.Context, userID string) (*model.Profile, error) {
	return s.gw.EnsureProfile(ctx, userID, s.clk.Today())
}

// Get 档案详情，附带试用/订阅闸门的结果
func (s *ProfileService) Get(ctx context.Context, userID string) (*dto.ProfileData, error) {
	p, err := s.gw.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toData(p), nil
}

// Update 编辑展示名与生日
func (s *ProfileService) Update(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.ProfileData, error) {
	p, err := s.gw.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var birthday *time.Time
	if req.Birthday != nil {
		t, err := clock.Parse(*req.Birthday)
		if err != nil {
			return nil, apperrors.BirthdayInvalid
		}
		birthday = &t
	}

	if err := s.gw.UpdateProfile(ctx, p.ID, req.DisplayName, birthday); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// SetSubscribed 订阅状态切换
func (s *ProfileService) SetSubscribed(ctx context.Context, userID string, subscribed bool) (*dto.ProfileData, error) {
	p, err := s.gw.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.gw.SetSubscribed(ctx, p.ID, subscribed); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *ProfileService) toData(p *model.Profile) *dto.ProfileData {
	data := &dto.ProfileData{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		RegistrationDate: p.RegistrationDate,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		HasAccess:        p.HasAccess(s.clk.Now()),
		Subscribed:       p.Subscribed,
	}
	if p.Birthday != nil {
		data.Birthday = p.Birthday.Format(clock.DateLayout)
	}
	if p.TrialEndAt != nil {
		data.TrialEndAt = p.TrialEndAt.Format(time.RFC3339)
	}
	return data
}
