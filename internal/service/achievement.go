package service

import (
	"context"
	"sort"
	"sync"

	"OnTrack/internal/clock"
	"OnTrack/internal/ledger"
	"OnTrack/internal/model/dto"
	"OnTrack/internal/syncer"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/snowflake"
)

// AchievementService 成就记录的读写入口，写路径与 WorkService
// 同样乐观。成就的日期创建后不可变，文本可以原地改。
type AchievementService struct {
	store *ledger.Ledger
	sync  *syncer.Syncer
	clk   *clock.Service

	wg sync.WaitGroup
}

func NewAchievementService(store *ledger.Ledger, sync *syncer.Syncer, clk *clock.Service) *AchievementService {
	return &AchievementService{store: store, sync: sync, clk: clk}
}

// Flush 等待后台推送全部落定
func (s *AchievementService) Flush() {
	s.wg.Wait()
}

func (s *AchievementService) push(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(context.Background())
	}()
}

// Create 记录一条成就。日期缺省为当天，格式非法直接拒绝。
func (s *AchievementService) Create(ctx context.Context, workID int64, req dto.CreateAchievementRequest) (*dto.AchievementData, error) {
	date := req.Date
	if date == "" {
		date = s.clk.Today()
	}
	if !clock.IsValid(date) {
		return nil, apperrors.AchievementDateInvalid
	}

	a, ok := s.sync.StageAchievement(workID, date, req.Text)
	if !ok {
		return nil, apperrors.WorkNotFound
	}
	s.push(func(ctx context.Context) {
		s.sync.PushCreateAchievement(ctx, a)
	})

	return &dto.AchievementData{
		ID:      a.ID,
		WorkID:  a.WorkID,
		Date:    a.Date,
		Text:    a.Text,
		Pending: true,
	}, nil
}

// UpdateText 原地修改成就文本。ID 与日期保持不变。
func (s *AchievementService) UpdateText(ctx context.Context, workID, achievementID int64, text string) (*dto.AchievementData, error) {
	if !s.store.UpdateAchievementText(workID, achievementID, text) {
		return nil, apperrors.AchievementNotFound
	}
	s.push(func(ctx context.Context) {
		s.sync.PushUpdateAchievementText(ctx, workID, achievementID, text)
	})

	a, _ := s.store.FindAchievement(workID, achievementID)
	return &dto.AchievementData{
		ID:      a.ID,
		WorkID:  a.WorkID,
		Date:    a.Date,
		Text:    a.Text,
		Pending: snowflake.IsTempID(a.ID),
	}, nil
}

// Delete 删除一条成就。目标已不在账本里时同样算成功。
// date 缺省时按 ID 反查，纯 ID 的删除调用也能落到正确的日期桶。
func (s *AchievementService) Delete(ctx context.Context, workID int64, date string, achievementID int64) error {
	if date == "" {
		if a, ok := s.store.FindAchievement(workID, achievementID); ok {
			date = a.Date
		}
	}
	s.store.RemoveAchievement(workID, date, achievementID)
	s.push(func(ctx context.Context) {
		s.sync.PushDeleteAchievement(ctx, workID, achievementID)
	})
	return nil
}

// ListByWork 返回某个 work 的全部成就，按日期、ID 排序
func (s *AchievementService) ListByWork(ctx context.Context, workID int64) ([]dto.AchievementData, error) {
	entries := s.store.ListWorks()
	for _, e := range entries {
		if e.Work.ID != workID {
			continue
		}

		dates := make([]string, 0, len(e.Achievements))
		for d := range e.Achievements {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		var out []dto.AchievementData
		for _, d := range dates {
			for _, a := range e.Achievements[d] {
				out = append(out, dto.AchievementData{
					ID:      a.ID,
					WorkID:  a.WorkID,
					Date:    a.Date,
					Text:    a.Text,
					Pending: snowflake.IsTempID(a.ID),
				})
			}
		}
		return out, nil
	}
	return nil, apperrors.WorkNotFound
}
