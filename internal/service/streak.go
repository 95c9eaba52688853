package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"OnTrack/internal/clock"
	"OnTrack/internal/ledger"
	"OnTrack/internal/model/dto"
	"OnTrack/internal/streak"
	"OnTrack/pkg/logger"
)

// StreakStore 连胜缓存的远端回写接口
type StreakStore interface {
	UpdateStreaks(ctx context.Context, profileID int64, current, longest int) error
}

// StreakService 连胜派生。连胜永远可以由成就记录整体重算；
// 最长连胜带单调缓存，重算结果只会抬高它，不会压低。
type StreakService struct {
	store     *ledger.Ledger
	clk       *clock.Service
	persist   StreakStore
	profileID int64
	gridWeeks int
	log       *zap.Logger

	mu            sync.Mutex
	cachedLongest int
}

func NewStreakService(store *ledger.Ledger, clk *clock.Service, persist StreakStore, profileID int64, gridWeeks int) *StreakService {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &StreakService{
		store:     store,
		clk:       clk,
		persist:   persist,
		profileID: profileID,
		gridWeeks: gridWeeks,
		log:       log,
	}
}

// Seed 用远端档案里的缓存值垫底，保证重算永不低于历史最长
func (s *StreakService) Seed(longest int) {
	s.mu.Lock()
	if longest > s.cachedLongest {
		s.cachedLongest = longest
	}
	s.mu.Unlock()
}

// Recompute 整体重算连胜并回写远端缓存
func (s *StreakService) Recompute(ctx context.Context) dto.StreakData {
	today := s.clk.Today()
	dates := s.store.AchievementDates()

	current := streak.Current(dates, today)
	longest := streak.Longest(dates)

	s.mu.Lock()
	if longest < s.cachedLongest {
		longest = s.cachedLongest
	}
	s.cachedLongest = longest
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.UpdateStreaks(ctx, s.profileID, current, longest); err != nil {
			s.log.Warn("Failed to persist streak cache",
				zap.Int64("profile_id", s.profileID),
				zap.Error(err),
			)
		}
	}

	return dto.StreakData{
		CurrentStreak: current,
		LongestStreak: longest,
		AsOf:          today,
	}
}

// Grid 周网格视图，周日起始，包含到本周为止的固定周数
func (s *StreakService) Grid(ctx context.Context) dto.WeeklyGridData {
	today := s.clk.Today()
	dates := s.store.AchievementDates()

	weeks := streak.WeeklyGrid(dates, today, s.gridWeeks)
	out := dto.WeeklyGridData{Weeks: make([]dto.WeekData, 0, len(weeks))}
	for _, w := range weeks {
		out.Weeks = append(out.Weeks, dto.WeekData{
			StartDate: w.StartDate,
			Days:      w.Days,
			Perfect:   w.Perfect,
		})
	}
	return out
}
