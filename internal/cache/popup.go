package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"OnTrack/internal/model"
	"OnTrack/pkg/logger"
	"OnTrack/storage/redis"
)

const popupShownPrefix = "popup:shown"

// PopupShown 每日弹窗的幂等集合：每种弹窗一个"已展示日期"集合。
// 集合在安装生命周期内只增不减。redis 负责跨进程持久化，
// 内存镜像保证 redis 不可用时至少有会话级幂等。
type PopupShown struct {
	mu    sync.Mutex
	local map[model.PopupKind]map[string]bool
	log   *zap.Logger
}

func NewPopupShown() *PopupShown {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &PopupShown{
		local: make(map[model.PopupKind]map[string]bool),
		log:   log,
	}
}

// Restore 进程启动时把 redis 中的集合整体拉进内存镜像
func (p *PopupShown) Restore(ctx context.Context) {
	if !redis.Available() {
		return
	}

	kinds := []model.PopupKind{
		model.PopupWelcomeFirstDay,
		model.PopupWastedDay,
		model.PopupYesterdayCompleted,
		model.PopupAllWorksFulfilled,
		model.PopupFirstAchievementToday,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, kind := range kinds {
		dates, err := redis.Client().SMembers(ctx, redis.Key(popupShownPrefix, string(kind))).Result()
		if err != nil {
			p.log.Warn("Failed to restore popup shown set",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		set := make(map[string]bool, len(dates))
		for _, d := range dates {
			set[d] = true
		}
		p.local[kind] = set
	}
}

// MarkShown 标记某种弹窗在某日期已展示
func (p *PopupShown) MarkShown(ctx context.Context, kind model.PopupKind, date string) {
	p.mu.Lock()
	if p.local[kind] == nil {
		p.local[kind] = make(map[string]bool)
	}
	p.local[kind][date] = true
	p.mu.Unlock()

	if !redis.Available() {
		return
	}

	if err := redis.Client().SAdd(ctx, redis.Key(popupShownPrefix, string(kind)), date).Err(); err != nil {
		p.log.Warn("Failed to persist popup shown flag, in-memory only",
			zap.String("kind", string(kind)),
			zap.String("date", date),
			zap.Error(err),
		)
	}
}

// WasShown 查询某种弹窗在某日期是否已展示
func (p *PopupShown) WasShown(ctx context.Context, kind model.PopupKind, date string) bool {
	p.mu.Lock()
	if p.local[kind][date] {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	if !redis.Available() {
		return false
	}

	shown, err := redis.Client().SIsMember(ctx, redis.Key(popupShownPrefix, string(kind)), date).Result()
	if err != nil {
		p.log.Warn("Failed to check popup shown flag, assuming not shown",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return false
	}

	if shown {
		p.mu.Lock()
		if p.local[kind] == nil {
			p.local[kind] = make(map[string]bool)
		}
		p.local[kind][date] = true
		p.mu.Unlock()
	}

	return shown
}
