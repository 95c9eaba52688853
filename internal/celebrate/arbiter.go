package celebrate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"OnTrack/internal/clock"
	"OnTrack/internal/model"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/metrics"
)

// 弹窗仲裁器。日切流程按严格优先级选出至多一个每日弹窗，
// 另有两个独立的边沿触发弹窗随账本变化实时评估。
// 仲裁器内部任何 panic 都不能击穿日切循环：恢复、记日志、等下一个 Tick。

// LedgerView 仲裁所需的账本只读视图
type LedgerView interface {
	HasAchievementOn(date string) bool
	AllActiveFulfilledOn(date string) bool
	AnyActiveAchievementOn(date string) bool
}

// ShownStore 每日幂等集合
type ShownStore interface {
	MarkShown(ctx context.Context, kind model.PopupKind, date string)
	WasShown(ctx context.Context, kind model.PopupKind, date string) bool
}

type Arbiter struct {
	ledger LedgerView
	shown  ShownStore
	log    *zap.Logger

	mu               sync.Mutex
	queue            []model.Popup
	prevAllFulfilled bool
	prevAnyToday     bool
	lastEvalDate     string
}

func New(ledgerView LedgerView, shown ShownStore) *Arbiter {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Arbiter{
		ledger: ledgerView,
		shown:  shown,
		log:    log,
	}
}

// RunDailyCheck 日切检查的仲裁步骤：优先级为
// 首日欢迎 > 昨日荒废 > 昨日完成，命中即短路。
// 每一步都有"当日未展示过"闸门，保证同一天至多弹一次。
func (a *Arbiter) RunDailyCheck(ctx context.Context, today, registrationDate string) (fired *model.Popup) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Daily check arbiter panicked, skipping until next tick",
				zap.Any("panic", r),
				zap.String("date", today),
			)
			fired = nil
		}
	}()

	yesterday := clock.Yesterday(today)

	// 1. 首日欢迎：昨天早于注册日，说明昨天的数据定义上是空白而不是空缺
	if registrationDate != "" && yesterday < registrationDate {
		if a.shown.WasShown(ctx, model.PopupWelcomeFirstDay, today) {
			return nil
		}
		return a.fire(ctx, model.Popup{Kind: model.PopupWelcomeFirstDay, Date: today})
	}

	hadYesterday := a.ledger.HasAchievementOn(yesterday)

	// 2. 昨日荒废：注册日当天不算荒废
	if !hadYesterday && yesterday != registrationDate {
		if a.shown.WasShown(ctx, model.PopupWastedDay, today) {
			return nil
		}
		return a.fire(ctx, model.Popup{Kind: model.PopupWastedDay, Date: today, DaysWasted: 1})
	}

	// 3. 昨日完成
	if hadYesterday {
		if a.shown.WasShown(ctx, model.PopupYesterdayCompleted, today) {
			return nil
		}
		return a.fire(ctx, model.Popup{Kind: model.PopupYesterdayCompleted, Date: today})
	}

	return nil
}

// EvaluateReactive 边沿触发弹窗，账本每次变化都要调用。
// 只在 false -> true 的跳变上触发，当天标记后不再重复，
// 即使随后成就被增删也不会再弹。
func (a *Arbiter) EvaluateReactive(ctx context.Context, today string) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Reactive popup evaluation panicked",
				zap.Any("panic", r),
				zap.String("date", today),
			)
		}
	}()

	allFulfilled := a.ledger.AllActiveFulfilledOn(today)
	anyToday := a.ledger.AnyActiveAchievementOn(today)

	a.mu.Lock()
	if a.lastEvalDate != today {
		// 新的一天，边沿状态归零
		a.prevAllFulfilled = false
		a.prevAnyToday = false
		a.lastEvalDate = today
	}
	risingAll := allFulfilled && !a.prevAllFulfilled
	risingAny := anyToday && !a.prevAnyToday
	a.prevAllFulfilled = allFulfilled
	a.prevAnyToday = anyToday
	a.mu.Unlock()

	if risingAny && !a.shown.WasShown(ctx, model.PopupFirstAchievementToday, today) {
		a.fire(ctx, model.Popup{Kind: model.PopupFirstAchievementToday, Date: today})
	}

	if risingAll && !a.shown.WasShown(ctx, model.PopupAllWorksFulfilled, today) {
		a.fire(ctx, model.Popup{Kind: model.PopupAllWorksFulfilled, Date: today})
	}
}

// Pending 取走当前积压的全部弹窗（UI 轮询）
func (a *Arbiter) Pending() []model.Popup {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending := a.queue
	a.queue = nil
	return pending
}

func (a *Arbiter) fire(ctx context.Context, p model.Popup) *model.Popup {
	a.shown.MarkShown(ctx, p.Kind, p.Date)

	a.mu.Lock()
	a.queue = append(a.queue, p)
	a.mu.Unlock()

	a.log.Info("Popup fired",
		zap.String("kind", string(p.Kind)),
		zap.String("date", p.Date),
	)
	metrics.GetMetrics().RecordPopup(ctx, string(p.Kind))

	return &p
}
