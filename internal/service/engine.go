package service

import (
	"context"

	"go.uber.org/zap"

	"OnTrack/internal/celebrate"
	"OnTrack/internal/clock"
	"OnTrack/internal/ledger"
	"OnTrack/internal/lifecycle"
	"OnTrack/internal/model/dto"
	"OnTrack/internal/syncer"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/logger"
)

// Engine 把账本、同步、日切探测和弹窗仲裁拼成一台状态机。
// 启动顺序是固定的：先从设备快照水合账本，再挂载探测器补日切，
// 然后立即对账一次并建立实时订阅。
type Engine struct {
	store    *ledger.Ledger
	sync     *syncer.Syncer
	detector *lifecycle.Detector
	arbiter  *celebrate.Arbiter
	streaks  *StreakService
	clk      *clock.Service
	log      *zap.Logger

	registrationDate string
}

func NewEngine(
	store *ledger.Ledger,
	sync *syncer.Syncer,
	detector *lifecycle.Detector,
	arbiter *celebrate.Arbiter,
	streaks *StreakService,
	clk *clock.Service,
	registrationDate string,
) *Engine {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:            store,
		sync:             sync,
		detector:         detector,
		arbiter:          arbiter,
		streaks:          streaks,
		clk:              clk,
		log:              log,
		registrationDate: registrationDate,
	}
}

// OnDayChange 日切探测器的回调：弹窗仲裁加连胜重算
func (e *Engine) OnDayChange(ctx context.Context, today string) {
	e.arbiter.RunDailyCheck(ctx, today, e.registrationDate)
	e.streaks.Recompute(ctx)
}

// OnStaleForeground 长后台回前台的回调：先拉数据再让 UI 读
func (e *Engine) OnStaleForeground(ctx context.Context) {
	e.sync.RequestPull(ctx, true)
}

// SessionRefreshed 新会话签发成功后调用：同步因会话失效休眠时唤醒它
func (e *Engine) SessionRefreshed(ctx context.Context) {
	if e.sync.Dormant() {
		e.log.Info("Session refreshed, waking dormant sync")
		e.sync.Resume(ctx)
	}
}

// Start 水合并启动引擎。快照损坏只记日志，引擎照常从远端重建。
func (e *Engine) Start(ctx context.Context) {
	if err := e.store.Restore(); err != nil {
		e.log.Warn("Ledger snapshot restore failed, starting empty", zap.Error(err))
	}

	// 账本每次变化都重估边沿触发弹窗
	e.store.OnChange(func() {
		e.arbiter.EvaluateReactive(context.Background(), e.clk.Today())
	})

	e.detector.Mount(ctx)
	e.sync.RequestPull(ctx, true)
	e.streaks.Recompute(ctx)
	e.sync.StartSubscription(ctx)
}

// Stop 拆除订阅
func (e *Engine) Stop() {
	e.sync.StopSubscription()
}

// Signal 宿主上报的前后台切换。回前台时整个实时订阅拆掉重建，
// 不尝试断点续传。
func (e *Engine) Signal(ctx context.Context, signal string) error {
	switch signal {
	case "foreground":
		e.sync.StartSubscription(context.Background())
		e.detector.Foreground(ctx)
		return nil
	case "background":
		e.detector.Background(ctx)
		e.sync.StopSubscription()
		return nil
	default:
		return apperrors.LifecycleSignalInvalid
	}
}

// PollPopups 取走积压的全部弹窗，空列表表示无事可展示
func (e *Engine) PollPopups(ctx context.Context) dto.PopupPollData {
	popups := e.arbiter.Pending()

	out := dto.PopupPollData{Popups: make([]dto.PopupData, 0, len(popups))}
	for _, p := range popups {
		out.Popups = append(out.Popups, dto.PopupData{
			Kind:       string(p.Kind),
			Date:       p.Date,
			DaysWasted: p.DaysWasted,
		})
	}
	return out
}

// Streaks 当前连胜状态
func (e *Engine) Streaks(ctx context.Context) dto.StreakData {
	return e.streaks.Recompute(ctx)
}

// Grid 周网格视图
func (e *Engine) Grid(ctx context.Context) dto.WeeklyGridData {
	return e.streaks.Grid(ctx)
}
