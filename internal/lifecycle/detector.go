package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"OnTrack/internal/cache"
	"OnTrack/internal/clock"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/metrics"
)

// 日切探测器。设备没有"午夜回调"，只能靠三个时机主动对比日期：
// 周期 Tick、回到前台、账本水合完成（挂载）。
// 所有入口都收敛到同一把锁下的 evaluate，保证同一天的日切
// 检查在本次会话内恰好执行一次。

// Hooks 日切与回前台时要执行的动作
type Hooks struct {
	// OnDayChange 检测到日期变化后执行，入参是新的"今天"
	OnDayChange func(ctx context.Context, today string)
	// OnStaleForeground 后台停留超过阈值后回前台时执行，
	// 必须在 UI 读取数据前完成一次立即拉取
	OnStaleForeground func(ctx context.Context)
}

type Config struct {
	TickInterval      time.Duration
	BackgroundRefresh time.Duration
}

type Detector struct {
	clk   *clock.Service
	cfg   Config
	hooks Hooks
	log   *zap.Logger

	mu                  sync.Mutex
	mounted             bool
	active              bool
	lastCheckedDate     string
	backgroundEnteredAt time.Time
	pendingCheck        bool
}

func New(clk *clock.Service, cfg Config, hooks Hooks) *Detector {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		clk:   clk,
		cfg:   cfg,
		hooks: hooks,
		log:   log,
	}
}

// Run 周期 Tick 循环，ctx 取消后退出
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Mount 账本水合完成后调用一次，补上启动期间可能错过的日切
func (d *Detector) Mount(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mounted = true
	d.active = true
	d.evaluate(ctx)
}

// Tick 周期检查入口
func (d *Detector) Tick(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evaluate(ctx)
}

// Foreground 应用回到前台。后台停留超过阈值时先触发立即拉取，
// 再做日切检查，这样午夜跨越 + 长时间后台的组合也只弹一次。
func (d *Detector) Foreground(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	wasBackground := !d.active
	d.active = true

	if wasBackground && !d.backgroundEnteredAt.IsZero() {
		elapsed := d.clk.Now().Sub(d.backgroundEnteredAt)
		if elapsed >= d.cfg.BackgroundRefresh {
			d.log.Info("Returning from long background, forcing refresh",
				zap.Duration("elapsed", elapsed),
			)
			if d.hooks.OnStaleForeground != nil {
				d.hooks.OnStaleForeground(ctx)
			}
		}
	}
	d.backgroundEnteredAt = time.Time{}

	d.evaluate(ctx)
}

// Background 应用进入后台，记录进入时刻
func (d *Detector) Background(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active = false
	d.backgroundEnteredAt = d.clk.Now()
}

// evaluate 统一的日切判定，调用方必须持锁。
// 后台期间的日切只做 pending 标记，回前台后由 Foreground 补执行。
func (d *Detector) evaluate(ctx context.Context) {
	if !d.mounted {
		return
	}

	today := d.clk.Today()
	if d.lastCheckedDate == today {
		return
	}

	if !d.active {
		d.pendingCheck = true
		return
	}

	// 跨进程补充防线：同一台设备的上一个进程今天已经检查过
	if done, err := cache.WasDayChecked(ctx, today); err == nil && done {
		d.lastCheckedDate = today
		d.pendingCheck = false
		return
	}

	d.lastCheckedDate = today
	d.pendingCheck = false

	d.log.Info("Day change detected",
		zap.String("date", today),
	)
	metrics.GetMetrics().RecordDayCheck(ctx, today)

	if d.hooks.OnDayChange != nil {
		d.hooks.OnDayChange(ctx, today)
	}

	if err := cache.MarkDayChecked(ctx, today); err != nil {
		d.log.Warn("Failed to persist day check marker",
			zap.String("date", today),
			zap.Error(err),
		)
	}
}
