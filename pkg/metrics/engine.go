package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics 同步与日切引擎的指标集合
type EngineMetrics struct {
	SyncPullTotal      metric.Int64Counter
	SyncPullDuration   metric.Float64Histogram
	SyncPushTotal      metric.Int64Counter
	SyncDroppedTotal   metric.Int64Counter
	DayCheckTotal      metric.Int64Counter
	PopupFiredTotal    metric.Int64Counter
	RealtimeEventTotal metric.Int64Counter
}

var (
	engineMetrics *EngineMetrics
	meter         = otel.Meter("ontrack")
)

// InitMetrics 初始化引擎指标
func InitMetrics() error {
	var err error

	m := &EngineMetrics{}

	m.SyncPullTotal, err = meter.Int64Counter(
		"sync_pull_total",
		metric.WithDescription("Total number of remote pulls"),
		metric.WithUnit("{pull}"),
	)
	if err != nil {
		return err
	}

	m.SyncPullDuration, err = meter.Float64Histogram(
		"sync_pull_duration_seconds",
		metric.WithDescription("Time spent pulling the remote snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.SyncPushTotal, err = meter.Int64Counter(
		"sync_push_total",
		metric.WithDescription("Total number of push attempts"),
		metric.WithUnit("{push}"),
	)
	if err != nil {
		return err
	}

	m.SyncDroppedTotal, err = meter.Int64Counter(
		"sync_dropped_total",
		metric.WithDescription("Total number of sync triggers dropped while a pull was in flight"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return err
	}

	m.DayCheckTotal, err = meter.Int64Counter(
		"day_check_total",
		metric.WithDescription("Total number of daily-check runs"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return err
	}

	m.PopupFiredTotal, err = meter.Int64Counter(
		"popup_fired_total",
		metric.WithDescription("Total number of popups surfaced"),
		metric.WithUnit("{popup}"),
	)
	if err != nil {
		return err
	}

	m.RealtimeEventTotal, err = meter.Int64Counter(
		"realtime_event_total",
		metric.WithDescription("Total number of realtime change events received"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	engineMetrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil，调用方需判空
func GetMetrics() *EngineMetrics {
	return engineMetrics
}

// RecordPull 记录一次拉取结果
func (m *EngineMetrics) RecordPull(ctx context.Context, immediate bool, success bool, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("immediate", immediate),
		attribute.Bool("success", success),
	)
	m.SyncPullTotal.Add(ctx, 1, attrs)
	m.SyncPullDuration.Record(ctx, seconds, attrs)
}

// RecordPush 记录一次推送结果
func (m *EngineMetrics) RecordPush(ctx context.Context, entity string, success bool) {
	if m == nil {
		return
	}
	m.SyncPushTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.Bool("success", success),
	))
}

// RecordPopup 记录一次弹窗
func (m *EngineMetrics) RecordPopup(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.PopupFiredTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDayCheck 记录一次日切检查
func (m *EngineMetrics) RecordDayCheck(ctx context.Context, date string) {
	if m == nil {
		return
	}
	m.DayCheckTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("date", date)))
}

// RecordRealtimeEvent 记录一次实时事件
func (m *EngineMetrics) RecordRealtimeEvent(ctx context.Context, table string, discarded bool) {
	if m == nil {
		return
	}
	m.RealtimeEventTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", table),
		attribute.Bool("discarded", discarded),
	))
}

// RecordDroppedTrigger 记录被丢弃的同步触发
func (m *EngineMetrics) RecordDroppedTrigger(ctx context.Context) {
	if m == nil {
		return
	}
	m.SyncDroppedTotal.Add(ctx, 1)
}
