package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"OnTrack/internal/model"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/metrics"
	"OnTrack/storage/mq"
)

// 变更事件发布。远端写入成功后发一条轻量事件，订阅方只把它当
// "有变化"的信号，触发去抖动的全量重拉，不消费事件载荷本身。
// 发布失败只记日志不回滚：快照兜底刷新会追平丢失的事件。

// Producer 表变更事件的发布器
type Producer struct {
	log *zap.Logger
}

func NewProducer() *Producer {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{log: log}
}

// RoutingKey 事件的路由键。profiles/works 按档案分流；
// achievements 没有档案外键，统一广播，由订阅方客户端过滤。
func RoutingKey(table string, profileID int64) string {
	if table == model.TableAchievements {
		return fmt.Sprintf("change.%s.all", table)
	}
	return fmt.Sprintf("change.%s.%d", table, profileID)
}

// BindingKeysFor 某个档案的订阅应绑定的全部路由键
func BindingKeysFor(profileID int64) []string {
	return []string{
		fmt.Sprintf("change.%s.%d", model.TableProfiles, profileID),
		fmt.Sprintf("change.%s.%d", model.TableWorks, profileID),
		fmt.Sprintf("change.%s.all", model.TableAchievements),
	}
}

// Publish 发布一条表变更事件
func (p *Producer) Publish(ctx context.Context, table string, eventType model.ChangeEventType, profileID, workID int64, oldRow, newRow interface{}) {
	event := model.ChangeEvent{
		MessageID:  uuid.NewString(),
		Table:      table,
		EventType:  eventType,
		ProfileID:  profileID,
		WorkID:     workID,
		OccurredAt: time.Now().Format(time.RFC3339),
	}
	if oldRow != nil {
		if raw, err := json.Marshal(oldRow); err == nil {
			event.Old = raw
		}
	}
	if newRow != nil {
		if raw, err := json.Marshal(newRow); err == nil {
			event.New = raw
		}
	}

	key := RoutingKey(table, profileID)
	if err := mq.PublishMessage(mq.ChangesExchange, key, event); err != nil {
		p.log.Warn("Failed to publish change event, relying on periodic refresh",
			zap.String("table", table),
			zap.String("event_type", string(eventType)),
			zap.String("routing_key", key),
			zap.Error(err),
		)
		return
	}

	metrics.GetMetrics().RecordRealtimeEvent(ctx, table, false)
	p.log.Debug("Change event published",
		zap.String("table", table),
		zap.String("event_type", string(eventType)),
		zap.String("routing_key", key),
	)
}
