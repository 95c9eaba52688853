package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
	"OnTrack/internal/queue"
	"OnTrack/pkg/logger"
	"OnTrack/pkg/metrics"
	"OnTrack/pkg/snowflake"
	"OnTrack/pkg/token"
	"OnTrack/storage/mq"
)

// 对账器。本地账本永远先行（乐观写入，不回滚），远端写入紧随其后；
// 创建成功后按幂等键把本地临时 ID 兑换为服务端 ID。
// 读方向只有一条路径：事件或超时触发的去抖动全量重拉，整体替换账本。

// RemoteStore 远端权威存储的写入与快照接口
type RemoteStore interface {
	FetchSnapshot(ctx context.Context, profileID int64) (ledger.Snapshot, error)
	CreateWork(ctx context.Context, w *model.Work) error
	UpdateWork(ctx context.Context, workID int64, name, color, description *string) error
	SetWorkSkip(ctx context.Context, workID int64, kind model.SkipKind, effectiveDate string) error
	DeleteWork(ctx context.Context, workID int64) error
	CreateAchievement(ctx context.Context, a *model.Achievement) error
	UpdateAchievementText(ctx context.Context, achievementID int64, text string) error
	DeleteAchievement(ctx context.Context, achievementID int64) error
}

// EventPublisher 变更事件发布接口，*queue.Producer 实现它
type EventPublisher interface {
	Publish(ctx context.Context, table string, eventType model.ChangeEventType, profileID, workID int64, oldRow, newRow interface{})
}

type Syncer struct {
	store     *ledger.Ledger
	remote    RemoteStore
	events    EventPublisher
	profileID int64
	debounce  time.Duration
	log       *zap.Logger

	mu        sync.Mutex
	pullIdle  *sync.Cond
	pullTimer *time.Timer
	pulling   bool
	dormant   bool

	subMu     sync.Mutex
	subCancel context.CancelFunc
	subDone   chan struct{}
}

func New(store *ledger.Ledger, remote RemoteStore, events EventPublisher, profileID int64, debounce time.Duration) *Syncer {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Syncer{
		store:     store,
		remote:    remote,
		events:    events,
		profileID: profileID,
		debounce:  debounce,
		log:       log,
	}
	s.pullIdle = sync.NewCond(&s.mu)
	return s
}

// ---- 乐观创建 ----

// StageWork 在账本里登记一个携带临时 ID 和幂等键的乐观 work。
// 返回的实体立即可用，UI 不等远端确认。
func (s *Syncer) StageWork(name, color, description string) model.Work {
	w := model.Work{
		Name:           name,
		Color:          color,
		Description:    description,
		SkipKind:       model.SkipNone,
		IdempotencyKey: uuid.NewString(),
	}
	w.ID = s.nextTempID()
	s.store.AddWork(w)
	return w
}

// StageAchievement 登记一个乐观成就，语义同 StageWork。
// work 不存在时返回 false，不做任何事。
func (s *Syncer) StageAchievement(workID int64, date, text string) (model.Achievement, bool) {
	a := model.Achievement{
		WorkID:         workID,
		Date:           date,
		Text:           text,
		IdempotencyKey: uuid.NewString(),
	}
	a.ID = s.nextTempID()
	if !s.store.AddAchievement(workID, a) {
		return model.Achievement{}, false
	}
	return a, true
}

func (s *Syncer) nextTempID() int64 {
	id, err := snowflake.NextTempID()
	if err != nil {
		// 生成器未初始化时退回时间戳负数，唯一性在单进程内足够
		return -time.Now().UnixNano()
	}
	return id
}

// PushCreateWork 把乐观 work 写到远端。成功后按幂等键把账本里的
// 临时 ID 换成服务端 ID；失败时乐观实体原样保留，等下次全量拉取对账。
func (s *Syncer) PushCreateWork(ctx context.Context, w model.Work) {
	if s.isDormant() {
		return
	}

	remote := w
	if err := s.remote.CreateWork(ctx, &remote); err != nil {
		s.pushFailed(ctx, "work", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "work", true)

	if snowflake.IsTempID(w.ID) {
		s.store.RewriteWorkID(remote.IdempotencyKey, remote.ID)
	}
	if s.events != nil {
		s.events.Publish(ctx, model.TableWorks, model.ChangeInsert, s.profileID, remote.ID, nil, remote)
	}
}

// PushCreateAchievement 语义同 PushCreateWork
func (s *Syncer) PushCreateAchievement(ctx context.Context, a model.Achievement) {
	if s.isDormant() {
		return
	}

	remote := a
	if err := s.remote.CreateAchievement(ctx, &remote); err != nil {
		s.pushFailed(ctx, "achievement", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "achievement", true)

	if snowflake.IsTempID(a.ID) {
		s.store.RewriteAchievementID(remote.IdempotencyKey, remote.ID)
	}
	if s.events != nil {
		s.events.Publish(ctx, model.TableAchievements, model.ChangeInsert, s.profileID, remote.WorkID, nil, remote)
	}
}

// ---- 更新与删除 ----

// PushUpdateWork 远端更新。本地账本已由调用方乐观更新。
func (s *Syncer) PushUpdateWork(ctx context.Context, workID int64, name, color, description *string) {
	if s.isDormant() || snowflake.IsTempID(workID) {
		return
	}
	if err := s.remote.UpdateWork(ctx, workID, name, color, description); err != nil {
		s.pushFailed(ctx, "work", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "work", true)
	if s.events != nil {
		s.events.Publish(ctx, model.TableWorks, model.ChangeUpdate, s.profileID, workID, nil, nil)
	}
}

// PushSetSkip 远端写入跳过指令
func (s *Syncer) PushSetSkip(ctx context.Context, workID int64, kind model.SkipKind, effectiveDate string) {
	if s.isDormant() || snowflake.IsTempID(workID) {
		return
	}
	if err := s.remote.SetWorkSkip(ctx, workID, kind, effectiveDate); err != nil {
		s.pushFailed(ctx, "work", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "work", true)
	if s.events != nil {
		s.events.Publish(ctx, model.TableWorks, model.ChangeUpdate, s.profileID, workID, nil, nil)
	}
}

// PushDeleteWork 远端删除 work（级联删除其成就）
func (s *Syncer) PushDeleteWork(ctx context.Context, workID int64) {
	if s.isDormant() || snowflake.IsTempID(workID) {
		return
	}
	if err := s.remote.DeleteWork(ctx, workID); err != nil {
		s.pushFailed(ctx, "work", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "work", true)
	if s.events != nil {
		s.events.Publish(ctx, model.TableWorks, model.ChangeDelete, s.profileID, workID, nil, nil)
	}
}

// PushUpdateAchievementText 远端原地更新成就文本
func (s *Syncer) PushUpdateAchievementText(ctx context.Context, workID, achievementID int64, text string) {
	if s.isDormant() || snowflake.IsTempID(achievementID) {
		return
	}
	if err := s.remote.UpdateAchievementText(ctx, achievementID, text); err != nil {
		s.pushFailed(ctx, "achievement", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "achievement", true)
	if s.events != nil {
		s.events.Publish(ctx, model.TableAchievements, model.ChangeUpdate, s.profileID, workID, nil, nil)
	}
}

// PushDeleteAchievement 远端删除成就
func (s *Syncer) PushDeleteAchievement(ctx context.Context, workID, achievementID int64) {
	if s.isDormant() || snowflake.IsTempID(achievementID) {
		return
	}
	if err := s.remote.DeleteAchievement(ctx, achievementID); err != nil {
		s.pushFailed(ctx, "achievement", err)
		return
	}
	metrics.GetMetrics().RecordPush(ctx, "achievement", true)
	if s.events != nil {
		s.events.Publish(ctx, model.TableAchievements, model.ChangeDelete, s.profileID, workID, nil, nil)
	}
}

func (s *Syncer) pushFailed(ctx context.Context, entity string, err error) {
	metrics.GetMetrics().RecordPush(ctx, entity, false)

	if token.IsSessionInvalid(err) {
		s.mu.Lock()
		s.dormant = true
		s.mu.Unlock()
		s.log.Warn("Session invalid, sync is now dormant until re-auth",
			zap.String("entity", entity),
			zap.Error(err),
		)
		return
	}

	// 乐观实体原样保留，不回滚；幂等键保证重试不会写重
	s.log.Warn("Remote push failed, keeping optimistic entity",
		zap.String("entity", entity),
		zap.Error(err),
	)
}

// ---- 拉取 ----

// RequestPull 请求一次全量重拉。immediate 绕过去抖动和在途去重，
// 返回前必定完整执行一次拉取；否则启动去抖动窗口，窗口已在计时
// 或拉取正在进行时本次触发直接丢弃，不排队。
func (s *Syncer) RequestPull(ctx context.Context, immediate bool) {
	if s.isDormant() {
		return
	}
	if immediate {
		s.pull(ctx, true)
		return
	}

	s.mu.Lock()
	if s.pullTimer != nil || s.pulling {
		s.mu.Unlock()
		metrics.GetMetrics().RecordDroppedTrigger(ctx)
		return
	}
	s.pullTimer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pullTimer = nil
		s.mu.Unlock()
		s.pull(context.Background(), false)
	})
	s.mu.Unlock()
}

// pull 执行一次全量拉取。远端失败时本地账本保持原样。
// 在途拉取存在时：普通触发直接丢弃；立即触发等其结束后
// 自己再完整拉一次，保证调用返回时读到的是新鲜快照。
func (s *Syncer) pull(ctx context.Context, immediate bool) {
	s.mu.Lock()
	if s.pulling && !immediate {
		s.mu.Unlock()
		metrics.GetMetrics().RecordDroppedTrigger(ctx)
		return
	}
	for s.pulling {
		s.pullIdle.Wait()
	}
	s.pulling = true
	s.mu.Unlock()

	start := time.Now()
	snap, err := s.remote.FetchSnapshot(ctx, s.profileID)
	metrics.GetMetrics().RecordPull(ctx, immediate, err == nil, time.Since(start).Seconds())

	if err != nil {
		s.log.Warn("Snapshot pull failed, local ledger untouched",
			zap.Bool("immediate", immediate),
			zap.Error(err),
		)
		if token.IsSessionInvalid(err) {
			s.mu.Lock()
			s.dormant = true
			s.mu.Unlock()
		}
	} else {
		s.store.Replace(snap)
		s.log.Debug("Ledger replaced from remote snapshot",
			zap.Int("works", len(snap.Works)),
			zap.Bool("immediate", immediate),
		)
	}

	s.mu.Lock()
	s.pulling = false
	s.pullIdle.Broadcast()
	s.mu.Unlock()
}

// ---- 休眠 ----

func (s *Syncer) isDormant() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dormant
}

// Dormant 当前是否处于休眠（会话失效后所有同步静默跳过）
func (s *Syncer) Dormant() bool {
	return s.isDormant()
}

// Resume 重新认证后唤醒同步，并立即对账一次
func (s *Syncer) Resume(ctx context.Context) {
	s.mu.Lock()
	s.dormant = false
	s.mu.Unlock()
	s.pull(ctx, true)
}

// ---- 实时订阅 ----

// StartSubscription 建立变更事件订阅。已有订阅时先拆除再重建，
// 回前台的恢复路径直接复用这一个入口。
func (s *Syncer) StartSubscription(parent context.Context) {
	s.StopSubscription()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	s.subMu.Lock()
	s.subCancel = cancel
	s.subDone = done
	s.subMu.Unlock()

	go func() {
		defer close(done)
		err := mq.Consume(ctx, mq.ConsumeOptions{
			Queue:         fmt.Sprintf("ontrack.sync.%d", s.profileID),
			BindingKeys:   queue.BindingKeysFor(s.profileID),
			ConsumerTag:   fmt.Sprintf("syncer-%d", s.profileID),
			PrefetchCount: 16,
			Handler:       func(body []byte) error { return s.HandleEvent(context.Background(), body) },
		})
		if err != nil && ctx.Err() == nil {
			s.log.Error("Change subscription terminated",
				zap.Int64("profile_id", s.profileID),
				zap.Error(err),
			)
		}
	}()
}

// StopSubscription 拆除当前订阅并等待消费循环退出
func (s *Syncer) StopSubscription() {
	s.subMu.Lock()
	cancel := s.subCancel
	done := s.subDone
	s.subCancel = nil
	s.subDone = nil
	s.subMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// HandleEvent 处理一条变更事件。事件只是"有变化"的信号，
// 不消费载荷：成就事件先按本地 work 集合做客户端过滤，
// 其余一律转化为一次去抖动重拉。
func (s *Syncer) HandleEvent(ctx context.Context, body []byte) error {
	var event model.ChangeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("malformed change event: %w", err)
	}

	if event.Table == model.TableAchievements && event.WorkID != 0 {
		if !s.store.WorkIDSet()[event.WorkID] {
			metrics.GetMetrics().RecordRealtimeEvent(ctx, event.Table, true)
			return nil
		}
	}

	s.log.Debug("Change event received",
		zap.String("table", event.Table),
		zap.String("event_type", string(event.EventType)),
		zap.String("message_id", event.MessageID),
	)
	s.RequestPull(ctx, false)
	return nil
}
