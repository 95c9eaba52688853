package ledger

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"OnTrack/internal/model"
	"OnTrack/pkg/logger"
	"OnTrack/storage/local"
)

// 本地乐观账本：works 及其按日期追加的成就列表。
// 所有变更同步生效，读方立即可见；落盘是异步的尽力而为。
// 对不存在的 work 的变更一律是记日志的 no-op，不报错（规约如此）。

const snapshotKey = "ledger"

// WorkEntry 一个 work 及其全部成就，按日期分组，组内追加有序
type WorkEntry struct {
	Work         model.Work                     `json:"work"`
	Achievements map[string][]model.Achievement `json:"achievements"`
}

// Snapshot 账本的完整可序列化快照
type Snapshot struct {
	Works []WorkEntry `json:"works"`
}

type Ledger struct {
	mu        sync.RWMutex
	works     map[int64]*WorkEntry
	listeners []func()
	log       *zap.Logger
}

func New() *Ledger {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		works: make(map[int64]*WorkEntry),
		log:   log,
	}
}

// Restore 从设备快照恢复，进程启动时、Mount 之前调用一次
func (l *Ledger) Restore() error {
	var snap Snapshot
	found, err := local.Load(snapshotKey, &snap)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	l.Replace(snap)
	return nil
}

// OnChange 注册变更监听。回调在变更落地后、锁外同步执行。
func (l *Ledger) OnChange(fn func()) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Ledger) changed() {
	l.mu.RLock()
	listeners := make([]func(), len(l.listeners))
	copy(listeners, l.listeners)
	snap := l.snapshotLocked()
	l.mu.RUnlock()

	if err := local.Save(snapshotKey, snap); err != nil {
		l.log.Warn("Failed to queue ledger snapshot", zap.Error(err))
	}

	for _, fn := range listeners {
		fn()
	}
}

// AddWork 追加一个 work，成就映射为空
func (l *Ledger) AddWork(w model.Work) {
	l.mu.Lock()
	l.works[w.ID] = &WorkEntry{
		Work:         w,
		Achievements: make(map[string][]model.Achievement),
	}
	l.mu.Unlock()

	l.changed()
}

// UpdateWork 更新 work 的展示属性，nil 字段不动
func (l *Ledger) UpdateWork(workID int64, name, color, description *string) bool {
	l.mu.Lock()
	entry, ok := l.works[workID]
	if !ok {
		l.mu.Unlock()
		l.log.Debug("UpdateWork on unknown work, ignored", zap.Int64("work_id", workID))
		return false
	}
	if name != nil {
		entry.Work.Name = *name
	}
	if color != nil {
		entry.Work.Color = *color
	}
	if description != nil {
		entry.Work.Description = *description
	}
	l.mu.Unlock()

	l.changed()
	return true
}

// RemoveWork 删除 work，成就级联删除
func (l *Ledger) RemoveWork(workID int64) bool {
	l.mu.Lock()
	_, ok := l.works[workID]
	if ok {
		delete(l.works, workID)
	}
	l.mu.Unlock()

	if !ok {
		l.log.Debug("RemoveWork on unknown work, ignored", zap.Int64("work_id", workID))
		return false
	}

	l.changed()
	return true
}

// AddAchievement 向指定日期的列表追加一条成就。
// work 不存在时静默丢弃（本地失败分类 a）。
func (l *Ledger) AddAchievement(workID int64, a model.Achievement) bool {
	l.mu.Lock()
	entry, ok := l.works[workID]
	if !ok {
		l.mu.Unlock()
		l.log.Debug("AddAchievement on unknown work, ignored",
			zap.Int64("work_id", workID),
			zap.String("date", a.Date),
		)
		return false
	}
	a.WorkID = workID
	entry.Achievements[a.Date] = append(entry.Achievements[a.Date], a)
	l.mu.Unlock()

	l.changed()
	return true
}

// UpdateAchievementText 原地改文本。ID 与日期不变。
func (l *Ledger) UpdateAchievementText(workID, achievementID int64, text string) bool {
	l.mu.Lock()
	entry, ok := l.works[workID]
	if ok {
		for date, list := range entry.Achievements {
			for i := range list {
				if list[i].ID == achievementID {
					entry.Achievements[date][i].Text = text
					l.mu.Unlock()
					l.changed()
					return true
				}
			}
		}
	}
	l.mu.Unlock()

	l.log.Debug("UpdateAchievementText on unknown achievement, ignored",
		zap.Int64("work_id", workID),
		zap.Int64("achievement_id", achievementID),
	)
	return false
}

// RemoveAchievement 按 ID 删除，幂等：删不存在的条目是 no-op
func (l *Ledger) RemoveAchievement(workID int64, date string, achievementID int64) bool {
	l.mu.Lock()
	removed := false
	if entry, ok := l.works[workID]; ok {
		list := entry.Achievements[date]
		for i := range list {
			if list[i].ID == achievementID {
				entry.Achievements[date] = append(list[:i], list[i+1:]...)
				if len(entry.Achievements[date]) == 0 {
					delete(entry.Achievements, date)
				}
				removed = true
				break
			}
		}
	}
	l.mu.Unlock()

	if removed {
		l.changed()
	}
	return removed
}

// SetSkip 替换跳过指令
func (l *Ledger) SetSkip(workID int64, kind model.SkipKind, effectiveDate string) bool {
	l.mu.Lock()
	entry, ok := l.works[workID]
	if !ok {
		l.mu.Unlock()
		l.log.Debug("SetSkip on unknown work, ignored", zap.Int64("work_id", workID))
		return false
	}
	entry.Work.SkipKind = kind
	entry.Work.SkipDate = effectiveDate
	l.mu.Unlock()

	l.changed()
	return true
}

// ClearSkip 清除跳过指令
func (l *Ledger) ClearSkip(workID int64) bool {
	return l.SetSkip(workID, model.SkipNone, "")
}

// IsActiveOn 委托给 work 的跳过指令判定
func (l *Ledger) IsActiveOn(workID int64, date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.works[workID]
	if !ok {
		return false
	}
	return entry.Work.IsActiveOn(date)
}

// GetWork 读取单个 work
func (l *Ledger) GetWork(workID int64) (model.Work, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.works[workID]
	if !ok {
		return model.Work{}, false
	}
	return entry.Work, true
}

// FindAchievement 按 ID 查找成就及其所在日期
func (l *Ledger) FindAchievement(workID, achievementID int64) (model.Achievement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.works[workID]
	if !ok {
		return model.Achievement{}, false
	}
	for _, list := range entry.Achievements {
		for i := range list {
			if list[i].ID == achievementID {
				return list[i], true
			}
		}
	}
	return model.Achievement{}, false
}

// Snapshot 深拷贝当前账本，works 按 ID 升序
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{Works: make([]WorkEntry, 0, len(l.works))}
	for _, entry := range l.works {
		copied := WorkEntry{
			Work:         entry.Work,
			Achievements: make(map[string][]model.Achievement, len(entry.Achievements)),
		}
		for date, list := range entry.Achievements {
			copied.Achievements[date] = append([]model.Achievement(nil), list...)
		}
		snap.Works = append(snap.Works, copied)
	}
	sort.Slice(snap.Works, func(i, j int) bool {
		return snap.Works[i].Work.ID < snap.Works[j].Work.ID
	})
	return snap
}

// Replace 整体替换账本（远端拉取落地用，不做合并）
func (l *Ledger) Replace(snap Snapshot) {
	works := make(map[int64]*WorkEntry, len(snap.Works))
	for i := range snap.Works {
		entry := snap.Works[i]
		if entry.Achievements == nil {
			entry.Achievements = make(map[string][]model.Achievement)
		}
		works[entry.Work.ID] = &entry
	}

	l.mu.Lock()
	l.works = works
	l.mu.Unlock()

	l.changed()
}

// RewriteWorkID 按幂等键把临时 work ID 换成服务端 ID，
// 同时改写其成就的外键。
func (l *Ledger) RewriteWorkID(idempotencyKey string, serverID int64) bool {
	l.mu.Lock()
	rewritten := false
	for id, entry := range l.works {
		if entry.Work.IdempotencyKey != idempotencyKey || id == serverID {
			continue
		}
		delete(l.works, id)
		entry.Work.ID = serverID
		for date, list := range entry.Achievements {
			for i := range list {
				entry.Achievements[date][i].WorkID = serverID
			}
		}
		l.works[serverID] = entry
		rewritten = true
		break
	}
	l.mu.Unlock()

	if rewritten {
		l.changed()
	}
	return rewritten
}

// RewriteAchievementID 按幂等键把临时成就 ID 换成服务端 ID
func (l *Ledger) RewriteAchievementID(idempotencyKey string, serverID int64) bool {
	l.mu.Lock()
	rewritten := false
outer:
	for _, entry := range l.works {
		for date, list := range entry.Achievements {
			for i := range list {
				if list[i].IdempotencyKey == idempotencyKey && list[i].ID != serverID {
					entry.Achievements[date][i].ID = serverID
					rewritten = true
					break outer
				}
			}
		}
	}
	l.mu.Unlock()

	if rewritten {
		l.changed()
	}
	return rewritten
}

// WorkIDSet 当前已知属于本档案的 work ID 集合（实时事件过滤用）
func (l *Ledger) WorkIDSet() map[int64]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[int64]bool, len(l.works))
	for id := range l.works {
		set[id] = true
	}
	return set
}

// AchievementDates 所有 work（无视跳过状态）有成就的日期集合
func (l *Ledger) AchievementDates() map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	dates := make(map[string]bool)
	for _, entry := range l.works {
		for date, list := range entry.Achievements {
			if len(list) > 0 {
				dates[date] = true
			}
		}
	}
	return dates
}

// HasAchievementOn 任意 work（无视跳过状态）当日是否有记录
func (l *Ledger) HasAchievementOn(date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, entry := range l.works {
		if len(entry.Achievements[date]) > 0 {
			return true
		}
	}
	return false
}

// AllActiveFulfilledOn 当日处于追踪状态的 work 非空，且每个都有至少一条成就
func (l *Ledger) AllActiveFulfilledOn(date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	active := 0
	for _, entry := range l.works {
		if !entry.Work.IsActiveOn(date) {
			continue
		}
		active++
		if len(entry.Achievements[date]) == 0 {
			return false
		}
	}
	return active > 0
}

// AnyActiveAchievementOn 当日任意处于追踪状态的 work 是否有记录
func (l *Ledger) AnyActiveAchievementOn(date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, entry := range l.works {
		if entry.Work.IsActiveOn(date) && len(entry.Achievements[date]) > 0 {
			return true
		}
	}
	return false
}

// ListWorks 按 ID 升序返回全部条目（深拷贝）
func (l *Ledger) ListWorks() []WorkEntry {
	return l.Snapshot().Works
}
