package remote

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"OnTrack/internal/clock"
	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/logger"
)

// 远端权威存储的访问层。所有写入都以幂等键去重，
// 乐观创建的重试不会产生重复行；服务端分配 ID 并回写幂等键，
// 调用方据此把本地临时 ID 兑换成服务端 ID。

type Gateway struct {
	db        *gorm.DB
	trialDays int
	log       *zap.Logger
}

func New(db *gorm.DB, trialDays int) *Gateway {
	log := logger.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		db:        db,
		trialDays: trialDays,
		log:       log,
	}
}

// ---- Profile ----

// EnsureProfile 取回档案，不存在时创建。
// 新档案的 RegistrationDate 固定为创建当天，之后不可变更；
// 试用窗口从创建时刻起算。
func (g *Gateway) EnsureProfile(ctx context.Context, userID, today string) (*model.Profile, error) {
	var profile model.Profile
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	trialEnd := now.AddDate(0, 0, g.trialDays)
	profile = model.Profile{
		UserID:           userID,
		RegistrationDate: today,
		TrialStartAt:     &now,
		TrialEndAt:       &trialEnd,
	}
	if err := g.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}

	g.log.Info("Profile created",
		zap.String("user_id", userID),
		zap.String("registration_date", today),
	)
	return &profile, nil
}

// GetProfile 按用户取档案
func (g *Gateway) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile 更新展示名与生日。注册日期不在可更新字段之列。
func (g *Gateway) UpdateProfile(ctx context.Context, profileID int64, displayName *string, birthday *time.Time) error {
	updates := map[string]interface{}{}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	if birthday != nil {
		updates["birthday"] = *birthday
	}
	if len(updates) == 0 {
		return nil
	}

	res := g.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", profileID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ProfileNotFound
	}
	return nil
}

// UpdateStreaks 回写连胜缓存。最长连胜只增不减，在 SQL 里用
// GREATEST 收口，避免并发回写互相覆盖。
func (g *Gateway) UpdateStreaks(ctx context.Context, profileID int64, current, longest int) error {
	return g.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"current_streak": current,
			"longest_streak": gorm.Expr("GREATEST(longest_streak, ?)", longest),
		}).Error
}

// SetSubscribed 更新订阅标记
func (g *Gateway) SetSubscribed(ctx context.Context, profileID int64, subscribed bool) error {
	res := g.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", profileID).
		Update("subscribed", subscribed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ProfileNotFound
	}
	return nil
}

// ---- 全量拉取 ----

// FetchSnapshot 拉取档案下的全部 work 与成就，组装为账本快照。
// 这是去抖动重拉的唯一读路径：拉全量、整体替换，不做增量合并。
func (g *Gateway) FetchSnapshot(ctx context.Context, profileID int64) (ledger.Snapshot, error) {
	var works []model.Work
	if err := g.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("id").
		Find(&works).Error; err != nil {
		return ledger.Snapshot{}, err
	}

	snap := ledger.Snapshot{Works: make([]ledger.WorkEntry, 0, len(works))}
	if len(works) == 0 {
		return snap, nil
	}

	workIDs := make([]int64, 0, len(works))
	for _, w := range works {
		workIDs = append(workIDs, w.ID)
	}

	var achievements []model.Achievement
	if err := g.db.WithContext(ctx).
		Where("work_id IN ?", workIDs).
		Order("id").
		Find(&achievements).Error; err != nil {
		return ledger.Snapshot{}, err
	}

	byWork := make(map[int64]map[string][]model.Achievement, len(works))
	for _, a := range achievements {
		if byWork[a.WorkID] == nil {
			byWork[a.WorkID] = make(map[string][]model.Achievement)
		}
		byWork[a.WorkID][a.Date] = append(byWork[a.WorkID][a.Date], a)
	}

	for _, w := range works {
		entry := ledger.WorkEntry{Work: w, Achievements: byWork[w.ID]}
		if entry.Achievements == nil {
			entry.Achievements = make(map[string][]model.Achievement)
		}
		snap.Works = append(snap.Works, entry)
	}
	return snap, nil
}

// ---- Work ----

// CreateWork 幂等创建。同一幂等键的重试直接返回已存在的行，
// 调用方拿到服务端分配的 ID。
func (g *Gateway) CreateWork(ctx context.Context, w *model.Work) error {
	if w.Name == "" {
		return apperrors.WorkNameRequired
	}

	if w.IdempotencyKey != "" {
		var existing model.Work
		err := g.db.WithContext(ctx).
			Where("idempotency_key = ?", w.IdempotencyKey).
			First(&existing).Error
		if err == nil {
			*w = existing
			return nil
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	w.ID = 0 // ID 由服务端分配，丢弃本地临时 ID
	return g.db.WithContext(ctx).Create(w).Error
}

// UpdateWork 更新 work 的可变字段
func (g *Gateway) UpdateWork(ctx context.Context, workID int64, name, color, description *string) error {
	updates := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return apperrors.WorkNameRequired
		}
		updates["name"] = *name
	}
	if color != nil {
		updates["color"] = *color
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return nil
	}

	res := g.db.WithContext(ctx).Model(&model.Work{}).Where("id = ?", workID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.WorkNotFound
	}
	return nil
}

// SetWorkSkip 写入跳过指令
func (g *Gateway) SetWorkSkip(ctx context.Context, workID int64, kind model.SkipKind, effectiveDate string) error {
	switch kind {
	case model.SkipNone:
		effectiveDate = ""
	case model.SkipIndefinite:
		effectiveDate = ""
	case model.SkipFromTomorrow:
		if !clock.IsValid(effectiveDate) {
			return apperrors.SkipKindInvalid
		}
	default:
		return apperrors.SkipKindInvalid
	}

	res := g.db.WithContext(ctx).Model(&model.Work{}).
		Where("id = ?", workID).
		Updates(map[string]interface{}{
			"skip_kind": kind,
			"skip_date": effectiveDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.WorkNotFound
	}
	return nil
}

// DeleteWork 删除 work 并级联删除其全部成就
func (g *Gateway) DeleteWork(ctx context.Context, workID int64) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", workID).Delete(&model.Work{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.WorkNotFound
		}
		return tx.Where("work_id = ?", workID).Delete(&model.Achievement{}).Error
	})
}

// ---- Achievement ----

// CreateAchievement 幂等创建，语义与 CreateWork 一致
func (g *Gateway) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	if !clock.IsValid(a.Date) {
		return apperrors.AchievementDateInvalid
	}

	if a.IdempotencyKey != "" {
		var existing model.Achievement
		err := g.db.WithContext(ctx).
			Where("idempotency_key = ?", a.IdempotencyKey).
			First(&existing).Error
		if err == nil {
			*a = existing
			return nil
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	a.ID = 0
	return g.db.WithContext(ctx).Create(a).Error
}

// UpdateAchievementText 原地更新成就文本。日期不可变，
// 不走删除重建，ID 保持稳定。
func (g *Gateway) UpdateAchievementText(ctx context.Context, achievementID int64, text string) error {
	res := g.db.WithContext(ctx).Model(&model.Achievement{}).
		Where("id = ?", achievementID).
		Update("text", text)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.AchievementNotFound
	}
	return nil
}

// DeleteAchievement 删除成就。目标不存在时视为已删除成功。
func (g *Gateway) DeleteAchievement(ctx context.Context, achievementID int64) error {
	return g.db.WithContext(ctx).Where("id = ?", achievementID).Delete(&model.Achievement{}).Error
}

// FindWorkAchievement 校验成就归属后取回
func (g *Gateway) FindWorkAchievement(ctx context.Context, workID, achievementID int64) (*model.Achievement, error) {
	var a model.Achievement
	err := g.db.WithContext(ctx).
		Where("id = ? AND work_id = ?", achievementID, workID).
		First(&a).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.AchievementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
