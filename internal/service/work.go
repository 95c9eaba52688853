package service

import (
	"context"
	"sync"

	"OnTrack/internal/clock"
	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
	"OnTrack/internal/model/dto"
	"OnTrack/internal/syncer"
	apperrors "OnTrack/pkg/errors"
	"OnTrack/pkg/snowflake"
)

// WorkService work 的读写入口。写路径全部是乐观的：
// 先改本地账本并立即返回，远端推送在后台进行。
type WorkService struct {
	store *ledger.Ledger
	sync  *syncer.Syncer
	clk   *clock.Service

	wg sync.WaitGroup
}

func NewWorkService(store *ledger.Ledger, sync *syncer.Syncer, clk *clock.Service) *WorkService {
	return &WorkService{store: store, sync: sync, clk: clk}
}

// Flush 等待后台推送全部落定，关停与测试用
func (s *WorkService) Flush() {
	s.wg.Wait()
}

func (s *WorkService) push(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(context.Background())
	}()
}

// List 返回全部 work，附带"今天是否在追踪"与"是否还在等服务端确认"
func (s *WorkService) List(ctx context.Context) []dto.WorkData {
	today := s.clk.Today()
	entries := s.store.ListWorks()

	out := make([]dto.WorkData, 0, len(entries))
	for _, e := range entries {
		out = append(out, workToData(e.Work, today))
	}
	return out
}

// Create 乐观新建 work
func (s *WorkService) Create(ctx context.Context, req dto.CreateWorkRequest) (*dto.WorkData, error) {
	if req.Name == "" {
		return nil, apperrors.WorkNameRequired
	}

	w := s.sync.StageWork(req.Name, req.Color, req.Description)
	s.push(func(ctx context.Context) {
		s.sync.PushCreateWork(ctx, w)
	})

	data := workToData(w, s.clk.Today())
	return &data, nil
}

// Update 更新 work 的可变字段，nil 字段不动
func (s *WorkService) Update(ctx context.Context, workID int64, req dto.UpdateWorkRequest) (*dto.WorkData, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, apperrors.WorkNameRequired
	}

	if !s.store.UpdateWork(workID, req.Name, req.Color, req.Description) {
		return nil, apperrors.WorkNotFound
	}
	s.push(func(ctx context.Context) {
		s.sync.PushUpdateWork(ctx, workID, req.Name, req.Color, req.Description)
	})

	w, _ := s.store.GetWork(workID)
	data := workToData(w, s.clk.Today())
	return &data, nil
}

// Delete 删除 work 并级联删除其全部成就
func (s *WorkService) Delete(ctx context.Context, workID int64) error {
	if !s.store.RemoveWork(workID) {
		return apperrors.WorkNotFound
	}
	s.push(func(ctx context.Context) {
		s.sync.PushDeleteWork(ctx, workID)
	})
	return nil
}

// SetSkip 写入跳过指令。from_tomorrow 的生效日期固定取明天，
// 所以设置当天一定仍在追踪，今天的完成度判断不受影响。
func (s *WorkService) SetSkip(ctx context.Context, workID int64, kindRaw string) (*dto.WorkData, error) {
	kind := model.SkipKind(kindRaw)

	var effectiveDate string
	switch kind {
	case model.SkipNone, model.SkipIndefinite:
		effectiveDate = ""
	case model.SkipFromTomorrow:
		effectiveDate = clock.Tomorrow(s.clk.Today())
	default:
		return nil, apperrors.SkipKindInvalid
	}

	if !s.store.SetSkip(workID, kind, effectiveDate) {
		return nil, apperrors.WorkNotFound
	}
	s.push(func(ctx context.Context) {
		s.sync.PushSetSkip(ctx, workID, kind, effectiveDate)
	})

	w, _ := s.store.GetWork(workID)
	data := workToData(w, s.clk.Today())
	return &data, nil
}

func workToData(w model.Work, today string) dto.WorkData {
	return dto.WorkData{
		ID:          w.ID,
		Name:        w.Name,
		Color:       w.Color,
		Description: w.Description,
		SkipKind:    string(w.SkipKind),
		SkipDate:    w.SkipDate,
		ActiveToday: w.IsActiveOn(today),
		Pending:     snowflake.IsTempID(w.ID),
	}
}
