package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
	"OnTrack/pkg/snowflake"
)

type fakeRemote struct {
	mu sync.Mutex

	snapshot   ledger.Snapshot
	fetchErr   error
	fetchCount int

	// 设置后每次 FetchSnapshot 先通知 fetchStarted，再阻塞到 fetchRelease 关闭
	fetchStarted chan struct{}
	fetchRelease chan struct{}

	createWorkErr error
	createdWorks  []model.Work
	nextWorkID    int64

	createAchievementErr error
	createdAchievements  []model.Achievement
	nextAchievementID    int64

	deletedWorks        []int64
	deletedAchievements []int64
}

func (f *fakeRemote) FetchSnapshot(_ context.Context, _ int64) (ledger.Snapshot, error) {
	f.mu.Lock()
	f.fetchCount++
	snap, err := f.snapshot, f.fetchErr
	started, release := f.fetchStarted, f.fetchRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}

func (f *fakeRemote) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCount
}

func (f *fakeRemote) CreateWork(_ context.Context, w *model.Work) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createWorkErr != nil {
		return f.createWorkErr
	}
	f.nextWorkID++
	w.ID = f.nextWorkID
	f.createdWorks = append(f.createdWorks, *w)
	return nil
}

func (f *fakeRemote) UpdateWork(_ context.Context, _ int64, _, _, _ *string) error { return nil }

func (f *fakeRemote) SetWorkSkip(_ context.Context, _ int64, _ model.SkipKind, _ string) error {
	return nil
}

func (f *fakeRemote) DeleteWork(_ context.Context, workID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedWorks = append(f.deletedWorks, workID)
	return nil
}

func (f *fakeRemote) CreateAchievement(_ context.Context, a *model.Achievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createAchievementErr != nil {
		return f.createAchievementErr
	}
	f.nextAchievementID++
	a.ID = f.nextAchievementID
	f.createdAchievements = append(f.createdAchievements, *a)
	return nil
}

func (f *fakeRemote) UpdateAchievementText(_ context.Context, _ int64, _ string) error { return nil }

func (f *fakeRemote) DeleteAchievement(_ context.Context, achievementID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedAchievements = append(f.deletedAchievements, achievementID)
	return nil
}

func TestMain(m *testing.M) {
	snowflake.Init(1, 1)
	m.Run()
}

func newSyncer(remote *fakeRemote) (*Syncer, *ledger.Ledger) {
	store := ledger.New()
	return New(store, remote, nil, 42, 10*time.Millisecond), store
}

func TestStageWorkIsImmediatelyVisible(t *testing.T) {
	s, store := newSyncer(&fakeRemote{})

	w := s.StageWork("Reading", "#ff0000", "")

	if !snowflake.IsTempID(w.ID) {
		t.Fatalf("staged work ID = %d, want a temporary (negative) ID", w.ID)
	}
	if w.IdempotencyKey == "" {
		t.Fatal("staged work must carry an idempotency key")
	}
	if _, ok := store.GetWork(w.ID); !ok {
		t.Fatal("staged work must be in the ledger before any remote round trip")
	}
}

func TestPushCreateWorkRewritesTempID(t *testing.T) {
	remote := &fakeRemote{nextWorkID: 100}
	s, store := newSyncer(remote)

	w := s.StageWork("Reading", "", "")
	s.PushCreateWork(context.Background(), w)

	if _, ok := store.GetWork(w.ID); ok {
		t.Fatal("temporary ID should be gone after successful push")
	}
	if _, ok := store.GetWork(101); !ok {
		t.Fatal("server-assigned ID should be in the ledger")
	}
	if remote.createdWorks[0].IdempotencyKey != w.IdempotencyKey {
		t.Fatal("idempotency key must travel to the remote unchanged")
	}
}

func TestPushFailureKeepsOptimisticEntity(t *testing.T) {
	remote := &fakeRemote{createWorkErr: errors.New("connection refused")}
	s, store := newSyncer(remote)

	w := s.StageWork("Reading", "", "")
	s.PushCreateWork(context.Background(), w)

	got, ok := store.GetWork(w.ID)
	if !ok {
		t.Fatal("optimistic work must survive a failed push")
	}
	if got.Name != "Reading" {
		t.Fatalf("Name = %q, want Reading", got.Name)
	}
	if s.Dormant() {
		t.Fatal("a network error must not put sync to sleep")
	}
}

func TestSessionErrorMakesSyncDormant(t *testing.T) {
	remote := &fakeRemote{createWorkErr: errors.New("token is expired")}
	s, _ := newSyncer(remote)

	w := s.StageWork("Reading", "", "")
	s.PushCreateWork(context.Background(), w)

	if !s.Dormant() {
		t.Fatal("session error must put sync into dormant mode")
	}

	// 休眠期间一切推拉都静默跳过
	s.RequestPull(context.Background(), true)
	if remote.fetches() != 0 {
		t.Fatal("dormant sync must not touch the remote")
	}

	// 重新认证后唤醒并立即对账
	remote.mu.Lock()
	remote.createWorkErr = nil
	remote.mu.Unlock()
	s.Resume(context.Background())
	if s.Dormant() {
		t.Fatal("Resume must clear dormant mode")
	}
	if remote.fetches() != 1 {
		t.Fatalf("fetches = %d, want 1 immediate reconcile after Resume", remote.fetches())
	}
}

func TestImmediatePullReplacesLedger(t *testing.T) {
	remote := &fakeRemote{
		snapshot: ledger.Snapshot{Works: []ledger.WorkEntry{
			{Work: model.Work{BaseModel: model.BaseModel{ID: 7}, Name: "Writing"},
				Achievements: map[string][]model.Achievement{}},
		}},
	}
	s, store := newSyncer(remote)
	store.AddWork(model.Work{BaseModel: model.BaseModel{ID: -1}, Name: "Stale"})

	s.RequestPull(context.Background(), true)

	if _, ok := store.GetWork(-1); ok {
		t.Fatal("pull must replace the ledger wholesale")
	}
	if _, ok := store.GetWork(7); !ok {
		t.Fatal("pulled work missing from ledger")
	}
}

func TestPullFailureLeavesLedgerUntouched(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("connection reset")}
	s, store := newSyncer(remote)
	store.AddWork(model.Work{BaseModel: model.BaseModel{ID: 5}, Name: "Reading"})

	s.RequestPull(context.Background(), true)

	if _, ok := store.GetWork(5); !ok {
		t.Fatal("failed pull must not clear local data")
	}
}

func TestBurstOfTriggersCoalescesToOnePull(t *testing.T) {
	remote := &fakeRemote{}
	s, _ := newSyncer(remote)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.RequestPull(ctx, false)
	}

	deadline := time.Now().Add(time.Second)
	for remote.fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// 去抖动窗口结束后再观察一段时间，确认没有第二次拉取
	time.Sleep(50 * time.Millisecond)

	if got := remote.fetches(); got != 1 {
		t.Fatalf("fetches = %d, want debounced burst to coalesce into 1", got)
	}
}

func TestImmediatePullRunsDespiteInFlightPull(t *testing.T) {
	remote := &fakeRemote{
		fetchStarted: make(chan struct{}, 2),
		fetchRelease: make(chan struct{}),
	}
	s, _ := newSyncer(remote)
	ctx := context.Background()

	go s.pull(ctx, false)
	<-remote.fetchStarted // 第一次拉取已挂在远端上

	done := make(chan struct{})
	go func() {
		s.RequestPull(ctx, true)
		close(done)
	}()

	// 立即拉取不能被在途去重吸收后直接返回
	select {
	case <-done:
		t.Fatal("immediate pull returned before fetching")
	case <-time.After(50 * time.Millisecond):
	}

	close(remote.fetchRelease)
	<-remote.fetchStarted // 立即拉取自己的 fetch 开始了

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("immediate pull did not complete")
	}
	if got := remote.fetches(); got != 2 {
		t.Fatalf("fetches = %d, want the immediate pull to fetch on its own", got)
	}
}

func TestTriggerDuringInFlightPullIsDropped(t *testing.T) {
	remote := &fakeRemote{
		fetchStarted: make(chan struct{}, 1),
		fetchRelease: make(chan struct{}),
	}
	s, _ := newSyncer(remote)
	ctx := context.Background()

	go s.pull(ctx, false)
	<-remote.fetchStarted

	// 在途期间的普通触发直接丢弃，不排队补拉
	s.RequestPull(ctx, false)
	close(remote.fetchRelease)

	time.Sleep(50 * time.Millisecond)
	if got := remote.fetches(); got != 1 {
		t.Fatalf("fetches = %d, want concurrent trigger to be dropped", got)
	}
}

func TestAchievementEventForUnknownWorkIsDiscarded(t *testing.T) {
	remote := &fakeRemote{}
	s, _ := newSyncer(remote)

	body, _ := json.Marshal(model.ChangeEvent{
		MessageID: "m1",
		Table:     model.TableAchievements,
		EventType: model.ChangeInsert,
		WorkID:    999,
	})
	if err := s.HandleEvent(context.Background(), body); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if remote.fetches() != 0 {
		t.Fatal("event for a foreign work must not trigger a pull")
	}
}

func TestAchievementEventForKnownWorkTriggersPull(t *testing.T) {
	remote := &fakeRemote{}
	s, store := newSyncer(remote)
	store.AddWork(model.Work{BaseModel: model.BaseModel{ID: 7}, Name: "Reading"})

	body, _ := json.Marshal(model.ChangeEvent{
		MessageID: "m2",
		Table:     model.TableAchievements,
		EventType: model.ChangeInsert,
		WorkID:    7,
	})
	if err := s.HandleEvent(context.Background(), body); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for remote.fetches() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if remote.fetches() != 1 {
		t.Fatalf("fetches = %d, want 1", remote.fetches())
	}
}

func TestMalformedEventIsRejected(t *testing.T) {
	s, _ := newSyncer(&fakeRemote{})

	if err := s.HandleEvent(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("malformed event must be rejected so the broker can drop it")
	}
}

func TestStageAchievementUnknownWorkIsNoop(t *testing.T) {
	s, _ := newSyncer(&fakeRemote{})

	if _, ok := s.StageAchievement(12345, "2024-01-10", "done"); ok {
		t.Fatal("staging against an unknown work must be a no-op")
	}
}
