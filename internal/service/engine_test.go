package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
	"OnTrack/internal/syncer"
)

// sessionErrRemote 在 expired 期间对写入返回会话失效错误
type sessionErrRemote struct {
	stubRemote
	expired bool
}

func (s *sessionErrRemote) CreateWork(ctx context.Context, w *model.Work) error {
	if s.expired {
		return errors.New("token is expired")
	}
	return s.stubRemote.CreateWork(ctx, w)
}

func TestSessionRefreshedWakesDormantSync(t *testing.T) {
	store := ledger.New()
	remote := &sessionErrRemote{
		stubRemote: stubRemote{
			nextID: 10,
			snapshot: ledger.Snapshot{Works: []ledger.WorkEntry{
				{Work: model.Work{BaseModel: model.BaseModel{ID: 7}, Name: "Reading"},
					Achievements: map[string][]model.Achievement{}},
			}},
		},
		expired: true,
	}
	sync := syncer.New(store, remote, nil, 1, time.Millisecond)
	engine := NewEngine(store, sync, nil, nil, nil, fixedClock("2024-01-10"), "2024-01-01")

	w := sync.StageWork("Reading", "", "")
	sync.PushCreateWork(context.Background(), w)
	if !sync.Dormant() {
		t.Fatal("session error must put sync into dormant mode")
	}

	remote.expired = false
	engine.SessionRefreshed(context.Background())

	if sync.Dormant() {
		t.Fatal("a fresh session must wake dormant sync")
	}
	if _, ok := store.GetWork(7); !ok {
		t.Fatal("waking must reconcile against the remote right away")
	}
}

func TestSessionRefreshedIsNoopWhenAwake(t *testing.T) {
	store := ledger.New()
	store.AddWork(model.Work{BaseModel: model.BaseModel{ID: 5}, Name: "Writing"})
	sync := syncer.New(store, &stubRemote{}, nil, 1, time.Millisecond)
	engine := NewEngine(store, sync, nil, nil, nil, fixedClock("2024-01-10"), "2024-01-01")

	engine.SessionRefreshed(context.Background())

	// 非休眠时不应触发对账，账本保持原样
	if _, ok := store.GetWork(5); !ok {
		t.Fatal("refresh on an awake sync must not replace the ledger")
	}
}
