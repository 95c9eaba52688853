package service

import (
	"context"
	"testing"

	"OnTrack/internal/ledger"
	"OnTrack/internal/model"
)

type recordingStreakStore struct {
	current, longest int
	calls            int
}

func (r *recordingStreakStore) UpdateStreaks(_ context.Context, _ int64, current, longest int) error {
	r.current, r.longest = current, longest
	r.calls++
	return nil
}

func seedLedger(dates ...string) *ledger.Ledger {
	store := ledger.New()
	store.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}, Name: "Reading"})
	for i, d := range dates {
		store.AddAchievement(1, model.Achievement{
			BaseModel: model.BaseModel{ID: int64(100 + i)},
			WorkID:    1,
			Date:      d,
		})
	}
	return store
}

func TestRecomputePersistsStreaks(t *testing.T) {
	store := seedLedger("2024-01-09", "2024-01-10")
	persist := &recordingStreakStore{}
	svc := NewStreakService(store, fixedClock("2024-01-10"), persist, 1, 12)

	data := svc.Recompute(context.Background())

	if data.CurrentStreak != 2 {
		t.Fatalf("CurrentStreak = %d, want 2", data.CurrentStreak)
	}
	if persist.calls != 1 || persist.current != 2 {
		t.Fatalf("persisted current = %d in %d calls, want 2 once", persist.current, persist.calls)
	}
}

func TestLongestStreakNeverDrops(t *testing.T) {
	store := seedLedger("2024-01-09")
	svc := NewStreakService(store, fixedClock("2024-01-10"), nil, 1, 12)
	svc.Seed(14) // 远端缓存里的历史最长

	data := svc.Recompute(context.Background())

	if data.LongestStreak != 14 {
		t.Fatalf("LongestStreak = %d, want the seeded 14", data.LongestStreak)
	}
}

func TestRecomputeRaisesLongest(t *testing.T) {
	store := seedLedger("2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09")
	svc := NewStreakService(store, fixedClock("2024-01-10"), nil, 1, 12)
	svc.Seed(3)

	data := svc.Recompute(context.Background())

	if data.LongestStreak != 5 {
		t.Fatalf("LongestStreak = %d, want 5", data.LongestStreak)
	}
}

func TestGridShape(t *testing.T) {
	store := seedLedger("2024-01-09")
	svc := NewStreakService(store, fixedClock("2024-01-10"), nil, 1, 12)

	grid := svc.Grid(context.Background())

	if len(grid.Weeks) != 12 {
		t.Fatalf("weeks = %d, want 12", len(grid.Weeks))
	}
	last := grid.Weeks[len(grid.Weeks)-1]
	if last.StartDate != "2024-01-07" { // 2024-01-10 是周三，本周从周日 01-07 起
		t.Fatalf("last week starts %s, want 2024-01-07", last.StartDate)
	}
}
