package ledger

import (
	"testing"

	"OnTrack/internal/model"
)

func newTestLedger() *Ledger {
	return New()
}

func TestAddAchievementUnknownWorkIsNoop(t *testing.T) {
	l := newTestLedger()

	if ok := l.AddAchievement(42, model.Achievement{BaseModel: model.BaseModel{ID: 1}, Date: "2024-01-10"}); ok {
		t.Fatal("expected no-op for unknown work")
	}
	if l.HasAchievementOn("2024-01-10") {
		t.Fatal("achievement should not have been recorded")
	}
}

func TestRemoveAchievementIsIdempotent(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}, Name: "Gym"})
	l.AddAchievement(1, model.Achievement{BaseModel: model.BaseModel{ID: 10}, Date: "2024-01-10", Text: "leg day"})

	if !l.RemoveAchievement(1, "2024-01-10", 10) {
		t.Fatal("first removal should succeed")
	}
	if l.RemoveAchievement(1, "2024-01-10", 10) {
		t.Fatal("second removal should be a no-op")
	}
	if l.RemoveAchievement(1, "2024-01-10", 999) {
		t.Fatal("removing unknown id should be a no-op")
	}
}

func TestSkipDirectiveInvariant(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}, Name: "Gym"})

	// 在 D = 2024-01-10 设置 from_tomorrow，生效日期 D+1
	l.SetSkip(1, model.SkipFromTomorrow, "2024-01-11")

	if !l.IsActiveOn(1, "2024-01-10") {
		t.Error("work must stay active on the day the skip was set")
	}
	if !l.IsActiveOn(1, "2024-01-09") {
		t.Error("work must be active on dates before the effective date")
	}
	if l.IsActiveOn(1, "2024-01-11") {
		t.Error("work must be inactive from the effective date on")
	}
	if l.IsActiveOn(1, "2024-01-20") {
		t.Error("work must stay inactive on later dates until the skip is cleared")
	}

	l.ClearSkip(1)
	if !l.IsActiveOn(1, "2024-01-20") {
		t.Error("clearing the skip must restore active status")
	}
}

func TestIndefiniteSkip(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}})
	l.SetSkip(1, model.SkipIndefinite, "")

	for _, date := range []string{"2024-01-01", "2024-06-15", "2030-12-31"} {
		if l.IsActiveOn(1, date) {
			t.Errorf("indefinitely skipped work should be inactive on %s", date)
		}
	}
}

func TestRemoveWorkCascades(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}})
	l.AddAchievement(1, model.Achievement{BaseModel: model.BaseModel{ID: 10}, Date: "2024-01-10"})

	l.RemoveWork(1)

	if l.HasAchievementOn("2024-01-10") {
		t.Fatal("achievements must be removed with their work")
	}
	if len(l.WorkIDSet()) != 0 {
		t.Fatal("work id set should be empty")
	}
}

func TestRewriteWorkID(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: -100}, Name: "Gym", IdempotencyKey: "key-1"})
	l.AddAchievement(-100, model.Achievement{BaseModel: model.BaseModel{ID: -5}, Date: "2024-01-10"})

	if !l.RewriteWorkID("key-1", 7) {
		t.Fatal("rewrite should find the pending work by idempotency key")
	}

	if _, ok := l.GetWork(-100); ok {
		t.Error("temporary id should be gone")
	}
	w, ok := l.GetWork(7)
	if !ok || w.Name != "Gym" {
		t.Fatalf("work not reachable under server id: %+v ok=%v", w, ok)
	}
	a, ok := l.FindAchievement(7, -5)
	if !ok || a.WorkID != 7 {
		t.Fatalf("achievement foreign key not rewritten: %+v ok=%v", a, ok)
	}

	if l.RewriteWorkID("key-1", 7) {
		t.Error("second rewrite should be a no-op")
	}
}

func TestRewriteAchievementID(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}})
	l.AddAchievement(1, model.Achievement{BaseModel: model.BaseModel{ID: -9}, Date: "2024-01-10", IdempotencyKey: "ach-key"})

	if !l.RewriteAchievementID("ach-key", 55) {
		t.Fatal("rewrite should find the pending achievement")
	}
	if _, ok := l.FindAchievement(1, 55); !ok {
		t.Fatal("achievement not reachable under server id")
	}
}

func TestReplaceIsWholesale(t *testing.T) {
	l := newTestLedger()
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}, Name: "Old"})

	l.Replace(Snapshot{Works: []WorkEntry{
		{
			Work: model.Work{BaseModel: model.BaseModel{ID: 2}, Name: "New"},
			Achievements: map[string][]model.Achievement{
				"2024-01-10": {{BaseModel: model.BaseModel{ID: 20}, WorkID: 2}},
			},
		},
	}})

	if _, ok := l.GetWork(1); ok {
		t.Fatal("replace must discard entries absent from the new snapshot")
	}
	if !l.HasAchievementOn("2024-01-10") {
		t.Fatal("replaced snapshot content missing")
	}
}

func TestAllActiveFulfilled(t *testing.T) {
	l := newTestLedger()

	if l.AllActiveFulfilledOn("2024-01-10") {
		t.Fatal("no works means not fulfilled")
	}

	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}})
	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 2}})
	l.AddAchievement(1, model.Achievement{BaseModel: model.BaseModel{ID: 10}, Date: "2024-01-10"})

	if l.AllActiveFulfilledOn("2024-01-10") {
		t.Fatal("one of two active works unfulfilled")
	}

	// 第二个 work 无限期暂停后，只剩一个活跃 work 且已完成
	l.SetSkip(2, model.SkipIndefinite, "")
	if !l.AllActiveFulfilledOn("2024-01-10") {
		t.Fatal("skipped works must not count toward fulfillment")
	}
}

func TestOnChangeFires(t *testing.T) {
	l := newTestLedger()
	fired := 0
	l.OnChange(func() { fired++ })

	l.AddWork(model.Work{BaseModel: model.BaseModel{ID: 1}})
	l.AddAchievement(1, model.Achievement{BaseModel: model.BaseModel{ID: 10}, Date: "2024-01-10"})

	if fired != 2 {
		t.Fatalf("listener fired %d times, want 2", fired)
	}
}
