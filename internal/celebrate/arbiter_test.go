package celebrate

import (
	"context"
	"testing"

	"OnTrack/internal/model"
)

type fakeLedger struct {
	achievements map[string]bool // 日期 -> 任意 work 有记录
	allFulfilled map[string]bool
	anyActive    map[string]bool
}

func (f *fakeLedger) HasAchievementOn(date string) bool     { return f.achievements[date] }
func (f *fakeLedger) AllActiveFulfilledOn(date string) bool { return f.allFulfilled[date] }
func (f *fakeLedger) AnyActiveAchievementOn(date string) bool {
	return f.anyActive[date]
}

type fakeShown struct {
	sets map[model.PopupKind]map[string]bool
}

func newFakeShown() *fakeShown {
	return &fakeShown{sets: make(map[model.PopupKind]map[string]bool)}
}

func (f *fakeShown) MarkShown(_ context.Context, kind model.PopupKind, date string) {
	if f.sets[kind] == nil {
		f.sets[kind] = make(map[string]bool)
	}
	f.sets[kind][date] = true
}

func (f *fakeShown) WasShown(_ context.Context, kind model.PopupKind, date string) bool {
	return f.sets[kind][date]
}

func newArbiter(l *fakeLedger) (*Arbiter, *fakeShown) {
	if l.achievements == nil {
		l.achievements = map[string]bool{}
	}
	if l.allFulfilled == nil {
		l.allFulfilled = map[string]bool{}
	}
	if l.anyActive == nil {
		l.anyActive = map[string]bool{}
	}
	shown := newFakeShown()
	return New(l, shown), shown
}

func TestWelcomeFiresOnRegistrationDay(t *testing.T) {
	// 注册日当天：昨天早于注册日
	a, _ := newArbiter(&fakeLedger{})

	fired := a.RunDailyCheck(context.Background(), "2024-01-10", "2024-01-10")
	if fired == nil || fired.Kind != model.PopupWelcomeFirstDay {
		t.Fatalf("fired = %+v, want welcome_first_day", fired)
	}
}

func TestWelcomeSuppressesOtherPopups(t *testing.T) {
	// 优先级互斥：欢迎弹窗命中后，荒废/完成都不得触发
	a, _ := newArbiter(&fakeLedger{})

	a.RunDailyCheck(context.Background(), "2024-01-10", "2024-01-10")
	popups := a.Pending()

	if len(popups) != 1 {
		t.Fatalf("got %d popups, want exactly 1", len(popups))
	}
	if popups[0].Kind != model.PopupWelcomeFirstDay {
		t.Fatalf("kind = %s, want welcome_first_day", popups[0].Kind)
	}
}

func TestWastedDayFires(t *testing.T) {
	// 注册于 01-01，今天 01-05，昨天 01-04 无记录
	a, _ := newArbiter(&fakeLedger{})

	fired := a.RunDailyCheck(context.Background(), "2024-01-05", "2024-01-01")
	if fired == nil || fired.Kind != model.PopupWastedDay {
		t.Fatalf("fired = %+v, want wasted_day", fired)
	}
	if fired.DaysWasted != 1 {
		t.Fatalf("DaysWasted = %d, want 1", fired.DaysWasted)
	}
}

func TestYesterdayCompletedBeatsWasted(t *testing.T) {
	a, _ := newArbiter(&fakeLedger{
		achievements: map[string]bool{"2024-01-04": true},
	})

	fired := a.RunDailyCheck(context.Background(), "2024-01-05", "2024-01-01")
	if fired == nil || fired.Kind != model.PopupYesterdayCompleted {
		t.Fatalf("fired = %+v, want yesterday_completed", fired)
	}

	// 荒废弹窗不得进入队列
	for _, p := range a.Pending() {
		if p.Kind == model.PopupWastedDay {
			t.Fatal("wasted_day must not fire when yesterday had achievements")
		}
	}
}

func TestRegistrationDateYesterdayFiresNothing(t *testing.T) {
	// 昨天正好是注册日且无记录：既不算荒废也不算完成
	a, _ := newArbiter(&fakeLedger{})

	fired := a.RunDailyCheck(context.Background(), "2024-01-02", "2024-01-01")
	if fired != nil {
		t.Fatalf("fired = %+v, want nothing", fired)
	}
}

func TestDailyCheckIsIdempotent(t *testing.T) {
	a, _ := newArbiter(&fakeLedger{})

	first := a.RunDailyCheck(context.Background(), "2024-01-05", "2024-01-01")
	second := a.RunDailyCheck(context.Background(), "2024-01-05", "2024-01-01")

	if first == nil {
		t.Fatal("first check should fire")
	}
	if second != nil {
		t.Fatalf("second check fired %+v, want nothing", second)
	}
	if got := len(a.Pending()); got != 1 {
		t.Fatalf("queue has %d popups, want 1", got)
	}
}

func TestAllFulfilledEdgeTriggersOnce(t *testing.T) {
	l := &fakeLedger{}
	a, _ := newArbiter(l)
	ctx := context.Background()
	today := "2024-01-10"

	// 未满足 -> 不触发
	a.EvaluateReactive(ctx, today)
	if len(a.Pending()) != 0 {
		t.Fatal("nothing should fire while unfulfilled")
	}

	// 跳变到满足 -> 触发一次
	l.allFulfilled[today] = true
	l.anyActive[today] = true
	a.EvaluateReactive(ctx, today)

	popups := a.Pending()
	kinds := map[model.PopupKind]int{}
	for _, p := range popups {
		kinds[p.Kind]++
	}
	if kinds[model.PopupAllWorksFulfilled] != 1 {
		t.Fatalf("all_works_fulfilled fired %d times, want 1", kinds[model.PopupAllWorksFulfilled])
	}

	// 继续添加成就（仍满足）-> 不再触发
	a.EvaluateReactive(ctx, today)
	a.EvaluateReactive(ctx, today)
	for _, p := range a.Pending() {
		if p.Kind == model.PopupAllWorksFulfilled {
			t.Fatal("all_works_fulfilled must not re-fire while state stays true")
		}
	}

	// 跌落后再次满足，同一天也不再触发（幂等集合兜底）
	l.allFulfilled[today] = false
	a.EvaluateReactive(ctx, today)
	l.allFulfilled[today] = true
	a.EvaluateReactive(ctx, today)
	for _, p := range a.Pending() {
		if p.Kind == model.PopupAllWorksFulfilled {
			t.Fatal("all_works_fulfilled must not re-fire on the same date")
		}
	}
}

func TestFirstAchievementEdge(t *testing.T) {
	l := &fakeLedger{}
	a, _ := newArbiter(l)
	ctx := context.Background()
	today := "2024-01-10"

	l.anyActive[today] = true
	a.EvaluateReactive(ctx, today)

	popups := a.Pending()
	if len(popups) != 1 || popups[0].Kind != model.PopupFirstAchievementToday {
		t.Fatalf("popups = %+v, want single first_achievement_today", popups)
	}

	a.EvaluateReactive(ctx, today)
	if len(a.Pending()) != 0 {
		t.Fatal("first_achievement_today must not re-fire")
	}
}

func TestEdgeStateResetsOnNewDay(t *testing.T) {
	l := &fakeLedger{}
	a, _ := newArbiter(l)
	ctx := context.Background()

	l.anyActive["2024-01-10"] = true
	a.EvaluateReactive(ctx, "2024-01-10")
	a.Pending()

	// 第二天重新跳变，应再次触发
	l.anyActive["2024-01-11"] = true
	a.EvaluateReactive(ctx, "2024-01-11")

	popups := a.Pending()
	if len(popups) != 1 || popups[0].Date != "2024-01-11" {
		t.Fatalf("popups = %+v, want first_achievement_today for 2024-01-11", popups)
	}
}

type panickyLedger struct{}

func (panickyLedger) HasAchievementOn(string) bool       { panic("boom") }
func (panickyLedger) AllActiveFulfilledOn(string) bool   { panic("boom") }
func (panickyLedger) AnyActiveAchievementOn(string) bool { panic("boom") }

func TestArbiterPanicDoesNotEscape(t *testing.T) {
	a := New(panickyLedger{}, newFakeShown())

	fired := a.RunDailyCheck(context.Background(), "2024-01-05", "2024-01-01")
	if fired != nil {
		t.Fatalf("fired = %+v, want nil after recovered panic", fired)
	}
	a.EvaluateReactive(context.Background(), "2024-01-05")
}
