package lifecycle

import (
	"context"
	"testing"
	"time"

	"OnTrack/internal/clock"
)

type fakeNow struct {
	t time.Time
}

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func newDetector(start time.Time) (*Detector, *fakeNow, *[]string, *int) {
	fn := &fakeNow{t: start}
	dayChanges := &[]string{}
	stalePulls := new(int)

	d := New(
		clock.NewWithNow(fn.now),
		Config{TickInterval: time.Minute, BackgroundRefresh: 10 * time.Minute},
		Hooks{
			OnDayChange: func(_ context.Context, today string) {
				*dayChanges = append(*dayChanges, today)
			},
			OnStaleForeground: func(_ context.Context) {
				*stalePulls++
			},
		},
	)
	return d, fn, dayChanges, stalePulls
}

func TestMountRunsInitialCheck(t *testing.T) {
	d, _, dayChanges, _ := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	d.Mount(context.Background())

	if len(*dayChanges) != 1 || (*dayChanges)[0] != "2024-01-10" {
		t.Fatalf("dayChanges = %v, want one check for 2024-01-10", *dayChanges)
	}
}

func TestTickBeforeMountDoesNothing(t *testing.T) {
	d, _, dayChanges, _ := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	d.Tick(context.Background())

	if len(*dayChanges) != 0 {
		t.Fatalf("dayChanges = %v, want none before mount", *dayChanges)
	}
}

func TestSameDayTicksCheckOnce(t *testing.T) {
	d, fn, dayChanges, _ := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	for i := 0; i < 5; i++ {
		fn.advance(time.Minute)
		d.Tick(ctx)
	}

	if len(*dayChanges) != 1 {
		t.Fatalf("got %d checks, want exactly 1 per day", len(*dayChanges))
	}
}

func TestMidnightTickFiresNewCheck(t *testing.T) {
	d, fn, dayChanges, _ := newDetector(time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	fn.advance(2 * time.Minute) // 跨过午夜
	d.Tick(ctx)
	d.Tick(ctx)

	want := []string{"2024-01-10", "2024-01-11"}
	if len(*dayChanges) != 2 || (*dayChanges)[0] != want[0] || (*dayChanges)[1] != want[1] {
		t.Fatalf("dayChanges = %v, want %v", *dayChanges, want)
	}
}

func TestBackgroundTickDefersToForeground(t *testing.T) {
	d, fn, dayChanges, _ := newDetector(time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	d.Background(ctx)

	fn.advance(2 * time.Minute)
	d.Tick(ctx) // 后台期间的日切只挂起，不执行
	if len(*dayChanges) != 1 {
		t.Fatalf("background tick ran a check: %v", *dayChanges)
	}

	d.Foreground(ctx)
	if len(*dayChanges) != 2 || (*dayChanges)[1] != "2024-01-11" {
		t.Fatalf("dayChanges = %v, want deferred check for 2024-01-11", *dayChanges)
	}
}

func TestLongBackgroundForcesRefresh(t *testing.T) {
	d, fn, _, stalePulls := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	d.Background(ctx)
	fn.advance(11 * time.Minute)
	d.Foreground(ctx)

	if *stalePulls != 1 {
		t.Fatalf("stalePulls = %d, want 1 after 11 minutes in background", *stalePulls)
	}
}

func TestShortBackgroundSkipsRefresh(t *testing.T) {
	d, fn, _, stalePulls := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	d.Background(ctx)
	fn.advance(5 * time.Minute)
	d.Foreground(ctx)

	if *stalePulls != 0 {
		t.Fatalf("stalePulls = %d, want 0 after 5 minutes in background", *stalePulls)
	}
}

func TestForegroundWithoutBackgroundSkipsRefresh(t *testing.T) {
	d, _, _, stalePulls := newDetector(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d.Mount(ctx)
	d.Foreground(ctx) // 已经在前台，重复信号不应触发拉取

	if *stalePulls != 0 {
		t.Fatalf("stalePulls = %d, want 0", *stalePulls)
	}
}
