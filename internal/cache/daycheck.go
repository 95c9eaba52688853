package cache

import (
	"context"

	"OnTrack/storage/redis"
)

const dayCheckedPrefix = "daycheck:done"

// 日切检查的跨进程标记。会话内的幂等由探测器自身的
// last-checked 标记保证，这里只是重启后的补充防线。

// MarkDayChecked 标记某日期的日切检查已执行
func MarkDayChecked(ctx context.Context, date string) error {
	if !redis.Available() {
		return nil
	}
	return redis.Client().SAdd(ctx, redis.Key(dayCheckedPrefix), date).Err()
}

// WasDayChecked 查询某日期的日切检查是否已执行
func WasDayChecked(ctx context.Context, date string) (bool, error) {
	if !redis.Available() {
		return false, nil
	}
	return redis.Client().SIsMember(ctx, redis.Key(dayCheckedPrefix), date).Result()
}
