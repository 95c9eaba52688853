package clock

import "time"

// DateLayout 设备本地日历日期的统一格式
const DateLayout = "2006-01-02"

// Service 是"今天"的唯一来源。
// 按本地时间的零点到零点划分日期，不做时区漂移处理。
type Service struct {
	now func() time.Time
}

func New() *Service {
	return &Service{now: time.Now}
}

// NewWithNow 注入时钟，测试用
func NewWithNow(now func() time.Time) *Service {
	return &Service{now: now}
}

// Today 每次调用都重新计算，无副作用，永不阻塞
func (s *Service) Today() string {
	return s.now().Format(DateLayout)
}

func (s *Service) Now() time.Time {
	return s.now()
}

// ---- 日期字符串运算，全部在 UTC 里做纯日期算术 ----

// Parse 把 YYYY-MM-DD 解析为 UTC 零点时间
func Parse(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// IsValid 校验日期格式
func IsValid(date string) bool {
	_, err := Parse(date)
	return err == nil
}

// AddDays 日期加减天数，输入非法时原样返回
func AddDays(date string, days int) string {
	t, err := Parse(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// Yesterday 返回前一天
func Yesterday(date string) string {
	return AddDays(date, -1)
}

// Tomorrow 返回后一天
func Tomorrow(date string) string {
	return AddDays(date, 1)
}

// IsAdjacent 判断 b 是否恰好是 a 的次日
func IsAdjacent(a, b string) bool {
	return Tomorrow(a) == b
}

// WeekStart 返回 date 所在周的周日
func WeekStart(date string) string {
	t, err := Parse(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, -int(t.Weekday())).Format(DateLayout)
}
