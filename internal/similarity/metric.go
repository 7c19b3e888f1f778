package similarity

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strconv"
)

// Metric：可为“不适用”的浮点指标
// 约束：Valid=false 表示无匹配或分母为零，区别于计算得到的 0；JSON 输出 null，数据库写入 NULL，CSV 写空串
type Metric struct {
	Value float64
	Valid bool
}

// NotApplicable 为“不适用”哨兵
var NotApplicable = Metric{}

// Value 构造有效指标
func Value(v float64) Metric { return Metric{Value: v, Valid: true} }

// Float：取值与有效性
func (m Metric) Float() (float64, bool) { return m.Value, m.Valid }

func (m Metric) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'g', -1, 64)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = NotApplicable
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Value(v)
	return nil
}

// Null：转为 sql.NullFloat64，供数据库写入
func (m Metric) Null() sql.NullFloat64 { return sql.NullFloat64{Float64: m.Value, Valid: m.Valid} }
