// 包 region：多边形区域记录与来源契约
// 背景：新旧两版区域集合（如逐年发布的邮编/行政区边界）按名称匹配；名称可为任意标量，规整为文本并保留标量类型。
// 约束：Record 读取后不可变；Source 必须可报告总数以支撑进度计算。
package region

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/peterstace/simplefeatures/geom"
)

// Name：区域名称键；Valid=false 表示空名称（null），空名称之间互相匹配
// 约束：Kind 参与比较，数字 1 与字符串 "1" 是不同的键；数值 1 与 1.0 规整为同一文本，视为同一键
type Name struct {
	Text  string
	Valid bool
	Kind  NameKind
}

// NameKind：名称的原始标量类型
type NameKind uint8

const (
	KindText NameKind = iota
	KindNumber
	KindBool
)

// NullName 为空名称
var NullName = Name{}

func NewName(s string) Name { return Name{Text: s, Valid: true} }

// NumberName：数值名称，s 须为规整后的十进制文本
func NumberName(s string) Name { return Name{Text: s, Valid: true, Kind: KindNumber} }

func BoolName(b bool) Name {
	return Name{Text: strconv.FormatBool(b), Valid: true, Kind: KindBool}
}

// NameOf：将属性值规整为名称键
// 约束：字符串原样保留；数字按最短十进制表示（避免 1e+06 形式）；nil 为空名称
func NameOf(v any) Name {
	switch x := v.(type) {
	case nil:
		return NullName
	case string:
		return NewName(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return NumberName(strconv.FormatInt(i, 10))
		}
		if f, err := x.Float64(); err == nil {
			return NameOf(f)
		}
		return NewName(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return NewName(strconv.FormatFloat(x, 'f', -1, 64))
		}
		return NumberName(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return NameOf(float64(x))
	case int:
		return NumberName(strconv.Itoa(x))
	case int64:
		return NumberName(strconv.FormatInt(x, 10))
	case bool:
		return BoolName(x)
	case []byte:
		return NewName(string(x))
	default:
		return NewName(fmt.Sprint(x))
	}
}

func (n Name) String() string {
	if !n.Valid {
		return "<null>"
	}
	return n.Text
}

// MarshalJSON：输出字段为文本，类型只用于匹配
func (n Name) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Text)
}

func (n *Name) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	*n = NameOf(v)
	return nil
}

// Value 实现 driver.Valuer，空名称写为 NULL
func (n Name) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Text, nil
}

// Record：一条区域要素
type Record struct {
	Name     Name
	Geometry geom.Geometry
}

// Iterator：流式读取记录，用法与 sql.Rows 一致：Next → Record，结束后检查 Err 并 Close
type Iterator interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Source：有限、可重复打开的记录来源
type Source interface {
	Count() int
	Open() (Iterator, error)
}
