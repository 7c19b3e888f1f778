// 包 progress：进度上报与取消轮询
// 背景：长时间批处理需要可观测进度并支持协作式停止；二者作为两个窄能力显式传入引擎，而非共享可变反馈对象。
// 约束：百分比为 [0,100] 整数且单次运行内不回退；总数为 0 的阶段不上报，避免除零。
package progress

import (
	"context"
	"log/slog"
	"sync"
)

// Sink 接收百分比进度
type Sink interface {
	SetProgress(percent int)
}

// Func 将普通函数适配为 Sink
type Func func(percent int)

func (f Func) SetProgress(p int) { f(p) }

// Canceled 返回 true 表示应尽快停止
type Canceled func() bool

// Never 永不取消
func Never() bool { return false }

// FromContext：以 ctx 取消状态作为取消轮询
func FromContext(ctx context.Context) Canceled {
	return func() bool { return ctx.Err() != nil }
}

// Poll：对可能为 nil 的取消函数求值
func Poll(c Canceled) bool {
	if c == nil {
		return false
	}
	return c()
}

// Discard 丢弃全部进度
var Discard Sink = Func(func(int) {})

// Monotonic：包装 Sink，过滤回退与越界的值
type Monotonic struct {
	mu   sync.Mutex
	next Sink
	last int
}

func NewMonotonic(next Sink) *Monotonic {
	if next == nil {
		next = Discard
	}
	return &Monotonic{next: next, last: -1}
}

func (m *Monotonic) SetProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	m.mu.Lock()
	if p <= m.last {
		m.mu.Unlock()
		return
	}
	m.last = p
	m.mu.Unlock()
	m.next.SetProgress(p)
}

// Last：最近一次转发的值，未上报时为 -1
func (m *Monotonic) Last() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Multi 扇出到多个 Sink
type Multi []Sink

func (ms Multi) SetProgress(p int) {
	for _, s := range ms {
		if s != nil {
			s.SetProgress(p)
		}
	}
}

// Logger：按步长写日志，step<=0 时取 10
func Logger(l *slog.Logger, event string, step int) Sink {
	if step <= 0 {
		step = 10
	}
	next := 0
	return Func(func(p int) {
		if p < next && p != 100 {
			return
		}
		l.Info(event, "percent", p)
		next = (p/step + 1) * step
	})
}
