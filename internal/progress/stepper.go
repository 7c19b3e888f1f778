package progress

// Stepper 将阶段内序号 i/N 映射到总区间 [lo, hi]
// 约束：多个阶段首尾相接（前一阶段 hi 等于后一阶段 lo），整体进度即单调
type Stepper struct {
	sink   Sink
	total  int
	lo, hi int
	last   int
}

func NewStepper(sink Sink, total, lo, hi int) *Stepper {
	if sink == nil {
		sink = Discard
	}
	if hi < lo {
		hi = lo
	}
	return &Stepper{sink: sink, total: total, lo: lo, hi: hi, last: -1}
}

// Step：处理第 i 条（从 0 计）之前调用；total 为 0 时不上报
func (s *Stepper) Step(i int) {
	if s.total <= 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > s.total {
		i = s.total
	}
	p := s.lo + i*(s.hi-s.lo)/s.total
	if p <= s.last {
		return
	}
	s.last = p
	s.sink.SetProgress(p)
}

// Done：阶段完成时上报区间终点
func (s *Stepper) Done() {
	if s.hi <= s.last {
		return
	}
	s.last = s.hi
	s.sink.SetProgress(s.hi)
}
