package progress

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ got []int }

func (r *recorder) SetProgress(p int) { r.got = append(r.got, p) }

func TestStepperMapsIntoRange(t *testing.T) {
	r := &recorder{}
	s := NewStepper(r, 4, 50, 100)
	for i := 0; i < 4; i++ {
		s.Step(i)
	}
	s.Done()
	assert.Equal(t, []int{50, 62, 75, 87, 100}, r.got)
}

func TestStepperZeroTotalReportsNothing(t *testing.T) {
	r := &recorder{}
	s := NewStepper(r, 0, 0, 50)
	s.Step(0)
	s.Step(3)
	assert.Empty(t, r.got)
	s.Done()
	assert.Equal(t, []int{50}, r.got)
}

func TestStepperSkipsRepeats(t *testing.T) {
	r := &recorder{}
	s := NewStepper(r, 1000, 0, 100)
	for i := 0; i < 1000; i++ {
		s.Step(i)
	}
	require.Len(t, r.got, 100)
	for i := 1; i < len(r.got); i++ {
		assert.Greater(t, r.got[i], r.got[i-1])
	}
}

func TestMonotonicFiltersRegression(t *testing.T) {
	r := &recorder{}
	m := NewMonotonic(r)
	for _, p := range []int{0, 10, 5, 10, 120, 50, -3} {
		m.SetProgress(p)
	}
	assert.Equal(t, []int{0, 10, 100}, r.got)
	assert.Equal(t, 100, m.Last())
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := FromContext(ctx)
	assert.False(t, c())
	cancel()
	assert.True(t, c())
	assert.False(t, Poll(nil))
	assert.False(t, Poll(Never))
}

func TestLoggerStep(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	s := Logger(l, "run_progress", 25)
	for p := 0; p <= 100; p++ {
		s.SetProgress(p)
	}
	assert.Equal(t, 5, strings.Count(buf.String(), "run_progress"))
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, nil, b}.SetProgress(42)
	assert.Equal(t, []int{42}, a.got)
	assert.Equal(t, []int{42}, b.got)
}
