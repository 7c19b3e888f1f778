package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/similarity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oldFC = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`
	newFC = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
 {"type":"Feature","properties":{"name":"B"},"geometry":{"type":"Polygon","coordinates":[[[5,5],[6,5],[6,6],[5,6],[5,5]]]}}]}`
)

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	oldP, newP := filepath.Join(dir, "old.geojson"), filepath.Join(dir, "new.geojson")
	require.NoError(t, os.WriteFile(oldP, []byte(oldFC), 0o644))
	require.NoError(t, os.WriteFile(newP, []byte(newFC), 0o644))
	return dir, oldP, newP
}

func fileSpec(kind, oldP, newP, out string) Spec {
	return Spec{
		Kind:   kind,
		Old:    config.SourceConfig{Kind: config.SourceGeoJSON, Path: oldP, NameField: "name"},
		New:    config.SourceConfig{Kind: config.SourceGeoJSON, Path: newP, NameField: "name"},
		Output: config.OutputConfig{Kind: config.OutputCSV, Path: out},
	}
}

func TestExecuteDivergence(t *testing.T) {
	dir, oldP, newP := writeInputs(t)
	out := filepath.Join(dir, "out.csv")
	var last int
	sum, err := Execute(context.Background(), Deps{}, "run-1", fileSpec(similarity.VariantDivergence, oldP, newP, out),
		progress.Func(func(p int) { last = p }))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Emitted)
	assert.Equal(t, 1, sum.Matched)
	assert.Equal(t, 100, last)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME,jaccard_index,hausdorff_distance,hausdorff_distance_normalized", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,0.25,"))
	assert.Equal(t, "B,0,,", lines[2])
}

func TestExecuteConfigErrors(t *testing.T) {
	dir, oldP, newP := writeInputs(t)
	out := filepath.Join(dir, "out.csv")

	_, err := Execute(context.Background(), Deps{}, "r", fileSpec("bogus", oldP, newP, out), nil)
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = Execute(context.Background(), Deps{}, "r", fileSpec(similarity.VariantOverlap, filepath.Join(dir, "nope"), newP, out), nil)
	assert.ErrorIs(t, err, config.ErrConfig)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	s := fileSpec(similarity.VariantOverlap, oldP, newP, out)
	s.HausdorffMode = "sideways"
	_, err = Execute(context.Background(), Deps{}, "r", s, nil)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestHausdorffModeFallback(t *testing.T) {
	assert.Equal(t, config.HausdorffSymmetric, hausdorffMode(Spec{}, Deps{}))
	assert.Equal(t, config.HausdorffDirected, hausdorffMode(Spec{}, Deps{HausdorffMode: config.HausdorffDirected}))
	assert.Equal(t, config.HausdorffSymmetric, hausdorffMode(Spec{HausdorffMode: config.HausdorffSymmetric}, Deps{HausdorffMode: config.HausdorffDirected}))
}

func TestExecuteCanceledContext(t *testing.T) {
	dir, oldP, newP := writeInputs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := Execute(ctx, Deps{}, "r", fileSpec(similarity.VariantOverlap, oldP, newP, filepath.Join(dir, "o.csv")), nil)
	require.NoError(t, err)
	assert.True(t, sum.Canceled)
	assert.Equal(t, 0, sum.Emitted)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestManagerDoneMirrorsToRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	run := func(ctx context.Context, id string, spec Spec, prog progress.Sink) (similarity.Summary, error) {
		prog.SetProgress(40)
		return similarity.Summary{Variant: spec.Kind, Total: 3, Emitted: 3, Matched: 2, Unmatched: 1}, nil
	}
	m := NewManager(run, rdb, time.Hour)
	j, err := m.Submit(Spec{Kind: similarity.VariantOverlap})
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, j.Status)
	m.Wait()

	got, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 3, got.Summary.Emitted)
	assert.True(t, got.Finished())

	assert.Equal(t, StatusDone, mr.HGet("job:"+j.ID, "status"))
	assert.Equal(t, time.Hour, mr.TTL("job:"+j.ID))

	other := NewManager(run, rdb, time.Hour)
	fromRedis, err := other.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, fromRedis.Status)
	assert.Equal(t, similarity.VariantOverlap, fromRedis.Kind)
	require.NotNil(t, fromRedis.Summary)
	assert.Equal(t, 2, fromRedis.Summary.Matched)

	_, err = other.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerCancel(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, id string, spec Spec, prog progress.Sink) (similarity.Summary, error) {
		close(started)
		<-ctx.Done()
		return similarity.Summary{Variant: spec.Kind, Canceled: true}, nil
	}
	m := NewManager(run, nil, 0)
	j, err := m.Submit(Spec{Kind: similarity.VariantDivergence})
	require.NoError(t, err)
	<-started

	_, err = m.Cancel(j.ID)
	require.NoError(t, err)
	m.Wait()
	got, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)

	_, err = m.Cancel("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerFailedAndList(t *testing.T) {
	run := func(ctx context.Context, id string, spec Spec, prog progress.Sink) (similarity.Summary, error) {
		if spec.Kind == similarity.VariantDivergence {
			return similarity.Summary{}, errors.New("record A: jaccard: boom")
		}
		return similarity.Summary{}, nil
	}
	m := NewManager(run, nil, 0)
	a, err := m.Submit(Spec{Kind: similarity.VariantOverlap})
	require.NoError(t, err)
	b, err := m.Submit(Spec{Kind: similarity.VariantDivergence})
	require.NoError(t, err)
	m.Shutdown()

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, StatusDone, list[0].Status)
	assert.Equal(t, StatusFailed, list[1].Status)
	assert.Contains(t, list[1].Error, "boom")

	_, err = m.Submit(Spec{Kind: "nope"})
	assert.ErrorIs(t, err, config.ErrConfig)
	assert.Len(t, m.List(), 2)
}

func TestManagerRunsExecute(t *testing.T) {
	dir, oldP, newP := writeInputs(t)
	m := NewManager(RunnerFor(Deps{HausdorffMode: config.HausdorffDirected}), nil, 0)
	j, err := m.Submit(fileSpec(similarity.VariantOverlap, oldP, newP, filepath.Join(dir, "o.csv")))
	require.NoError(t, err)
	m.Wait()
	got, err := m.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.Emitted)
}
