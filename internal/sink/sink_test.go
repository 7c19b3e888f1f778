package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/region"
	"polygon-overlap/internal/similarity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	overlapA = similarity.OverlapResult{
		Name:         region.NewName("A"),
		JaccardIndex: similarity.Value(0.25),
		Geometry:     geometry.Square(0, 0, 2, 2),
	}
	overlapB = similarity.OverlapResult{Name: region.NewName("B"), JaccardIndex: similarity.NotApplicable}
	divA     = similarity.DivergenceResult{
		Name:                        region.NewName("A"),
		JaccardIndex:                0.25,
		HausdorffDistance:           similarity.Value(1.5),
		HausdorffDistanceNormalized: similarity.Value(0.5),
	}
	divB = similarity.DivergenceResult{
		Name:                        region.NullName,
		HausdorffDistance:           similarity.NotApplicable,
		HausdorffDistanceNormalized: similarity.NotApplicable,
	}
)

type decodedFC struct {
	Type     string `json:"type"`
	Features []struct {
		Properties map[string]any  `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	} `json:"features"`
}

func TestGeoJSONOverlap(t *testing.T) {
	var buf bytes.Buffer
	s := NewGeoJSON(&buf, nil)
	require.NoError(t, s.WriteOverlap(overlapA))
	require.NoError(t, s.WriteOverlap(overlapB))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	var fc decodedFC
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, map[string]any{"Name": "A", "Jaccard_index": 0.25}, fc.Features[0].Properties)
	g, err := geometry.FromGeoJSON(fc.Features[0].Geometry)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, g.Area(), 1e-9)

	assert.Equal(t, map[string]any{"Name": "B", "Jaccard_index": nil}, fc.Features[1].Properties)
	assert.JSONEq(t, "null", string(fc.Features[1].Geometry))
}

func TestGeoJSONDivergenceAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := NewGeoJSON(&buf, nil)
	require.NoError(t, s.WriteDivergence(divA))
	require.NoError(t, s.WriteDivergence(divB))
	require.NoError(t, s.Close())

	var fc decodedFC
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 2)
	assert.Equal(t, map[string]any{
		"NAME": "A", "jaccard_index": 0.25, "hausdorff_distance": 1.5, "hausdorff_distance_normalized": 0.5,
	}, fc.Features[0].Properties)
	assert.Equal(t, map[string]any{
		"NAME": nil, "jaccard_index": 0.0, "hausdorff_distance": nil, "hausdorff_distance_normalized": nil,
	}, fc.Features[1].Properties)

	buf.Reset()
	require.NoError(t, NewGeoJSON(&buf, nil).Close())
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, nil)
	require.NoError(t, s.WriteOverlap(overlapA))
	require.NoError(t, s.WriteOverlap(overlapB))
	require.NoError(t, s.Close())
	want := "Name,Jaccard_index,geometry_wkt\n" +
		"A,0.25,\"" + overlapA.Geometry.AsText() + "\"\n" +
		"B,,\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	s = NewCSV(&buf, nil)
	require.NoError(t, s.WriteDivergence(divA))
	require.NoError(t, s.WriteDivergence(divB))
	require.NoError(t, s.Close())
	assert.Equal(t, "NAME,jaccard_index,hausdorff_distance,hausdorff_distance_normalized\n"+
		"A,0.25,1.5,0.5\n"+
		",0,,\n", buf.String())
}

func TestPostgresSink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "_region_overlap"(run_id, seq, name, jaccard_index, geom_wkt)`)).
		WithArgs("run-1", 0, "A", 0.25, overlapA.Geometry.AsText()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "_region_overlap"`)).
		WithArgs("run-1", 1, "B", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewPostgres(context.Background(), db, "_region_overlap", "run-1")
	require.NoError(t, s.WriteOverlap(overlapA))
	require.NoError(t, s.WriteOverlap(overlapB))
	assert.Equal(t, 2, s.Rows())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "_region_similarity"`)).
		WithArgs("run-2", 0, nil, 0.0, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s = NewPostgres(context.Background(), db, "_region_similarity", "run-2")
	require.NoError(t, s.WriteDivergence(divB))
	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	s, err := Open(context.Background(), nil, config.OutputConfig{Kind: config.OutputCSV, Path: p}, similarity.VariantDivergence, "r")
	require.NoError(t, err)
	require.NoError(t, s.WriteDivergence(divA))
	require.NoError(t, s.Close())
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "A,0.25,1.5,0.5")

	_, err = Open(context.Background(), nil, config.OutputConfig{Kind: config.OutputGeoJSON, Path: filepath.Join(dir, "missing", "x.geojson")}, similarity.VariantOverlap, "r")
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = Open(context.Background(), nil, config.OutputConfig{Kind: config.OutputPostgres}, similarity.VariantOverlap, "r")
	assert.ErrorIs(t, err, config.ErrConfig)

	_, err = Open(context.Background(), nil, config.OutputConfig{Kind: "shp", Path: "x"}, similarity.VariantOverlap, "r")
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestOpenPostgresEnsuresTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "_region_similarity"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := Open(context.Background(), db, config.OutputConfig{Kind: config.OutputPostgres}, similarity.VariantDivergence, "r")
	require.NoError(t, err)
	assert.IsType(t, &Postgres{}, s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	var s Sink = m
	require.NoError(t, s.WriteOverlap(overlapA))
	require.NoError(t, s.WriteDivergence(divA))
	assert.Len(t, m.Overlap, 1)
	assert.Len(t, m.Divergence, 1)
}
