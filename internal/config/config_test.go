package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SOURCE_KIND", "OLD_POLYGON_NAME_FIELD", "OUTPUT_KIND", "OUTPUT_PATH", "HAUSDORFF_MODE", "RATE_LIMIT_QPS", "JOB_TTL_S", "API_BASE"} {
		t.Setenv(k, "")
	}
	c := Load()
	assert.Equal(t, SourceGeoJSON, c.Old.Kind)
	assert.Equal(t, "name", c.Old.NameField)
	assert.Equal(t, "ST_AsText(geom)", c.New.GeomExpr)
	assert.Equal(t, OutputGeoJSON, c.Output.Kind)
	assert.Equal(t, "-", c.Output.Path)
	assert.Equal(t, HausdorffSymmetric, c.HausdorffMode)
	assert.Equal(t, 50.0, c.RateLimitQPS)
	assert.Equal(t, 24*time.Hour, c.JobTTL)
	assert.Equal(t, "/api", c.APIBase)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOURCE_KIND", "PG")
	t.Setenv("NEW_POLYGON_TABLE", "zips_2024")
	t.Setenv("NEW_POLYGON_NAME_FIELD", "ZCTA5CE20")
	t.Setenv("OUTPUT_KIND", "csv")
	t.Setenv("HAUSDORFF_MODE", "Directed")
	t.Setenv("RATE_LIMIT_QPS", "2.5")
	t.Setenv("JOB_TTL_S", "-3")
	c := Load()
	assert.Equal(t, SourcePostgres, c.New.Kind)
	assert.Equal(t, "zips_2024", c.New.Table)
	assert.Equal(t, "ZCTA5CE20", c.New.NameField)
	assert.Equal(t, OutputCSV, c.Output.Kind)
	assert.Equal(t, HausdorffDirected, c.HausdorffMode)
	assert.Equal(t, 2.5, c.RateLimitQPS)
	assert.Equal(t, 24*time.Hour, c.JobTTL)
}

func TestValidate(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.geojson")
	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))

	assert.NoError(t, ValidateSource("old", SourceConfig{Kind: SourceGeoJSON, Path: p}))
	assert.ErrorIs(t, ValidateSource("old", SourceConfig{Kind: SourceGeoJSON}), ErrConfig)
	assert.ErrorIs(t, ValidateSource("old", SourceConfig{Kind: SourceGeoJSON, Path: p + ".missing"}), ErrConfig)
	assert.NoError(t, ValidateSource("new", SourceConfig{Kind: SourcePostgres, Table: "t"}))
	assert.ErrorIs(t, ValidateSource("new", SourceConfig{Kind: SourcePostgres}), ErrConfig)
	assert.ErrorIs(t, ValidateSource("new", SourceConfig{Kind: "shp"}), ErrConfig)

	assert.NoError(t, ValidateOutput(OutputConfig{Kind: OutputCSV, Path: "-"}))
	assert.NoError(t, ValidateOutput(OutputConfig{Kind: OutputPostgres}))
	assert.ErrorIs(t, ValidateOutput(OutputConfig{Kind: OutputGeoJSON}), ErrConfig)
	assert.ErrorIs(t, ValidateOutput(OutputConfig{Kind: "xlsx", Path: "x"}), ErrConfig)

	assert.NoError(t, ValidateHausdorffMode(HausdorffDirected))
	assert.ErrorIs(t, ValidateHausdorffMode("both"), ErrConfig)
}

func TestResolveDataFile(t *testing.T) {
	p, err := ResolveDataFile("/srv/data", "2024/zips.geojson")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/data", "2024", "zips.geojson"), p)

	for _, name := range []string{"../etc/passwd", "/etc/passwd", "a/../../b", ""} {
		_, err := ResolveDataFile("/srv/data", name)
		assert.ErrorIs(t, err, ErrConfig, name)
	}
	_, err = ResolveDataFile("", "zips.geojson")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestGeomExprNotDecoded(t *testing.T) {
	var s SourceConfig
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"pg","table":"t","geom_expr":"pg_read_file('/etc/passwd')"}`), &s))
	assert.Empty(t, s.GeomExpr)
	b, err := json.Marshal(SourceConfig{Kind: "pg", GeomExpr: "ST_AsText(geom)"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "ST_AsText")
}
