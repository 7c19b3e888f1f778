// 包 config：集中读取环境变量（.env 由各入口先行加载），为批处理工具、任务管理与 HTTP 服务提供统一配置
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrConfig 标记运行前即可发现的配置错误（输入缺失、类型未知、输出无法创建）
var ErrConfig = errors.New("config error")

const (
	SourceGeoJSON  = "geojson"
	SourcePostgres = "pg"

	OutputGeoJSON  = "geojson"
	OutputCSV      = "csv"
	OutputPostgres = "pg"

	HausdorffSymmetric = "symmetric"
	HausdorffDirected  = "directed"
)

// SourceConfig：单个多边形集合的来源
// 约束：GeomExpr 直接拼入 SQL，只能来自 POLYGON_GEOM_EXPR，不参与 JSON 编解码
type SourceConfig struct {
	Kind      string `json:"kind"`
	Path      string `json:"path,omitempty"`
	Table     string `json:"table,omitempty"`
	NameField string `json:"name_field"`
	GeomExpr  string `json:"-"`
}

// OutputConfig：结果落地位置；Path 为 "-" 时写标准输出
type OutputConfig struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	Table string `json:"table,omitempty"`
}

type Config struct {
	Old    SourceConfig
	New    SourceConfig
	Output OutputConfig

	HausdorffMode   string
	ProgressLogStep int

	Addr             string
	APIBase          string
	RateLimitEnabled bool
	RateLimitQPS     float64
	JobTTL           time.Duration
	JobDataDir       string
	ResultCacheTTL   time.Duration
	MaxBodyBytes     int64
}

// Load：读取全部配置项并填充默认值；不做校验，校验由 Validate* 在使用前完成
func Load() Config {
	kind := strings.ToLower(envStr("SOURCE_KIND", SourceGeoJSON))
	geomExpr := envStr("POLYGON_GEOM_EXPR", "ST_AsText(geom)")
	c := Config{
		Old: SourceConfig{
			Kind:      kind,
			Path:      os.Getenv("OLD_POLYGON_PATH"),
			Table:     os.Getenv("OLD_POLYGON_TABLE"),
			NameField: envStr("OLD_POLYGON_NAME_FIELD", "name"),
			GeomExpr:  geomExpr,
		},
		New: SourceConfig{
			Kind:      kind,
			Path:      os.Getenv("NEW_POLYGON_PATH"),
			Table:     os.Getenv("NEW_POLYGON_TABLE"),
			NameField: envStr("NEW_POLYGON_NAME_FIELD", "name"),
			GeomExpr:  geomExpr,
		},
		Output: OutputConfig{
			Kind:  strings.ToLower(envStr("OUTPUT_KIND", OutputGeoJSON)),
			Path:  envStr("OUTPUT_PATH", "-"),
			Table: os.Getenv("OUTPUT_TABLE"),
		},
		HausdorffMode:    strings.ToLower(envStr("HAUSDORFF_MODE", HausdorffSymmetric)),
		ProgressLogStep:  envInt("PROGRESS_LOG_STEP", 10),
		Addr:             envStr("ADDR", ":8080"),
		APIBase:          envStr("API_BASE", "/api"),
		RateLimitEnabled: os.Getenv("RATE_LIMIT_ENABLED") == "true",
		RateLimitQPS:     envFloat("RATE_LIMIT_QPS", 50),
		JobTTL:           time.Duration(envInt("JOB_TTL_S", 86400)) * time.Second,
		JobDataDir:       os.Getenv("JOB_DATA_DIR"),
		ResultCacheTTL:   time.Duration(envInt("RESULT_CACHE_TTL_S", 3600)) * time.Second,
		MaxBodyBytes:     int64(envInt("MAX_BODY_BYTES", 32<<20)),
	}
	return c
}

// ValidateSource：检查来源是否可用；geojson 需路径可读，pg 需表名
func ValidateSource(role string, s SourceConfig) error {
	switch s.Kind {
	case SourceGeoJSON:
		if s.Path == "" {
			return fmt.Errorf("%w: %s polygon path missing", ErrConfig, role)
		}
		if _, err := os.Stat(s.Path); err != nil {
			return fmt.Errorf("%w: %s polygon path unreadable: %v", ErrConfig, role, err)
		}
	case SourcePostgres:
		if s.Table == "" {
			return fmt.Errorf("%w: %s polygon table missing", ErrConfig, role)
		}
	default:
		return fmt.Errorf("%w: unknown %s source kind %q", ErrConfig, role, s.Kind)
	}
	return nil
}

// ValidateOutput：检查输出配置；文件类输出需路径
func ValidateOutput(o OutputConfig) error {
	switch o.Kind {
	case OutputGeoJSON, OutputCSV:
		if o.Path == "" {
			return fmt.Errorf("%w: output path missing", ErrConfig)
		}
	case OutputPostgres:
	default:
		return fmt.Errorf("%w: unknown output kind %q", ErrConfig, o.Kind)
	}
	return nil
}

// ValidateHausdorffMode：仅接受 symmetric/directed
func ValidateHausdorffMode(m string) error {
	if m != HausdorffSymmetric && m != HausdorffDirected {
		return fmt.Errorf("%w: unknown hausdorff mode %q", ErrConfig, m)
	}
	return nil
}

// ResolveDataFile：将任务请求中的文件名解析到 dir 之下
// 约束：dir 为空时不允许按文件名指定；仅接受相对且不含 ".." 的本地路径
func ResolveDataFile(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: file names are not accepted (JOB_DATA_DIR unset)", ErrConfig)
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: file name %q must stay inside the data directory", ErrConfig, name)
	}
	return filepath.Join(dir, name), nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt：解析失败或非正数时回退默认值
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envFloat 与 envInt 同理，额外排除 NaN/Inf
func envFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return def
	}
	return f
}
