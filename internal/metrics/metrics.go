package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyoverlap_runs_total",
		Help: "Total comparison runs by variant and final status",
	}, []string{"variant", "status"})
	RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyoverlap_records_total",
		Help: "Total emitted comparison records by variant and match outcome",
	}, []string{"variant", "outcome"})
	RunDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyoverlap_run_duration_ms",
		Help:    "Comparison run duration in milliseconds",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 60000, 300000},
	}, []string{"variant"})
	JaccardIndex = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyoverlap_jaccard_index",
		Help:    "Distribution of computed Jaccard indexes for matched records",
		Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
	}, []string{"variant"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyoverlap_http_requests_total",
		Help: "Total HTTP requests by route",
	}, []string{"route"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyoverlap_cache_hits_total",
		Help: "Total comparison result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "polyoverlap_cache_misses_total",
		Help: "Total comparison result cache misses",
	})
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(RunDurationMs)
	prometheus.MustRegister(JaccardIndex)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 {base}/metrics，供 Prometheus 抓取；在服务入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
