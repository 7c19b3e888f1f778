// 包 api：HTTP 接口（同步比对、异步任务、健康检查）
package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"polygon-overlap/internal/config"
	"polygon-overlap/internal/geometry"
	"polygon-overlap/internal/jobs"
	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/metrics"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/similarity"
	"polygon-overlap/internal/sink"
	"polygon-overlap/internal/source"
)

// Deps：路由依赖；Jobs 为 nil 时不注册任务接口，Cache 为 nil 时不缓存
// JobDefaults 为服务端配置的来源与输出，HTTP 任务只能在此基础上调整；DataDir 为空时不接受文件名
type Deps struct {
	Jobs          *jobs.Manager
	JobDefaults   jobs.Spec
	DataDir       string
	Cache         ResultCache
	HausdorffMode string
	MaxBodyBytes  int64
}

// jobRequest：HTTP 任务可调整的字段；其余字段（来源类型、表名、SQL 表达式、任意路径）一律拒绝
type jobRequest struct {
	Kind          string `json:"kind"`
	HausdorffMode string `json:"hausdorff_mode"`
	OldFile       string `json:"old_file"`
	NewFile       string `json:"new_file"`
	OutputFile    string `json:"output_file"`
}

// compareRequest：内联两版 FeatureCollection
type compareRequest struct {
	Old           json.RawMessage `json:"old"`
	New           json.RawMessage `json:"new"`
	NameField     string          `json:"name_field"`
	OldNameField  string          `json:"old_name_field"`
	NewNameField  string          `json:"new_name_field"`
	HausdorffMode string          `json:"hausdorff_mode"`
}

type compareResponse struct {
	Summary similarity.Summary `json:"summary"`
	Results json.RawMessage    `json:"results"`
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 32 << 20
	}
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues("healthz").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	apiMux.HandleFunc("POST /compare/overlap", d.compare(similarity.VariantOverlap))
	apiMux.HandleFunc("POST /compare/divergence", d.compare(similarity.VariantDivergence))

	if d.Jobs == nil {
		return apiMux
	}
	apiMux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues("jobs_submit").Inc()
		var req jobRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, d.MaxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		spec, err := d.jobSpec(req)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		j, err := d.Jobs.Submit(spec)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, j)
	})
	apiMux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues("jobs_list").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"jobs": d.Jobs.List()})
	})
	apiMux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues("jobs_get").Inc()
		j, err := d.Jobs.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, j)
	})
	apiMux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues("jobs_cancel").Inc()
		j, err := d.Jobs.Cancel(r.PathValue("id"))
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, j)
	})
	return apiMux
}

// compare：同步比对
// 约束：请求体上限 MaxBodyBytes；客户端断开视为取消，取消结果不写缓存
func (d Deps) compare(variant string) http.HandlerFunc {
	route := "compare_" + variant
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsTotal.WithLabelValues(route).Inc()
		ctx := r.Context()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.MaxBodyBytes))
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusRequestEntityTooLarge, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req compareRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mode := req.HausdorffMode
		if mode == "" {
			mode = d.HausdorffMode
		}
		if mode == "" {
			mode = config.HausdorffSymmetric
		}
		if err := config.ValidateHausdorffMode(mode); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		key := cacheKey(variant, mode, body)
		if d.Cache != nil {
			if b, ok := d.Cache.Get(ctx, key); ok {
				w.Header().Set("x-cache", "hit")
				writeRaw(w, http.StatusOK, b)
				return
			}
		}

		oldSrc, err := source.ParseGeoJSON(req.Old, fieldOr(req.OldNameField, req.NameField))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		newSrc, err := source.ParseGeoJSON(req.New, fieldOr(req.NewNameField, req.NameField))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		var buf bytes.Buffer
		out := sink.NewGeoJSON(&buf, nil)
		e := similarity.New(geometry.NewPlanar(geometry.ParseMode(mode)))
		canceled := progress.FromContext(ctx)
		var sum similarity.Summary
		if variant == similarity.VariantOverlap {
			sum, err = e.Overlap(oldSrc, newSrc, out, nil, canceled)
		} else {
			sum, err = e.Divergence(oldSrc, newSrc, out, nil, canceled)
		}
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		if sum.Canceled {
			logger.L().Info("compare_canceled", "variant", variant, "emitted", sum.Emitted)
			writeError(w, http.StatusServiceUnavailable, errors.New("comparison canceled"))
			return
		}
		if err := out.Close(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		b, err := json.Marshal(compareResponse{Summary: sum, Results: buf.Bytes()})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if d.Cache != nil {
			d.Cache.Set(ctx, key, b)
		}
		writeRaw(w, http.StatusOK, b)
	}
}

// jobSpec：以服务端配置为底，仅按请求替换变体、口径与 DataDir 下的 GeoJSON 文件
func (d Deps) jobSpec(req jobRequest) (jobs.Spec, error) {
	spec := d.JobDefaults
	spec.Kind = req.Kind
	spec.HausdorffMode = req.HausdorffMode
	if req.OldFile != "" {
		p, err := config.ResolveDataFile(d.DataDir, req.OldFile)
		if err != nil {
			return spec, err
		}
		spec.Old = config.SourceConfig{Kind: config.SourceGeoJSON, Path: p, NameField: fieldOr(spec.Old.NameField, "")}
	}
	if req.NewFile != "" {
		p, err := config.ResolveDataFile(d.DataDir, req.NewFile)
		if err != nil {
			return spec, err
		}
		spec.New = config.SourceConfig{Kind: config.SourceGeoJSON, Path: p, NameField: fieldOr(spec.New.NameField, "")}
	}
	if req.OutputFile != "" {
		p, err := config.ResolveDataFile(d.DataDir, req.OutputFile)
		if err != nil {
			return spec, err
		}
		kind := spec.Output.Kind
		if kind != config.OutputCSV {
			kind = config.OutputGeoJSON
		}
		spec.Output = config.OutputConfig{Kind: kind, Path: p}
	}
	return spec, nil
}

func cacheKey(variant, mode string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write(body)
	return "cmp:" + variant + ":" + hex.EncodeToString(h.Sum(nil))
}

func fieldOr(v, def string) string {
	if v != "" {
		return v
	}
	if def != "" {
		return def
	}
	return "name"
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, config.ErrConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		b = []byte(`{"error":"encode response"}`)
	}
	writeRaw(w, code, b)
}

func writeRaw(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, code int, err error) {
	logger.L().Debug("http_error", "status", code, "err", err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
