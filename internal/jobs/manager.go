package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/similarity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 任务不存在（本进程与 Redis 镜像均无记录）
var ErrNotFound = errors.New("job not found")

const (
	StatusQueued   = "queued"
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusCanceled = "canceled"
	StatusFailed   = "failed"
)

// Job：任务快照
type Job struct {
	ID       string              `json:"id"`
	Kind     string              `json:"kind"`
	Status   string              `json:"status"`
	Progress int                 `json:"progress"`
	Summary  *similarity.Summary `json:"summary,omitempty"`
	Error    string              `json:"error,omitempty"`
	Created  time.Time           `json:"created"`
	Updated  time.Time           `json:"updated"`
}

// Finished：是否处于终态
func (j Job) Finished() bool {
	return j.Status == StatusDone || j.Status == StatusCanceled || j.Status == StatusFailed
}

// Runner：执行一次比对；生产环境为 Execute 的闭包，测试中可替换
type Runner func(ctx context.Context, id string, spec Spec, prog progress.Sink) (similarity.Summary, error)

type entry struct {
	job    Job
	cancel context.CancelFunc
}

// 文档注释：任务管理器
// 背景：负责任务登记、后台运行、进度更新与取消；每个任务一个协程，进度与状态可选镜像到 Redis（job:<id>）。
// 约束：线程安全读写；Redis 不可用时仅记录日志，不影响任务本身；镜像键带 TTL。
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*entry
	order []string
	run   Runner
	rdb   *redis.Client
	ttl   time.Duration
	wg    sync.WaitGroup
	now   func() time.Time
}

func NewManager(run Runner, rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{jobs: make(map[string]*entry), run: run, rdb: rdb, ttl: ttl, now: time.Now}
}

func redisKey(id string) string { return "job:" + id }

// Submit：登记并在后台启动任务
func (m *Manager) Submit(spec Spec) (Job, error) {
	if err := spec.Validate(); err != nil {
		return Job{}, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	now := m.now()
	j := Job{ID: uuid.NewString(), Kind: spec.Kind, Status: StatusQueued, Created: now, Updated: now}
	m.mu.Lock()
	m.jobs[j.ID] = &entry{job: j, cancel: cancel}
	m.order = append(m.order, j.ID)
	m.mu.Unlock()
	m.mirror(j)
	logger.L().Info("job_submitted", "id", j.ID, "kind", j.Kind)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.update(j.ID, func(j *Job) { j.Status = StatusRunning })
		prog := progress.Func(func(p int) { m.update(j.ID, func(j *Job) { j.Progress = p }) })
		sum, err := m.run(ctx, j.ID, spec, prog)
		m.update(j.ID, func(j *Job) {
			j.Summary = &sum
			switch {
			case err != nil && errors.Is(err, context.Canceled):
				j.Status = StatusCanceled
			case err != nil:
				j.Status = StatusFailed
				j.Error = err.Error()
			case sum.Canceled:
				j.Status = StatusCanceled
			default:
				j.Status = StatusDone
				j.Progress = 100
			}
		})
		final, _ := m.local(j.ID)
		if final.Status == StatusFailed {
			logger.L().Error("job_failed", "id", j.ID, "err", err)
		} else {
			logger.L().Info("job_finished", "id", j.ID, "status", final.Status, "emitted", sum.Emitted)
		}
	}()
	return j, nil
}

// Get：先查本进程，再查 Redis 镜像
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	if j, ok := m.local(id); ok {
		return j, nil
	}
	if m.rdb == nil {
		return Job{}, ErrNotFound
	}
	vals, err := m.rdb.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return Job{}, err
	}
	if len(vals) == 0 {
		return Job{}, ErrNotFound
	}
	return fromHash(id, vals), nil
}

// List：本进程任务，按提交顺序
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].job)
	}
	return out
}

// Cancel：请求协作式停止；已结束的任务原样返回
func (m *Manager) Cancel(id string) (Job, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	e.cancel()
	logger.L().Info("job_cancel_requested", "id", id)
	j, _ := m.local(id)
	return j, nil
}

// Shutdown：取消全部任务并等待协程退出
func (m *Manager) Shutdown() {
	m.mu.RLock()
	for _, e := range m.jobs {
		e.cancel()
	}
	m.mu.RUnlock()
	m.wg.Wait()
}

// Wait：等待全部任务结束
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) local(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

func (m *Manager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	fn(&e.job)
	e.job.Updated = m.now()
	j := e.job
	m.mu.Unlock()
	m.mirror(j)
}

func (m *Manager) mirror(j Job) {
	if m.rdb == nil {
		return
	}
	fields := map[string]any{
		"kind":     j.Kind,
		"status":   j.Status,
		"progress": j.Progress,
		"error":    j.Error,
		"created":  j.Created.Format(time.RFC3339Nano),
		"updated":  j.Updated.Format(time.RFC3339Nano),
	}
	if j.Summary != nil {
		if b, err := json.Marshal(j.Summary); err == nil {
			fields["summary"] = string(b)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := m.rdb.Pipeline()
	pipe.HSet(ctx, redisKey(j.ID), fields)
	pipe.Expire(ctx, redisKey(j.ID), m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Debug("job_mirror_error", "id", j.ID, "err", err)
	}
}

func fromHash(id string, vals map[string]string) Job {
	j := Job{ID: id, Kind: vals["kind"], Status: vals["status"], Error: vals["error"]}
	j.Progress, _ = strconv.Atoi(vals["progress"])
	j.Created, _ = time.Parse(time.RFC3339Nano, vals["created"])
	j.Updated, _ = time.Parse(time.RFC3339Nano, vals["updated"])
	if s := vals["summary"]; s != "" {
		var sum similarity.Summary
		if err := json.Unmarshal([]byte(s), &sum); err == nil {
			j.Summary = &sum
		}
	}
	return j
}
