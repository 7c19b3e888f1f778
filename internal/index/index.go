// 包 index：按名称建立区域集合的查找索引
// 背景：旧版集合整体读入一次后，新版集合逐条流式匹配；查找需 O(1)。
// 约束：名称重复时后写覆盖（保留最后一条的几何），但遍历顺序取名称首次出现的位置；构建后只读，可被并发读取。
package index

import (
	"fmt"

	"polygon-overlap/internal/logger"
	"polygon-overlap/internal/progress"
	"polygon-overlap/internal/region"

	"github.com/peterstace/simplefeatures/geom"
)

type Index struct {
	names []region.Name
	geoms map[region.Name]geom.Geometry
	dups  int
}

func New(capacity int) *Index {
	if capacity < 0 {
		capacity = 0
	}
	return &Index{names: make([]region.Name, 0, capacity), geoms: make(map[region.Name]geom.Geometry, capacity)}
}

// Put：写入或覆盖
func (x *Index) Put(n region.Name, g geom.Geometry) {
	if _, ok := x.geoms[n]; ok {
		x.dups++
	} else {
		x.names = append(x.names, n)
	}
	x.geoms[n] = g
}

func (x *Index) Get(n region.Name) (geom.Geometry, bool) {
	g, ok := x.geoms[n]
	return g, ok
}

func (x *Index) Len() int { return len(x.names) }

// Names：按首次出现顺序返回名称；返回切片为只读视图
func (x *Index) Names() []region.Name { return x.names }

// Duplicates：被覆盖的记录数
func (x *Index) Duplicates() int { return x.dups }

// Build：从来源构建索引
// 约束：每条记录处理前先轮询取消、再上报进度；取消不是错误，返回部分索引与 complete=false
// 返回：读取失败（文件损坏、几何解析失败、数据库错误）时返回 error
func Build(src region.Source, st *progress.Stepper, canceled progress.Canceled) (*Index, bool, error) {
	total := src.Count()
	x := New(total)
	it, err := src.Open()
	if err != nil {
		return x, false, fmt.Errorf("open source: %w", err)
	}
	defer it.Close()
	if st == nil {
		st = progress.NewStepper(nil, 0, 0, 0)
	}
	i := 0
	for {
		if progress.Poll(canceled) {
			logger.L().Info("index_build_canceled", "read", i, "total", total)
			return x, false, nil
		}
		st.Step(i)
		if !it.Next() {
			break
		}
		r := it.Record()
		x.Put(r.Name, r.Geometry)
		i++
	}
	if err := it.Err(); err != nil {
		return x, false, fmt.Errorf("read source at record %d: %w", i, err)
	}
	st.Done()
	logger.L().Debug("index_build_done", "records", i, "names", x.Len(), "duplicates", x.dups)
	return x, true, nil
}
