package region

// Slice：内存记录来源，供 HTTP 同步比对与测试使用
type Slice []Record

func (s Slice) Count() int { return len(s) }

func (s Slice) Open() (Iterator, error) { return &sliceIter{recs: s, pos: -1}, nil }

type sliceIter struct {
	recs []Record
	pos  int
}

func (it *sliceIter) Next() bool {
	if it.pos+1 >= len(it.recs) {
		it.pos = len(it.recs)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIter) Record() Record { return it.recs[it.pos] }
func (it *sliceIter) Err() error     { return nil }
func (it *sliceIter) Close() error   { return nil }
