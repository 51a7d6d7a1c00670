package engine

import "sync/atomic"

// TaskSource hands out unique task indices up to a bound. It is the single
// source of work-distribution truth for a stage: safe for concurrent use,
// never yields the same index twice, and stays exhausted once the bound is
// reached.
type TaskSource struct {
	limit int64
	next  int64
}

func NewTaskSource(limit int64) *TaskSource {
	if limit < 0 {
		limit = 0
	}
	return &TaskSource{limit: limit}
}

// Next claims the next task index. The second return value is false once the
// bound has been reached; further calls keep returning false.
func (s *TaskSource) Next() (int64, bool) {
	n := atomic.AddInt64(&s.next, 1) - 1
	if n >= s.limit {
		return 0, false
	}
	return n, true
}

// Limit returns the total number of indices the source will ever issue.
func (s *TaskSource) Limit() int64 {
	return s.limit
}
