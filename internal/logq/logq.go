// Package logq keeps the most recent log records in a bounded in-memory ring
// so the log tab can display them live. Records are fed in through a zapcore
// adapter (see core.go), so the whole process logs through one zap logger and
// the queue sees every record.
package logq

import (
	"sync"
	"time"
)

// DefaultCapacity matches the size of the scrollback the log tab renders.
const DefaultCapacity = 1000

// Record is one structured log entry.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Logger  string
	Caller  string
}

// Queue is a bounded FIFO of log records. When full, appending evicts the
// oldest record. Hooks registered on the queue fire synchronously for every
// appended record, before any eviction bookkeeping is visible to them.
type Queue struct {
	mu       sync.Mutex
	capacity int
	records  []Record
	start    int
	count    int
	nextHook int
	hooks    map[int]func(Record)
}

// New returns an empty queue with the given capacity. Capacity values below
// one fall back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		records:  make([]Record, capacity),
		hooks:    make(map[int]func(Record)),
	}
}

var (
	defaultQueue     *Queue
	defaultQueueOnce sync.Once
)

// Default returns the process-scoped queue. It is created empty with
// DefaultCapacity on first use and lives for the whole process.
func Default() *Queue {
	defaultQueueOnce.Do(func() {
		defaultQueue = New(DefaultCapacity)
	})
	return defaultQueue
}

// Push appends a record, evicting the oldest when the queue is full, then
// invokes every registered hook with the record.
func (q *Queue) Push(r Record) {
	q.mu.Lock()
	if q.count == q.capacity {
		q.start = (q.start + 1) % q.capacity
		q.count--
	}
	q.records[(q.start+q.count)%q.capacity] = r
	q.count++
	hooks := make([]func(Record), 0, len(q.hooks))
	for _, h := range q.hooks {
		hooks = append(hooks, h)
	}
	q.mu.Unlock()

	for _, h := range hooks {
		h(r)
	}
}

// Len returns the number of records currently held.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Records returns the held records, oldest first.
func (q *Queue) Records() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.records[(q.start+i)%q.capacity]
	}
	return out
}

// Hook registers fn to run synchronously on every pushed record and returns
// an id for Unhook.
func (q *Queue) Hook(fn func(Record)) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextHook
	q.nextHook++
	q.hooks[id] = fn
	return id
}

// Unhook removes a previously registered hook. Unknown ids are ignored.
func (q *Queue) Unhook(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.hooks, id)
}
