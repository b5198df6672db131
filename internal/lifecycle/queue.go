package lifecycle

import (
	"container/heap"
	"sync"
)

// Queue is a thread-safe priority queue of tasks. Higher-priority tasks
// pop first (removals carry PriorityHigh, so they drain before creates
// and updates); tasks of equal priority pop in FIFO order so indexing
// progress stays deterministic.
type Queue struct {
	mu   sync.Mutex
	heap taskHeap
	seq  int
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// Push enqueues a task.
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.heap, taskItem{task: t, seq: q.seq})
}

// Pop removes and returns the highest-priority task, or ok=false if the
// queue is empty.
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return Task{}, false
	}
	item := heap.Pop(&q.heap).(taskItem)
	return item.task, true
}

// Len reports the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

type taskItem struct {
	task Task
	seq  int // insertion order, breaks ties FIFO within a priority tier
}

type taskHeap []taskItem

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(taskItem))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
