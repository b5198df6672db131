package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePopReturnsHighestPriorityFirst(t *testing.T) {
	q := NewQueue()
	q.Push(Task{Path: "low.txt", Priority: PriorityLow})
	q.Push(Task{Path: "high.txt", Priority: PriorityHigh})
	q.Push(Task{Path: "normal.txt", Priority: PriorityNormal})

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "high.txt", first.Path)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "normal.txt", second.Path)

	third, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "low.txt", third.Path)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueIsFIFOWithinAPriorityTier(t *testing.T) {
	q := NewQueue()
	q.Push(Task{Path: "first.txt", Priority: PriorityNormal})
	q.Push(Task{Path: "second.txt", Priority: PriorityNormal})
	q.Push(Task{Path: "third.txt", Priority: PriorityNormal})

	for _, want := range []string{"first.txt", "second.txt", "third.txt"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got.Path)
	}
}

func TestQueueRemovalsOutrankCreatesAndUpdates(t *testing.T) {
	q := NewQueue()
	q.Push(NewTask("f1", "a.txt", OpCreateEmbeddings))
	q.Push(NewTask("f1", "b.txt", OpUpdateEmbeddings))
	q.Push(NewTask("f1", "c.txt", OpRemoveEmbeddings))

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, OpRemoveEmbeddings, first.Operation)
}

func TestQueueLenReflectsPendingTasks(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())

	q.Push(Task{Path: "a.txt"})
	q.Push(Task{Path: "b.txt"})
	assert.Equal(t, 2, q.Len())

	_, _ = q.Pop()
	assert.Equal(t, 1, q.Len())
}

func TestQueuePopOnEmptyQueueReportsNotOK(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	assert.False(t, ok)
}
