package search

import (
	"container/heap"

	"liftplan/internal/heuristic"
)

// openList holds the frontier of a search.
type openList interface {
	push(id StateID, h heuristic.Value)
	pop() (StateID, bool)
	len() int
}

// fifo pops in insertion order.
type fifo struct {
	items []StateID
	head  int
}

func (q *fifo) push(id StateID, _ heuristic.Value) { q.items = append(q.items, id) }

func (q *fifo) pop() (StateID, bool) {
	if q.head == len(q.items) {
		return NoState, false
	}
	id := q.items[q.head]
	q.head++
	// release the consumed prefix once it dominates the slice
	if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0:0], q.items[q.head:]...)
		q.head = 0
	}
	return id, true
}

func (q *fifo) len() int { return len(q.items) - q.head }

type openEntry[T any] struct {
	id  T
	h   heuristic.Value
	seq uint64
}

type entryHeap[T any] []openEntry[T]

func (h entryHeap[T]) Len() int { return len(h) }
func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) { *h = append(*h, x.(openEntry[T])) }

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// bestFirst pops the lowest heuristic value, oldest first among equals.
// Entries are state ids, or node indexes in the partial-action search.
type bestFirst[T any] struct {
	entries entryHeap[T]
	seq     uint64
}

func (q *bestFirst[T]) push(id T, h heuristic.Value) {
	heap.Push(&q.entries, openEntry[T]{id: id, h: h, seq: q.seq})
	q.seq++
}

func (q *bestFirst[T]) pop() (T, bool) {
	if len(q.entries) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&q.entries).(openEntry[T]).id, true
}

func (q *bestFirst[T]) len() int { return len(q.entries) }
