package container

import "container/heap"

// UniqueHeap is a heap that keeps same values only once.
type UniqueHeap[T comparable] struct {
	has     map[T]bool
	removed map[T]bool
	heap    *sliceHeap[T]
}

// NewUniqueHeap creates a new UniqueHeap.
// The value for which less reports true against every other value pops first.
func NewUniqueHeap[T comparable](less func(a, b T) bool) *UniqueHeap[T] {
	return &UniqueHeap[T]{
		has:     make(map[T]bool),
		removed: make(map[T]bool),
		heap:    newSliceHeap(less),
	}
}

// Push pushs an element to the heap.
// If the element already exists in the heap, it will just skip it.
func (h *UniqueHeap[T]) Push(el T) {
	if h.removed[el] {
		delete(h.removed, el)
		return
	}
	if h.has[el] {
		return
	}
	h.has[el] = true
	heap.Push(h.heap, el)
}

// Remove marks an element as removed from the heap.
// It doesn't remove the element right away.
// Pop will clean removed elements internally.
func (h *UniqueHeap[T]) Remove(el T) {
	if !h.has[el] {
		return
	}
	h.removed[el] = true
}

// Pop pops an element from the heap.
// The second return value is false if the heap has no element.
func (h *UniqueHeap[T]) Pop() (T, bool) {
	for {
		if h.heap.Len() == 0 {
			var zero T
			return zero, false
		}
		el := heap.Pop(h.heap).(T)
		delete(h.has, el)
		if h.removed[el] {
			delete(h.removed, el)
			continue
		}
		return el, true
	}
}

// Len returns the number of elements that Pop would return.
func (h *UniqueHeap[T]) Len() int {
	return len(h.has) - len(h.removed)
}

// sliceHeap is a heap.Interface over a slice with a given less function.
type sliceHeap[T any] struct {
	heap []T
	less func(a, b T) bool
}

// newSliceHeap creates a new sliceHeap.
func newSliceHeap[T any](less func(a, b T) bool) *sliceHeap[T] {
	return &sliceHeap[T]{
		heap: make([]T, 0),
		less: less,
	}
}

// Len is length of the heap.
func (h sliceHeap[T]) Len() int {
	return len(h.heap)
}

// Less is less function of the heap.
func (h sliceHeap[T]) Less(i, j int) bool {
	return h.less(h.heap[i], h.heap[j])
}

// Swap swaps position of two values within the heap.
func (h sliceHeap[T]) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
}

// Push pushes an element to the heap.
func (h *sliceHeap[T]) Push(el interface{}) {
	h.heap = append(h.heap, el.(T))
}

// Pop pops an element from the heap.
func (h *sliceHeap[T]) Pop() interface{} {
	old := h.heap
	n := len(old)
	el := old[n-1]
	var zero T
	old[n-1] = zero // avoid memory leak
	h.heap = old[:n-1]
	return el
}
