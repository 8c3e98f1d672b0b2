package container

import (
	"reflect"
	"testing"
)

func intLess(a, b int) bool {
	return a < b
}

func popAll(h *UniqueHeap[int]) []int {
	got := []int{}
	for {
		v, ok := h.Pop()
		if !ok {
			return got
		}
		got = append(got, v)
	}
}

func TestUniqueHeap(t *testing.T) {
	cases := []struct {
		vals []int
		want []int
	}{
		{
			vals: []int{1, 1, 2, 3, 2, 4},
			want: []int{1, 2, 3, 4},
		},
		{
			vals: []int{4, 3, 2, 1},
			want: []int{1, 2, 3, 4},
		},
		{
			vals: []int{},
			want: []int{},
		},
	}
	for _, c := range cases {
		h := NewUniqueHeap(intLess)
		for _, v := range c.vals {
			h.Push(v)
		}
		if h.Len() != len(c.want) {
			t.Fatalf("Len: got %v, want %v", h.Len(), len(c.want))
		}
		got := popAll(h)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("got %v, want %v", got, c.want)
		}
	}
}

func TestUniqueHeapRemove(t *testing.T) {
	cases := []struct {
		vals   []int
		remove []int
		want   []int
	}{
		{
			vals:   []int{1, 2, 3, 4},
			remove: []int{1, 2},
			want:   []int{3, 4},
		},
		{
			vals:   []int{1, 2},
			remove: []int{5},
			want:   []int{1, 2},
		},
	}
	for _, c := range cases {
		h := NewUniqueHeap(intLess)
		for _, v := range c.vals {
			h.Push(v)
		}
		for _, v := range c.remove {
			h.Remove(v)
		}
		if h.Len() != len(c.want) {
			t.Fatalf("Len: got %v, want %v", h.Len(), len(c.want))
		}
		got := popAll(h)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("got %v, want %v", got, c.want)
		}
	}
}

func TestUniqueHeapRemoveThenPush(t *testing.T) {
	cases := []struct {
		vals           []int
		removeThenPush []int
		want           []int
	}{
		{
			vals:           []int{1, 2, 3, 4},
			removeThenPush: []int{1, 2},
			want:           []int{1, 2, 3, 4},
		},
	}
	for _, c := range cases {
		h := NewUniqueHeap(intLess)
		for _, v := range c.vals {
			h.Push(v)
		}
		for _, v := range c.removeThenPush {
			h.Remove(v)
			h.Push(v)
		}
		got := popAll(h)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("got %v, want %v", got, c.want)
		}
	}
}
