package container

import (
	"reflect"
	"testing"
)

func TestUniqueQueue(t *testing.T) {
	jobA := "cn1k0qp8d3b6a7c0g1s0"
	jobB := "cn1k0qp8d3b6a7c0g1sg"
	jobs := []string{jobA, jobB, jobA}
	q := NewUniqueQueue[string]()
	for _, j := range jobs {
		q.Push(j)
	}
	if q.Len() != 2 {
		t.Fatalf("Len: got %v, want 2", q.Len())
	}
	got := make([]string, 0)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []string{jobA, jobB}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got: %v, want: %v", got, want)
	}
}

func TestUniqueQueueRemove(t *testing.T) {
	jobA := "cn1k0qp8d3b6a7c0g1s0"
	jobB := "cn1k0qp8d3b6a7c0g1sg"
	jobs := []string{jobA, jobB}
	q := NewUniqueQueue[string]()
	for _, j := range jobs {
		q.Push(j)
	}
	for _, j := range jobs {
		removed := q.Remove(j)
		if !removed {
			t.Fatalf("%v wasn't removed", j)
		}
	}
	if q.Remove(jobA) {
		t.Fatalf("%v removed twice", jobA)
	}
	if q.Len() != 0 {
		t.Fatalf("Len: got %v, want 0", q.Len())
	}
	v, ok := q.Pop()
	if ok {
		t.Fatalf("queue should be empty, got %v", v)
	}
}

func TestUniqueQueueRemoveThenPush(t *testing.T) {
	q := NewUniqueQueue[int]()
	for _, v := range []int{1, 2, 3} {
		q.Push(v)
	}
	q.Remove(1)
	q.Push(1)
	got := make([]int, 0)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got: %v, want: %v", got, want)
	}
}
