package tuple

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIntern_Identity(t *testing.T) {
	in := NewInterner()

	a := in.Of(1, 2, 3)
	b := in.Intern([]int{1, 2, 3})
	c := in.Of(1, 2, 4)

	if a != b {
		t.Errorf("Intern([1,2,3]) returned two different handles")
	}
	if a == c {
		t.Errorf("Intern([1,2,3]) == Intern([1,2,4]), want different")
	}
	if a.ID() == c.ID() {
		t.Errorf("distinct tuples share ID %d", a.ID())
	}
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
}

func TestIntern_CopiesInput(t *testing.T) {
	in := NewInterner()
	vals := []int{7, 8}
	tup := in.Intern(vals)
	vals[0] = 99

	if diff := cmp.Diff([]int{7, 8}, tup.Values()); diff != "" {
		t.Errorf("tuple mutated through caller slice (-want +got):\n%s", diff)
	}
	if in.Of(7, 8) != tup {
		t.Errorf("re-interning original content returned a new handle")
	}
}

func TestIntern_EmptyIsZero(t *testing.T) {
	in := NewInterner()
	empty := in.Intern(nil)
	if !empty.IsZero() || empty != (SmallTuple{}) {
		t.Errorf("empty tuple should be the zero handle")
	}
	if empty.Len() != 0 || empty.String() != "()" {
		t.Errorf("empty tuple: Len=%d String=%q", empty.Len(), empty.String())
	}
}

func TestIntern_NegativeAndLargeValues(t *testing.T) {
	in := NewInterner()
	a := in.Of(-1, 1<<40)
	b := in.Of(-1, 1<<40)
	if a != b {
		t.Errorf("varint key collision handling broke identity")
	}
	if a.At(0) != -1 || a.At(1) != 1<<40 {
		t.Errorf("At() returned wrong values: %v", a)
	}
}

func TestLookup_DoesNotIntern(t *testing.T) {
	in := NewInterner()
	a := in.Of(5, 6)

	got, ok := in.Lookup([]int{5, 6})
	if !ok || got != a {
		t.Errorf("Lookup(5, 6) = %v, %v; want the interned handle", got, ok)
	}
	if _, ok := in.Lookup([]int{6, 5}); ok {
		t.Errorf("Lookup found a tuple that was never interned")
	}
	if in.Len() != 1 {
		t.Errorf("Lookup grew the arena to %d tuples", in.Len())
	}
	if empty, ok := in.Lookup(nil); !ok || !empty.IsZero() {
		t.Errorf("Lookup(nil) should return the empty tuple")
	}
}

func TestByID(t *testing.T) {
	in := NewInterner()
	a := in.Of(4, 5)
	got, ok := in.ByID(a.ID())
	if !ok || got != a {
		t.Fatalf("ByID(%d) = %v, %v", a.ID(), got, ok)
	}
	if _, ok := in.ByID(1000); ok {
		t.Errorf("ByID(1000) should fail on a small arena")
	}
}

func TestHasPrefix(t *testing.T) {
	in := NewInterner()
	tup := in.Of(1, 2, 3)
	tests := []struct {
		prefix []int
		want   bool
	}{
		{nil, true},
		{[]int{1}, true},
		{[]int{1, 2, 3}, true},
		{[]int{2}, false},
		{[]int{1, 2, 3, 4}, false},
	}
	for _, tt := range tests {
		if got := tup.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%v) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestIntern_Concurrent(t *testing.T) {
	in := NewInterner()
	const workers = 8

	results := make([]SmallTuple, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				in.Of(i, i+1)
			}
			results[w] = in.Of(3, 1, 4)
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		if results[w] != results[0] {
			t.Fatalf("worker %d got a different handle for the same content", w)
		}
	}
	if in.Len() != 101 {
		t.Errorf("Len() = %d, want 101", in.Len())
	}
}
