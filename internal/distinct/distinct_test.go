package distinct

import "testing"

type point struct{ X, Y int }

func TestFilter_DropsRepeats(t *testing.T) {
	for name, cmp := range map[string]Comparator{
		"equal": EqualComparator{},
		"hash":  HashComparator{},
	} {
		t.Run(name, func(t *testing.T) {
			f := NewFilter(cmp)
			steps := []struct {
				method string
				args   []any
				want   bool
			}{
				{"ShowText", []any{"a"}, true},
				{"ShowText", []any{"a"}, false},
				{"ShowText", []any{"b"}, true},
				{"ShowText", []any{"a"}, true},
				{"ShowCount", []any{"a"}, true},
				{"ShowCount", []any{1}, true},
				{"ShowCount", []any{1}, false},
				{"Move", []any{point{1, 2}, true}, true},
				{"Move", []any{point{1, 2}, true}, false},
				{"Move", []any{point{1, 2}, false}, true},
				{"Refresh", nil, true},
				{"Refresh", nil, false},
			}
			for i, step := range steps {
				if got := f.Allow(step.method, step.args...); got != step.want {
					t.Fatalf("step %d Allow(%s, %v) = %v, want %v", i, step.method, step.args, got, step.want)
				}
			}
		})
	}
}

func TestHashComparator_TypesDiffer(t *testing.T) {
	f := NewFilter(HashComparator{})
	f.Allow("Show", 1)
	if !f.Allow("Show", "1") {
		t.Fatalf("int and string arguments treated as the same call")
	}
}

func TestHashComparator_DetectsMutation(t *testing.T) {
	f := NewFilter(HashComparator{})
	items := []string{"a"}
	f.Allow("Show", items)
	items[0] = "b"
	if !f.Allow("Show", items) {
		t.Fatalf("mutated slice treated as a repeat")
	}
}

func TestFilter_ClearCache(t *testing.T) {
	f := NewFilter(nil)
	f.Allow("Show", "x")
	f.ClearCache()
	if !f.Allow("Show", "x") {
		t.Fatalf("call dropped after ClearCache")
	}
}

func TestFilter_Call(t *testing.T) {
	f := NewFilter(nil)
	calls := 0
	for i := 0; i < 3; i++ {
		f.Call("Show", func() { calls++ }, "same")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
