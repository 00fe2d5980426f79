package logic

import "testing"

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(10)
	if w.Len() != 0 {
		t.Errorf("expected empty window, got %d", w.Len())
	}
	if w.IsFull() {
		t.Error("empty window should not be full")
	}
	if got := w.Values(); len(got) != 0 {
		t.Errorf("expected no values, got %v", got)
	}
	if w.Cap() != 10 {
		t.Errorf("expected capacity 10, got %d", w.Cap())
	}
}

func TestWindowPushBelowCapacity(t *testing.T) {
	w := NewWindow(5)
	for i := 0; i < 3; i++ {
		w.Push(float64(i))
	}

	if w.Len() != 3 {
		t.Fatalf("expected 3 values, got %d", w.Len())
	}
	if w.IsFull() {
		t.Error("window with 3/5 should not be full")
	}
	got := w.Values()
	for i := 0; i < 3; i++ {
		if got[i] != float64(i) {
			t.Errorf("value %d: expected %v, got %v", i, float64(i), got[i])
		}
	}
}

func TestWindowFillToCapacity(t *testing.T) {
	w := NewWindow(4)
	for i := 0; i < 4; i++ {
		w.Push(float64(i))
	}
	if !w.IsFull() {
		t.Error("expected full window")
	}
	if w.Len() != 4 {
		t.Errorf("expected 4 values, got %d", w.Len())
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	cap := 5
	w := NewWindow(cap)

	// Push cap+3 values (0..7), window should keep the most recent 5 (3..7)
	for i := 0; i < cap+3; i++ {
		w.Push(float64(i))
	}

	got := w.Values()
	if len(got) != cap {
		t.Fatalf("expected %d values, got %d", cap, len(got))
	}
	for i := 0; i < cap; i++ {
		want := float64(i + 3)
		if got[i] != want {
			t.Errorf("value %d: expected %v, got %v", i, want, got[i])
		}
	}
}

// TestWindowKeepsMostRecent checks len == min(pushes, W) and the contents
// after every push, for several capacities.
func TestWindowKeepsMostRecent(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 7, 10} {
		w := NewWindow(capacity)
		var pushed []float64
		for n := 1; n <= 3*capacity+1; n++ {
			v := float64(n * 11)
			w.Push(v)
			pushed = append(pushed, v)

			wantLen := n
			if wantLen > capacity {
				wantLen = capacity
			}
			if w.Len() != wantLen {
				t.Fatalf("cap=%d pushes=%d: expected len %d, got %d", capacity, n, wantLen, w.Len())
			}

			want := pushed[len(pushed)-wantLen:]
			got := w.Values()
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("cap=%d pushes=%d: expected %v, got %v", capacity, n, want, got)
				}
			}
		}
	}
}

func TestWindowValuesIsCopy(t *testing.T) {
	w := NewWindow(3)
	w.Push(1)
	w.Push(2)

	got := w.Values()
	got[0] = 99

	if w.Values()[0] != 1 {
		t.Error("mutating Values() result should not affect the window")
	}
}

func TestWindowZeroCapacity(t *testing.T) {
	w := NewWindow(0)
	if w.Cap() != 1 {
		t.Errorf("expected capacity to be clamped to 1, got %d", w.Cap())
	}
	w.Push(5)
	w.Push(6)
	got := w.Values()
	if len(got) != 1 || got[0] != 6 {
		t.Errorf("expected [6], got %v", got)
	}
}
