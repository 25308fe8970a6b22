package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/fluxmon/fluxmon/internal/types"
)

func reading(id int64, ts time.Time) types.Reading {
	return types.Reading{
		ID:        id,
		SensorID:  "TEMP_001",
		Value:     float64(id),
		Timestamp: ts,
		Unit:      "°C",
		Location:  "Room A",
	}
}

func TestRingBuffer_Basic(t *testing.T) {
	rb := New[types.Reading](10)

	if rb.Cap() != 10 {
		t.Errorf("expected capacity=10, got %d", rb.Cap())
	}

	if rb.Count() != 0 {
		t.Errorf("new buffer should be empty, got count=%d", rb.Count())
	}

	if got := rb.GetAll(); got != nil {
		t.Errorf("GetAll on empty buffer should be nil, got %v", got)
	}
}

func TestRingBuffer_EvictionOrder(t *testing.T) {
	// Capacity C, insert C+k items: count stays C and GetAll returns
	// the last C in insertion order.
	const c, k = 5, 3
	rb := New[types.Reading](c)

	now := time.Now()
	for i := int64(0); i < c+k; i++ {
		rb.Add(reading(i, now.Add(time.Duration(i)*time.Second)))
	}

	if rb.Count() != c {
		t.Fatalf("expected count=%d, got %d", c, rb.Count())
	}

	all := rb.GetAll()
	if len(all) != c {
		t.Fatalf("expected %d elements, got %d", c, len(all))
	}
	for i, r := range all {
		want := int64(k + i)
		if r.ID != want {
			t.Errorf("GetAll[%d]: expected id=%d, got %d", i, want, r.ID)
		}
	}
}

func TestRingBuffer_EndToEndCapacity3(t *testing.T) {
	rb := New[types.Reading](3)

	now := time.Now()
	for i := int64(0); i < 5; i++ {
		rb.Add(reading(i, now.Add(time.Duration(i)*time.Second)))
	}

	all := rb.GetAll()
	if len(all) != 3 || all[0].ID != 2 || all[1].ID != 3 || all[2].ID != 4 {
		t.Errorf("expected GetAll ids [2 3 4], got %v", ids(all))
	}

	latest := rb.GetLatest(2)
	if len(latest) != 2 || latest[0].ID != 3 || latest[1].ID != 4 {
		t.Errorf("expected GetLatest(2) ids [3 4], got %v", ids(latest))
	}
}

func TestRingBuffer_GetLatest(t *testing.T) {
	rb := New[types.Reading](10)

	now := time.Now()
	for i := int64(0); i < 6; i++ {
		rb.Add(reading(i, now.Add(time.Duration(i)*time.Second)))
	}

	// n >= Count returns everything oldest-first.
	all := rb.GetLatest(100)
	if len(all) != 6 || all[0].ID != 0 || all[5].ID != 5 {
		t.Errorf("GetLatest(100): expected ids [0..5], got %v", ids(all))
	}

	// n < Count returns exactly the last n oldest-first.
	last3 := rb.GetLatest(3)
	if len(last3) != 3 || last3[0].ID != 3 || last3[2].ID != 5 {
		t.Errorf("GetLatest(3): expected ids [3 4 5], got %v", ids(last3))
	}

	if got := rb.GetLatest(0); got != nil {
		t.Errorf("GetLatest(0) should be nil, got %v", got)
	}
}

func TestRingBuffer_GetRange(t *testing.T) {
	rb := New[types.Reading](10)

	base := time.Now()
	for i := int64(0); i < 5; i++ {
		rb.Add(reading(i, base.Add(time.Duration(i)*time.Minute)))
	}

	// Inclusive on both ends.
	got := rb.GetRange(base.Add(1*time.Minute), base.Add(3*time.Minute))
	if len(got) != 3 || got[0].ID != 1 || got[2].ID != 3 {
		t.Errorf("GetRange: expected ids [1 2 3], got %v", ids(got))
	}

	// Empty buffer, empty result.
	empty := New[types.Reading](10)
	if got := empty.GetRange(base, base.Add(time.Hour)); got != nil {
		t.Errorf("GetRange on empty buffer should be nil, got %v", got)
	}
}

func TestRingBuffer_GetAfter(t *testing.T) {
	rb := New[types.Reading](10)

	now := time.Now()
	for i := int64(1); i <= 5; i++ {
		rb.Add(reading(i, now))
	}

	got := rb.GetAfter(3)
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 5 {
		t.Errorf("GetAfter(3): expected ids [4 5], got %v", ids(got))
	}

	if got := rb.GetAfter(5); got != nil {
		t.Errorf("GetAfter(5) should be nil, got %v", ids(got))
	}
}

func TestRingBuffer_ConcurrentReadersSingleWriter(t *testing.T) {
	rb := New[types.Reading](1000)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Concurrent readers must never observe torn state.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				all := rb.GetAll()
				for j := 1; j < len(all); j++ {
					if all[j].ID != all[j-1].ID+1 {
						t.Errorf("non-contiguous ids: %d then %d", all[j-1].ID, all[j].ID)
						return
					}
				}
				rb.GetLatest(100)
				rb.Count()
			}
		}()
	}

	now := time.Now()
	for i := int64(0); i < 5000; i++ {
		rb.Add(reading(i, now))
	}
	close(stop)
	wg.Wait()

	if rb.Count() != 1000 {
		t.Errorf("expected count=1000, got %d", rb.Count())
	}
}

func ids(rs []types.Reading) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
