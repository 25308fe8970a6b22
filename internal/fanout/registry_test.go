package fanout

import (
	"sync"
	"testing"
	"time"
)

func TestRegistry_SubscribeReceivesInOrder(t *testing.T) {
	r := NewRegistry[int]("test")

	sub := r.Subscribe(16)
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		r.Broadcast(i)
	}

	for want := 1; want <= 5; want++ {
		select {
		case got := <-sub.C():
			if got != want {
				t.Errorf("expected %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d", want)
		}
	}
}

func TestRegistry_LateSubscriberMissesEarlierItems(t *testing.T) {
	r := NewRegistry[int]("test")

	r.Broadcast(1)

	sub := r.Subscribe(16)
	defer sub.Close()

	r.Broadcast(2)

	select {
	case got := <-sub.C():
		if got != 2 {
			t.Errorf("late subscriber must only see items after Subscribe, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	select {
	case got := <-sub.C():
		t.Errorf("unexpected extra item %d", got)
	default:
	}
}

func TestRegistry_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry[int]("test")

	slow := r.Subscribe(1) // tiny queue, never drained
	defer slow.Close()
	fast := r.Subscribe(16)
	defer fast.Close()

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 3; i++ {
			r.Broadcast(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	for want := 1; want <= 3; want++ {
		if got := <-fast.C(); got != want {
			t.Errorf("fast subscriber: expected %d, got %d", want, got)
		}
	}

	// Slow queue holds only the first item; the rest were dropped.
	if got := <-slow.C(); got != 1 {
		t.Errorf("slow subscriber: expected 1, got %d", got)
	}
	if r.Dropped() != 2 {
		t.Errorf("expected 2 drops, got %d", r.Dropped())
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	r := NewRegistry[int]("test")

	sub := r.Subscribe(1)
	sub.Close()
	sub.Close() // must not panic

	if r.Len() != 0 {
		t.Errorf("expected 0 subscribers after Close, got %d", r.Len())
	}

	// Channel is closed after Close.
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed after Close")
	}

	// Broadcasting after Close must not panic.
	r.Broadcast(42)
}

func TestRegistry_ConcurrentChurnDuringBroadcast(t *testing.T) {
	r := NewRegistry[int]("test")

	stable := r.Subscribe(4096)
	defer stable.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Churning subscribers while broadcasting must not crash or wedge.
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
				sub := r.Subscribe(1)
				sub.Close()
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		r.Broadcast(i)
	}
	close(stop)
	wg.Wait()

	// The stable subscriber's queue was never full, so it lost nothing
	// and saw every item in broadcast order.
	for want := 0; want < 1000; want++ {
		select {
		case got := <-stable.C():
			if got != want {
				t.Fatalf("expected %d, got %d", want, got)
			}
		default:
			t.Fatalf("missing item %d", want)
		}
	}
}
