package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnboundedDeliversEverything(t *testing.T) {
	h := New[int](Unbounded, 0)
	ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < 100; i++ {
		h.Publish(i)
	}

	for i := 0; i < 100; i++ {
		select {
		case v := <-ch:
			require.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for value %d", i)
		}
	}
}

func TestDroppingDiscardsNewestOnFull(t *testing.T) {
	h := New[int](Dropping, 1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(1)
	h.Publish(2) // dropped, buffer already full with 1

	require.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected second value %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlidingDiscardsOldestOnFull(t *testing.T) {
	h := New[int](Sliding, 1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(1)
	h.Publish(2) // 1 is dropped to make room

	require.Equal(t, 2, <-ch)
}

func TestBackpressureBlocksUntilRoom(t *testing.T) {
	h := New[int](Backpressure, 1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(1)
	done := make(chan struct{})
	go func() {
		h.Publish(2) // blocks until ch is drained
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Publish should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, 1, <-ch)
	<-done
	require.Equal(t, 2, <-ch)
}

func TestSubscribersOnlySeeValuesAfterSubscribe(t *testing.T) {
	h := New[int](Dropping, 4)
	h.Publish(1) // no subscribers yet

	ch, cancel := h.Subscribe()
	defer cancel()
	h.Publish(2)

	require.Equal(t, 2, <-ch)
}

func TestCancelStopsDelivery(t *testing.T) {
	h := New[int](Unbounded, 0)
	ch, cancel := h.Subscribe()
	require.Equal(t, 1, h.Subscribers())
	cancel()
	require.Equal(t, 0, h.Subscribers())

	h.Publish(42)
	select {
	case v, ok := <-ch:
		t.Fatalf("unexpected delivery after cancel: %v ok=%v", v, ok)
	case <-time.After(50 * time.Millisecond):
	}
}
