package notify

import (
	"sync"
	"testing"
)

func TestSubscribeReplaysCurrent(t *testing.T) {
	b := New([]int{})
	b.Publish([]int{1})
	b.Publish([]int{1, 2})
	b.Publish([]int{1, 2, 3})

	var calls [][]int
	unsub := b.Subscribe(func(v []int) { calls = append(calls, v) })
	defer unsub()

	if len(calls) != 1 {
		t.Fatalf("expected exactly one replay, got %d", len(calls))
	}
	if len(calls[0]) != 3 {
		t.Fatalf("expected replay of 3 values, got %v", calls[0])
	}
}

func TestPublishOrderAndUnsubscribe(t *testing.T) {
	b := New(0)
	var order []string
	unsubA := b.Subscribe(func(v int) { order = append(order, "a") })
	unsubB := b.Subscribe(func(v int) { order = append(order, "b") })
	order = nil

	b.Publish(1)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected subscription order a,b got %v", order)
	}

	unsubA()
	unsubA() // idempotent
	order = nil
	b.Publish(2)
	if len(order) != 1 || order[0] != "b" {
		t.Fatalf("expected only b after unsubscribe, got %v", order)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Len())
	}
	unsubB()
	if b.Current() != 2 {
		t.Fatalf("expected current 2, got %d", b.Current())
	}
}

func TestClose(t *testing.T) {
	b := New("init")
	got := ""
	unsub := b.Subscribe(func(v string) { got = v })
	b.Close()
	b.Publish("after")
	if got != "init" {
		t.Fatalf("publish after close must be dropped, got %q", got)
	}
	unsub() // no-op after close

	replayed := ""
	b.Subscribe(func(v string) { replayed = v })
	if replayed != "init" {
		t.Fatalf("expected replay of last value, got %q", replayed)
	}
	if b.Len() != 0 {
		t.Fatalf("closed broadcaster must not register subscribers")
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New(0)
	var mu sync.Mutex
	seen := 0
	b.Subscribe(func(int) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			b.Publish(v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen != 51 {
		t.Fatalf("expected 51 deliveries, got %d", seen)
	}
}
