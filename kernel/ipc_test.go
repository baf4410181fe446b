package kernel

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestMailboxTryRecvEmpty(t *testing.T) {
	mb := NewMailbox[int](4)

	_, ok := mb.TryRecv()
	if ok {
		t.Fatalf("TryRecv() ok = true, want false")
	}
}

func TestMailboxTrySendFull(t *testing.T) {
	const depth = 8
	mb := NewMailbox[int](depth)

	for i := 0; i < depth; i++ {
		if ok := mb.TrySend(i); !ok {
			t.Fatalf("TrySend() ok = false at slot %d, want true", i)
		}
	}
	if ok := mb.TrySend(99); ok {
		t.Fatalf("TrySend() ok = true when full, want false")
	}
	if got := mb.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}

	for i := 0; i < depth; i++ {
		v, ok := mb.TryRecv()
		if !ok {
			t.Fatalf("TryRecv() ok = false at slot %d, want true", i)
		}
		if v != i {
			t.Fatalf("TryRecv() = %d, want %d (FIFO)", v, i)
		}
	}
	if mb.Len() != 0 {
		t.Fatalf("Len() = %d after drain, want 0", mb.Len())
	}
}

func TestMailboxRecvTimeout(t *testing.T) {
	mb := NewMailbox[string](1)

	start := time.Now()
	if _, ok := mb.RecvTimeout(10 * time.Millisecond); ok {
		t.Fatalf("RecvTimeout() on empty ok = true")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("RecvTimeout() returned before the deadline")
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		mb.TrySend("hello")
	}()
	v, ok := mb.RecvTimeout(time.Second)
	if !ok || v != "hello" {
		t.Fatalf("RecvTimeout() = (%q, %v), want (hello, true)", v, ok)
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 10_000
		total     = producers * perProd
	)

	mb := NewMailbox[uint32](8)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				id := uint32(producerID*perProd + i)
				for !mb.TrySend(id) {
					runtime.Gosched()
				}
			}
		}(producerID)
	}
	close(start)

	seen := make([]bool, total)
	for i := 0; i < total; i++ {
		id, ok := mb.RecvTimeout(time.Second)
		if !ok {
			t.Fatalf("RecvTimeout() timed out after %d values", i)
		}
		if int(id) >= total {
			t.Fatalf("RecvTimeout() id = %d, want < %d", id, total)
		}
		if seen[id] {
			t.Fatalf("RecvTimeout() duplicate id %d", id)
		}
		seen[id] = true
	}

	wg.Wait()
}
