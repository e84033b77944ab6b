package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()

	const goroutines = 50
	const increments = 100

	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				unlock := km.Lock("TCS.NS")
				counter++
				unlock()
			}
		}()
	}

	wg.Wait()

	if counter != goroutines*increments {
		t.Fatalf("lost updates: counter = %d, want %d", counter, goroutines*increments)
	}
}

func TestLockDifferentKeysIndependent(t *testing.T) {
	km := New()

	unlockA := km.Lock("A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("B")
		unlockB()
		close(done)
	}()

	// Locking B must not wait for A's holder.
	<-done
}

func TestLockReacquireAfterUnlock(t *testing.T) {
	km := New()

	unlock := km.Lock("A")
	unlock()

	unlock = km.Lock("A")
	unlock()
}
