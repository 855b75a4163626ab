package block

import (
	"sync"
	"testing"
	"time"
)

func TestLockExcludesConcurrentAccess(t *testing.T) {
	lt := newLockTable()
	l := lt.get(5)

	l.Lock()
	locked := make(chan struct{})
	go func() {
		lt.get(5).Lock()
		close(locked)
	}()

	select {
	case <-locked:
		t.Fatal("second exclusive lock acquired while first still held")
	case <-time.After(20 * time.Millisecond):
	}
	l.Unlock()

	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after unlock")
	}
}

func TestLockMultiOrdersAscendingAndDedupes(t *testing.T) {
	lt := &lockTable{locks: make(map[int]*sync.RWMutex)}
	bf := &File{locks: lt}

	unlock := bf.LockMulti(5, 1, 3, 1)
	for _, id := range []int{1, 3, 5} {
		l := lt.get(id)
		if l.TryLock() {
			l.Unlock()
			t.Fatalf("block %d was not locked by LockMulti", id)
		}
	}
	unlock()
	for _, id := range []int{1, 3, 5} {
		l := lt.get(id)
		if !l.TryLock() {
			t.Fatalf("block %d still locked after unlock", id)
		}
		l.Unlock()
	}
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]int{5, 1, 3, 1, 5})
	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("uniqueSorted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueSorted = %v, want %v", got, want)
		}
	}
}
