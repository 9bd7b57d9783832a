package service

import (
	"sync"
	"testing"
	"time"
)

func TestSubjectLocks_SerializesSameSubject(t *testing.T) {
	locks := newSubjectLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("期望 50，实际=%d", counter)
	}
	if len(locks.locks) != 0 {
		t.Errorf("释放后不应残留锁，实际=%d", len(locks.locks))
	}
}

func TestSubjectLocks_IndependentSubjects(t *testing.T) {
	locks := newSubjectLocks()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
}

func TestDayLocks_SerializesSameDay(t *testing.T) {
	locks := newDayLocks()
	unlock := locks.Lock("Monday")

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("Monday")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("同一天的锁未释放前不应被再次获取")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	other := locks.Lock("Tuesday")
	other()
}
