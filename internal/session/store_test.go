package session

import (
	"sync"
	"testing"
	"time"

	"github.com/Kerhoff/familybudget/internal/flow"
)

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore()
	a, releaseA := store.Acquire(Key{ChatID: 1, UserID: 1})
	a.Begin(flow.CreateFamily{})
	a.History.Push("families")
	releaseA()

	b, releaseB := store.Acquire(Key{ChatID: 2, UserID: 2})
	defer releaseB()
	if b.Flow != nil {
		t.Fatalf("new session inherited flow %T", b.Flow)
	}
	if b.History.Len() != 0 {
		t.Fatal("new session inherited history")
	}

	a2, releaseA2 := store.Acquire(Key{ChatID: 1, UserID: 1})
	defer releaseA2()
	if _, ok := a2.Flow.(flow.CreateFamily); !ok {
		t.Fatalf("session lost its flow, got %T", a2.Flow)
	}
}

func TestAcquireSerializesOneSession(t *testing.T) {
	store := NewStore()
	key := Key{ChatID: 7, UserID: 7}

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := store.Acquire(key)
			defer release()
			sess.History.Push("x")
			counter++
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestSweepDropsIdleSessions(t *testing.T) {
	store := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, release := store.Acquire(Key{ChatID: 1, UserID: 1})
	release()

	now = now.Add(2 * time.Hour)
	_, releaseFresh := store.Acquire(Key{ChatID: 2, UserID: 2})
	releaseFresh()

	if dropped := store.Sweep(time.Hour); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
}

func TestSweepKeepsWaitingSessions(t *testing.T) {
	store := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	key := Key{ChatID: 3, UserID: 3}

	sess, release := store.Acquire(key)
	sess.Begin(flow.JoinFamily{})

	waiting := make(chan *Session)
	go func() {
		next, releaseNext := store.Acquire(key)
		defer releaseNext()
		waiting <- next
	}()

	// The second caller registers before it blocks on the session lock.
	for {
		store.mu.Lock()
		holders := store.sessions[key].holders
		store.mu.Unlock()
		if holders == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	now = now.Add(2 * time.Hour)
	if dropped := store.Sweep(time.Hour); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	release()

	next := <-waiting
	if next != sess {
		t.Fatal("waiting event got a different session")
	}
	if _, ok := next.Flow.(flow.JoinFamily); !ok {
		t.Fatalf("flow = %T, want JoinFamily", next.Flow)
	}
}
