package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatch_OtherWriterInvalidatesCache(t *testing.T) {
	store, cache := newTestStore(t)
	if err := store.Save(sampleRecord()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Let the watcher register before the other process writes
	time.Sleep(100 * time.Millisecond)

	other := NewStore(store.Path(), &MemoryCache{}, zerolog.Nop())
	updated := sampleRecord()
	updated.AuthToken = "tok-from-elsewhere"
	if err := other.Save(updated); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return cache.Get().AuthToken == "" })

	rec, ok := store.Load()
	if !ok || rec.AuthToken != "tok-from-elsewhere" {
		t.Errorf("Load() = %+v, %v; want the other writer's session", rec, ok)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_RemovalInvalidatesCache(t *testing.T) {
	store, cache := newTestStore(t)
	if err := store.Save(sampleRecord()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	other := NewStore(store.Path(), &MemoryCache{}, zerolog.Nop())
	other.Clear()

	waitFor(t, func() bool { return cache.Get().AuthToken == "" })
	if _, ok := store.Load(); ok {
		t.Error("session removed by another process should be absent")
	}
}
