package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Put(ctx, "session:abc", []byte("payload"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := m.Get(ctx, "session:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	_, err := m.Get(context.Background(), "session:nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Put(ctx, "code:short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := m.Get(ctx, "code:short"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := m.Get(ctx, "code:short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v after expiry, want ErrNotFound", err)
	}
}

func TestMemoryTakeSingleUse(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Put(ctx, "pending:state1", []byte("req"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := m.Take(ctx, "pending:state1")
	if err != nil {
		t.Fatalf("first Take failed: %v", err)
	}
	if string(got) != "req" {
		t.Errorf("got %q, want %q", got, "req")
	}

	if _, err := m.Take(ctx, "pending:state1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Take got %v, want ErrNotFound", err)
	}
}

func TestMemoryTakeConcurrent(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Put(ctx, "code:race", []byte("once"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	const workers = 16
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := m.Take(ctx, "code:race")
			wins <- err == nil
		}()
	}

	won := 0
	for i := 0; i < workers; i++ {
		if <-wins {
			won++
		}
	}
	if won != 1 {
		t.Errorf("got %d winners, want exactly 1", won)
	}
}

func TestMemoryDeleteMissing(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	if err := m.Delete(context.Background(), "session:nope"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Put(ctx, "client:chatgpt", []byte("v1"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := m.Put(ctx, "client:chatgpt", []byte("v2"), 0); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := m.Get(ctx, "client:chatgpt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("got %q, want %q", got, "v2")
	}
}
