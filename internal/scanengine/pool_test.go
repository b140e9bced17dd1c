package scanengine

import (
	"context"
	"testing"
	"time"
)

func TestPoolAcquireRelease(t *testing.T) {
	p := NewPool("test", 2)
	if p.Free() != 2 {
		t.Fatal("expected 2 free tokens, not", p.Free())
	}
	ctx := context.Background()
	if err := p.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Free() != 1 {
		t.Error("expected 1 free token after one acquire, not", p.Free())
	}
	p.Release()
	if p.Free() != 2 {
		t.Error("expected 2 free tokens after release, not", p.Free())
	}
}

func TestPoolBlocksAtZero(t *testing.T) {
	p := NewPool("test", 1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Acquire(ctx)
	if err == nil {
		t.Error("expected Acquire to block on an exhausted pool until ctx expired")
	}
}

func TestPoolQueued(t *testing.T) {
	p := NewPool("test", 1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Queued() != 0 {
		t.Error("expected no queue before anything is blocked, not", p.Queued())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		p.Acquire(ctx)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)
	if p.Queued() != 1 {
		t.Error("expected one queued waiter, not", p.Queued())
	}
}

func TestPoolReleaseWithoutAcquirePanics(t *testing.T) {
	p := NewPool("test", 1)
	defer func() {
		if recover() == nil {
			t.Error("expected a panic from an unmatched Release")
		}
	}()
	p.Release()
	p.Release()
}

func TestPoolSizeAndName(t *testing.T) {
	p := NewPool("wingate", 5)
	if p.Name() != "wingate" {
		t.Error("wrong name", p.Name())
	}
	if p.Size() != 5 {
		t.Error("wrong size", p.Size())
	}
}
