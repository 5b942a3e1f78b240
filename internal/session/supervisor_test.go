package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
	"github.com/pulsebridge/pulsebridge/internal/registry"
)

func TestSupervisorRetriesFailedConnections(t *testing.T) {
	var attempts atomic.Int32
	factory := func() *Manager {
		attempts.Add(1)
		client := newMockClient()
		client.connectErr = errors.New("refused")
		return NewManager(client, registry.New(), logging.Default())
	}

	sup := NewSupervisor(factory, Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
	}, logging.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := sup.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if n := attempts.Load(); n < 3 {
		t.Errorf("expected repeated reconnect attempts, got %d", n)
	}
	if sup.Connected() {
		t.Error("expected Connected() false when every attempt fails")
	}
}

func TestSupervisorBackoffGrowthIsCapped(t *testing.T) {
	b := Backoff{InitialDelay: time.Second, MaxDelay: 4 * time.Second}.withDefaults()

	delay := b.InitialDelay
	for range 10 {
		delay *= 2
		if delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	if delay != b.MaxDelay {
		t.Errorf("expected delay capped at %v, got %v", b.MaxDelay, delay)
	}
}

func TestSupervisorReportsConnectedSession(t *testing.T) {
	client := newMockClient()
	factory := func() *Manager {
		return NewManager(client, registry.New(), logging.Default())
	}

	sup := NewSupervisor(factory, Backoff{InitialDelay: time.Millisecond}, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !sup.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("supervisor never reported a connected session")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop on cancel")
	}
	if sup.Connected() {
		t.Error("expected Connected() false after shutdown")
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := Backoff{}.withDefaults()
	if b.InitialDelay != defaultInitialDelay || b.MaxDelay != defaultMaxDelay || b.EstablishedAfter != defaultEstablishedAfter {
		t.Errorf("unexpected defaults: %+v", b)
	}
}
