package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// fakeActuator is a minimal Actuator for registry tests.
type fakeActuator struct {
	name string
}

func (f *fakeActuator) Name() string { return f.name }

func (f *fakeActuator) Vibrate(context.Context, float64) error              { return nil }
func (f *fakeActuator) VibrateMotor(context.Context, uint32, float64) error { return nil }
func (f *fakeActuator) Stop(context.Context) error                          { return nil }

func TestUpdateInvisibleUntilPublish(t *testing.T) {
	reg := New()
	dev := &fakeActuator{name: "Edge"}

	w := reg.AcquireWriter()
	defer w.Release()

	w.Update("Edge", dev)
	if _, ok := reg.Get("Edge"); ok {
		t.Fatal("staged update visible before Publish")
	}

	w.Publish()
	got, ok := reg.Get("Edge")
	if !ok {
		t.Fatal("published entry not visible")
	}
	if got != Actuator(dev) {
		t.Error("lookup returned a different handle")
	}
}

func TestSnapshotStableAcrossPublish(t *testing.T) {
	reg := New()
	w := reg.AcquireWriter()
	defer w.Release()

	w.Update("a", &fakeActuator{name: "a"})
	w.Publish()

	snap := reg.Snapshot()
	w.Update("b", &fakeActuator{name: "b"})
	w.Publish()

	// The older snapshot must not observe the later publish.
	if _, ok := snap.Get("b"); ok {
		t.Error("old snapshot observed a later publish")
	}
	if _, ok := reg.Snapshot().Get("b"); !ok {
		t.Error("new snapshot missing published entry")
	}
}

func TestPublishReplaysPriorEntries(t *testing.T) {
	reg := New()

	w := reg.AcquireWriter()
	w.Update("a", &fakeActuator{name: "a"})
	w.Publish()
	w.Release()

	// A fresh writer (as after a reconnect) starts from the visible state.
	w = reg.AcquireWriter()
	w.Update("b", &fakeActuator{name: "b"})
	w.Publish()
	w.Release()

	if _, ok := reg.Get("a"); !ok {
		t.Error("entry from previous writer lost after new publish")
	}
	if _, ok := reg.Get("b"); !ok {
		t.Error("new entry missing")
	}
}

func TestLastAliasRebinding(t *testing.T) {
	reg := New()
	w := reg.AcquireWriter()
	defer w.Release()

	for i := 0; i < 3; i++ {
		dev := &fakeActuator{name: fmt.Sprintf("dev%d", i)}
		w.Update(Normalize(dev.name), dev)
		w.Update(LastAlias, dev)
		w.Publish()

		got, ok := reg.Get(LastAlias)
		if !ok {
			t.Fatal("last alias missing")
		}
		if got.Name() != dev.name {
			t.Errorf("last alias bound to %q, want %q", got.Name(), dev.name)
		}
	}

	// All three named entries plus the alias.
	if reg.Len() != 4 {
		t.Errorf("registry has %d entries, want 4", reg.Len())
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	reg := New()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := reg.Snapshot()
				for name, dev := range snap.All() {
					if name != LastAlias && Normalize(dev.Name()) != name {
						t.Error("snapshot entry key does not match device name")
						return
					}
				}
			}
		}()
	}

	w := reg.AcquireWriter()
	for i := 0; i < 200; i++ {
		dev := &fakeActuator{name: fmt.Sprintf("dev%d", i)}
		w.Update(Normalize(dev.name), dev)
		w.Update(LastAlias, dev)
		w.Publish()
	}
	w.Release()

	close(done)
	wg.Wait()

	if reg.Len() != 201 {
		t.Errorf("registry has %d entries, want 201", reg.Len())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Lovense Edge (2)", "LovenseEdge2"},
		{"Lovense Edge", "LovenseEdge"},
		{"XBox (XInput) Compatible Gamepad", "XBoxXInputCompatibleGamepad"},
		{"plain", "plain"},
		{"", ""},
		{"!!!", ""},
		{"a-b_c.1", "abc1"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeCollision(t *testing.T) {
	// Cosmetically different names that normalize identically collapse
	// to one key; the later registration wins.
	reg := New()
	w := reg.AcquireWriter()
	defer w.Release()

	first := &fakeActuator{name: "My Toy!"}
	second := &fakeActuator{name: "My-Toy"}
	w.Update(Normalize(first.name), first)
	w.Update(Normalize(second.name), second)
	w.Publish()

	if reg.Len() != 1 {
		t.Fatalf("registry has %d entries, want 1", reg.Len())
	}
	got, _ := reg.Get("MyToy")
	if got != Actuator(second) {
		t.Error("collision should keep the most recent handle")
	}
}
