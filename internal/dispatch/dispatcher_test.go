package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/pulsebridge/pulsebridge/internal/infrastructure/logging"
	"github.com/pulsebridge/pulsebridge/internal/registry"
)

// call records one invocation against a fake device.
type call struct {
	op    string
	motor uint32
	speed float64
}

type fakeDevice struct {
	name string
	err  error

	mu    sync.Mutex
	calls []call
}

func (f *fakeDevice) Name() string { return f.name }

func (f *fakeDevice) Vibrate(ctx context.Context, speed float64) error {
	f.record(call{op: "vibrate", speed: speed})
	return f.err
}

func (f *fakeDevice) VibrateMotor(ctx context.Context, motor uint32, speed float64) error {
	f.record(call{op: "vibrateMotor", motor: motor, speed: speed})
	return f.err
}

func (f *fakeDevice) Stop(ctx context.Context) error {
	f.record(call{op: "stop"})
	return f.err
}

func (f *fakeDevice) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeDevice) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDevice) lastCall() (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}, false
	}
	return f.calls[len(f.calls)-1], true
}

func populate(t *testing.T, reg *registry.Registry, devices ...*fakeDevice) {
	t.Helper()
	w := reg.AcquireWriter()
	defer w.Release()
	for _, dev := range devices {
		w.Update(registry.Normalize(dev.name), dev)
		w.Update(registry.LastAlias, dev)
	}
	w.Publish()
}

func startDispatcher(t *testing.T, reg *registry.Registry, opts ...Option) *Dispatcher {
	t.Helper()
	d := New(reg, 2, 16, logging.Default(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return d
}

func waitCalls(t *testing.T, dev *fakeDevice, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for dev.callCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("%s: expected %d calls, got %d", dev.name, want, dev.callCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatchVibrateToAllDevices(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	hush := &fakeDevice{name: "LovenseHush"}
	reg := registry.New()
	populate(t, reg, edge, hush)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/all/vibrate/speed", float32(0.5)))

	waitCalls(t, edge, 1)
	waitCalls(t, hush, 1)

	got, _ := edge.lastCall()
	if got.op != "vibrate" || got.speed != 0.5 {
		t.Errorf("expected vibrate 0.5, got %+v", got)
	}
	// The alias points at a device already matched; no double delivery.
	if edge.callCount() != 1 || hush.callCount() != 1 {
		t.Errorf("expected exactly one call each, got %d and %d", edge.callCount(), hush.callCount())
	}
}

func TestDispatchExactName(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	hush := &fakeDevice{name: "LovenseHush"}
	reg := registry.New()
	populate(t, reg, edge, hush)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/stop"))

	waitCalls(t, edge, 1)
	got, _ := edge.lastCall()
	if got.op != "stop" {
		t.Errorf("expected stop, got %+v", got)
	}
	if hush.callCount() != 0 {
		t.Error("stop leaked to an unmatched device")
	}
}

func TestDispatchLastAlias(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	hush := &fakeDevice{name: "LovenseHush"}
	reg := registry.New()
	populate(t, reg, edge, hush) // hush registered last

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/last/vibrate/speed", float32(0.9)))

	waitCalls(t, hush, 1)
	if edge.callCount() != 0 {
		t.Error("last alias delivered to a non-last device")
	}
}

func TestDispatchVibrateMap(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/vibrateMap/speedMap", int32(1), float32(0.3)))

	waitCalls(t, edge, 1)
	got, _ := edge.lastCall()
	if got.op != "vibrateMotor" || got.motor != 1 || got.speed != float64(float32(0.3)) {
		t.Errorf("unexpected invocation %+v", got)
	}
}

func TestDispatchDropsMalformed(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/vibrate/speed", "fast"))
	d.Dispatch(osc.NewMessage("/other/LovenseEdge/stop"))
	d.Dispatch(osc.NewMessage("/devices//stop"))

	time.Sleep(50 * time.Millisecond)
	if edge.callCount() != 0 {
		t.Errorf("malformed messages reached the device: %d calls", edge.callCount())
	}
}

func TestDispatchUnknownSet(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/Kiiroo/stop"))

	time.Sleep(50 * time.Millisecond)
	if edge.callCount() != 0 {
		t.Error("unmatched set reached a device")
	}
}

func TestDispatchBundle(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	inner := osc.NewBundle(time.Now())
	inner.Append(osc.NewMessage("/devices/LovenseEdge/vibrate/speed", float32(0.4)))
	outer := osc.NewBundle(time.Now())
	outer.Append(osc.NewMessage("/devices/LovenseEdge/stop"))
	outer.Append(inner)

	d := startDispatcher(t, reg)
	d.Dispatch(outer)

	waitCalls(t, edge, 2)
}

func TestDispatchFailedCommandIsLoggedNotFatal(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge", err: errors.New("gone")}
	reg := registry.New()
	populate(t, reg, edge)

	d := startDispatcher(t, reg)
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/stop"))
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/stop"))

	// Both invocations run; the first failure does not wedge the pool.
	waitCalls(t, edge, 2)
}

func TestDispatchQueueFullDrops(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	// No workers started: the queue only fills.
	d := New(reg, 1, 2, logging.Default())
	for range 5 {
		d.Dispatch(osc.NewMessage("/devices/LovenseEdge/stop"))
	}

	if got := d.Dropped(); got != 3 {
		t.Errorf("expected 3 dropped invocations, got %d", got)
	}
}

type captureRecorder struct {
	mu      sync.Mutex
	records []string
}

func (r *captureRecorder) RecordCommand(device, kind string, speed float64) {
	r.mu.Lock()
	r.records = append(r.records, device+"/"+kind)
	r.mu.Unlock()
}

func TestDispatchRecordsTelemetry(t *testing.T) {
	edge := &fakeDevice{name: "LovenseEdge"}
	reg := registry.New()
	populate(t, reg, edge)

	rec := &captureRecorder{}
	d := startDispatcher(t, reg, WithRecorder(rec))
	d.Dispatch(osc.NewMessage("/devices/LovenseEdge/vibrate/speed", float32(1.0)))

	waitCalls(t, edge, 1)
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.records)
		rec.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("telemetry record never arrived")
		}
		time.Sleep(time.Millisecond)
	}
}
