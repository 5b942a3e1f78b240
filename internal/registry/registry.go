package registry

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Reserved device-set names. LastAlias is a real registry key rebound to the
// most recently added device; AllDevices is recognised by the resolver and
// never stored.
const (
	LastAlias  = "last"
	AllDevices = "all"
)

// Actuator is the capability surface a registered device exposes.
// It is implemented by buttplug.Device; tests substitute fakes.
//
// Identity is defined by the underlying session's device, not by name.
// Handles remain valid after the device disconnects; invocations against
// a gone device simply fail.
type Actuator interface {
	// Name returns the raw device name as reported by the server.
	Name() string

	// Vibrate sets a uniform vibration speed across all motors.
	Vibrate(ctx context.Context, speed float64) error

	// VibrateMotor sets the speed of a single motor, leaving the
	// others at their current speeds.
	VibrateMotor(ctx context.Context, motor uint32, speed float64) error

	// Stop halts all motors.
	Stop(ctx context.Context) error
}

// Snapshot is an immutable point-in-time view of the registry.
// It stays consistent while a writer stages new updates; those become
// visible only in the snapshot produced by the next Publish.
type Snapshot struct {
	entries map[string]Actuator
	names   []string // sorted for deterministic iteration
}

// Get looks up a device by normalized name. The LastAlias key resolves
// like any other entry.
func (s *Snapshot) Get(name string) (Actuator, bool) {
	dev, ok := s.entries[name]
	return dev, ok
}

// Len returns the number of entries, including the LastAlias entry.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// All iterates over the snapshot's entries in name order.
// The sequence is restartable and safe to use while a writer stages
// updates elsewhere.
func (s *Snapshot) All() iter.Seq2[string, Actuator] {
	return func(yield func(string, Actuator) bool) {
		for _, name := range s.names {
			if !yield(name, s.entries[name]) {
				return
			}
		}
	}
}

// Registry maps normalized device names to device handles.
//
// It follows a single-writer/multi-reader discipline: readers load the
// current snapshot without locking, and the one active writer stages
// updates that become visible atomically on Publish. Writer exclusivity
// is enforced by AcquireWriter, which blocks until the previous writer
// releases; that is how the writer handle is handed off between session
// instances across reconnects.
type Registry struct {
	visible  atomic.Pointer[Snapshot]
	writerMu sync.Mutex
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.visible.Store(&Snapshot{entries: map[string]Actuator{}})
	return r
}

// Snapshot returns the currently published snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.visible.Load()
}

// Get looks up a device in the current snapshot.
func (r *Registry) Get(name string) (Actuator, bool) {
	return r.Snapshot().Get(name)
}

// Len returns the entry count of the current snapshot.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// AcquireWriter returns the registry's writer handle, blocking until any
// previous holder releases it. Only one writer exists at a time.
func (r *Registry) AcquireWriter() *Writer {
	r.writerMu.Lock()
	w := &Writer{reg: r, staged: make(map[string]Actuator)}
	for name, dev := range r.Snapshot().entries {
		w.staged[name] = dev
	}
	return w
}

// Writer stages registry updates. Staged entries are invisible to readers
// until Publish. A Writer is not safe for concurrent use; it belongs to
// exactly one goroutine between AcquireWriter and Release.
type Writer struct {
	reg    *Registry
	staged map[string]Actuator
}

// Update stages an upsert of name to dev. Readers do not observe it
// until the next Publish.
func (w *Writer) Update(name string, dev Actuator) {
	w.staged[name] = dev
}

// Publish atomically replaces the visible snapshot with all staged
// updates. Entries staged after this call are again invisible until the
// next Publish.
func (w *Writer) Publish() {
	entries := make(map[string]Actuator, len(w.staged))
	names := make([]string, 0, len(w.staged))
	for name, dev := range w.staged {
		entries[name] = dev
		names = append(names, name)
	}
	sort.Strings(names)
	w.reg.visible.Store(&Snapshot{entries: entries, names: names})
}

// Release returns the writer handle to the registry so the next session
// instance can acquire it. The Writer must not be used afterwards.
func (w *Writer) Release() {
	w.reg.writerMu.Unlock()
}

// Normalize strips all non-alphanumeric characters from a raw device name,
// forming a stable registry key. "Lovense Edge (2)" becomes "LovenseEdge2".
// Two raw names that normalize identically collapse to one key; that
// ambiguity is accepted rather than deduplicated further.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
