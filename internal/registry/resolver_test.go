package registry

import "testing"

// buildSnapshot registers the named devices (binding LastAlias to the final
// one) and returns the resulting snapshot.
func buildSnapshot(t *testing.T, names ...string) *Snapshot {
	t.Helper()
	reg := New()
	w := reg.AcquireWriter()
	defer w.Release()

	for _, name := range names {
		dev := &fakeActuator{name: name}
		w.Update(Normalize(name), dev)
		w.Update(LastAlias, dev)
	}
	w.Publish()
	return reg.Snapshot()
}

func resolvedNames(devs []Actuator) []string {
	names := make([]string, 0, len(devs))
	for _, d := range devs {
		names = append(names, d.Name())
	}
	return names
}

func TestResolveExactName(t *testing.T) {
	snap := buildSnapshot(t, "Lovense Edge", "Lovense Hush")

	devs := snap.Resolve("LovenseEdge")
	if len(devs) != 1 || devs[0].Name() != "Lovense Edge" {
		t.Errorf("Resolve(LovenseEdge) = %v", resolvedNames(devs))
	}
}

func TestResolveLast(t *testing.T) {
	snap := buildSnapshot(t, "Lovense Edge", "Lovense Hush")

	devs := snap.Resolve(LastAlias)
	if len(devs) != 1 || devs[0].Name() != "Lovense Hush" {
		t.Errorf("Resolve(last) = %v", resolvedNames(devs))
	}
}

func TestResolveAllExcludesLastAlias(t *testing.T) {
	snap := buildSnapshot(t, "Lovense Edge", "Lovense Hush", "Kiiroo Keon")

	devs := snap.Resolve(AllDevices)
	if len(devs) != 3 {
		t.Fatalf("Resolve(all) matched %d devices, want 3: %v",
			len(devs), resolvedNames(devs))
	}
	// The "last" alias must not double-deliver Kiiroo Keon.
	seen := map[string]int{}
	for _, d := range devs {
		seen[d.Name()]++
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("device %q matched %d times", name, count)
		}
	}
}

func TestResolvePrefix(t *testing.T) {
	snap := buildSnapshot(t, "Lovense Edge", "Lovense Hush", "Kiiroo Keon")

	devs := snap.Resolve("Lovense")
	if len(devs) != 2 {
		t.Fatalf("Resolve(Lovense) matched %v", resolvedNames(devs))
	}
	for _, d := range devs {
		if d.Name() == "Kiiroo Keon" {
			t.Error("prefix match included non-matching device")
		}
	}
}

func TestResolveUnknownSetIsEmpty(t *testing.T) {
	snap := buildSnapshot(t, "Lovense Edge")

	devs := snap.Resolve("WeVibe")
	if len(devs) != 0 {
		t.Errorf("Resolve(WeVibe) = %v, want empty", resolvedNames(devs))
	}
}

func TestResolveEmptyRegistry(t *testing.T) {
	snap := New().Snapshot()

	if devs := snap.Resolve(AllDevices); len(devs) != 0 {
		t.Errorf("Resolve(all) on empty registry = %v", resolvedNames(devs))
	}
	if devs := snap.Resolve(LastAlias); len(devs) != 0 {
		t.Errorf("Resolve(last) on empty registry = %v", resolvedNames(devs))
	}
}
