package registry

import "strings"

// Resolve expands a device-set expression into the devices it targets.
//
// Resolution order:
//  1. Exact match against a stored normalized name (or the LastAlias key)
//     returns that single device without scanning.
//  2. Otherwise a full scan collects every entry whose name equals the
//     expression or starts with it as a prefix; the AllDevices expression
//     collects every entry. The LastAlias entry is skipped during the
//     scan: its device is always stored under its own name too, and
//     including the alias would deliver the same command twice.
//
// An expression matching nothing yields an empty slice, never an error.
// Results follow the snapshot's name order.
func (s *Snapshot) Resolve(set string) []Actuator {
	if dev, ok := s.Get(set); ok {
		return []Actuator{dev}
	}

	var matched []Actuator
	for name, dev := range s.All() {
		if name == LastAlias {
			continue
		}
		if name == set || set == AllDevices || strings.HasPrefix(name, set) {
			matched = append(matched, dev)
		}
	}
	return matched
}
