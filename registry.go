package simloop

import (
	"slices"
	"weak"
)

// promiseRegistry tracks every promise created on a loop, by id, via weak
// pointers so the registry never keeps an otherwise-unreachable promise
// alive. It exists for two reasons: stable ids for trace labels and cycle
// errors, and [Loop.Dispose]'s sweep rejecting everything still pending.
//
// Single-threaded, like the rest of the loop.
type promiseRegistry struct {
	entries map[uint64]weak.Pointer[Promise]
	nextID  uint64
	// scavengeAt is the size threshold at which register sweeps dead
	// entries before inserting.
	scavengeAt int
}

const registryScavengeFloor = 64

func newPromiseRegistry() *promiseRegistry {
	return &promiseRegistry{
		entries:    make(map[uint64]weak.Pointer[Promise]),
		scavengeAt: registryScavengeFloor,
	}
}

// register assigns the promise the next id and records a weak reference.
func (r *promiseRegistry) register(p *Promise) uint64 {
	if len(r.entries) >= r.scavengeAt {
		r.scavenge()
	}
	r.nextID++
	id := r.nextID
	r.entries[id] = weak.Make(p)
	return id
}

// scavenge drops entries whose promises have been collected, then adjusts
// the threshold so repeated scavenges stay amortized against live size.
func (r *promiseRegistry) scavenge() {
	for id, wp := range r.entries {
		if wp.Value() == nil {
			delete(r.entries, id)
		}
	}
	next := len(r.entries) * 2
	if next < registryScavengeFloor {
		next = registryScavengeFloor
	}
	r.scavengeAt = next
}

// live returns the number of promises still reachable.
func (r *promiseRegistry) live() int {
	n := 0
	for _, wp := range r.entries {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// rejectAll rejects every live pending promise with reason, in id order so
// disposal produces the same settlement sequence every run. Returns the
// number of promises rejected.
func (r *promiseRegistry) rejectAll(reason Result) int {
	ids := make([]uint64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	n := 0
	for _, id := range ids {
		p := r.entries[id].Value()
		if p == nil || p.state != Pending {
			continue
		}
		p.rejectInternal(reason)
		n++
	}
	return n
}
