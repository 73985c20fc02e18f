// Package nat implements the WAN-port-indexed translation table and the
// two forwarding loops that rewrite IPv4/ICMP/UDP headers between a LAN
// device and a WAN device.
package nat

import (
	"errors"
	"sync/atomic"
)

// PortBase and PortSize bound the WAN port range the table hands out,
// matching spec.md §6 ([50000, 50000+16384)).
const (
	PortBase = 50000
	PortSize = 16384
)

// ErrPortsExhausted is returned by Allocate once no WAN port is left to
// hand out. Because PortBase+PortSize (66384) lies past the 16-bit port
// space, that happens after port 65535 has been assigned, so only ports in
// [PortBase, 65535] are ever handed out. Per spec §4.5/§7 this
// is a fatal condition — callers are expected to treat it as a process
// abort, not a recoverable error.
var ErrPortsExhausted = errors.New("nat: wan port range exhausted")

// reverseKey is the LAN-side identity a WAN port stands in for.
type reverseKey struct {
	ip   uint32
	port uint16
}

// Table is the NAT translation table of spec.md §3: a lock-free forward
// array of packed (lan_ip, lan_port, present) cells indexed by
// wan_port-PortBase, plus a reverse map and a monotonic next-free counter
// touched only by the LAN→WAN thread. Each forward cell packs its three
// fields into one atomic word so a reader never observes a torn update
// between the ip and port halves.
type Table struct {
	forward [PortSize]atomic.Uint64

	// reverse and nextFree are touched only by the LAN→WAN thread (or by
	// the constructor before any forwarding thread starts); no
	// synchronisation is required for either.
	reverse  map[reverseKey]uint16
	nextFree uint32
}

// NewTable returns an empty table with the next-free counter seeded at
// PortBase.
func NewTable() *Table {
	return &Table{
		reverse:  make(map[reverseKey]uint16),
		nextFree: PortBase,
	}
}

func assembleCell(lanIP uint32, lanPort uint16) uint64 {
	return uint64(lanIP)<<32 | uint64(lanPort)<<16 | 1 // present=1
}

func decodeCell(v uint64) (lanIP uint32, lanPort uint16, present bool) {
	return uint32(v >> 32), uint16(v >> 16), uint16(v) != 0
}

// Lookup returns the WAN port already assigned to (lanIP, lanPort), if any.
// Called only from the LAN→WAN thread.
func (t *Table) Lookup(lanIP uint32, lanPort uint16) (uint16, bool) {
	wanPort, ok := t.reverse[reverseKey{lanIP, lanPort}]
	return wanPort, ok
}

// Allocate assigns the next free WAN port to (lanIP, lanPort), publishes
// the forward cell, and records the reverse mapping. Called only from the
// LAN→WAN thread, and only after a Lookup miss — callers must not call
// Allocate twice for the same key (mapping stability depends on Lookup
// being checked first).
func (t *Table) Allocate(lanIP uint32, lanPort uint16) (uint16, error) {
	// nextFree must also fit in a uint16 port number: PortBase+PortSize
	// (66384) exceeds the 16-bit port space, so the port-space bound is
	// the one that actually triggers first. Checking only the PortSize
	// bound would let nextFree walk past 65535 and truncate below into
	// wanPort, corrupting an already-allocated port's forward cell.
	if t.nextFree >= PortBase+PortSize || t.nextFree > 0xffff {
		return 0, ErrPortsExhausted
	}
	wanPort := uint16(t.nextFree)
	t.nextFree++

	idx := int(wanPort) - PortBase
	t.forward[idx].Store(assembleCell(lanIP, lanPort)) // release-publish
	t.reverse[reverseKey{lanIP, lanPort}] = wanPort

	return wanPort, nil
}

// InstallStatic reserves the next free WAN port for a preconfigured
// (lanIP, lanPort) mapping. Must be called before either forwarding
// goroutine starts (spec §4.5 "Initial static mappings... reserve their
// WAN ports before either forwarding thread starts").
func (t *Table) InstallStatic(lanIP uint32, lanPort uint16) (uint16, error) {
	return t.Allocate(lanIP, lanPort)
}

// ForwardLookup decodes the forward cell at wanPort, used only from the
// WAN→LAN thread. ok is false if wanPort is out of range or unassigned.
func (t *Table) ForwardLookup(wanPort uint16) (lanIP uint32, lanPort uint16, ok bool) {
	idx := int(wanPort) - PortBase
	if idx < 0 || idx >= PortSize {
		return 0, 0, false
	}
	cell := t.forward[idx].Load() // acquire-load
	lanIP, lanPort, present := decodeCell(cell)
	if !present {
		return 0, 0, false
	}
	return lanIP, lanPort, true
}
