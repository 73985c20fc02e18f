// Package device implements the uniform device capability spec.md §4.4
// requires (mtu, send/try_send, recv/try_recv) and its two concrete
// transports: a NIC device bridging real packet capture/injection, and an
// Athernet tunnel device bridging a Unix-domain stream socket to a peer
// process.
package device

import "github.com/dosgo/natgw/internal/ring"

// Device is the small capability set every transport implements. There is
// no deep hierarchy — a tagged pair of concrete structs, not an interface
// pyramid — per spec.md §9 "Polymorphic device".
type Device interface {
	// MTU returns the maximum IPv4 datagram length this device will carry.
	MTU() int

	// Send blocks until an egress slot is free, returning a guard that
	// publishes the written datagram when closed.
	Send() *ring.SendGuard
	// TrySend is the non-blocking counterpart; the guard is empty if the
	// egress ring is full.
	TrySend() *ring.SendGuard

	// Recv blocks until an ingress slot holding one IPv4 datagram is
	// ready.
	Recv() *ring.RecvGuard
	// TryRecv is the non-blocking counterpart.
	TryRecv() *ring.RecvGuard
}

// ringPair is the shared plumbing both device implementations embed: an
// ingress ring fed by a background receiver goroutine, and an egress ring
// drained by a background sender goroutine.
type ringPair struct {
	mtu     int
	ingress *ring.Ring
	egress  *ring.Ring
}

func newRingPair(mtu, depth int) ringPair {
	return ringPair{
		mtu:     mtu,
		ingress: ring.New(mtu, depth),
		egress:  ring.New(mtu, depth),
	}
}

func (d *ringPair) MTU() int { return d.mtu }

func (d *ringPair) Send() *ring.SendGuard    { return d.egress.Send() }
func (d *ringPair) TrySend() *ring.SendGuard { return d.egress.TrySend() }
func (d *ringPair) Recv() *ring.RecvGuard    { return d.ingress.Recv() }
func (d *ringPair) TryRecv() *ring.RecvGuard { return d.ingress.TryRecv() }

// defaultRingDepth is the slot count for both rings of every device.
const defaultRingDepth = 256
