package nat

import (
	"github.com/dosgo/natgw/internal/bufview"
	"github.com/dosgo/natgw/internal/device"
	"github.com/dosgo/natgw/internal/wire"
)

// Engine owns the two forwarding loops of spec.md §4.5: LAN→WAN and
// WAN→LAN. Each loop runs on its own goroutine for the life of the
// process; callers start them via RunLANToWAN/RunWANToLAN, typically
// under an errgroup.Group so an I/O error from the underlying device
// propagates as a process abort per §5/§7. The two directions share the
// translation table and the checksum helpers but otherwise carry
// direction-specific rewrite logic in two separate methods.
type Engine struct {
	table     *Table
	lanSubnet *wire.LANMatcher
	gatewayIP uint32
	lanMTU    int
	wanMTU    int
}

// NewEngine builds a forwarding engine bound to tbl, using lanSubnet to
// recognize LAN-side leak traffic (spec §4.5 step 2) and gatewayIP as
// this NAT's own address for rewriting and loop detection.
func NewEngine(tbl *Table, lanSubnet *wire.LANMatcher, gatewayIP uint32, lanMTU, wanMTU int) *Engine {
	return &Engine{
		table:     tbl,
		lanSubnet: lanSubnet,
		gatewayIP: gatewayIP,
		lanMTU:    lanMTU,
		wanMTU:    wanMTU,
	}
}

// RunLANToWAN drains lan's ingress ring, translates each datagram, and
// try-sends it on wan's egress ring. Blocks forever unless the port table
// is exhausted, which is a fatal abort per §7 — the caller (typically an
// errgroup.Group) is expected to terminate the process on a non-nil
// return.
func (e *Engine) RunLANToWAN(lan, wan device.Device) error {
	for {
		g := lan.Recv()
		err := e.forwardLANToWAN(g.View(), wan)
		g.Close()
		if err != nil {
			return err
		}
	}
}

// RunWANToLAN is the mirror of RunLANToWAN for the reverse direction. It
// has no fatal failure mode of its own — the WAN side never allocates
// ports — but shares RunLANToWAN's error-returning signature so both
// loops compose the same way under an errgroup.Group.
func (e *Engine) RunWANToLAN(wan, lan device.Device) error {
	for {
		g := wan.Recv()
		e.forwardWANToLAN(g.View(), lan)
		g.Close()
	}
}

func (e *Engine) forwardLANToWAN(v bufview.View, wan device.Device) error {
	ipHdr, _, payload := wire.Split(v)
	if ipHdr == nil || wire.ComplementChecksum(ipHdr.Bytes()) != 0 {
		wire.Warnf("invalid package", "lan->wan: invalid ipv4 header")
		return nil
	}

	if ipHdr.TTL() == 0 {
		return nil // drop+warn per §7, but silent-equivalent TTL==0 is common enough to skip the log
	}
	if ipHdr.SrcIPUint32() == e.gatewayIP {
		return nil // would create a self-loop
	}
	if e.lanSubnet.Contains(ipHdr.DstIP()) {
		return nil // LAN->LAN leak, drop silent
	}

	var lanPort uint16
	switch ipHdr.Protocol() {
	case wire.ProtoICMP:
		icmp := wire.CastICMP(payload)
		if icmp == nil || wire.ComplementChecksum(payload.Bytes()) != 0 {
			wire.Warnf("invalid package", "lan->wan: invalid icmp checksum")
			return nil
		}
		lanPort = icmp.Identification()
	case wire.ProtoUDP:
		udp := wire.CastUDP(payload)
		if udp == nil {
			wire.Warnf("invalid package", "lan->wan: short udp header")
			return nil
		}
		if !udp.CheckChecksum(udpChecksum(ipHdr, payload)) {
			wire.Warnf("invalid package", "lan->wan: invalid udp checksum")
			return nil
		}
		lanPort = udp.SrcPort()
	default:
		return nil // TCP and anything else: drop silent
	}

	if int(ipHdr.TotalLength()) > e.wanMTU {
		wire.Warnf("invalid package", "lan->wan: oversize for wan mtu")
		return nil
	}

	lanIP := ipHdr.SrcIPUint32()
	wanPort, ok := e.table.Lookup(lanIP, lanPort)
	if !ok {
		var err error
		wanPort, err = e.table.Allocate(lanIP, lanPort)
		if err != nil {
			return err // port exhaustion is a fatal abort per §7
		}
	}

	ipHdr.SetTTL(ipHdr.TTL() - 1)
	ipHdr.SetSrcIP(e.gatewayIP)

	switch ipHdr.Protocol() {
	case wire.ProtoICMP:
		icmp := wire.CastICMP(payload)
		icmp.SetIdentification(wanPort)
		icmp.SetChecksum(0)
		icmp.SetChecksum(wire.ComplementChecksum(payload.Bytes()))
	case wire.ProtoUDP:
		udp := wire.CastUDP(payload)
		udp.SetSrcPort(wanPort)
		udp.SetChecksum(0)
		udp.SetChecksumEnable(udpChecksum(ipHdr, payload))
	}
	ipHdr.SetChecksum(0)
	ipHdr.SetChecksum(wire.ComplementChecksum(ipHdr.Bytes()))

	tryForward(v, ipHdr.TotalLength(), wan)
	return nil
}

func (e *Engine) forwardWANToLAN(v bufview.View, lan device.Device) {
	ipHdr, _, payload := wire.Split(v)
	if ipHdr == nil || wire.ComplementChecksum(ipHdr.Bytes()) != 0 {
		wire.Warnf("invalid package", "wan->lan: invalid ipv4 header")
		return
	}

	if ipHdr.TTL() == 0 {
		return
	}

	var wanPort uint16
	switch ipHdr.Protocol() {
	case wire.ProtoICMP:
		icmp := wire.CastICMP(payload)
		if icmp == nil || wire.ComplementChecksum(payload.Bytes()) != 0 {
			wire.Warnf("invalid package", "wan->lan: invalid icmp checksum")
			return
		}
		wanPort = icmp.Identification()
	case wire.ProtoUDP:
		udp := wire.CastUDP(payload)
		if udp == nil {
			wire.Warnf("invalid package", "wan->lan: short udp header")
			return
		}
		if !udp.CheckChecksum(udpChecksum(ipHdr, payload)) {
			wire.Warnf("invalid package", "wan->lan: invalid udp checksum")
			return
		}
		wanPort = udp.DstPort()
	default:
		return
	}

	lanIP, lanPort, ok := e.table.ForwardLookup(wanPort)
	if !ok {
		return // no active mapping, drop silent
	}

	if int(ipHdr.TotalLength()) > e.lanMTU {
		wire.Warnf("invalid package", "wan->lan: oversize for lan mtu")
		return
	}

	ipHdr.SetTTL(ipHdr.TTL() - 1)
	ipHdr.SetDstIP(lanIP)

	switch ipHdr.Protocol() {
	case wire.ProtoICMP:
		icmp := wire.CastICMP(payload)
		icmp.SetIdentification(lanPort)
		icmp.SetChecksum(0)
		icmp.SetChecksum(wire.ComplementChecksum(payload.Bytes()))
	case wire.ProtoUDP:
		udp := wire.CastUDP(payload)
		udp.SetDstPort(lanPort)
		udp.SetChecksum(0)
		udp.SetChecksumEnable(udpChecksum(ipHdr, payload))
	}
	ipHdr.SetChecksum(0)
	ipHdr.SetChecksum(wire.ComplementChecksum(ipHdr.Bytes()))

	tryForward(v, ipHdr.TotalLength(), lan)
}

// tryForward copies the first totalLen bytes of v into a try-sent egress
// slot on dev, warning and dropping on a full ring per spec §4.5 step 7.
func tryForward(v bufview.View, totalLen uint16, dev device.Device) {
	datagram, ok := v.Sub(0, int(totalLen))
	if !ok {
		return
	}
	g := dev.TrySend()
	if g.Empty() {
		wire.Warnf("package loss", "egress ring full, dropping packet")
		g.Close()
		return
	}
	g.View().CopyFrom(datagram)
	g.Close()
}

// udpChecksum computes the UDP checksum including the IPv4 pseudo-header,
// with the checksum field itself (already zeroed by the caller when
// recomputing, or as received when validating) folded in verbatim.
func udpChecksum(ipHdr *wire.IPv4Header, udpSegment bufview.View) uint16 {
	pseudo := wire.NewPseudoHeader(ipHdr, uint16(udpSegment.Len()))
	return wire.ComplementChecksumAdd(pseudo.Bytes(), udpSegment.Bytes())
}
