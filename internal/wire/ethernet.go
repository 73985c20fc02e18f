package wire

import (
	"fmt"
	"net"
)

// etherTypeIPv4LE is the EtherType field for IPv4 (0x0800) compared as a
// little-endian host integer rather than the portable big-endian wire
// value — per spec.md REDESIGN FLAG (b), kept for bit-for-bit parity with
// how this field has always been read on the capture path, with the
// caveat named here so it's visible at the call site.
const etherTypeIPv4LE = 0x0008

// EthernetHeader overlays a 14-byte Ethernet II header in place.
type EthernetHeader struct {
	DstMAC  [6]byte
	SrcMAC  [6]byte
	EthType uint16 // wire byte order, do not read directly
}

// EthernetHeaderSize is sizeof(EthernetHeader) on the wire.
const EthernetHeaderSize = 14

// IsIPv4 reports whether the EtherType field marks an IPv4 payload, per
// the little-endian comparison documented on etherTypeIPv4LE.
func (h *EthernetHeader) IsIPv4() bool {
	return h.EthType == etherTypeIPv4LE
}

// String renders the header for -v diagnostics.
func (h *EthernetHeader) String() string {
	return fmt.Sprintf("Ethernet Header {\n\tdestination address: %s,\n\tsource address: %s,\n\tprotocol: %d,\n}",
		net.HardwareAddr(h.DstMAC[:]), net.HardwareAddr(h.SrcMAC[:]), h.EthType)
}
