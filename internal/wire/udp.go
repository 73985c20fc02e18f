package wire

import (
	"encoding/binary"

	"github.com/dosgo/natgw/internal/bufview"
)

// UDPHeader overlays the 8-byte UDP header (src/dst port, length,
// checksum) in place.
type UDPHeader struct {
	srcPort  [2]byte
	dstPort  [2]byte
	length   [2]byte
	checksum [2]byte
}

// UDPHeaderSize is sizeof(UDPHeader) on the wire.
const UDPHeaderSize = 8

func (h *UDPHeader) SrcPort() uint16     { return binary.BigEndian.Uint16(h.srcPort[:]) }
func (h *UDPHeader) SetSrcPort(v uint16) { binary.BigEndian.PutUint16(h.srcPort[:], v) }

func (h *UDPHeader) DstPort() uint16     { return binary.BigEndian.Uint16(h.dstPort[:]) }
func (h *UDPHeader) SetDstPort(v uint16) { binary.BigEndian.PutUint16(h.dstPort[:], v) }

func (h *UDPHeader) Length() uint16 { return binary.BigEndian.Uint16(h.length[:]) }

func (h *UDPHeader) Checksum() uint16     { return binary.BigEndian.Uint16(h.checksum[:]) }
func (h *UDPHeader) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h.checksum[:], v) }

// CastUDP overlays v as a UDP header, or nil if v is too small.
func CastUDP(v bufview.View) *UDPHeader {
	return bufview.Cast[UDPHeader](v)
}

// CheckChecksum validates a received datagram against sum, the
// checksum-inclusive result of summing the pseudo-header plus the full UDP
// segment with the checksum field left exactly as received (never
// zeroed) — a correct checksum makes that sum fold to zero, the same
// property the IPv4 header checksum has. Honors the UDP-specific "stored
// zero means no checksum" rule: a stored checksum of zero always
// validates regardless of sum.
func (h *UDPHeader) CheckChecksum(sum uint16) bool {
	if h.Checksum() == 0 {
		return true
	}
	return sum == 0
}

// SetChecksumEnable stores computed, translating a computed-zero checksum
// to the wire's all-ones "actually zero" representation, per spec §4.3.
func (h *UDPHeader) SetChecksumEnable(computed uint16) {
	if computed == 0 {
		computed = 0xffff
	}
	h.SetChecksum(computed)
}
