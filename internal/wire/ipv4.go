package wire

import (
	"encoding/binary"
	"net"
	"strconv"
	"unsafe"

	"github.com/google/gopacket/layers"

	"github.com/dosgo/natgw/internal/bufview"
)

// Protocol numbers, sourced from github.com/google/gopacket/layers
// (layers.IPProtocolICMPv4/UDP) rather than redeclared as bare literals.
const (
	ProtoICMP = uint8(layers.IPProtocolICMPv4)
	ProtoUDP  = uint8(layers.IPProtocolUDP)
	ProtoTCP  = uint8(layers.IPProtocolTCP)
)

// IPv4Header overlays a 20-byte fixed IPv4 header in place. Multi-byte
// fields are kept as raw wire bytes; use the accessor methods, which apply
// network-to-host swapping, never the fields directly.
type IPv4Header struct {
	verIHL   uint8
	tos      uint8
	totalLen [2]byte
	id       [2]byte
	fragOff  [2]byte
	ttl      uint8
	protocol uint8
	checksum [2]byte
	srcIP    [4]byte
	dstIP    [4]byte
}

// IPv4HeaderMinSize is the fixed-header length (no options).
const IPv4HeaderMinSize = 20

func (h *IPv4Header) Version() uint8 { return h.verIHL >> 4 }
func (h *IPv4Header) IHL() uint8     { return h.verIHL & 0x0f }
func (h *IPv4Header) TOS() uint8     { return h.tos }

func (h *IPv4Header) TotalLength() uint16     { return binary.BigEndian.Uint16(h.totalLen[:]) }
func (h *IPv4Header) SetTotalLength(v uint16) { binary.BigEndian.PutUint16(h.totalLen[:], v) }

func (h *IPv4Header) Identification() uint16 { return binary.BigEndian.Uint16(h.id[:]) }
func (h *IPv4Header) FragmentField() uint16  { return binary.BigEndian.Uint16(h.fragOff[:]) }

func (h *IPv4Header) TTL() uint8     { return h.ttl }
func (h *IPv4Header) SetTTL(v uint8) { h.ttl = v }

func (h *IPv4Header) Protocol() uint8 { return h.protocol }

func (h *IPv4Header) Checksum() uint16     { return binary.BigEndian.Uint16(h.checksum[:]) }
func (h *IPv4Header) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h.checksum[:], v) }

func (h *IPv4Header) SrcIP() net.IP { return net.IPv4(h.srcIP[0], h.srcIP[1], h.srcIP[2], h.srcIP[3]) }
func (h *IPv4Header) DstIP() net.IP { return net.IPv4(h.dstIP[0], h.dstIP[1], h.dstIP[2], h.dstIP[3]) }

func (h *IPv4Header) SrcIPUint32() uint32 { return binary.BigEndian.Uint32(h.srcIP[:]) }
func (h *IPv4Header) DstIPUint32() uint32 { return binary.BigEndian.Uint32(h.dstIP[:]) }

func (h *IPv4Header) SetSrcIP(ip uint32) { binary.BigEndian.PutUint32(h.srcIP[:], ip) }
func (h *IPv4Header) SetDstIP(ip uint32) { binary.BigEndian.PutUint32(h.dstIP[:], ip) }

// Bytes returns the header's own backing bytes (for checksumming),
// including any options, aliasing the packet buffer in place. Callers
// must only call this on a header whose IHL()*4 has already been bounds
// checked against the enclosing view (as Split does) — a header cast
// directly from a prefix of unknown length must not call this until
// validated, since an untrusted IHL could claim bytes past the view.
func (h *IPv4Header) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(h)), int(h.IHL())*4)
}

func (h *IPv4Header) String() string {
	return "IPv4 Header { src: " + h.SrcIP().String() + ", dst: " + h.DstIP().String() +
		", proto: " + strconv.Itoa(int(h.protocol)) + ", ttl: " + strconv.Itoa(int(h.ttl)) + " }"
}

// Split parses v's prefix as an IPv4 datagram, returning the fixed header,
// an options View (possibly empty), and the payload View sized to
// total_length - ihl*4. Returns a nil header if v is too small, the
// version nibble isn't 4, or ihl < 5 — never undefined behavior.
func Split(v bufview.View) (*IPv4Header, bufview.View, bufview.View) {
	h := bufview.Cast[IPv4Header](v)
	if h == nil {
		return nil, bufview.View{}, bufview.View{}
	}
	if h.Version() != 4 || h.IHL() < 5 {
		return nil, bufview.View{}, bufview.View{}
	}
	ihlBytes := int(h.IHL()) * 4
	total := int(h.TotalLength())
	if v.Len() < ihlBytes || total < ihlBytes || v.Len() < total {
		return nil, bufview.View{}, bufview.View{}
	}
	opts, ok1 := v.Sub(IPv4HeaderMinSize, ihlBytes)
	data, ok2 := v.Sub(ihlBytes, total)
	if !ok1 || !ok2 {
		return nil, bufview.View{}, bufview.View{}
	}
	return h, opts, data
}

// PseudoHeader is the 12-byte conceptual prefix used only for UDP checksum
// computation (never transmitted): src_ip, dst_ip, zero, protocol,
// udp_length.
type PseudoHeader struct {
	bytes [12]byte
}

// NewPseudoHeader builds the pseudo-header for h's UDP payload of udpLen
// bytes (UDP header + data).
func NewPseudoHeader(h *IPv4Header, udpLen uint16) PseudoHeader {
	var p PseudoHeader
	binary.BigEndian.PutUint32(p.bytes[0:4], h.SrcIPUint32())
	binary.BigEndian.PutUint32(p.bytes[4:8], h.DstIPUint32())
	p.bytes[8] = 0
	p.bytes[9] = h.protocol
	binary.BigEndian.PutUint16(p.bytes[10:12], udpLen)
	return p
}

func (p PseudoHeader) Bytes() []byte { return p.bytes[:] }
