package wire

import (
	"encoding/binary"

	"github.com/dosgo/natgw/internal/bufview"
)

// ICMPHeader overlays an 8-byte ICMP echo header (type/code/checksum/
// identifier/sequence) in place. Only echo request/reply fields are
// modeled; spec.md scopes this NAT to ICMP echo only.
type ICMPHeader struct {
	typ      uint8
	code     uint8
	checksum [2]byte
	id       [2]byte
	seq      [2]byte
}

// ICMPHeaderSize is sizeof(ICMPHeader) on the wire.
const ICMPHeaderSize = 8

func (h *ICMPHeader) Type() uint8 { return h.typ }
func (h *ICMPHeader) Code() uint8 { return h.code }

func (h *ICMPHeader) Checksum() uint16     { return binary.BigEndian.Uint16(h.checksum[:]) }
func (h *ICMPHeader) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h.checksum[:], v) }

func (h *ICMPHeader) Identification() uint16     { return binary.BigEndian.Uint16(h.id[:]) }
func (h *ICMPHeader) SetIdentification(v uint16) { binary.BigEndian.PutUint16(h.id[:], v) }

func (h *ICMPHeader) Sequence() uint16 { return binary.BigEndian.Uint16(h.seq[:]) }

// CastICMP overlays v as an ICMP header, or nil if v is too small.
func CastICMP(v bufview.View) *ICMPHeader {
	return bufview.Cast[ICMPHeader](v)
}
