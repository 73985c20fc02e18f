package wire

import "testing"

func TestChecksumRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00, 0x40, 0x06,
			0x00, 0x00, 0xac, 0x10, 0x0a, 0x63, 0xac, 0x10, 0x0a, 0x0c},
		{0x08, 0x00, 0x00, 0x00, 0x12, 0x34, 0x00, 0x01, 'h', 'i'},
		{0x01},
	}
	for _, buf := range cases {
		if len(buf) < 4 {
			continue // too short to host a checksum field at [2:4]
		}
		cp := append([]byte(nil), buf...)
		cp[2], cp[3] = 0, 0 // zero the checksum field before computing
		sum := ComplementChecksum(cp)
		cp[2] = byte(sum >> 8)
		cp[3] = byte(sum)
		if got := ComplementChecksum(cp); got != 0 {
			t.Errorf("checksum round trip failed for %x: residual %04x", buf, got)
		}
	}
}

func TestChecksumOddLength(t *testing.T) {
	// A single trailing byte must be padded with a zero low byte, not
	// silently dropped.
	a := ComplementChecksum([]byte{0xff})
	b := ComplementChecksum([]byte{0xff, 0x00})
	if a != b {
		t.Errorf("odd-length checksum %04x != even-padded checksum %04x", a, b)
	}
}

func TestComplementChecksumAddMatchesConcatenation(t *testing.T) {
	a := []byte{0x01, 0x02, 0x03}
	b := []byte{0x04, 0x05}
	got := ComplementChecksumAdd(a, b)
	want := ComplementChecksum(append(append([]byte(nil), a...), b...))
	if got != want {
		t.Errorf("ComplementChecksumAdd = %04x, want %04x", got, want)
	}
}

func TestUDPZeroChecksumRules(t *testing.T) {
	var h UDPHeader
	h.SetChecksum(0)
	if !h.CheckChecksum(0x1234) {
		t.Error("stored checksum 0 must validate as 'no checksum' regardless of computed value")
	}

	h.SetChecksumEnable(0)
	if h.Checksum() != 0xffff {
		t.Errorf("a computed-zero checksum must be stored as all-ones, got %04x", h.Checksum())
	}
}
