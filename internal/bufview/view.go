// Package bufview implements a non-owning window over a byte buffer.
//
// A View never allocates and never copies its backing array; it is the
// foundation every packet-touching package builds on (wire header
// overlays, ring slots, device send/recv paths).
package bufview

import (
	"fmt"
	"unsafe"
)

// View is a borrowed (base, offset, length) window into someone else's
// byte slice. The zero View is empty.
type View struct {
	buf []byte
}

// Of wraps buf in a View covering the whole slice.
func Of(buf []byte) View { return View{buf: buf} }

// Len returns the number of bytes currently visible through the view.
func (v View) Len() int { return len(v.buf) }

// Empty reports whether the view has zero length.
func (v View) Empty() bool { return len(v.buf) == 0 }

// Bytes returns the raw backing slice. Callers must not retain it past the
// view's own scope if the view aliases a ring slot.
func (v View) Bytes() []byte { return v.buf }

// Sub returns the half-open sub-range [lo, hi) of v, or a zero View and
// false if the range is out of bounds.
func (v View) Sub(lo, hi int) (View, bool) {
	if lo < 0 || hi < lo || hi > len(v.buf) {
		return View{}, false
	}
	return View{buf: v.buf[lo:hi]}, true
}

// SubFrom returns v[lo:], or a zero View and false if lo is out of bounds.
func (v View) SubFrom(lo int) (View, bool) {
	if lo < 0 || lo > len(v.buf) {
		return View{}, false
	}
	return View{buf: v.buf[lo:]}, true
}

// CopyFrom bulk-copies src into v. The two views need not be the same
// length; the shorter length is copied, so callers are expected to
// pre-size both sides.
func (v View) CopyFrom(src View) int {
	return copy(v.buf, src.buf)
}

// Cast overlays v's prefix as a *T, returning nil if v is too small for T
// or its first byte is not aligned for T. T must be a fixed-layout struct matching the wire format exactly (no
// padding); callers are expected to read/write its fields through
// accessor methods that apply network byte order, never field access
// directly on multi-byte integers.
func Cast[T any](v View) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(v.buf) < size {
		return nil
	}
	if uintptr(unsafe.Pointer(&v.buf[0]))%unsafe.Alignof(zero) != 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(&v.buf[0]))
}

func (v View) String() string {
	return fmt.Sprintf("View{len=%d}", len(v.buf))
}
