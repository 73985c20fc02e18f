package device

import (
	"io"
	"net"

	"golang.org/x/sys/unix"

	"github.com/dosgo/natgw/internal/bufview"
	"github.com/dosgo/natgw/internal/wire"
)

// athernetFrameSize is the fixed on-wire frame size for every Athernet
// frame: one reserved header byte plus a 2047-byte payload budget.
const athernetFrameSize = 2048

// AthernetMTU is the IPv4 datagram capacity this device advertises to the
// NAT engine: the frame size minus the one reserved header byte.
const AthernetMTU = athernetFrameSize - 1

// AthernetDevice bridges a Unix-domain stream socket to a ring.Ring pair.
// Each frame on the wire is exactly athernetFrameSize bytes: one reserved
// header byte (unused) followed by an IPv4 datagram, zero-padded to fill
// the frame.
type AthernetDevice struct {
	ringPair

	conn net.Conn
	done chan struct{}
}

// DialAthernet connects to the peer process's Unix-domain socket at
// sockPath and starts the frame pump goroutines.
func DialAthernet(sockPath string) (*AthernetDevice, error) {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, err
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		tuneSocketBuffers(uc)
	}

	d := &AthernetDevice{
		ringPair: newRingPair(AthernetMTU, defaultRingDepth),
		conn:     conn,
		done:     make(chan struct{}),
	}

	go d.receiveLoop()
	go d.sendLoop()

	return d, nil
}

// tuneSocketBuffers widens the kernel socket buffers to absorb a burst of
// back-to-back frames without the peer process blocking.
func tuneSocketBuffers(uc *net.UnixConn) {
	raw, err := uc.SyscallConn()
	if err != nil {
		return
	}
	const bufBytes = athernetFrameSize * defaultRingDepth
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bufBytes)
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bufBytes)
	})
}

func (d *AthernetDevice) receiveLoop() {
	frame := make([]byte, athernetFrameSize)
	for {
		select {
		case <-d.done:
			return
		default:
		}

		if _, err := io.ReadFull(d.conn, frame); err != nil {
			wire.Warnf("athernet", "frame read failed: %v", err)
			return
		}

		payload := bufview.Of(frame[1:])
		ipHdr, _, _ := wire.Split(payload)
		if ipHdr == nil {
			wire.Warnf("invalid package", "athernet frame does not carry a valid ipv4 datagram")
			continue
		}
		total := int(ipHdr.TotalLength())
		datagram, ok := payload.Sub(0, total)
		if !ok {
			continue
		}

		g := d.ingress.TrySend()
		if g.Empty() {
			wire.Warnf("package loss", "athernet ingress ring full, dropping frame")
			g.Close()
			continue
		}
		g.View().CopyFrom(datagram)
		g.Close()
	}
}

func (d *AthernetDevice) sendLoop() {
	frame := make([]byte, athernetFrameSize)
	for {
		select {
		case <-d.done:
			return
		default:
		}

		g := d.egress.Recv()
		v := g.View()
		clear(frame)
		n := v.Len()
		if ipHdr, _, _ := wire.Split(v); ipHdr != nil {
			n = int(ipHdr.TotalLength())
		}
		copy(frame[1:], v.Bytes()[:n])
		g.Close()

		if _, err := d.conn.Write(frame); err != nil {
			wire.Warnf("athernet", "frame write failed: %v", err)
			return
		}
	}
}

// Close stops the frame pump goroutines and closes the underlying socket.
func (d *AthernetDevice) Close() error {
	close(d.done)
	return d.conn.Close()
}
