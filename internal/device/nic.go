package device

import (
	"encoding/binary"
	"log"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	hashlru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/bpf"
	"golang.org/x/net/ipv4"

	"github.com/dosgo/natgw/internal/bufview"
	"github.com/dosgo/natgw/internal/wire"
)

// nicMTU is the IPv4 payload limit advertised to the NAT engine for the
// WAN-facing NIC device; 1500 matches a standard Ethernet MTU.
const nicMTU = 1500

// captureFilter is the exact BPF expression spec.md §6 requires.
const captureFilter = "icmp or udp or tcp"

// NICDevice bridges a LAN-to-WAN-facing network interface to a ring.Ring
// pair: a receiver goroutine captures Ethernet frames via gopacket/pcap
// and hands their IPv4 payload to the ingress ring; a sender goroutine
// drains the egress ring and injects datagrams via a raw IPv4 socket.
type NICDevice struct {
	ringPair

	gatewayIP uint32 // host-order IPv4, for the anti-loopback check

	handle  *pcap.Handle
	rawConn *ipv4.RawConn

	// etherTypeVM is an in-process BPF check for EtherType==0x0800,
	// compiled with the portable big-endian encoding; kept as a belt and
	// suspenders alongside the little-endian etherTypeIPv4LE comparison
	// on platforms where libpcap's own filter compiler isn't available
	// in-process to the Go binding.
	etherTypeVM *bpf.VM

	// warnSeen de-duplicates repeated malformed-packet warnings sharing
	// the same category and message within a short window.
	warnSeen *hashlru.LRU[string, struct{}]

	// verbose, when set, logs each accepted frame's Ethernet/IPv4 header
	// via their String() methods, for the -v diagnostic flag.
	verbose bool

	done chan struct{}
}

// NewNICDevice opens ifaceName for live capture and raw injection.
// gatewayIP is this gateway's own WAN-facing address, used for the
// anti-loopback check on receive. When verbose is true, every accepted
// frame is logged via its Ethernet/IPv4 header String() method.
func NewNICDevice(ifaceName string, gatewayIP net.IP, verbose bool) (*NICDevice, error) {
	handle, err := pcap.OpenLive(ifaceName, int32(nicMTU+100), false, pcap.BlockForever)
	if err != nil {
		return nil, err
	}
	if err := handle.SetBPFFilter(captureFilter); err != nil {
		handle.Close()
		return nil, err
	}

	packetConn, err := net.ListenPacket("ip4:255", "0.0.0.0")
	if err != nil {
		handle.Close()
		return nil, err
	}
	rawConn, err := ipv4.NewRawConn(packetConn)
	if err != nil {
		handle.Close()
		packetConn.Close()
		return nil, err
	}

	etherTypeVM, err := compileEtherTypeFilter()
	if err != nil {
		handle.Close()
		packetConn.Close()
		return nil, err
	}

	d := &NICDevice{
		ringPair:    newRingPair(nicMTU, defaultRingDepth),
		gatewayIP:   binary.BigEndian.Uint32(gatewayIP.To4()),
		handle:      handle,
		rawConn:     rawConn,
		etherTypeVM: etherTypeVM,
		warnSeen:    hashlru.NewLRU[string, struct{}](1024, nil, 5*time.Second),
		verbose:     verbose,
		done:        make(chan struct{}),
	}

	go d.receiveLoop()
	go d.sendLoop()

	return d, nil
}

// compileEtherTypeFilter assembles a tiny classic-BPF program accepting
// only frames whose EtherType (offset 12, big-endian) is 0x0800, run
// in-process as a cross-check alongside the little-endian comparison on
// the Ethernet header itself.
func compileEtherTypeFilter() (*bpf.VM, error) {
	prog, err := bpf.Assemble([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipFalse: 1},
		bpf.RetConstant{Val: 1},
		bpf.RetConstant{Val: 0},
	})
	if err != nil {
		return nil, err
	}
	return bpf.NewVM(prog)
}

func (d *NICDevice) receiveLoop() {
	src := gopacket.NewPacketSource(d.handle, d.handle.LinkType())
	packets := src.Packets()
	for {
		select {
		case <-d.done:
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			d.handlePacket(pkt)
		}
	}
}

func (d *NICDevice) handlePacket(pkt gopacket.Packet) {
	md := pkt.Metadata()
	raw := pkt.Data()
	if md != nil && md.CaptureInfo.CaptureLength != md.CaptureInfo.Length {
		// REDESIGN FLAG (a): drop (not merely warn) on truncation.
		d.warnOnce("eth", "packet truncated, dropping")
		return
	}

	ethView := bufview.Of(raw)
	eth := bufview.Cast[wire.EthernetHeader](ethView)
	if eth == nil {
		d.warnOnce("eth", "short ethernet frame")
		return
	}
	if !eth.IsIPv4() {
		return
	}
	if accepted, err := d.etherTypeVM.Run(raw); err != nil || accepted == 0 {
		d.warnOnce("eth", "ethertype bpf check disagreed with the little-endian comparison")
		return
	}
	ethPayload, ok := ethView.SubFrom(wire.EthernetHeaderSize)
	if !ok {
		return
	}

	ipHdr, _, _ := wire.Split(ethPayload)
	if ipHdr == nil || wire.ComplementChecksum(ipHdr.Bytes()) != 0 {
		d.warnOnce("invalid package", "invalid ipv4 header")
		return
	}

	if d.verbose {
		log.Print(eth)
		log.Print(ipHdr)
	}

	if ipHdr.SrcIPUint32() == d.gatewayIP && ipHdr.DstIPUint32() != d.gatewayIP {
		return // anti-loopback, spec §4.4
	}

	total := int(ipHdr.TotalLength())
	ipDatagram, ok := ethPayload.Sub(0, total)
	if !ok {
		d.warnOnce("invalid package", "total_length exceeds captured bytes")
		return
	}

	g := d.ingress.TrySend()
	if g.Empty() {
		d.warnOnce("package loss", "ingress ring full, dropping packet")
		g.Close()
		return
	}
	g.View().CopyFrom(ipDatagram)
	g.Close()
}

func (d *NICDevice) warnOnce(category, msg string) {
	key := category + ":" + msg
	if _, ok := d.warnSeen.Get(key); ok {
		return
	}
	d.warnSeen.Add(key, struct{}{})
	wire.Warnf(category, "%s", msg)
}

func (d *NICDevice) sendLoop() {
	for {
		select {
		case <-d.done:
			return
		default:
		}
		g := d.egress.Recv()
		d.writeDatagram(g.View())
		g.Close()
	}
}

func (d *NICDevice) writeDatagram(v bufview.View) {
	ipHdr, opts, data := wire.Split(v)
	if ipHdr == nil {
		wire.Warnf("invalid package", "cannot split egress datagram for injection")
		return
	}

	h := &ipv4.Header{
		Version:  4,
		Len:      ipv4.HeaderLen + opts.Len(),
		TOS:      int(ipHdr.TOS()),
		TotalLen: int(ipHdr.TotalLength()),
		ID:       int(ipHdr.Identification()),
		FragOff:  int(ipHdr.FragmentField()),
		TTL:      int(ipHdr.TTL()),
		Protocol: int(ipHdr.Protocol()),
		Checksum: int(ipHdr.Checksum()),
		Src:      ipHdr.SrcIP(),
		Dst:      ipHdr.DstIP(),
		Options:  opts.Bytes(),
	}

	if err := d.rawConn.WriteTo(h, data.Bytes(), nil); err != nil {
		wire.Warnf("package loss", "raw injection failed: %v", err)
	}
}

// Close stops the capture/inject goroutines and releases the underlying
// handles.
func (d *NICDevice) Close() error {
	close(d.done)
	d.handle.Close()
	return d.rawConn.Close()
}
