// Package server assembles a complete NatServer: a LAN-side Athernet
// tunnel device, a WAN-side NIC device, a shared NAT table preloaded
// with static mappings, and the two forwarding goroutines that bridge
// them, all supervised by an errgroup.Group.
package server

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/dosgo/natgw/internal/device"
	"github.com/dosgo/natgw/internal/nat"
	"github.com/dosgo/natgw/internal/wire"
)

// StaticMapping is a preconfigured (lan_ip, lan_port) pair to reserve a
// WAN port for before either forwarding goroutine starts, per spec.md
// §4.5 ("Initial static mappings passed at construction reserve their
// WAN ports before either forwarding thread starts").
type StaticMapping struct {
	LANIP   net.IP
	LANPort uint16
}

// Config is everything NatServer needs to assemble itself. There is no
// config file format: every field is set directly by the caller
// (cmd/natgw populates it from flags).
type Config struct {
	GatewayIP      net.IP
	LANSocketPath  string
	WANInterface   string
	LANSubnetCIDR  string
	StaticMappings []StaticMapping

	// Verbose enables per-frame Ethernet/IPv4 header logging on the WAN
	// NIC device, the -v diagnostic path cmd/natgw exposes.
	Verbose bool
}

// NatServer owns the LAN device, WAN device, NAT table, and forwarding
// engine assembled from a Config.
type NatServer struct {
	lan    device.Device
	wan    device.Device
	table  *nat.Table
	engine *nat.Engine
}

// New builds a NatServer from cfg. It dials the LAN Athernet socket,
// opens the WAN NIC for capture/injection, and installs every static
// mapping — printing one "port mapping add" line per mapping to stdout,
// per spec.md §6.
func New(cfg Config) (*NatServer, error) {
	gatewayIP := ipToUint32(cfg.GatewayIP)

	lanSubnet, err := wire.NewLANMatcher(cfg.LANSubnetCIDR)
	if err != nil {
		return nil, fmt.Errorf("server: lan subnet: %w", err)
	}

	lanDev, err := device.DialAthernet(cfg.LANSocketPath)
	if err != nil {
		return nil, fmt.Errorf("server: dial athernet: %w", err)
	}

	wanDev, err := device.NewNICDevice(cfg.WANInterface, cfg.GatewayIP, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("server: open nic: %w", err)
	}

	tbl := nat.NewTable()
	for _, m := range cfg.StaticMappings {
		wanPort, err := tbl.InstallStatic(ipToUint32(m.LANIP), m.LANPort)
		if err != nil {
			return nil, fmt.Errorf("server: install static mapping %s:%d: %w", m.LANIP, m.LANPort, err)
		}
		fmt.Printf("port mapping add: %s:%d <-> %d\n", m.LANIP, m.LANPort, wanPort)
	}

	eng := nat.NewEngine(tbl, lanSubnet, gatewayIP, lanDev.MTU(), wanDev.MTU())

	return &NatServer{lan: lanDev, wan: wanDev, table: tbl, engine: eng}, nil
}

// Run launches the LAN->WAN and WAN->LAN forwarding loops and blocks
// until one of them returns an error (port exhaustion) or ctx is
// canceled. Per spec.md §5/§7, any such error is meant to abort the
// process — the caller is expected to log.Fatalf on a non-nil return.
func (s *NatServer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.engine.RunLANToWAN(s.lan, s.wan) })
	g.Go(func() error { return s.engine.RunWANToLAN(s.wan, s.lan) })
	// RunWANToLAN never returns, so g.Wait would never return either; the
	// group context ends on the first error (or when ctx ends) instead.
	<-gctx.Done()
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Cause(gctx)
}

// Close releases both devices' underlying handles.
func (s *NatServer) Close() error {
	var firstErr error
	for _, d := range []device.Device{s.lan, s.wan} {
		if closer, ok := d.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func ipToUint32(ip net.IP) uint32 {
	return binary.BigEndian.Uint32(ip.To4())
}
