// Command natgw runs a user-space IPv4 NAT gateway bridging a LAN-side
// Athernet tunnel device and a WAN-side NIC device.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"strings"

	"github.com/dosgo/natgw/internal/localip"
	"github.com/dosgo/natgw/internal/server"
	"github.com/dosgo/natgw/internal/wire"
)

// mapFlags collects repeated -map flags into a slice; flag.Var is the
// stdlib idiom for "repeat this flag N times".
type mapFlags []server.StaticMapping

func (m *mapFlags) String() string { return "" }

func (m *mapFlags) Set(value string) error {
	ip, port, err := wire.ParseEndpoint(value)
	if err != nil {
		return err
	}
	*m = append(*m, server.StaticMapping{LANIP: ip, LANPort: port})
	return nil
}

func main() {
	gatewayFlag := flag.String("gateway", "", "this gateway's WAN-facing IPv4 address (default: auto-discovered from the default route)")
	lanSocket := flag.String("lan-athernet", "", "path to the Athernet peer's unix-domain socket")
	wanIface := flag.String("wan-iface", "", "WAN-facing network interface name")
	lanSubnet := flag.String("lan-subnet", "192.168.1.0/24", "LAN subnet CIDR, for leak detection")
	verbose := flag.Bool("v", false, "log each accepted WAN frame's Ethernet/IPv4 header")
	var mappings mapFlags
	flag.Var(&mappings, "map", "static lan_ip:lan_port mapping, repeatable")
	flag.Parse()

	if *lanSocket == "" || *wanIface == "" {
		log.Fatalf("natgw: -lan-athernet and -wan-iface are required")
	}
	if !strings.Contains(*lanSubnet, "/") {
		log.Fatalf("natgw: -lan-subnet must be a CIDR, got %q", *lanSubnet)
	}

	var gatewayIP net.IP
	if *gatewayFlag == "" {
		var err error
		gatewayIP, err = localip.Discover()
		if err != nil {
			log.Fatalf("natgw: auto-discover -gateway: %v", err)
		}
	} else {
		gatewayIP = net.ParseIP(*gatewayFlag)
		if gatewayIP == nil || gatewayIP.To4() == nil {
			log.Fatalf("natgw: invalid -gateway address %q", *gatewayFlag)
		}
	}

	srv, err := server.New(server.Config{
		GatewayIP:      gatewayIP,
		LANSocketPath:  *lanSocket,
		WANInterface:   *wanIface,
		LANSubnetCIDR:  *lanSubnet,
		StaticMappings: mappings,
		Verbose:        *verbose,
	})
	if err != nil {
		log.Fatalf("natgw: %v", err)
	}
	defer srv.Close()

	if err := srv.Run(context.Background()); err != nil {
		log.Fatalf("natgw: %v", err)
	}
}
