// Package localip discovers this host's outbound IPv4 address by
// inspecting the kernel's default route.
package localip

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// Discover returns the IPv4 address assigned to the interface the
// kernel's default route egresses through.
func Discover() (net.IP, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("localip: list routes: %w", err)
	}

	var defaultRoute *netlink.Route
	for i := range routes {
		if routes[i].Dst == nil {
			defaultRoute = &routes[i]
			break
		}
	}
	if defaultRoute == nil {
		return nil, fmt.Errorf("localip: no default route found")
	}

	link, err := netlink.LinkByIndex(defaultRoute.LinkIndex)
	if err != nil {
		return nil, fmt.Errorf("localip: resolve link %d: %w", defaultRoute.LinkIndex, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("localip: list addresses on %s: %w", link.Attrs().Name, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("localip: interface %s has no ipv4 address", link.Attrs().Name)
	}

	return addrs[0].IP, nil
}
