package wire

import (
	"net"

	"github.com/yl2chen/cidranger"
)

// LANMatcher answers "is this IP inside the NAT's LAN subnet" using a
// CIDR-trie ranger for fast containment lookups.
type LANMatcher struct {
	ranger cidranger.Ranger
}

// NewLANMatcher builds a matcher for the given LAN CIDR (e.g.
// "192.168.1.0/24").
func NewLANMatcher(cidr string) (*LANMatcher, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	r := cidranger.NewPCTrieRanger()
	if err := r.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
		return nil, err
	}
	return &LANMatcher{ranger: r}, nil
}

// Contains reports whether ip falls inside the configured LAN subnet.
func (m *LANMatcher) Contains(ip net.IP) bool {
	ok, err := m.ranger.Contains(ip)
	if err != nil {
		return false
	}
	return ok
}
