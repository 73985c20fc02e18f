package wire

import (
	"fmt"
	"net"
)

// ParseEndpoint parses "a.b.c.d:port" into an IPv4 address and port.
func ParseEndpoint(s string) (net.IP, uint16, error) {
	var a, b, c, d int
	var port int
	n, err := fmt.Sscanf(s, "%d.%d.%d.%d:%d", &a, &b, &c, &d, &port)
	if err != nil || n != 5 {
		return nil, 0, fmt.Errorf("wire: invalid endpoint %q", s)
	}
	for _, octet := range []int{a, b, c, d} {
		if octet < 0 || octet > 255 {
			return nil, 0, fmt.Errorf("wire: invalid endpoint %q", s)
		}
	}
	if port < 0 || port > 65535 {
		return nil, 0, fmt.Errorf("wire: invalid endpoint %q", s)
	}
	ip := net.IPv4(byte(a), byte(b), byte(c), byte(d))
	return ip, uint16(port), nil
}
