// internal/netaddr/ip.go
package netaddr

import (
	"fmt"
	"net/netip"
	"strconv"
)

// IPToString converts a 4-octet address into dotted-decimal form.
// Pure conversion.
func IPToString(addr [4]byte) string {
	b := make([]byte, 0, 15)
	for i, o := range addr {
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendUint(b, uint64(o), 10)
	}
	return string(b)
}

// ParseIPv4 parses a dotted quad into its 4 octets.
// Leading zeros and IPv4-mapped IPv6 forms are rejected.
func ParseIPv4(s string) ([4]byte, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return [4]byte{}, fmt.Errorf("netaddr: %w", err)
	}
	if !a.Is4() {
		return [4]byte{}, fmt.Errorf("netaddr: %q is not an IPv4 address", s)
	}
	return a.As4(), nil
}

// FromNetIP returns the dotted quad for an IPv4 (or IPv4-mapped) address.
func FromNetIP(a netip.Addr) (string, bool) {
	a = a.Unmap()
	if !a.Is4() {
		return "", false
	}
	return IPToString(a.As4()), true
}
