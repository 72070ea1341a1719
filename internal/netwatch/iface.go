// internal/netwatch/iface.go
package netwatch

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/tamzrod/ssh-relay/internal/netaddr"
)

// InterfaceAddr returns an AddrFunc for the named interface.
// An empty name selects the first up, non-loopback interface with IPv4.
func InterfaceAddr(name string) AddrFunc {
	return func() (string, bool, error) {
		if name != "" {
			ifc, err := net.InterfaceByName(name)
			if err != nil {
				return "", false, fmt.Errorf("netwatch: interface %s: %w", name, err)
			}
			addr, ok := ipv4Of(*ifc)
			return addr, ok, nil
		}

		ifcs, err := net.Interfaces()
		if err != nil {
			return "", false, fmt.Errorf("netwatch: list interfaces: %w", err)
		}
		for _, ifc := range ifcs {
			if ifc.Flags&net.FlagLoopback != 0 {
				continue
			}
			if addr, ok := ipv4Of(ifc); ok {
				return addr, true, nil
			}
		}
		return "", false, nil
	}
}

// ipv4Of returns the first IPv4 address of an up interface.
func ipv4Of(ifc net.Interface) (string, bool) {
	if ifc.Flags&net.FlagUp == 0 {
		return "", false
	}

	addrs, err := ifc.Addrs()
	if err != nil {
		return "", false
	}

	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		if s, ok := netaddr.FromNetIP(ip); ok {
			return s, true
		}
	}
	return "", false
}
