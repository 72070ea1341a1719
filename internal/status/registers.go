// internal/status/registers.go
package status

import "github.com/tamzrod/ssh-relay/internal/netaddr"

// Status register block layout.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of 16-bit registers per device.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

const (
	SlotStatus       = 0
	SlotAttemptsHi   = 1
	SlotAttemptsLo   = 2
	SlotAcceptedHi   = 3
	SlotAcceptedLo   = 4
	SlotRejectedHi   = 5
	SlotRejectedLo   = 6
	SlotLocalIPHi    = 7
	SlotLocalIPLo    = 8
	SlotPublicIPHi   = 9
	SlotPublicIPLo   = 10
	SlotLiveEnd      = SlotPublicIPLo
	SlotReservedLast = 19
)

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

const maxCounter = 0xFFFFFFFF

// EncodeLive returns slots 0..SlotLiveEnd for a snapshot.
// Counters saturate; unparseable addresses encode as 0.0.0.0.
// No IO. No side effects.
func EncodeLive(s Snapshot) []uint16 {
	regs := make([]uint16, SlotLiveEnd+1)

	regs[SlotStatus] = uint16(s.Status)
	putCounter(regs, SlotAttemptsHi, s.Attempts)
	putCounter(regs, SlotAcceptedHi, s.Accepted)
	putCounter(regs, SlotRejectedHi, s.Rejected)
	putIP(regs, SlotLocalIPHi, s.LocalIP)
	putIP(regs, SlotPublicIPHi, s.PublicIP)

	return regs
}

// EncodeBlock returns the full status block including the device name.
// The name occupies SlotDeviceNameSlots registers, two characters per
// register with the first in the high byte. Names longer than
// DeviceNameMaxChars are cut; bytes outside printable ASCII become '?'.
func EncodeBlock(s Snapshot, deviceName string) []uint16 {
	regs := make([]uint16, SlotsPerDevice)
	copy(regs, EncodeLive(s))

	n := len(deviceName)
	if n > DeviceNameMaxChars {
		n = DeviceNameMaxChars
	}
	for i := 0; i < n; i++ {
		c := deviceName[i]
		if c < ' ' || c > '~' {
			c = '?'
		}
		slot := SlotDeviceNameStart + i/2
		if i%2 == 0 {
			regs[slot] |= uint16(c) << 8
		} else {
			regs[slot] |= uint16(c)
		}
	}

	// SlotReservedLast stays zero
	return regs
}

func putCounter(regs []uint16, at int, v uint64) {
	if v > maxCounter {
		v = maxCounter
	}
	regs[at] = uint16(v >> 16)
	regs[at+1] = uint16(v)
}

func putIP(regs []uint16, at int, ip string) {
	octets, err := netaddr.ParseIPv4(ip)
	if err != nil {
		return
	}
	regs[at] = uint16(octets[0])<<8 | uint16(octets[1])
	regs[at+1] = uint16(octets[2])<<8 | uint16(octets[3])
}
