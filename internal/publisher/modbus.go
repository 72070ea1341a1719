// internal/publisher/modbus.go
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// registerClient is the exact contract the modbus sink uses.
type registerClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// ModbusPlan locates the device status block inside a Modbus memory.
type ModbusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// liveGroup is one field's slot range inside the live area.
type liveGroup struct {
	name  string
	start int
	n     int
}

// liveGroups mirrors the register layout in package status.
var liveGroups = [...]liveGroup{
	{status.NameStatus, status.SlotStatus, 1},
	{status.NameAttempts, status.SlotAttemptsHi, 2},
	{status.NameAccepted, status.SlotAcceptedHi, 2},
	{status.NameRejected, status.SlotRejectedHi, 2},
	{status.NameLocalIP, status.SlotLocalIPHi, 2},
	{status.NamePublicIP, status.SlotPublicIPHi, 2},
}

// modbusSink writes the status block into a Modbus register memory.
//
// The first write, and the first write after any failure, re-asserts the
// full block including the device name. Otherwise only changed fields are
// written.
type modbusSink struct {
	plan ModbusPlan
	cli  registerClient

	needFull bool
	last     []uint16
}

// NewModbusSink builds the sink over an already constructed client.
func NewModbusSink(plan ModbusPlan, cli registerClient) Sink {
	return &modbusSink{
		plan:     plan,
		cli:      cli,
		needFull: true,
	}
}

func (m *modbusSink) Name() string { return "modbus" }

func (m *modbusSink) Publish(ctx context.Context, b status.Batch) error {
	if m.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", m.plan.Endpoint)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("status writer: %w", err)
	}

	baseAddr := m.baseAddr()
	live := status.EncodeLive(b.Source)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if m.needFull {
		regs := status.EncodeBlock(b.Source, m.plan.DeviceName)

		if err := m.cli.WriteRegisters(m.plan.UnitID, baseAddr, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		m.needFull = false
		m.last = live
		return nil
	}

	var errs []string

	for _, g := range liveGroups {
		if equalRegs(m.last[g.start:g.start+g.n], live[g.start:g.start+g.n]) {
			continue
		}
		// the dispatcher deadline bounds the remaining writes
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write skipped: %v", g.start, g.name, err))
			break
		}

		if err := m.cli.WriteRegisters(
			m.plan.UnitID,
			baseAddr+uint16(g.start),
			live[g.start:g.start+g.n],
		); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", g.start, g.name, err))
			continue
		}
		copy(m.last[g.start:g.start+g.n], live[g.start:g.start+g.n])
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next success.
		m.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (m *modbusSink) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return m.plan.BaseSlot * status.SlotsPerDevice
}

func equalRegs(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
