// internal/publisher/modbus_test.go
package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// ---- fake register client ----

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeRegisterClient struct {
	writes  []writeCall
	fail    bool
	onWrite func()
}

func (f *fakeRegisterClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("connection reset")
	}
	f.writes = append(f.writes, writeCall{
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	if f.onWrite != nil {
		f.onWrite()
	}
	return nil
}

func (f *fakeRegisterClient) last() writeCall {
	return f.writes[len(f.writes)-1]
}

func batchOf(s status.Snapshot) status.Batch {
	return status.Encode(s)
}

func bootSnapshot() status.Snapshot {
	return status.Snapshot{
		Status:   status.Init,
		LocalIP:  status.UnsetIP,
		PublicIP: status.UnsetIP,
	}
}

// ---- tests ----

func TestModbusSink_DeviceNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeRegisterClient{}
	plan := ModbusPlan{Endpoint: "status-endpoint", UnitID: 1, BaseSlot: 0, DeviceName: "RELAY-01"}

	sink := NewModbusSink(plan, cli)
	ctx := context.Background()

	// ---- first write: FULL ASSERT ----
	if err := sink.Publish(ctx, batchOf(bootSnapshot())); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	if len(cli.last().regs) != status.SlotsPerDevice {
		t.Fatalf(
			"expected full block write (%d regs), got %d",
			status.SlotsPerDevice,
			len(cli.last().regs),
		)
	}

	expectedNameRegs := status.EncodeBlock(status.Snapshot{}, plan.DeviceName)[status.SlotDeviceNameStart:]
	for i := 0; i < status.SlotDeviceNameSlots; i++ {
		slot := status.SlotDeviceNameStart + i
		if cli.last().regs[slot] != expectedNameRegs[i] {
			t.Fatalf(
				"device name slot %d mismatch: got=%d want=%d",
				slot,
				cli.last().regs[slot],
				expectedNameRegs[i],
			)
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	s := bootSnapshot()
	s.Status = status.Connected

	if err := sink.Publish(ctx, batchOf(s)); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	if len(cli.writes) != 2 {
		t.Fatalf("expected exactly one incremental write, got %d", len(cli.writes)-1)
	}
	w := cli.last()
	if w.addr != status.SlotStatus || len(w.regs) != 1 || w.regs[0] != uint16(status.Connected) {
		t.Fatalf("unexpected incremental write: %+v", w)
	}
}

func TestModbusSink_CounterWrittenAsPair(t *testing.T) {
	cli := &fakeRegisterClient{}
	plan := ModbusPlan{Endpoint: "ep", UnitID: 7, BaseSlot: 2}

	sink := NewModbusSink(plan, cli)
	ctx := context.Background()

	_ = sink.Publish(ctx, batchOf(bootSnapshot()))

	s := bootSnapshot()
	s.Attempts = 0x10002
	if err := sink.Publish(ctx, batchOf(s)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := cli.last()
	wantAddr := uint16(2*status.SlotsPerDevice + status.SlotAttemptsHi)
	if w.addr != wantAddr {
		t.Fatalf("unexpected write addr: got=%d want=%d", w.addr, wantAddr)
	}
	if w.unitID != 7 {
		t.Fatalf("unexpected unit id: %d", w.unitID)
	}
	if len(w.regs) != 2 || w.regs[0] != 1 || w.regs[1] != 2 {
		t.Fatalf("unexpected counter regs: %v", w.regs)
	}
}

func TestModbusSink_NoChangeNoWrite(t *testing.T) {
	cli := &fakeRegisterClient{}
	sink := NewModbusSink(ModbusPlan{Endpoint: "ep"}, cli)
	ctx := context.Background()

	_ = sink.Publish(ctx, batchOf(bootSnapshot()))
	_ = sink.Publish(ctx, batchOf(bootSnapshot()))

	if len(cli.writes) != 1 {
		t.Fatalf("expected only the initial full write, got %d writes", len(cli.writes))
	}
}

func TestModbusSink_FailureForcesFullReassert(t *testing.T) {
	cli := &fakeRegisterClient{}
	sink := NewModbusSink(ModbusPlan{Endpoint: "ep", DeviceName: "X"}, cli)
	ctx := context.Background()

	_ = sink.Publish(ctx, batchOf(bootSnapshot()))

	s := bootSnapshot()
	s.Status = status.Disconnected

	cli.fail = true
	if err := sink.Publish(ctx, batchOf(s)); err == nil {
		t.Fatalf("expected error, got nil")
	}

	cli.fail = false
	if err := sink.Publish(ctx, batchOf(s)); err != nil {
		t.Fatalf("recovery write failed: %v", err)
	}

	if len(cli.last().regs) != status.SlotsPerDevice {
		t.Fatalf("expected full block after failure, got %d regs", len(cli.last().regs))
	}
}

func TestModbusSink_MissingClient(t *testing.T) {
	sink := NewModbusSink(ModbusPlan{Endpoint: "ep"}, nil)

	if err := sink.Publish(context.Background(), batchOf(bootSnapshot())); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestModbusSink_DoneContextWritesNothing(t *testing.T) {
	cli := &fakeRegisterClient{}
	sink := NewModbusSink(ModbusPlan{Endpoint: "ep"}, cli)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Publish(ctx, batchOf(bootSnapshot()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(cli.writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(cli.writes))
	}
}

func TestModbusSink_DeadlineStopsRemainingWrites(t *testing.T) {
	cli := &fakeRegisterClient{}
	sink := NewModbusSink(ModbusPlan{Endpoint: "ep"}, cli)

	if err := sink.Publish(context.Background(), batchOf(bootSnapshot())); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	// status and attempts both change; the deadline passes after the first write
	ctx, cancel := context.WithCancel(context.Background())
	cli.onWrite = cancel

	s := bootSnapshot()
	s.Status = status.Connected
	s.Attempts = 1

	if err := sink.Publish(ctx, batchOf(s)); err == nil {
		t.Fatalf("expected error after deadline, got nil")
	}
	if len(cli.writes) != 2 {
		t.Fatalf("expected full write plus one group, got %d writes", len(cli.writes))
	}

	cli.onWrite = nil
	if err := sink.Publish(context.Background(), batchOf(s)); err != nil {
		t.Fatalf("recovery write failed: %v", err)
	}
	if len(cli.last().regs) != status.SlotsPerDevice {
		t.Fatalf("expected full block after interrupted write, got %d regs", len(cli.last().regs))
	}
}
