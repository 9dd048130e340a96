package cpu_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/apu"
	"github.com/reneklacan/gbcore/internal/bus"
	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/cpu"
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/ppu"
	"github.com/reneklacan/gbcore/internal/timer"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

type harness struct {
	cpu *cpu.CPU
	irq *interrupts.Service
	bus *bus.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0104:0x0134], []byte{
		0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
		0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
		0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
		0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
	})
	var x uint8
	for i := 0x0134; i <= 0x014C; i++ {
		x = x - rom[i] - 1
	}
	rom[0x014D] = x

	cart, err := cartridge.Load(rom)
	require.NoError(t, err)

	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	tim := timer.NewController(irq, regs)
	p := ppu.New(irq, regs, false)
	a := apu.New(regs)
	b := bus.New(cart, p, tim, a, regs, false)

	c := cpu.New(b, irq)
	return &harness{cpu: c, irq: irq, bus: b}
}

// load writes a program into WRAM (0xC000+) and points PC at it, since ROM
// in the test cartridge is read-only from bank 0's zero-filled backing.
func (h *harness) load(t *testing.T, program ...uint8) {
	t.Helper()
	for i, b := range program {
		h.bus.Write(0xC000+uint16(i), b)
	}
	h.cpu.PC = 0xC000
}

func TestFLowNibbleAlwaysZero(t *testing.T) {
	h := newHarness(t)
	// POP AF with garbage low nibble bits set must still mask them off.
	h.bus.Write(0xFFFC, 0xFF) // low byte -> F
	h.bus.Write(0xFFFD, 0x12) // high byte -> A
	h.cpu.SP = 0xFFFC
	h.load(t, 0xF1) // POP AF

	h.cpu.Step()
	require.Equal(t, uint8(0x00), h.cpu.F&0x0F)
}

func TestEIDelaysInterruptByOneInstruction(t *testing.T) {
	h := newHarness(t)
	h.irq.Enable = interrupts.VBlank
	h.load(t, 0xFB, 0x00, 0x00, 0x00) // EI, NOP, NOP, NOP
	h.irq.Request(interrupts.VBlank)

	h.cpu.Step() // EI itself
	pcAfterEI := h.cpu.PC
	require.Equal(t, uint16(0xC001), pcAfterEI)

	h.cpu.Step() // instruction right after EI must run, not the interrupt
	require.Equal(t, uint16(0xC002), h.cpu.PC)

	h.cpu.Step() // now the interrupt should dispatch before the next NOP
	require.Equal(t, uint16(0x0040), h.cpu.PC)
}

func TestHaltBugRereadsNextByteWithoutAdvancing(t *testing.T) {
	h := newHarness(t)
	h.irq.Enable = interrupts.VBlank
	h.irq.Request(interrupts.VBlank) // pending, but IME=0
	h.cpu.A = 0x00
	h.load(t, 0x76, 0x3C) // HALT, INC A

	h.cpu.Step() // HALT triggers the halt bug instead of halting
	require.Equal(t, uint16(0xC001), h.cpu.PC)

	h.cpu.Step() // executes INC A but PC does not advance past it
	require.Equal(t, uint8(0x01), h.cpu.A)
	require.Equal(t, uint16(0xC001), h.cpu.PC)

	h.cpu.Step() // the byte at 0xC001 runs a second time, PC now advances
	require.Equal(t, uint8(0x02), h.cpu.A)
	require.Equal(t, uint16(0xC002), h.cpu.PC)
}

func TestHaltResumesOnPendingInterruptWithoutDispatchingWhenIMEOff(t *testing.T) {
	h := newHarness(t)
	h.load(t, 0x76, 0x3C) // HALT, INC A
	h.cpu.Step()          // IME=0, no pending yet: halts
	require.Equal(t, uint16(0xC001), h.cpu.PC)

	h.irq.Enable = interrupts.Timer
	h.irq.Request(interrupts.Timer)

	h.cpu.Step() // wakes but does not dispatch (IME still 0)
	require.Equal(t, uint16(0xC001), h.cpu.PC)

	h.cpu.Step() // now executes INC A normally
	require.Equal(t, uint8(0x02), h.cpu.A)
}

func TestInterruptDispatchPriorityVBlankOverTimer(t *testing.T) {
	h := newHarness(t)
	h.irq.Enable = interrupts.VBlank | interrupts.Timer
	h.irq.Request(interrupts.Timer)
	h.irq.Request(interrupts.VBlank)
	h.load(t, 0xFB, 0x00) // EI, NOP
	h.cpu.Step()          // EI
	h.cpu.Step()          // NOP (delayed IME still applying)
	h.cpu.Step()          // dispatch: VBlank must win

	require.Equal(t, uint16(0x0040), h.cpu.PC)
	require.Equal(t, uint8(interrupts.Timer), h.irq.Flag)
}

func TestDAACorrectsAdditionToBCD(t *testing.T) {
	h := newHarness(t)
	h.cpu.A = 0x09
	h.load(t, 0xC6, 0x08, 0x27) // ADD A,0x08; DAA -> 0x17 in BCD
	h.cpu.Step()
	h.cpu.Step()
	require.Equal(t, uint8(0x17), h.cpu.A)
}

// stepCycles runs one instruction and returns the M-cycles it consumed,
// mirroring how System.Step reports cycles_consumed off the bus counter.
func (h *harness) stepCycles() int {
	before := h.bus.Cycles()
	h.cpu.Step()
	return int(h.bus.Cycles() - before)
}

func TestJPImmediateTakesFourCycles(t *testing.T) {
	h := newHarness(t)
	h.load(t, 0xC3, 0x00, 0xD0) // JP 0xD000
	require.Equal(t, 4, h.stepCycles())
	require.Equal(t, uint16(0xD000), h.cpu.PC)
}

func TestJPConditionalTakenVsNotTaken(t *testing.T) {
	h := newHarness(t)
	h.cpu.F = 0x00 // Z clear -> NZ taken
	h.load(t, 0xC2, 0x00, 0xD0)
	require.Equal(t, 4, h.stepCycles())
	require.Equal(t, uint16(0xD000), h.cpu.PC)

	h = newHarness(t)
	h.cpu.F = flagZeroForTest
	h.load(t, 0xC2, 0x00, 0xD0) // NZ not taken, Z set
	require.Equal(t, 3, h.stepCycles())
	require.Equal(t, uint16(0xC003), h.cpu.PC)
}

func TestRETTakesFourCycles(t *testing.T) {
	h := newHarness(t)
	h.bus.Write(0xC100, 0x34)
	h.bus.Write(0xC101, 0x12)
	h.cpu.SP = 0xC100
	h.load(t, 0xC9) // RET
	require.Equal(t, 4, h.stepCycles())
	require.Equal(t, uint16(0x1234), h.cpu.PC)
}

func TestRETConditionalTakenVsNotTaken(t *testing.T) {
	h := newHarness(t)
	h.bus.Write(0xC100, 0x34)
	h.bus.Write(0xC101, 0x12)
	h.cpu.SP = 0xC100
	h.cpu.F = 0x00 // Z clear -> RET NZ taken
	h.load(t, 0xC0)
	require.Equal(t, 5, h.stepCycles())
	require.Equal(t, uint16(0x1234), h.cpu.PC)

	h = newHarness(t)
	h.cpu.F = flagZeroForTest // RET NZ not taken
	h.load(t, 0xC0)
	require.Equal(t, 2, h.stepCycles())
	require.Equal(t, uint16(0xC001), h.cpu.PC)
}

const flagZeroForTest = uint8(1) << 7

func TestInterruptDispatchTakesFiveCycles(t *testing.T) {
	h := newHarness(t)
	h.irq.Enable = interrupts.VBlank
	h.irq.Request(interrupts.VBlank)
	h.load(t, 0xFB, 0x00, 0x00) // EI, NOP, NOP
	h.cpu.Step()                // EI
	h.cpu.Step()                // NOP, IME now applies
	require.Equal(t, 5, h.stepCycles())
	require.Equal(t, uint16(0x0040), h.cpu.PC)
}
