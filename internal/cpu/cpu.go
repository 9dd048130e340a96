// Package cpu implements the Sharp LR35902 instruction set: structural
// opcode decoding, per-M-cycle bus ticking, interrupt dispatch, and the
// HALT/STOP/EI-delay quirks that instruction-timing test ROMs check for.
package cpu

import (
	"github.com/reneklacan/gbcore/internal/bus"
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/types"
)

// CPU is the Sharp LR35902 register file plus dispatch state.
type CPU struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16

	// hlScratch backs regPtr(6), the "(HL)" pseudo-register used by the
	// structural decoder to treat memory and register operands uniformly.
	hlScratch uint8

	ime     bool
	eiDelay uint8
	halted  bool
	haltBug bool

	bus *bus.Bus
	irq *interrupts.Service
}

// New returns a CPU with the post-boot-ROM register state, wired to bus
// and the shared interrupt service.
func New(bus *bus.Bus, irq *interrupts.Service) *CPU {
	return &CPU{
		A: 0x01, F: 0xB0,
		B: 0x00, C: 0x13,
		D: 0x00, E: 0xD8,
		H: 0x01, L: 0x4D,
		SP: 0xFFFE, PC: 0x0100,
		bus: bus, irq: irq,
	}
}

func (c *CPU) busRead(addr uint16) uint8     { return c.bus.BusRead(addr) }
func (c *CPU) busWrite(addr uint16, v uint8) { c.bus.BusWrite(addr, v) }

// fetch reads the byte at PC and advances PC, except immediately after a
// halt-bug trigger, where the same byte is re-read without advancing.
func (c *CPU) fetch() uint8 {
	v := c.busRead(c.PC)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.PC++
	}
	return v
}

func (c *CPU) readOperand() uint8 { return c.fetch() }

func (c *CPU) readOperand16() uint16 {
	lo := c.readOperand()
	hi := c.readOperand()
	return uint16(hi)<<8 | uint16(lo)
}

// Step runs one instruction (or one M-cycle of HALT, or one interrupt
// dispatch) and returns control to the caller. The System's main loop
// calls this in a tight loop.
func (c *CPU) Step() {
	if c.halted {
		c.bus.InternalTick()
		if c.irq.Pending() {
			c.halted = false
		}
		return
	}

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}

	if c.ime && c.irq.Pending() {
		c.dispatchInterrupt()
		return
	}

	c.execute(c.fetch())
}

// dispatchInterrupt runs the fixed 5 M-cycle sequence: 2 internal cycles,
// 2 push writes, 1 internal cycle to load the vector.
func (c *CPU) dispatchInterrupt() {
	c.ime = false
	c.bus.InternalTick()
	c.bus.InternalTick()
	c.SP--
	c.busWrite(c.SP, uint8(c.PC>>8))
	vector, ok := c.irq.Vector()
	c.SP--
	c.busWrite(c.SP, uint8(c.PC))
	c.bus.InternalTick()
	if ok {
		c.PC = vector
	}
}

// enterHalt implements HALT's three-way branch: normal halt, the
// IME=0-with-pending "halt bug" (re-fetch the next byte without advancing
// PC), or halt with no pending interrupt.
func (c *CPU) enterHalt() {
	if !c.ime && c.irq.Pending() {
		c.haltBug = true
	} else {
		c.halted = true
	}
}

// Snapshot is a read-only copy of the register file, for telemetry
// consumers that shouldn't reach into CPU internals.
type Snapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

func (c *CPU) Snapshot() Snapshot {
	return Snapshot{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC, IME: c.ime, Halted: c.halted,
	}
}

var _ types.Stater = (*CPU)(nil)

func (c *CPU) Save(s *types.State) {
	s.Write8(c.A)
	s.Write8(c.F)
	s.Write8(c.B)
	s.Write8(c.C)
	s.Write8(c.D)
	s.Write8(c.E)
	s.Write8(c.H)
	s.Write8(c.L)
	s.Write16(c.SP)
	s.Write16(c.PC)
	s.WriteBool(c.ime)
	s.Write8(c.eiDelay)
	s.WriteBool(c.halted)
	s.WriteBool(c.haltBug)
}

func (c *CPU) Load(s *types.State) {
	c.A = s.Read8()
	c.F = s.Read8()
	c.B = s.Read8()
	c.C = s.Read8()
	c.D = s.Read8()
	c.E = s.Read8()
	c.H = s.Read8()
	c.L = s.Read8()
	c.SP = s.Read16()
	c.PC = s.Read16()
	c.ime = s.ReadBool()
	c.eiDelay = s.Read8()
	c.halted = s.ReadBool()
	c.haltBug = s.ReadBool()
}
