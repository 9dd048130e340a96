// Package bus implements the Game Boy's address decoding, WRAM/HRAM
// storage, OAM DMA, and CGB HDMA/double-speed plumbing. It is the single
// point every CPU memory access passes through, and the one place that
// orchestrates ticking the rest of the system per M-cycle.
package bus

import (
	"github.com/reneklacan/gbcore/internal/apu"
	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/ppu"
	"github.com/reneklacan/gbcore/internal/timer"
	"github.com/reneklacan/gbcore/internal/types"
)

// Bus is the memory bus. It owns WRAM/HRAM directly and forwards accesses
// to the cartridge, PPU (VRAM/OAM), and the hardware-register table for
// everything in 0xFF00-0xFF7F plus 0xFFFF.
type Bus struct {
	cart  *cartridge.Cartridge
	ppu   *ppu.PPU
	timer *timer.Controller
	apu   *apu.APU
	regs  *types.Registers

	cgb bool

	wram [8][0x1000]uint8
	svbk uint8
	hram [0x7F]uint8

	lastDMA uint8

	hdma
	doubleSpeed      bool
	speedSwitchArmed bool

	cycles uint64
}

// New returns a Bus wired to its sibling components and registers.
func New(cart *cartridge.Cartridge, ppu *ppu.PPU, timer *timer.Controller, apu *apu.APU, regs *types.Registers, cgb bool) *Bus {
	b := &Bus{cart: cart, ppu: ppu, timer: timer, apu: apu, regs: regs, cgb: cgb}
	b.bindDMA(regs)
	b.bindWRAMBank(regs)
	b.bindSpeedSwitch(regs)
	b.bindHDMA(regs)
	return b
}

func (b *Bus) bindWRAMBank(regs *types.Registers) {
	regs.Bind(types.SVBK,
		func() uint8 { return b.svbk | 0xF8 },
		func(v uint8) {
			if b.cgb {
				b.svbk = v & 0x07
			}
		},
	)
}

func (b *Bus) wramBank() int {
	if !b.cgb {
		return 1
	}
	bank := b.svbk & 0x07
	if bank == 0 {
		bank = 1
	}
	return int(bank)
}

func (b *Bus) bindDMA(regs *types.Registers) {
	regs.Bind(types.DMA,
		func() uint8 { return b.lastDMA },
		func(v uint8) {
			b.lastDMA = v
			src := uint16(v) << 8
			for i := uint16(0); i < 0xA0; i++ {
				b.ppu.WriteOAM(i, b.Read(src+i))
			}
		},
	)
}

func (b *Bus) bindSpeedSwitch(regs *types.Registers) {
	regs.Bind(types.KEY1,
		func() uint8 {
			v := uint8(0x7E)
			if b.doubleSpeed {
				v |= types.Bit7
			}
			if b.speedSwitchArmed {
				v |= types.Bit0
			}
			return v
		},
		func(v uint8) {
			if b.cgb {
				b.speedSwitchArmed = v&types.Bit0 != 0
			}
		},
	)
}

// TrySpeedSwitch performs an armed double-speed switch; called by the CPU
// when it executes STOP. Reports whether a switch happened.
func (b *Bus) TrySpeedSwitch() bool {
	if !b.speedSwitchArmed {
		return false
	}
	b.doubleSpeed = !b.doubleSpeed
	b.speedSwitchArmed = false
	b.timer.ResetDIV()
	return true
}

// Read returns the byte at addr without advancing the clock. Used both for
// the final CPU access resolution and internally (DMA, HDMA) where the
// spec permits instantaneous copies.
func (b *Bus) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x7FFF:
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.ppu.ReadVRAM(addr - 0x8000)
	case addr <= 0xBFFF:
		return b.cart.ReadRAM(addr)
	case addr <= 0xCFFF:
		return b.wram[0][addr-0xC000]
	case addr <= 0xDFFF:
		return b.wram[b.wramBank()][addr-0xD000]
	case addr <= 0xFDFF:
		return b.readEcho(addr - 0x2000)
	case addr <= 0xFE9F:
		return b.ppu.ReadOAM(addr - 0xFE00)
	case addr <= 0xFEFF:
		return 0xFF
	case addr <= 0xFF7F:
		return b.regs.Read(addr)
	case addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	default:
		return b.regs.Read(addr)
	}
}

func (b *Bus) readEcho(addr uint16) uint8 {
	if addr <= 0xCFFF {
		return b.wram[0][addr-0xC000]
	}
	return b.wram[b.wramBank()][addr-0xD000]
}

// Write stores the byte at addr without advancing the clock.
func (b *Bus) Write(addr uint16, v uint8) {
	switch {
	case addr <= 0x7FFF:
		b.cart.Write(addr, v)
	case addr <= 0x9FFF:
		b.ppu.WriteVRAM(addr-0x8000, v)
	case addr <= 0xBFFF:
		b.cart.WriteRAM(addr, v)
	case addr <= 0xCFFF:
		b.wram[0][addr-0xC000] = v
	case addr <= 0xDFFF:
		b.wram[b.wramBank()][addr-0xD000] = v
	case addr <= 0xFDFF:
		b.writeEcho(addr-0x2000, v)
	case addr <= 0xFE9F:
		b.ppu.WriteOAM(addr-0xFE00, v)
	case addr <= 0xFEFF:
		// unusable region, writes ignored
	case addr <= 0xFF7F:
		b.regs.Write(addr, v)
	case addr <= 0xFFFE:
		b.hram[addr-0xFF80] = v
	default:
		b.regs.Write(addr, v)
	}
}

func (b *Bus) writeEcho(addr uint16, v uint8) {
	if addr <= 0xCFFF {
		b.wram[0][addr-0xC000] = v
		return
	}
	b.wram[b.wramBank()][addr-0xD000] = v
}

// BusRead ticks the system one M-cycle, then resolves a CPU read.
func (b *Bus) BusRead(addr uint16) uint8 {
	b.tick()
	return b.Read(addr)
}

// BusWrite ticks the system one M-cycle, then resolves a CPU write.
func (b *Bus) BusWrite(addr uint16, v uint8) {
	b.tick()
	b.Write(addr, v)
}

// Cycles returns the number of M-cycles ticked since construction, used by
// System.Step to report cycles_consumed.
func (b *Bus) Cycles() uint64 { return b.cycles }

// InternalTick advances one M-cycle with no memory access, for the CPU's
// internal delay cycles (taken branches, 16-bit INC/DEC, PUSH, ...).
func (b *Bus) InternalTick() {
	b.tick()
}

// tick is the ordering point in section 5 of the design: Timer, then PPU,
// then APU, then an HDMA chunk if the PPU just entered HBlank.
func (b *Bus) tick() {
	b.cycles++
	for i := 0; i < 4; i++ {
		b.timer.Tick()
	}

	ppuTicks := 4
	if b.doubleSpeed {
		ppuTicks = 2
	}
	b.ppu.Tick(ppuTicks)
	b.apu.Tick(ppuTicks)

	if b.ppu.HBlankStarted() && b.hdmaActive && b.hdmaHBlankMode {
		b.doHDMAChunk()
	}
}

var _ types.Stater = (*Bus)(nil)

func (b *Bus) Save(s *types.State) {
	for i := range b.wram {
		s.WriteData(b.wram[i][:])
	}
	s.Write8(b.svbk)
	s.WriteData(b.hram[:])
	s.Write8(b.lastDMA)
	s.WriteBool(b.doubleSpeed)
	s.WriteBool(b.speedSwitchArmed)
	s.Write64(b.cycles)
	b.saveHDMA(s)
}

func (b *Bus) Load(s *types.State) {
	for i := range b.wram {
		s.ReadData(b.wram[i][:])
	}
	b.svbk = s.Read8()
	s.ReadData(b.hram[:])
	b.lastDMA = s.Read8()
	b.doubleSpeed = s.ReadBool()
	b.speedSwitchArmed = s.ReadBool()
	b.cycles = s.Read64()
	b.loadHDMA(s)
}
