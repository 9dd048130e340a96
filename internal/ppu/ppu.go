// Package ppu implements the Game Boy's pixel processing unit: the mode
// state machine, VRAM/OAM/CGB-palette storage, and a per-scanline
// rasterizer invoked at HBlank entry rather than a per-dot pixel FIFO.
package ppu

import (
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/types"
)

// Mode is one of the four PPU states; its value is exactly what STAT[1:0]
// reports.
type Mode uint8

const (
	HBlank Mode = 0
	VBlank Mode = 1
	OAMScan Mode = 2
	Drawing Mode = 3
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144

	oamScanCycles  = 80
	drawingCycles  = 172
	hblankCycles   = 204
	cyclesPerLine  = 456
	vblankLines    = 10
	cyclesPerFrame = cyclesPerLine * (ScreenHeight + vblankLines)
)

// PPU is the pixel processing unit. It is instance-owned like every other
// component: no package-level state.
type PPU struct {
	cgb bool

	cycles uint16
	mode   Mode
	offCycles uint32 // free-running counter while LCDC.7 is clear

	lcdc, statSelect, scy, scx, ly, lyc uint8
	bgp, obp0, obp1                    uint8
	wy, wx                             uint8
	vbk                                uint8
	opri                               uint8

	vram [2][0x2000]uint8
	oam  [0xA0]uint8

	bcps, ocps   uint8
	bgPalette    [64]uint8
	objPalette   [64]uint8

	windowLine uint8

	framebuffer [ScreenWidth * ScreenHeight]uint32

	vblankInterrupt bool
	statInterrupt   bool
	frameReady      bool
	hblankStarted   bool

	// raw per-pixel BG data from the last drawn scanline, kept so sprite
	// priority can consult it even though the framebuffer already holds
	// final ARGB colors.
	bgColorIndex [ScreenWidth]uint8
	bgPriority   [ScreenWidth]bool

	irq *interrupts.Service
}

// New returns a PPU with its registers bound into regs. cgb selects
// Game Boy Color extras (second VRAM bank, palette RAM, tile attributes).
func New(irq *interrupts.Service, regs *types.Registers, cgb bool) *PPU {
	p := &PPU{irq: irq, cgb: cgb, mode: OAMScan, lcdc: 0x91, bgp: 0xFC}
	p.bind(regs)
	return p
}

func (p *PPU) bind(regs *types.Registers) {
	regs.Bind(types.LCDC, func() uint8 { return p.lcdc }, p.writeLCDC)
	regs.Bind(types.STAT,
		func() uint8 { return 0x80 | p.statSelect | p.coincidenceBit() | uint8(p.reportedMode()) },
		func(v uint8) { p.statSelect = v & 0x78 },
	)
	regs.Bind(types.SCY, func() uint8 { return p.scy }, func(v uint8) { p.scy = v })
	regs.Bind(types.SCX, func() uint8 { return p.scx }, func(v uint8) { p.scx = v })
	regs.Bind(types.LY, func() uint8 { return p.reportedLY() }, func(uint8) {})
	regs.Bind(types.LYC, func() uint8 { return p.lyc }, func(v uint8) { p.lyc = v; p.updateLYC() })
	regs.Bind(types.BGP, func() uint8 { return p.bgp }, func(v uint8) { p.bgp = v })
	regs.Bind(types.OBP0, func() uint8 { return p.obp0 }, func(v uint8) { p.obp0 = v })
	regs.Bind(types.OBP1, func() uint8 { return p.obp1 }, func(v uint8) { p.obp1 = v })
	regs.Bind(types.WY, func() uint8 { return p.wy }, func(v uint8) { p.wy = v })
	regs.Bind(types.WX, func() uint8 { return p.wx }, func(v uint8) { p.wx = v })

	regs.Bind(types.VBK,
		func() uint8 { return p.vbk | 0xFE },
		func(v uint8) {
			if p.cgb {
				p.vbk = v & 0x01
			}
		},
	)
	regs.Bind(types.BCPS,
		func() uint8 { return p.bcps | 0x40 },
		func(v uint8) { p.bcps = v & 0xBF },
	)
	regs.Bind(types.BCPD,
		func() uint8 { return p.bgPalette[p.bcps&0x3F] },
		func(v uint8) {
			p.bgPalette[p.bcps&0x3F] = v
			if p.bcps&0x80 != 0 {
				p.bcps = (p.bcps & 0x80) | ((p.bcps + 1) & 0x3F)
			}
		},
	)
	regs.Bind(types.OCPS,
		func() uint8 { return p.ocps | 0x40 },
		func(v uint8) { p.ocps = v & 0xBF },
	)
	regs.Bind(types.OCPD,
		func() uint8 { return p.objPalette[p.ocps&0x3F] },
		func(v uint8) {
			p.objPalette[p.ocps&0x3F] = v
			if p.ocps&0x80 != 0 {
				p.ocps = (p.ocps & 0x80) | ((p.ocps + 1) & 0x3F)
			}
		},
	)
	regs.Bind(types.OPRI, func() uint8 { return p.opri | 0xFE }, func(v uint8) { p.opri = v & 0x01 })
}

func (p *PPU) writeLCDC(v uint8) {
	wasOn := p.lcdc&types.Bit7 != 0
	p.lcdc = v
	nowOn := v&types.Bit7 != 0
	if wasOn && !nowOn {
		p.mode = HBlank
		p.ly = 0
		p.cycles = 0
		p.offCycles = 0
	} else if !wasOn && nowOn {
		p.mode = OAMScan
		p.ly = 0
		p.cycles = 0
	}
}

func (p *PPU) reportedMode() Mode {
	if p.lcdc&types.Bit7 == 0 {
		return HBlank
	}
	return p.mode
}

func (p *PPU) reportedLY() uint8 {
	if p.lcdc&types.Bit7 == 0 {
		return 0
	}
	return p.ly
}

func (p *PPU) coincidenceBit() uint8 {
	if p.reportedLY() == p.lyc {
		return types.Bit2
	}
	return 0
}

func (p *PPU) updateLYC() {
	if p.lcdc&types.Bit7 == 0 {
		return
	}
	if p.ly == p.lyc && p.statSelect&types.Bit6 != 0 {
		p.requestStat()
	}
}

func (p *PPU) requestStat() {
	p.statInterrupt = true
	p.irq.Request(interrupts.Stat)
}

// Tick advances the PPU by tCycles T-cycles (4 at 1x, or as scaled by the
// bus for double-speed CGB — PPU always runs at 1x wall-clock rate).
func (p *PPU) Tick(tCycles int) {
	if p.lcdc&types.Bit7 == 0 {
		p.offCycles += uint32(tCycles)
		if p.offCycles >= cyclesPerFrame {
			p.offCycles -= cyclesPerFrame
			p.frameReady = true
		}
		return
	}

	p.cycles += uint16(tCycles)
	switch p.mode {
	case OAMScan:
		if p.cycles >= oamScanCycles {
			p.cycles -= oamScanCycles
			p.enterMode(Drawing)
		}
	case Drawing:
		if p.cycles >= drawingCycles {
			p.cycles -= drawingCycles
			p.drawScanline()
			p.enterMode(HBlank)
		}
	case HBlank:
		if p.cycles >= hblankCycles {
			p.cycles -= hblankCycles
			p.advanceLine()
		}
	case VBlank:
		if p.cycles >= cyclesPerLine {
			p.cycles -= cyclesPerLine
			p.advanceVBlankLine()
		}
	}
}

func (p *PPU) enterMode(m Mode) {
	p.mode = m
	switch m {
	case HBlank:
		p.hblankStarted = true
		if p.statSelect&types.Bit3 != 0 {
			p.requestStat()
		}
	case OAMScan:
		if p.statSelect&types.Bit5 != 0 {
			p.requestStat()
		}
	case VBlank:
		p.vblankInterrupt = true
		p.irq.Request(interrupts.VBlank)
		if p.statSelect&types.Bit4 != 0 {
			p.requestStat()
		}
	}
}

func (p *PPU) advanceLine() {
	p.ly++
	if p.ly == ScreenHeight {
		p.enterMode(VBlank)
		p.frameReady = true
	} else {
		p.enterMode(OAMScan)
	}
	p.updateLYC()
}

func (p *PPU) advanceVBlankLine() {
	p.ly++
	if p.ly > ScreenHeight+vblankLines-1 {
		p.ly = 0
		p.windowLine = 0
		p.enterMode(OAMScan)
	}
	p.updateLYC()
}

// VBlankInterruptRequested reports and clears the one-shot VBlank flag.
func (p *PPU) VBlankInterruptRequested() bool {
	v := p.vblankInterrupt
	p.vblankInterrupt = false
	return v
}

// StatInterruptRequested reports and clears the one-shot STAT flag.
func (p *PPU) StatInterruptRequested() bool {
	v := p.statInterrupt
	p.statInterrupt = false
	return v
}

// FrameReady reports and clears the one-shot frame-complete flag.
func (p *PPU) FrameReady() bool {
	v := p.frameReady
	p.frameReady = false
	return v
}

// HBlankStarted reports and clears the one-shot HBlank-entry flag used by
// the bus to drive HDMA chunk transfers.
func (p *PPU) HBlankStarted() bool {
	v := p.hblankStarted
	p.hblankStarted = false
	return v
}

// Framebuffer returns the last completed frame as packed ARGB8888 pixels,
// row-major, ScreenWidth x ScreenHeight.
func (p *PPU) Framebuffer() []uint32 { return p.framebuffer[:] }

func (p *PPU) LY() uint8   { return p.ly }
func (p *PPU) LCDC() uint8 { return p.lcdc }
func (p *PPU) Mode() Mode  { return p.mode }

func (p *PPU) ReadVRAM(address uint16) uint8 {
	return p.vram[p.vbk][address]
}

func (p *PPU) WriteVRAM(address uint16, v uint8) {
	p.vram[p.vbk][address] = v
}

func (p *PPU) ReadOAM(address uint16) uint8 {
	if int(address) >= len(p.oam) {
		return 0xFF
	}
	return p.oam[address]
}

func (p *PPU) WriteOAM(address uint16, v uint8) {
	if int(address) >= len(p.oam) {
		return
	}
	p.oam[address] = v
}

var _ types.Stater = (*PPU)(nil)

func (p *PPU) Save(s *types.State) {
	s.WriteBool(p.cgb)
	s.Write16(p.cycles)
	s.Write8(uint8(p.mode))
	s.Write32(p.offCycles)
	s.Write8(p.lcdc)
	s.Write8(p.statSelect)
	s.Write8(p.scy)
	s.Write8(p.scx)
	s.Write8(p.ly)
	s.Write8(p.lyc)
	s.Write8(p.bgp)
	s.Write8(p.obp0)
	s.Write8(p.obp1)
	s.Write8(p.wy)
	s.Write8(p.wx)
	s.Write8(p.vbk)
	s.Write8(p.opri)
	s.WriteData(p.vram[0][:])
	s.WriteData(p.vram[1][:])
	s.WriteData(p.oam[:])
	s.Write8(p.bcps)
	s.Write8(p.ocps)
	s.WriteData(p.bgPalette[:])
	s.WriteData(p.objPalette[:])
	s.Write8(p.windowLine)
}

func (p *PPU) Load(s *types.State) {
	p.cgb = s.ReadBool()
	p.cycles = s.Read16()
	p.mode = Mode(s.Read8())
	p.offCycles = s.Read32()
	p.lcdc = s.Read8()
	p.statSelect = s.Read8()
	p.scy = s.Read8()
	p.scx = s.Read8()
	p.ly = s.Read8()
	p.lyc = s.Read8()
	p.bgp = s.Read8()
	p.obp0 = s.Read8()
	p.obp1 = s.Read8()
	p.wy = s.Read8()
	p.wx = s.Read8()
	p.vbk = s.Read8()
	p.opri = s.Read8()
	s.ReadData(p.vram[0][:])
	s.ReadData(p.vram[1][:])
	s.ReadData(p.oam[:])
	p.bcps = s.Read8()
	p.ocps = s.Read8()
	s.ReadData(p.bgPalette[:])
	s.ReadData(p.objPalette[:])
	p.windowLine = s.Read8()
}
