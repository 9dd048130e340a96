package ppu_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/ppu"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

func newPPU() (*ppu.PPU, *interrupts.Service, *types.Registers) {
	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	return ppu.New(irq, regs, false), irq, regs
}

func tickLines(p *ppu.PPU, lines int) {
	for i := 0; i < lines*456; i++ {
		p.Tick(1)
	}
}

// TestModeMatchesStatBits is invariant 1 from the spec: PPU.mode ==
// STAT[1:0] whenever the LCD is on.
func TestModeMatchesStatBits(t *testing.T) {
	p, _, regs := newPPU()
	for i := 0; i < 456*10; i++ {
		p.Tick(1)
		require.Equal(t, uint8(p.Mode()), regs.Read(types.STAT)&0x03)
	}
}

// TestStatIRQOnLYCMatch is scenario 5 from the spec: STAT=0x40 (LYC
// interrupt enabled), LYC=42; exactly one STAT IRQ fires when LY reaches 42.
func TestStatIRQOnLYCMatch(t *testing.T) {
	p, irq, regs := newPPU()
	regs.Write(types.LYC, 42)
	regs.Write(types.STAT, 0x40)

	fired := 0
	for i := 0; i < 456*60; i++ {
		p.Tick(1)
		if p.StatInterruptRequested() {
			fired++
		}
	}
	require.Equal(t, 1, fired)
	require.NotZero(t, irq.Enable|irq.Flag) // sanity: irq wiring reachable
	_ = regs
}

func TestFrameReadyEvery70224Cycles(t *testing.T) {
	p, _, _ := newPPU()
	seen := 0
	for i := 0; i < 456*154; i++ {
		p.Tick(1)
		if p.FrameReady() {
			seen++
		}
	}
	require.Equal(t, 1, seen)
}

func TestLYRangeStaysWithinFrame(t *testing.T) {
	p, _, _ := newPPU()
	for i := 0; i < 456*154*3; i++ {
		p.Tick(1)
		require.LessOrEqual(t, p.LY(), uint8(153))
	}
}

func TestLCDOffFreezesLYAtZero(t *testing.T) {
	p, _, regs := newPPU()
	tickLines(p, 5)
	regs.Write(types.LCDC, 0x00)
	p.Tick(4)
	require.Zero(t, p.LY())
	require.Equal(t, ppu.HBlank, p.Mode())
}

// TestTallSpriteYFlipUsesBottomTileForTopRow guards against a Y-flip bug
// in 8x16 OBJ mode: a vertically-flipped tall sprite's visible top row
// must come from the bottom tile's last row, not the top tile's.
func TestTallSpriteYFlipUsesBottomTileForTopRow(t *testing.T) {
	p, _, regs := newPPU()

	// Top tile (index 0) row 7 -> color index 1.
	p.WriteVRAM(0*16+7*2, 0xFF)
	p.WriteVRAM(0*16+7*2+1, 0x00)
	// Bottom tile (index 1) row 7 -> color index 2.
	p.WriteVRAM(1*16+7*2, 0x00)
	p.WriteVRAM(1*16+7*2+1, 0xFF)

	p.WriteOAM(0, 16)   // y: top = y-16 = 0
	p.WriteOAM(1, 8)    // x
	p.WriteOAM(2, 0x00) // tile
	p.WriteOAM(3, 0x40) // attr: y-flip only

	regs.Write(types.OBP0, 0xE4) // identity shade mapping
	regs.Write(types.LCDC, 0x86) // LCD on, OBJ enable, 8x16 OBJ, BG off

	tickLines(p, 1)

	require.Equal(t, uint32(0xFF306230), p.Framebuffer()[0]) // color index 2
}

func TestLCDOffStillReportsFrameReady(t *testing.T) {
	p, _, regs := newPPU()
	regs.Write(types.LCDC, 0x00)
	seen := 0
	for i := 0; i < 456*154*2; i++ {
		p.Tick(1)
		if p.FrameReady() {
			seen++
		}
	}
	require.Equal(t, 2, seen)
}
