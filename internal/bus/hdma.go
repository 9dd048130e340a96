package bus

import "github.com/reneklacan/gbcore/internal/types"

// hdma holds the CGB VRAM-DMA controller state (HDMA1-5, 0xFF51-0xFF55).
// It is embedded directly into Bus rather than split into its own package
// since it only ever acts on the Bus's Read and the PPU's VRAM.
type hdma struct {
	srcHigh, srcLow uint8
	dstHigh, dstLow uint8

	hdmaSrc, hdmaDst uint16
	hdmaBlocksLeft   uint8
	hdmaActive       bool
	hdmaHBlankMode   bool
	hdmaStopped      bool
}

func (b *Bus) bindHDMA(regs *types.Registers) {
	regs.Bind(types.HDMA1, func() uint8 { return 0xFF }, func(v uint8) { b.srcHigh = v })
	regs.Bind(types.HDMA2, func() uint8 { return 0xFF }, func(v uint8) { b.srcLow = v & 0xF0 })
	regs.Bind(types.HDMA3, func() uint8 { return 0xFF }, func(v uint8) { b.dstHigh = v & 0x1F })
	regs.Bind(types.HDMA4, func() uint8 { return 0xFF }, func(v uint8) { b.dstLow = v & 0xF0 })
	regs.Bind(types.HDMA5, b.readHDMA5, b.writeHDMA5)
}

func (b *Bus) readHDMA5() uint8 {
	if b.hdmaActive {
		return b.hdmaBlocksLeft
	}
	if b.hdmaStopped {
		// A cancelled HBlank transfer reports bit7 set (not transferring)
		// with the remaining block count still visible in the low bits,
		// until the next HDMA5 write re-arms or restarts a transfer.
		return types.Bit7 | b.hdmaBlocksLeft
	}
	return 0xFF
}

func (b *Bus) writeHDMA5(v uint8) {
	if !b.cgb {
		return
	}

	if b.hdmaActive && b.hdmaHBlankMode && v&types.Bit7 == 0 {
		// Writing bit7=0 while an HBlank transfer is running cancels it;
		// the remaining block count stays visible until re-armed.
		b.hdmaActive = false
		b.hdmaStopped = true
		return
	}

	b.hdmaStopped = false
	b.hdmaSrc = uint16(b.srcHigh)<<8 | uint16(b.srcLow)
	b.hdmaDst = 0x8000 | uint16(b.dstHigh)<<8 | uint16(b.dstLow)
	b.hdmaBlocksLeft = v & 0x7F

	if v&types.Bit7 == 0 {
		blocks := int(b.hdmaBlocksLeft) + 1
		for i := 0; i < blocks; i++ {
			b.transferHDMABlock()
		}
		b.hdmaActive = false
	} else {
		b.hdmaActive = true
		b.hdmaHBlankMode = true
	}
}

// doHDMAChunk transfers one 16-byte block at the start of HBlank, per the
// armed HBlank-mode transfer.
func (b *Bus) doHDMAChunk() {
	b.transferHDMABlock()
	if b.hdmaBlocksLeft == 0 {
		b.hdmaBlocksLeft = 0xFF
		b.hdmaActive = false
		return
	}
	b.hdmaBlocksLeft--
}

func (b *Bus) transferHDMABlock() {
	for i := 0; i < 16; i++ {
		v := b.Read(b.hdmaSrc)
		b.ppu.WriteVRAM(b.hdmaDst-0x8000, v)
		b.hdmaSrc++
		b.hdmaDst++
	}
}

func (b *Bus) saveHDMA(s *types.State) {
	s.Write8(b.srcHigh)
	s.Write8(b.srcLow)
	s.Write8(b.dstHigh)
	s.Write8(b.dstLow)
	s.Write16(b.hdmaSrc)
	s.Write16(b.hdmaDst)
	s.Write8(b.hdmaBlocksLeft)
	s.WriteBool(b.hdmaActive)
	s.WriteBool(b.hdmaHBlankMode)
	s.WriteBool(b.hdmaStopped)
}

func (b *Bus) loadHDMA(s *types.State) {
	b.srcHigh = s.Read8()
	b.srcLow = s.Read8()
	b.dstHigh = s.Read8()
	b.dstLow = s.Read8()
	b.hdmaSrc = s.Read16()
	b.hdmaDst = s.Read16()
	b.hdmaBlocksLeft = s.Read8()
	b.hdmaActive = s.ReadBool()
	b.hdmaHBlankMode = s.ReadBool()
	b.hdmaStopped = s.ReadBool()
}
