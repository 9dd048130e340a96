package bus_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/apu"
	"github.com/reneklacan/gbcore/internal/bus"
	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/ppu"
	"github.com/reneklacan/gbcore/internal/timer"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, cgb bool) *bus.Bus {
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
	p := ppu.New(irq, regs, cgb)
	a := apu.New(regs)

	return bus.New(cart, p, tim, a, regs, cgb)
}

func TestWRAMEchoMirrorsC000Region(t *testing.T) {
	b := newTestBus(t, false)
	b.Write(0xC005, 0x42)
	require.Equal(t, uint8(0x42), b.Read(0xE005))

	b.Write(0xF005, 0x77)
	require.Equal(t, uint8(0x77), b.Read(0xD005))
}

func TestUnusableRegionReadsFF(t *testing.T) {
	b := newTestBus(t, false)
	require.Equal(t, uint8(0xFF), b.Read(0xFEA0))
}

func TestOAMDMACopiesFromSourcePage(t *testing.T) {
	b := newTestBus(t, false)
	for i := uint16(0); i < 0xA0; i++ {
		b.Write(0xC100+i, uint8(i))
	}
	b.Write(0xFF46, 0xC1)
	for i := uint16(0); i < 0xA0; i++ {
		require.Equal(t, uint8(i), b.Read(0xFE00+i), "oam byte %d", i)
	}
}

func TestWRAMBankSwitchViaSVBK(t *testing.T) {
	b := newTestBus(t, true)
	b.Write(0xFF70, 0x02) // select bank 2
	b.Write(0xD000, 0xAA)
	b.Write(0xFF70, 0x03) // select bank 3
	b.Write(0xD000, 0xBB)

	b.Write(0xFF70, 0x02)
	require.Equal(t, uint8(0xAA), b.Read(0xD000))
	b.Write(0xFF70, 0x03)
	require.Equal(t, uint8(0xBB), b.Read(0xD000))
}

func TestDMGIgnoresSVBKBankZeroWindow(t *testing.T) {
	b := newTestBus(t, false)
	b.Write(0xD000, 0x11)
	b.Write(0xFF70, 0x05) // has no effect outside CGB mode
	require.Equal(t, uint8(0x11), b.Read(0xD000))
}

func TestGeneralPurposeHDMACopiesImmediately(t *testing.T) {
	b := newTestBus(t, true)
	for i := uint16(0); i < 32; i++ {
		b.Write(0xC000+i, uint8(0x10+i))
	}
	// src = 0xC000, dst = 0x8000
	b.Write(0xFF51, 0xC0)
	b.Write(0xFF52, 0x00)
	b.Write(0xFF53, 0x00)
	b.Write(0xFF54, 0x00)
	b.Write(0xFF55, 0x01) // 2 blocks (32 bytes), bit7=0 -> general purpose

	for i := uint16(0); i < 32; i++ {
		require.Equal(t, uint8(0x10+i), b.Read(0x8000+i))
	}
	require.Equal(t, uint8(0xFF), b.Read(0xFF55))
}

func TestSpeedSwitchArmsAndFlips(t *testing.T) {
	b := newTestBus(t, true)
	b.Write(0xFF4D, 0x01)
	require.Equal(t, uint8(0x01), b.Read(0xFF4D)&0x01)
	require.True(t, b.TrySpeedSwitch())
	require.Equal(t, uint8(0x80), b.Read(0xFF4D)&0x80)
	require.False(t, b.TrySpeedSwitch())
}

func TestSaveLoadRoundTripsWRAM(t *testing.T) {
	b := newTestBus(t, false)
	b.Write(0xC000, 0x55)
	b.Write(0xFF80, 0x66)

	s := types.NewState()
	b.Save(s)

	b2 := newTestBus(t, false)
	b2.Load(types.StateFromBytes(s.Bytes()))
	require.Equal(t, uint8(0x55), b2.Read(0xC000))
	require.Equal(t, uint8(0x66), b2.Read(0xFF80))
}
