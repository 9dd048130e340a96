package cartridge_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/stretchr/testify/require"
)

func makeROM(mbcType uint8, romBanks int, ramSizeCode uint8) []byte {
	rom := make([]byte, romBanks*0x4000)
	copy(rom[0x0104:0x0134], []byte{
		0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
		0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
		0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
		0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
	})
	rom[0x0147] = mbcType
	for i, banks := 0, 2; ; i++ {
		if banks == romBanks {
			rom[0x0148] = uint8(i)
			break
		}
		banks *= 2
		if banks > 1<<16 {
			break
		}
	}
	rom[0x0149] = ramSizeCode

	var x uint8
	for i := 0x0134; i <= 0x014C; i++ {
		x = x - rom[i] - 1
	}
	rom[0x014D] = x
	return rom
}

func TestMBC1BankZeroPromotedToOne(t *testing.T) {
	rom := makeROM(0x01, 4, 0x00)
	rom[0x4000] = 0xAA // bank 1's first byte
	c, err := cartridge.Load(rom)
	require.NoError(t, err)

	c.Write(0x2000, 0x00) // request bank 0, must promote to 1
	require.Equal(t, uint8(0xAA), c.Read(0x4000))
}

func TestMBC1RAMDisabledReadsFF(t *testing.T) {
	rom := makeROM(0x03, 2, 0x02) // MBC1+RAM+BATTERY, 8KB RAM
	c, err := cartridge.Load(rom)
	require.NoError(t, err)

	require.Equal(t, uint8(0xFF), c.ReadRAM(0xA000))
	c.Write(0x0000, 0x0A)
	c.WriteRAM(0xA000, 0x42)
	require.Equal(t, uint8(0x42), c.ReadRAM(0xA000))
}

func TestMBC5NoBankZeroPromotion(t *testing.T) {
	rom := makeROM(0x19, 4, 0x00)
	rom[0x4000] = 0x11 // bank 1's first byte; 0x4000 maps bank 1 until a bank is selected
	c, err := cartridge.Load(rom)
	require.NoError(t, err)

	c.Write(0x2000, 0x00) // MBC5 permits selecting bank 0 in the switchable window
	require.Equal(t, rom[0x0000], c.Read(0x4000))
}

func TestValidateLogoAndChecksum(t *testing.T) {
	rom := makeROM(0x00, 2, 0x00)
	c, err := cartridge.Load(rom)
	require.NoError(t, err)
	require.True(t, c.ValidateLogo())
	require.True(t, c.ValidateHeaderChecksum())
}

func TestSaveRAMRoundTrip(t *testing.T) {
	rom := makeROM(0x03, 2, 0x02)
	c, err := cartridge.Load(rom)
	require.NoError(t, err)
	c.Write(0x0000, 0x0A)
	c.WriteRAM(0xA000, 0x99)

	blob := c.SaveRAM()

	c2, err := cartridge.Load(rom)
	require.NoError(t, err)
	require.NoError(t, c2.LoadRAM(blob))
	c2.Write(0x0000, 0x0A)
	require.Equal(t, uint8(0x99), c2.ReadRAM(0xA000))
}
