package apu

import "github.com/reneklacan/gbcore/internal/types"

// volumeShift maps NR32's 2-bit volume code to a right-shift of the raw
// 4-bit sample: mute, 100%, 50%, 25%.
var volumeShift = [4]uint8{4, 0, 1, 2}

type wave struct {
	dacEnabled bool

	length        uint16
	lengthEnabled bool

	volumeCode uint8

	freq  uint16
	timer int

	position uint8
	ram      [16]uint8

	enabled bool
}

func (c *wave) period() int { return (2048 - int(c.freq)) * 2 }

func (c *wave) tick(tCycles int) {
	c.timer -= tCycles
	for c.timer <= 0 {
		c.timer += c.period()
		c.position = (c.position + 1) % 32
	}
}

func (c *wave) output() uint8 {
	if !c.enabled || !c.dacEnabled {
		return 0
	}
	b := c.ram[c.position/2]
	var raw uint8
	if c.position%2 == 0 {
		raw = b >> 4
	} else {
		raw = b & 0x0F
	}
	return raw >> volumeShift[c.volumeCode]
}

func (c *wave) clockLength() {
	if c.lengthEnabled && c.length > 0 {
		c.length--
		if c.length == 0 {
			c.enabled = false
		}
	}
}

func (c *wave) trigger() {
	c.enabled = c.dacEnabled
	if c.length == 0 {
		c.length = 256
	}
	c.timer = c.period()
	c.position = 0
}

func (c *wave) writeDACEnable(v uint8) {
	c.dacEnabled = v&types.Bit7 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *wave) writeLength(v uint8) {
	c.length = 256 - uint16(v)
}

func (c *wave) writeVolume(v uint8) {
	c.volumeCode = (v >> 5) & 0x03
}

func (c *wave) writeFreqLow(v uint8) {
	c.freq = (c.freq &^ 0xFF) | uint16(v)
}

func (c *wave) writeFreqHighControl(v uint8) {
	c.freq = (c.freq & 0xFF) | (uint16(v&0x07) << 8)
	c.lengthEnabled = v&types.Bit6 != 0
	if v&types.Bit7 != 0 {
		c.trigger()
	}
}

func (c *wave) save(s *types.State) {
	s.WriteBool(c.dacEnabled)
	s.Write16(c.length)
	s.WriteBool(c.lengthEnabled)
	s.Write8(c.volumeCode)
	s.Write16(c.freq)
	s.Write32(uint32(c.timer))
	s.Write8(c.position)
	s.WriteData(c.ram[:])
	s.WriteBool(c.enabled)
}

func (c *wave) load(s *types.State) {
	c.dacEnabled = s.ReadBool()
	c.length = s.Read16()
	c.lengthEnabled = s.ReadBool()
	c.volumeCode = s.Read8()
	c.freq = s.Read16()
	c.timer = int(int32(s.Read32()))
	c.position = s.Read8()
	s.ReadData(c.ram[:])
	c.enabled = s.ReadBool()
}
