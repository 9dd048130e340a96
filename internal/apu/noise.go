package apu

import "github.com/reneklacan/gbcore/internal/types"

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

type noise struct {
	length        uint16
	lengthEnabled bool

	envelopeInitial   uint8
	envelopeDirection bool
	envelopePeriod    uint8
	envelopeTimer     uint8
	currentVolume     uint8

	divisorCode  uint8
	shiftAmount  uint8
	widthMode    bool
	lfsr         uint16
	timer        int

	enabled    bool
	dacEnabled bool
}

func (c *noise) period() int { return noiseDivisors[c.divisorCode] << c.shiftAmount }

func (c *noise) tick(tCycles int) {
	c.timer -= tCycles
	for c.timer <= 0 {
		c.timer += c.period()
		xor := (c.lfsr ^ (c.lfsr >> 1)) & 1
		c.lfsr = (c.lfsr >> 1) | (xor << 14)
		if c.widthMode {
			c.lfsr = (c.lfsr &^ (1 << 6)) | (xor << 6)
		}
	}
}

func (c *noise) output() uint8 {
	if !c.enabled || !c.dacEnabled {
		return 0
	}
	if c.lfsr&1 == 0 {
		return c.currentVolume
	}
	return 0
}

func (c *noise) clockLength() {
	if c.lengthEnabled && c.length > 0 {
		c.length--
		if c.length == 0 {
			c.enabled = false
		}
	}
}

func (c *noise) clockEnvelope() {
	if c.envelopePeriod == 0 {
		return
	}
	if c.envelopeTimer > 0 {
		c.envelopeTimer--
	}
	if c.envelopeTimer == 0 {
		c.envelopeTimer = c.envelopePeriod
		if c.envelopeDirection {
			if c.currentVolume < 15 {
				c.currentVolume++
			}
		} else if c.currentVolume > 0 {
			c.currentVolume--
		}
	}
}

func (c *noise) trigger() {
	c.enabled = c.dacEnabled
	if c.length == 0 {
		c.length = 64
	}
	c.timer = c.period()
	c.lfsr = 0x7FFF
	c.envelopeTimer = c.envelopePeriod
	c.currentVolume = c.envelopeInitial
}

func (c *noise) writeLength(v uint8) {
	c.length = 64 - uint16(v&0x3F)
}

func (c *noise) writeEnvelope(v uint8) {
	c.envelopeInitial = v >> 4
	c.envelopeDirection = v&types.Bit3 != 0
	c.envelopePeriod = v & 0x07
	c.dacEnabled = v&0xF8 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *noise) writePolynomial(v uint8) {
	c.shiftAmount = v >> 4
	c.widthMode = v&types.Bit3 != 0
	c.divisorCode = v & 0x07
}

func (c *noise) writeControl(v uint8) {
	c.lengthEnabled = v&types.Bit6 != 0
	if v&types.Bit7 != 0 {
		c.trigger()
	}
}

func (c *noise) save(s *types.State) {
	s.Write16(c.length)
	s.WriteBool(c.lengthEnabled)
	s.Write8(c.envelopeInitial)
	s.WriteBool(c.envelopeDirection)
	s.Write8(c.envelopePeriod)
	s.Write8(c.envelopeTimer)
	s.Write8(c.currentVolume)
	s.Write8(c.divisorCode)
	s.Write8(c.shiftAmount)
	s.WriteBool(c.widthMode)
	s.Write16(c.lfsr)
	s.Write32(uint32(c.timer))
	s.WriteBool(c.enabled)
	s.WriteBool(c.dacEnabled)
}

func (c *noise) load(s *types.State) {
	c.length = s.Read16()
	c.lengthEnabled = s.ReadBool()
	c.envelopeInitial = s.Read8()
	c.envelopeDirection = s.ReadBool()
	c.envelopePeriod = s.Read8()
	c.envelopeTimer = s.Read8()
	c.currentVolume = s.Read8()
	c.divisorCode = s.Read8()
	c.shiftAmount = s.Read8()
	c.widthMode = s.ReadBool()
	c.lfsr = s.Read16()
	c.timer = int(int32(s.Read32()))
	c.enabled = s.ReadBool()
	c.dacEnabled = s.ReadBool()
}
