package apu

import "github.com/reneklacan/gbcore/internal/types"

var dutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

// square models both pulse channels. hasSweep gates the frequency-sweep
// unit that only channel 1 wires up.
type square struct {
	hasSweep bool

	duty    uint8
	dutyPos uint8

	length        uint16
	lengthEnabled bool

	envelopeInitial   uint8
	envelopeDirection bool
	envelopePeriod    uint8
	envelopeTimer     uint8
	currentVolume     uint8

	freq  uint16
	timer int

	sweepPeriod  uint8
	sweepShift   uint8
	sweepNegate  bool
	sweepTimer   uint8
	sweepEnabled bool
	shadowFreq   uint16

	enabled    bool
	dacEnabled bool
}

func (c *square) period() int { return (2048 - int(c.freq)) * 4 }

func (c *square) tick(tCycles int) {
	c.timer -= tCycles
	for c.timer <= 0 {
		c.timer += c.period()
		c.dutyPos = (c.dutyPos + 1) % 8
	}
}

func (c *square) output() uint8 {
	if !c.enabled || !c.dacEnabled {
		return 0
	}
	if dutyTable[c.duty][c.dutyPos] == 0 {
		return 0
	}
	return c.currentVolume
}

func (c *square) clockLength() {
	if c.lengthEnabled && c.length > 0 {
		c.length--
		if c.length == 0 {
			c.enabled = false
		}
	}
}

func (c *square) clockEnvelope() {
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

func (c *square) computeSweep() (uint16, bool) {
	delta := c.shadowFreq >> c.sweepShift
	var next uint16
	if c.sweepNegate {
		next = c.shadowFreq - delta
	} else {
		next = c.shadowFreq + delta
	}
	return next, next > 2047
}

func (c *square) clockSweep() {
	if !c.hasSweep || !c.sweepEnabled {
		return
	}
	if c.sweepTimer > 0 {
		c.sweepTimer--
	}
	if c.sweepTimer != 0 {
		return
	}
	if c.sweepPeriod == 0 {
		c.sweepTimer = 8
	} else {
		c.sweepTimer = c.sweepPeriod
	}
	if c.sweepPeriod == 0 {
		return
	}
	next, overflow := c.computeSweep()
	if overflow {
		c.enabled = false
		return
	}
	if c.sweepShift != 0 {
		c.shadowFreq = next
		c.freq = next
		if _, overflow2 := c.computeSweep(); overflow2 {
			c.enabled = false
		}
	}
}

func (c *square) trigger() {
	c.enabled = c.dacEnabled
	if c.length == 0 {
		c.length = 64
	}
	c.timer = c.period()
	c.envelopeTimer = c.envelopePeriod
	c.currentVolume = c.envelopeInitial

	if c.hasSweep {
		c.shadowFreq = c.freq
		if c.sweepPeriod == 0 {
			c.sweepTimer = 8
		} else {
			c.sweepTimer = c.sweepPeriod
		}
		c.sweepEnabled = c.sweepPeriod != 0 || c.sweepShift != 0
		if c.sweepShift != 0 {
			if _, overflow := c.computeSweep(); overflow {
				c.enabled = false
			}
		}
	}
}

func (c *square) writeSweep(v uint8) {
	c.sweepPeriod = (v >> 4) & 0x07
	c.sweepNegate = v&types.Bit3 != 0
	c.sweepShift = v & 0x07
}

func (c *square) writeDutyLength(v uint8) {
	c.duty = v >> 6
	c.length = 64 - uint16(v&0x3F)
}

func (c *square) writeEnvelope(v uint8) {
	c.envelopeInitial = v >> 4
	c.envelopeDirection = v&types.Bit3 != 0
	c.envelopePeriod = v & 0x07
	c.dacEnabled = v&0xF8 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *square) writeFreqLow(v uint8) {
	c.freq = (c.freq &^ 0xFF) | uint16(v)
}

func (c *square) writeFreqHighControl(v uint8) {
	c.freq = (c.freq & 0xFF) | (uint16(v&0x07) << 8)
	c.lengthEnabled = v&types.Bit6 != 0
	if v&types.Bit7 != 0 {
		c.trigger()
	}
}

func (c *square) save(s *types.State) {
	s.WriteBool(c.hasSweep)
	s.Write8(c.duty)
	s.Write8(c.dutyPos)
	s.Write16(c.length)
	s.WriteBool(c.lengthEnabled)
	s.Write8(c.envelopeInitial)
	s.WriteBool(c.envelopeDirection)
	s.Write8(c.envelopePeriod)
	s.Write8(c.envelopeTimer)
	s.Write8(c.currentVolume)
	s.Write16(c.freq)
	s.Write32(uint32(c.timer))
	s.Write8(c.sweepPeriod)
	s.Write8(c.sweepShift)
	s.WriteBool(c.sweepNegate)
	s.Write8(c.sweepTimer)
	s.WriteBool(c.sweepEnabled)
	s.Write16(c.shadowFreq)
	s.WriteBool(c.enabled)
	s.WriteBool(c.dacEnabled)
}

func (c *square) load(s *types.State) {
	c.hasSweep = s.ReadBool()
	c.duty = s.Read8()
	c.dutyPos = s.Read8()
	c.length = s.Read16()
	c.lengthEnabled = s.ReadBool()
	c.envelopeInitial = s.Read8()
	c.envelopeDirection = s.ReadBool()
	c.envelopePeriod = s.Read8()
	c.envelopeTimer = s.Read8()
	c.currentVolume = s.Read8()
	c.freq = s.Read16()
	c.timer = int(int32(s.Read32()))
	c.sweepPeriod = s.Read8()
	c.sweepShift = s.Read8()
	c.sweepNegate = s.ReadBool()
	c.sweepTimer = s.Read8()
	c.sweepEnabled = s.ReadBool()
	c.shadowFreq = s.Read16()
	c.enabled = s.ReadBool()
	c.dacEnabled = s.ReadBool()
}
