// Package apu implements the Game Boy's audio processing unit: four
// channels, the 512 Hz frame sequencer, and a mixer feeding a circular
// sample buffer the host drains.
package apu

import "github.com/reneklacan/gbcore/internal/types"

const (
	cpuFreq    = 4194304
	sampleRate = 44100
	bufferSize = 8192
)

// APU is the audio processing unit.
type APU struct {
	ch1 *square
	ch2 *square
	ch3 *wave
	ch4 *noise

	nr50, nr51 uint8
	powered    bool

	frameSeqCounter int
	frameSeqStep    uint8

	sampleAcc uint64
	buffer    *ringBuffer
}

// New returns an APU with its registers bound into regs.
func New(regs *types.Registers) *APU {
	a := &APU{
		ch1:     &square{hasSweep: true},
		ch2:     &square{},
		ch3:     &wave{},
		ch4:     &noise{},
		powered: true,
		buffer:  newRingBuffer(bufferSize),
	}
	a.bind(regs)
	return a
}

func (a *APU) bind(regs *types.Registers) {
	regs.Bind(types.NR10, func() uint8 { return a.ch1.sweepByte() | 0x80 }, a.gated(a.ch1.writeSweep))
	regs.Bind(types.NR11, func() uint8 { return a.ch1.dutyByte() | 0x3F }, a.gated(a.ch1.writeDutyLength))
	regs.Bind(types.NR12, func() uint8 { return a.ch1.envelopeByte() }, a.gated(a.ch1.writeEnvelope))
	regs.Bind(types.NR13, func() uint8 { return 0xFF }, a.gated(a.ch1.writeFreqLow))
	regs.Bind(types.NR14, func() uint8 { return a.ch1.controlByte() | 0xBF }, a.gated(a.ch1.writeFreqHighControl))

	regs.Bind(types.NR21, func() uint8 { return a.ch2.dutyByte() | 0x3F }, a.gated(a.ch2.writeDutyLength))
	regs.Bind(types.NR22, func() uint8 { return a.ch2.envelopeByte() }, a.gated(a.ch2.writeEnvelope))
	regs.Bind(types.NR23, func() uint8 { return 0xFF }, a.gated(a.ch2.writeFreqLow))
	regs.Bind(types.NR24, func() uint8 { return a.ch2.controlByte() | 0xBF }, a.gated(a.ch2.writeFreqHighControl))

	regs.Bind(types.NR30, func() uint8 { return boolByte(a.ch3.dacEnabled, 0x80) | 0x7F }, a.gated(a.ch3.writeDACEnable))
	regs.Bind(types.NR31, func() uint8 { return 0xFF }, a.gated(a.ch3.writeLength))
	regs.Bind(types.NR32, func() uint8 { return (a.ch3.volumeCode << 5) | 0x9F }, a.gated(a.ch3.writeVolume))
	regs.Bind(types.NR33, func() uint8 { return 0xFF }, a.gated(a.ch3.writeFreqLow))
	regs.Bind(types.NR34, func() uint8 { return a.ch3.controlByte() | 0xBF }, a.gated(a.ch3.writeFreqHighControl))

	for addr := types.WaveRAMStart; addr <= types.WaveRAMEnd; addr++ {
		i := addr - types.WaveRAMStart
		regs.Bind(addr,
			func() uint8 { return a.ch3.ram[i] },
			func(v uint8) { a.ch3.ram[i] = v },
		)
	}

	regs.Bind(types.NR41, func() uint8 { return 0xFF }, a.gated(a.ch4.writeLength))
	regs.Bind(types.NR42, func() uint8 { return a.ch4.envelopeByte() }, a.gated(a.ch4.writeEnvelope))
	regs.Bind(types.NR43, func() uint8 { return a.ch4.polynomialByte() }, a.gated(a.ch4.writePolynomial))
	regs.Bind(types.NR44, func() uint8 { return a.ch4.controlByte() | 0xBF }, a.gated(a.ch4.writeControl))

	regs.Bind(types.NR50, func() uint8 { return a.nr50 }, a.gated(func(v uint8) { a.nr50 = v }))
	regs.Bind(types.NR51, func() uint8 { return a.nr51 }, a.gated(func(v uint8) { a.nr51 = v }))
	regs.Bind(types.NR52, func() uint8 { return a.nr52Byte() }, a.writeNR52)
}

// gated ignores writes to non-NR52/wave-RAM registers while the APU is
// powered off, matching NR52.7's documented write-lockout.
func (a *APU) gated(write func(uint8)) func(uint8) {
	return func(v uint8) {
		if a.powered {
			write(v)
		}
	}
}

func boolByte(b bool, bit uint8) uint8 {
	if b {
		return bit
	}
	return 0
}

func (c *square) sweepByte() uint8 {
	v := c.sweepPeriod << 4
	if c.sweepNegate {
		v |= types.Bit3
	}
	return v | c.sweepShift
}

func (c *square) dutyByte() uint8 { return c.duty << 6 }

func (c *square) envelopeByte() uint8 {
	v := c.envelopeInitial << 4
	if c.envelopeDirection {
		v |= types.Bit3
	}
	return v | c.envelopePeriod
}

func (c *square) controlByte() uint8 {
	if c.lengthEnabled {
		return types.Bit6
	}
	return 0
}

func (c *wave) controlByte() uint8 {
	if c.lengthEnabled {
		return types.Bit6
	}
	return 0
}

func (c *noise) envelopeByte() uint8 {
	v := c.envelopeInitial << 4
	if c.envelopeDirection {
		v |= types.Bit3
	}
	return v | c.envelopePeriod
}

func (c *noise) polynomialByte() uint8 {
	v := c.shiftAmount << 4
	if c.widthMode {
		v |= types.Bit3
	}
	return v | c.divisorCode
}

func (c *noise) controlByte() uint8 {
	if c.lengthEnabled {
		return types.Bit6
	}
	return 0
}

// ChannelsEnabled reports the four channels' enable bits plus the master
// power bit, packed the same way as NR52 — exposed for telemetry snapshots
// that shouldn't reach into register plumbing to ask.
func (a *APU) ChannelsEnabled() uint8 { return a.nr52Byte() }

func (a *APU) nr52Byte() uint8 {
	v := uint8(0x70)
	if a.powered {
		v |= types.Bit7
	}
	if a.ch1.enabled {
		v |= types.Bit0
	}
	if a.ch2.enabled {
		v |= types.Bit1
	}
	if a.ch3.enabled {
		v |= types.Bit2
	}
	if a.ch4.enabled {
		v |= types.Bit3
	}
	return v
}

func (a *APU) writeNR52(v uint8) {
	wasPowered := a.powered
	a.powered = v&types.Bit7 != 0
	if wasPowered && !a.powered {
		a.powerOff()
	} else if !wasPowered && a.powered {
		a.frameSeqStep = 0
	}
}

func (a *APU) powerOff() {
	savedWave := a.ch3.ram
	*a.ch1 = square{hasSweep: true}
	*a.ch2 = square{}
	*a.ch3 = wave{ram: savedWave}
	*a.ch4 = noise{}
	a.nr50, a.nr51 = 0, 0
}

// Tick advances the APU by tCycles T-cycles.
func (a *APU) Tick(tCycles int) {
	a.ch1.tick(tCycles)
	a.ch2.tick(tCycles)
	a.ch3.tick(tCycles)
	a.ch4.tick(tCycles)

	a.frameSeqCounter += tCycles
	for a.frameSeqCounter >= 8192 {
		a.frameSeqCounter -= 8192
		a.clockFrameSequencer()
	}

	a.sampleAcc += uint64(tCycles) * sampleRate
	for a.sampleAcc >= cpuFreq {
		a.sampleAcc -= cpuFreq
		a.buffer.push(a.mix())
	}
}

func (a *APU) clockFrameSequencer() {
	switch a.frameSeqStep {
	case 0, 4:
		a.ch1.clockLength()
		a.ch2.clockLength()
		a.ch3.clockLength()
		a.ch4.clockLength()
	case 2, 6:
		a.ch1.clockLength()
		a.ch2.clockLength()
		a.ch3.clockLength()
		a.ch4.clockLength()
		a.ch1.clockSweep()
	case 7:
		a.ch1.clockEnvelope()
		a.ch2.clockEnvelope()
		a.ch4.clockEnvelope()
	}
	a.frameSeqStep = (a.frameSeqStep + 1) % 8
}

func (a *APU) mix() float32 {
	c1, c2, c3, c4 := float32(a.ch1.output()), float32(a.ch2.output()), float32(a.ch3.output()), float32(a.ch4.output())

	var left, right float32
	if a.nr51&types.Bit4 != 0 {
		left += c1
	}
	if a.nr51&types.Bit5 != 0 {
		left += c2
	}
	if a.nr51&types.Bit6 != 0 {
		left += c3
	}
	if a.nr51&types.Bit7 != 0 {
		left += c4
	}
	if a.nr51&types.Bit0 != 0 {
		right += c1
	}
	if a.nr51&types.Bit1 != 0 {
		right += c2
	}
	if a.nr51&types.Bit2 != 0 {
		right += c3
	}
	if a.nr51&types.Bit3 != 0 {
		right += c4
	}

	leftVol := float32((a.nr50>>4)&0x07+1) / 8
	rightVol := float32(a.nr50&0x07+1) / 8
	left *= leftVol
	right *= rightVol

	mixed := (left + right) / 120.0
	if mixed > 1 {
		mixed = 1
	}
	if mixed < -1 {
		mixed = -1
	}
	return mixed
}

// TakeSamples drains and returns every buffered sample since the last call.
func (a *APU) TakeSamples() []float32 { return a.buffer.take() }

// BufferedSamples reports how many samples are queued without draining them.
func (a *APU) BufferedSamples() int { return a.buffer.len() }

var _ types.Stater = (*APU)(nil)

func (a *APU) Save(s *types.State) {
	a.ch1.save(s)
	a.ch2.save(s)
	a.ch3.save(s)
	a.ch4.save(s)
	s.Write8(a.nr50)
	s.Write8(a.nr51)
	s.WriteBool(a.powered)
	s.Write32(uint32(a.frameSeqCounter))
	s.Write8(a.frameSeqStep)
}

func (a *APU) Load(s *types.State) {
	a.ch1.load(s)
	a.ch2.load(s)
	a.ch3.load(s)
	a.ch4.load(s)
	a.nr50 = s.Read8()
	a.nr51 = s.Read8()
	a.powered = s.ReadBool()
	a.frameSeqCounter = int(s.Read32())
	a.frameSeqStep = s.Read8()
}
