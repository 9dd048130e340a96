// Package timer implements the Game Boy's DIV/TIMA/TMA/TAC timer,
// including the falling-edge TIMA increment and its write-time glitches.
package timer

import (
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/types"
)

// selectedBit maps TAC[1:0] to the bit of the internal 16-bit counter that
// is monitored for a falling edge: {9, 3, 5, 7} per spec, giving
// 4096/262144/65536/16384 Hz respectively.
var selectedBit = [4]uint16{1 << 9, 1 << 3, 1 << 5, 1 << 7}

// Controller is the Game Boy timer. div is the internal 16-bit counter;
// only its high byte is externally visible as DIV.
type Controller struct {
	div uint16

	tima uint8
	tma  uint8
	tac  uint8

	enabled    bool
	currentBit uint16
	lastBit    bool

	// overflow reload sequencing: TIMA holds 0x00 for a few T-cycles after
	// overflowing, then the timer interrupt fires and TIMA is reloaded from
	// TMA one T-cycle later.
	overflow           bool
	ticksSinceOverflow uint8

	irq *interrupts.Service
}

// NewController returns a Controller with its registers bound into regs.
func NewController(irq *interrupts.Service, regs *types.Registers) *Controller {
	c := &Controller{irq: irq, tac: 0xF8}

	regs.Bind(types.DIV,
		func() uint8 { return uint8(c.div >> 8) },
		func(uint8) { c.writeDiv() },
	)
	regs.Bind(types.TIMA,
		func() uint8 { return c.tima },
		func(v uint8) {
			// A write during the reload T-cycle (ticksSinceOverflow==5, the
			// cycle TIMA is set from TMA) is ignored by real hardware.
			if c.overflow && c.ticksSinceOverflow == 5 {
				return
			}
			c.tima = v
			c.overflow = false
			c.ticksSinceOverflow = 0
		},
	)
	regs.Bind(types.TMA,
		func() uint8 { return c.tma },
		func(v uint8) {
			c.tma = v
			if c.overflow && c.ticksSinceOverflow == 5 {
				c.tima = v
			}
		},
	)
	regs.Bind(types.TAC,
		func() uint8 { return c.tac | 0xF8 },
		func(v uint8) { c.writeTac(v) },
	)

	c.currentBit = selectedBit[0]
	return c
}

// writeDiv zeros the internal counter. Since the falling-edge detector
// looks at (bit AND enable), zeroing the counter can itself look like a
// falling edge if the monitored bit was high.
func (c *Controller) writeDiv() {
	c.div = 0
	c.reevaluateEdge()
}

// ResetDIV zeros the internal counter. Exposed for STOP's CGB speed-switch
// side effect, which resets DIV independently of a register write.
func (c *Controller) ResetDIV() {
	c.writeDiv()
}

func (c *Controller) writeTac(v uint8) {
	c.tac = v & 0x07
	c.enabled = v&types.Bit2 != 0
	c.currentBit = selectedBit[v&0x03]
	c.reevaluateEdge()
}

// reevaluateEdge re-checks the falling-edge detector after enabled or
// currentBit changed out of band (a TAC or DIV write), rather than as a
// side effect of Tick.
func (c *Controller) reevaluateEdge() {
	wasHigh := c.lastBit
	nowHigh := c.enabled && c.div&c.currentBit != 0
	if wasHigh && !nowHigh {
		c.incrementTIMA()
	}
	c.lastBit = nowHigh
}

func (c *Controller) incrementTIMA() {
	c.tima++
	if c.tima == 0 {
		c.overflow = true
		c.ticksSinceOverflow = 0
	}
}

// Tick advances the timer by one T-cycle. The Bus calls this once per
// T-cycle it is responsible for ticking (4 per non-double-speed M-cycle).
func (c *Controller) Tick() {
	c.div++

	newBit := c.enabled && c.div&c.currentBit != 0
	if c.lastBit && !newBit {
		c.incrementTIMA()
	}
	c.lastBit = newBit

	if c.overflow {
		c.ticksSinceOverflow++
		switch c.ticksSinceOverflow {
		case 4:
			c.irq.Request(interrupts.Timer)
		case 5:
			c.tima = c.tma
		case 6:
			c.overflow = false
			c.ticksSinceOverflow = 0
		}
	}
}

var _ types.Stater = (*Controller)(nil)

func (c *Controller) Save(s *types.State) {
	s.Write16(c.div)
	s.Write8(c.tima)
	s.Write8(c.tma)
	s.Write8(c.tac)
	s.WriteBool(c.enabled)
	s.Write16(c.currentBit)
	s.WriteBool(c.lastBit)
	s.WriteBool(c.overflow)
	s.Write8(c.ticksSinceOverflow)
}

func (c *Controller) Load(s *types.State) {
	c.div = s.Read16()
	c.tima = s.Read8()
	c.tma = s.Read8()
	c.tac = s.Read8()
	c.enabled = s.ReadBool()
	c.currentBit = s.Read16()
	c.lastBit = s.ReadBool()
	c.overflow = s.ReadBool()
	c.ticksSinceOverflow = s.Read8()
}
