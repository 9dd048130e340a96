// Package interrupts holds the Game Boy's interrupt-flag bookkeeping: the
// IF/IE registers. The CPU owns the IME latch directly (it is part of
// instruction dispatch); this package is the shared IF/IE state that the
// Timer, PPU and Joypad request against and the CPU services.
package interrupts

import "github.com/reneklacan/gbcore/internal/types"

// Interrupt source bits, in priority order (lowest bit wins on conflict).
const (
	VBlank uint8 = types.Bit0
	Stat   uint8 = types.Bit1
	Timer  uint8 = types.Bit2
	Serial uint8 = types.Bit3
	Joypad uint8 = types.Bit4
)

// vectors maps each interrupt bit's index to its dispatch vector.
var vectors = [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}

// Service is the IF/IE pair shared by every component that can request or
// mask an interrupt.
type Service struct {
	Flag   uint8 // IF, low 5 bits meaningful
	Enable uint8 // IE
}

// NewService returns a Service with its registers bound into regs.
func NewService(regs *types.Registers) *Service {
	s := &Service{}
	regs.Bind(types.IF,
		func() uint8 { return s.Flag | 0xE0 },
		func(v uint8) { s.Flag = v & 0x1F },
	)
	regs.Bind(types.IE,
		func() uint8 { return s.Enable },
		func(v uint8) { s.Enable = v },
	)
	return s
}

// Request sets the given interrupt's IF bit.
func (s *Service) Request(bit uint8) {
	s.Flag |= bit
}

// Pending reports whether any requested interrupt is also enabled.
func (s *Service) Pending() bool {
	return s.Enable&s.Flag != 0
}

// Vector returns the highest-priority pending-and-enabled interrupt's
// dispatch vector and clears its IF bit. Returns (0, false) if none is
// pending.
func (s *Service) Vector() (uint16, bool) {
	active := s.Enable & s.Flag
	if active == 0 {
		return 0, false
	}
	for i := 0; i < 5; i++ {
		bit := uint8(1) << i
		if active&bit != 0 {
			s.Flag &^= bit
			return vectors[i], true
		}
	}
	return 0, false
}

var _ types.Stater = (*Service)(nil)

func (s *Service) Save(st *types.State) {
	st.Write8(s.Flag)
	st.Write8(s.Enable)
}

func (s *Service) Load(st *types.State) {
	s.Flag = st.Read8()
	s.Enable = st.Read8()
}
