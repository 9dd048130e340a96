// Package joypad implements the Game Boy's input matrix at 0xFF00.
package joypad

import (
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/types"
)

// Button identifies one of the 8 physical inputs.
type Button uint8

const (
	A Button = iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
)

// State tracks which buttons are currently held. The matrix is
// active-low: a 0 bit means pressed.
type State struct {
	directions uint8 // bits 0-3: Right, Left, Up, Down
	buttons    uint8 // bits 0-3: A, B, Select, Start

	selectButtons    bool
	selectDirections bool

	irq *interrupts.Service
}

// New returns a joypad with its register bound into regs.
func New(irq *interrupts.Service, regs *types.Registers) *State {
	s := &State{directions: 0x0F, buttons: 0x0F, irq: irq}
	regs.Bind(types.P1,
		func() uint8 { return s.read() },
		func(v uint8) { s.write(v) },
	)
	return s
}

func (s *State) read() uint8 {
	v := uint8(0xC0)
	if !s.selectButtons {
		v |= types.Bit5
	}
	if !s.selectDirections {
		v |= types.Bit4
	}
	if s.selectDirections {
		v |= s.directions
	} else if s.selectButtons {
		v |= s.buttons
	} else {
		v |= 0x0F
	}
	return v
}

func (s *State) write(v uint8) {
	s.selectDirections = v&types.Bit4 == 0
	s.selectButtons = v&types.Bit5 == 0
}

// Press marks button as held, requesting a joypad interrupt if that
// button's group is currently selected (the "simple implementation" the
// spec permits: fire on any press-while-selected, not only a bit
// transition within the currently-read nibble).
func (s *State) Press(b Button) {
	group, mask := s.groupFor(b)
	*group &^= mask
	if (b < Right && s.selectButtons) || (b >= Right && s.selectDirections) {
		s.irq.Request(interrupts.Joypad)
	}
}

// Release marks button as released.
func (s *State) Release(b Button) {
	group, mask := s.groupFor(b)
	*group |= mask
}

func (s *State) groupFor(b Button) (*uint8, uint8) {
	if b < Right {
		return &s.buttons, uint8(1) << b
	}
	return &s.directions, uint8(1) << (b - Right)
}

var _ types.Stater = (*State)(nil)

func (s *State) Save(st *types.State) {
	st.Write8(s.directions)
	st.Write8(s.buttons)
	st.WriteBool(s.selectButtons)
	st.WriteBool(s.selectDirections)
}

func (s *State) Load(st *types.State) {
	s.directions = st.Read8()
	s.buttons = st.Read8()
	s.selectButtons = st.ReadBool()
	s.selectDirections = st.ReadBool()
}
