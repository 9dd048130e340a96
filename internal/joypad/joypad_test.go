package joypad_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/joypad"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

// The select bits are active-low: P14=0 (bit4 clear) selects directions,
// P15=0 (bit5 clear) selects buttons.
const (
	selectButtons    = 0xDF
	selectDirections = 0xEF
)

func TestReadReflectsSelectedGroup(t *testing.T) {
	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	j := joypad.New(irq, regs)

	regs.Write(types.P1, selectButtons)
	require.Equal(t, uint8(0x0F), regs.Read(types.P1)&0x0F)

	j.Press(joypad.A)
	require.Equal(t, uint8(0x0E), regs.Read(types.P1)&0x0F)
}

func TestPressRequestsInterruptOnlyWhenGroupSelected(t *testing.T) {
	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	j := joypad.New(irq, regs)

	regs.Write(types.P1, selectDirections)
	j.Press(joypad.A) // buttons group not selected
	require.Equal(t, uint8(0), irq.Flag)

	j.Press(joypad.Up)
	require.Equal(t, uint8(interrupts.Joypad), irq.Flag)
}

func TestReleaseClearsHeldBit(t *testing.T) {
	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	j := joypad.New(irq, regs)

	regs.Write(types.P1, selectButtons)
	j.Press(joypad.Start)
	j.Release(joypad.Start)
	require.Equal(t, uint8(0x0F), regs.Read(types.P1)&0x0F)
}

func TestSaveLoadRoundTrips(t *testing.T) {
	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	j := joypad.New(irq, regs)
	j.Press(joypad.B)

	s := types.NewState()
	j.Save(s)

	otherRegs := &types.Registers{}
	other := joypad.New(irq, otherRegs)
	other.Load(types.StateFromBytes(s.Bytes()))

	otherRegs.Write(types.P1, selectButtons)
	require.Equal(t, uint8(0x0D), otherRegs.Read(types.P1)&0x0F)
}
