package interrupts_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/stretchr/testify/require"
)

func TestPendingRequiresBothEnableAndFlag(t *testing.T) {
	regs := &types.Registers{}
	s := interrupts.NewService(regs)

	s.Request(interrupts.Timer)
	require.False(t, s.Pending())

	s.Enable = interrupts.Timer
	require.True(t, s.Pending())
}

func TestVectorPicksLowestBitAndClearsFlag(t *testing.T) {
	regs := &types.Registers{}
	s := interrupts.NewService(regs)
	s.Enable = interrupts.VBlank | interrupts.Serial
	s.Request(interrupts.Serial)
	s.Request(interrupts.VBlank)

	vector, ok := s.Vector()
	require.True(t, ok)
	require.Equal(t, uint16(0x0040), vector)
	require.Equal(t, uint8(interrupts.Serial), s.Flag)
}

func TestVectorReportsNoneWhenNothingPending(t *testing.T) {
	regs := &types.Registers{}
	s := interrupts.NewService(regs)
	_, ok := s.Vector()
	require.False(t, ok)
}

func TestIFReadForcesUpperBitsHigh(t *testing.T) {
	regs := &types.Registers{}
	interrupts.NewService(regs)
	require.Equal(t, uint8(0xE0), regs.Read(types.IF))
}

func TestIEWriteIsUnmasked(t *testing.T) {
	regs := &types.Registers{}
	interrupts.NewService(regs)
	regs.Write(types.IE, 0xFF)
	require.Equal(t, uint8(0xFF), regs.Read(types.IE))
}
