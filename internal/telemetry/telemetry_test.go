package telemetry_test

import (
	"testing"

	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/system"
	"github.com/reneklacan/gbcore/internal/telemetry"
	"github.com/reneklacan/gbcore/pkg/log"
	"github.com/stretchr/testify/require"
)

func testCartridge(t *testing.T) *cartridge.Cartridge {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0104:0x0134], []byte{
		0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
		0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
		0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
		0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
	})
	var x uint8
	for i := 0x0134; i <= 0x014C; i++ {
		x = x - rom[i] - 1
	}
	rom[0x014D] = x
	cart, err := cartridge.Load(rom)
	require.NoError(t, err)
	return cart
}

func TestSnapshotReflectsCPUState(t *testing.T) {
	sys := system.New(testCartridge(t), system.WithLogger(log.NewNullLogger()), system.WithModel(system.ModelDMG))
	srv := telemetry.NewServer(sys)

	snap := srv.Snapshot()
	require.Equal(t, uint16(0x0100), snap.PC)
	require.Equal(t, uint64(0), snap.Cycles)

	sys.Step()
	snap = srv.Snapshot()
	require.Greater(t, snap.Cycles, uint64(0))
}

func TestPushFrameWithNoClientsIsANoop(t *testing.T) {
	sys := system.New(testCartridge(t), system.WithLogger(log.NewNullLogger()), system.WithModel(system.ModelDMG))
	srv := telemetry.NewServer(sys)
	require.NotPanics(t, srv.PushFrame)
}
