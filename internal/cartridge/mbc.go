package cartridge

import "github.com/reneklacan/gbcore/internal/types"

// mbc is the banking behavior a Cartridge delegates to. rom/ram access is
// still owned by Cartridge; an mbc only decides which bank a given address
// resolves to.
type mbc interface {
	Read(rom []byte, addr uint16) uint8
	Write(addr uint16, v uint8)
	ReadRAM(ram []byte, addr uint16) uint8
	WriteRAM(ram []byte, addr uint16, v uint8)
	types.Stater
}

type mbcNone struct{ ramEnabled bool }

func (m *mbcNone) Save(s *types.State) { s.WriteBool(m.ramEnabled) }
func (m *mbcNone) Load(s *types.State) { m.ramEnabled = s.ReadBool() }

func newMBCNone() *mbcNone { return &mbcNone{ramEnabled: true} }

func (m *mbcNone) Read(rom []byte, addr uint16) uint8 { return rom[addr] }
func (m *mbcNone) Write(addr uint16, v uint8)         {}

func (m *mbcNone) ReadRAM(ram []byte, addr uint16) uint8 {
	if len(ram) == 0 {
		return 0xFF
	}
	idx := int(addr-0xA000) % len(ram)
	return ram[idx]
}

func (m *mbcNone) WriteRAM(ram []byte, addr uint16, v uint8) {
	if len(ram) == 0 {
		return
	}
	ram[int(addr-0xA000)%len(ram)] = v
}
