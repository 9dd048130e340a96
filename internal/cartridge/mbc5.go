package cartridge

import "github.com/reneklacan/gbcore/internal/types"

// mbc5 implements the MBC5 mapper: a 9-bit ROM bank register with no
// bank-0 promotion, and a 4-bit RAM bank register.
type mbc5 struct {
	romBanks int

	ramEnabled  bool
	romBankLow  uint8
	romBankHigh uint8
	ramBank     uint8
}

func newMBC5(romBanks int) *mbc5 {
	return &mbc5{romBanks: romBanks, romBankLow: 1}
}

func (m *mbc5) Write(addr uint16, v uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case addr <= 0x2FFF:
		m.romBankLow = v
	case addr <= 0x3FFF:
		m.romBankHigh = v & 0x01
	default:
		m.ramBank = v & 0x0F
	}
}

func (m *mbc5) Read(rom []byte, addr uint16) uint8 {
	if addr <= 0x3FFF {
		return rom[addr]
	}
	bank := (int(m.romBankHigh)<<8 | int(m.romBankLow)) % m.romBanks
	return rom[(bank*0x4000+int(addr-0x4000))%len(rom)]
}

func (m *mbc5) ReadRAM(ram []byte, addr uint16) uint8 {
	if !m.ramEnabled || len(ram) == 0 {
		return 0xFF
	}
	return ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(ram)]
}

func (m *mbc5) WriteRAM(ram []byte, addr uint16, v uint8) {
	if !m.ramEnabled || len(ram) == 0 {
		return
	}
	ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(ram)] = v
}

func (m *mbc5) Save(s *types.State) {
	s.WriteBool(m.ramEnabled)
	s.Write8(m.romBankLow)
	s.Write8(m.romBankHigh)
	s.Write8(m.ramBank)
}

func (m *mbc5) Load(s *types.State) {
	m.ramEnabled = s.ReadBool()
	m.romBankLow = s.Read8()
	m.romBankHigh = s.Read8()
	m.ramBank = s.Read8()
}
