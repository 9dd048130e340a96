package cartridge

import "github.com/reneklacan/gbcore/internal/types"

// mbc1 implements the MBC1 mapper: 5-bit ROM bank register with bank-0
// promotion, a 2-bit register that either extends the ROM bank or selects
// a RAM bank depending on mode, and the mode-1 large-cart quirk that also
// banks the 0x0000-0x3FFF window.
type mbc1 struct {
	romBanks int
	large    bool // >= 1 MiB ROM: mode 1 also banks the low window

	ramEnabled bool
	bank5      uint8
	bank2      uint8
	mode       uint8
}

func newMBC1(romBanks int, romBytes int) *mbc1 {
	return &mbc1{romBanks: romBanks, large: romBytes >= 1<<20, bank5: 1}
}

func (m *mbc1) Write(addr uint16, v uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case addr <= 0x3FFF:
		bank := v & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bank5 = bank
	case addr <= 0x5FFF:
		m.bank2 = v & 0x03
	default:
		m.mode = v & 0x01
	}
}

func (m *mbc1) Read(rom []byte, addr uint16) uint8 {
	if addr <= 0x3FFF {
		bank := 0
		if m.mode == 1 && m.large {
			bank = int(m.bank2) << 5 % m.romBanks
		}
		return rom[(bank*0x4000+int(addr))%len(rom)]
	}
	bank := (int(m.bank2)<<5 | int(m.bank5)) % m.romBanks
	return rom[(bank*0x4000+int(addr-0x4000))%len(rom)]
}

func (m *mbc1) ramBank() int {
	if m.mode == 1 {
		return int(m.bank2)
	}
	return 0
}

func (m *mbc1) ReadRAM(ram []byte, addr uint16) uint8 {
	if !m.ramEnabled || len(ram) == 0 {
		return 0xFF
	}
	idx := (m.ramBank()*0x2000 + int(addr-0xA000)) % len(ram)
	return ram[idx]
}

func (m *mbc1) WriteRAM(ram []byte, addr uint16, v uint8) {
	if !m.ramEnabled || len(ram) == 0 {
		return
	}
	idx := (m.ramBank()*0x2000 + int(addr-0xA000)) % len(ram)
	ram[idx] = v
}

func (m *mbc1) Save(s *types.State) {
	s.WriteBool(m.ramEnabled)
	s.Write8(m.bank5)
	s.Write8(m.bank2)
	s.Write8(m.mode)
}

func (m *mbc1) Load(s *types.State) {
	m.ramEnabled = s.ReadBool()
	m.bank5 = s.Read8()
	m.bank2 = s.Read8()
	m.mode = s.Read8()
}
