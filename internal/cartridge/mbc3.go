package cartridge

import "github.com/reneklacan/gbcore/internal/types"

// mbc3 implements the MBC3 mapper plus its optional real-time clock.
type mbc3 struct {
	romBanks int
	hasRTC   bool

	ramEnabled bool
	romBank    uint8
	sel        uint8 // 0x00-0x03 RAM bank, 0x08-0x0C RTC register

	rtc       rtc
	latchPrev uint8
}

func newMBC3(romBanks int, hasRTC bool) *mbc3 {
	return &mbc3{romBanks: romBanks, hasRTC: hasRTC, romBank: 1, latchPrev: 0xFF}
}

func (m *mbc3) Write(addr uint16, v uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = v&0x0F == 0x0A
	case addr <= 0x3FFF:
		bank := v & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr <= 0x5FFF:
		m.sel = v
	default:
		if m.hasRTC && m.latchPrev == 0x00 && v == 0x01 {
			m.rtc.latch()
		}
		m.latchPrev = v
	}
}

func (m *mbc3) Read(rom []byte, addr uint16) uint8 {
	if addr <= 0x3FFF {
		return rom[addr]
	}
	bank := int(m.romBank) % m.romBanks
	return rom[(bank*0x4000+int(addr-0x4000))%len(rom)]
}

func (m *mbc3) ReadRAM(ram []byte, addr uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.sel <= 0x03 {
		if len(ram) == 0 {
			return 0xFF
		}
		return ram[(int(m.sel)*0x2000+int(addr-0xA000))%len(ram)]
	}
	if m.hasRTC && m.sel >= 0x08 && m.sel <= 0x0C {
		return m.rtc.readSelected(m.sel)
	}
	return 0xFF
}

func (m *mbc3) WriteRAM(ram []byte, addr uint16, v uint8) {
	if !m.ramEnabled {
		return
	}
	if m.sel <= 0x03 {
		if len(ram) == 0 {
			return
		}
		ram[(int(m.sel)*0x2000+int(addr-0xA000))%len(ram)] = v
		return
	}
	if m.hasRTC && m.sel >= 0x08 && m.sel <= 0x0C {
		m.rtc.writeSelected(m.sel, v)
	}
}

func (m *mbc3) Save(s *types.State) {
	s.WriteBool(m.ramEnabled)
	s.Write8(m.romBank)
	s.Write8(m.sel)
	s.Write8(m.latchPrev)
	m.rtc.save(s)
}

func (m *mbc3) Load(s *types.State) {
	m.ramEnabled = s.ReadBool()
	m.romBank = s.Read8()
	m.sel = s.Read8()
	m.latchPrev = s.Read8()
	m.rtc.load(s)
}
