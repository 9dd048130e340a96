package cartridge

import "strings"

// mbcKind identifies which memory-bank controller a header selects. The
// exotic mappers (MBC2, MMM01, HuC-1/3, TAMA5) are deliberately unsupported.
type mbcKind uint8

const (
	kindNone mbcKind = iota
	kindMBC1
	kindMBC3
	kindMBC5
)

// Header is the parsed cartridge header at 0x0100-0x014F.
type Header struct {
	Title       string
	CGBFlag     uint8
	Type        uint8
	ROMSize     uint8
	RAMSize     uint8
	HeaderChecksum uint8
	GlobalChecksum uint16

	Logo [48]byte

	kind        mbcKind
	hasRAM      bool
	hasBattery  bool
	hasRTC      bool
	romBanks    int
	ramSize     int
}

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
	0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// parseHeader reads the header fields out of the ROM image. rom must be at
// least 0x150 bytes.
func parseHeader(rom []byte) (Header, error) {
	if len(rom) < 0x150 {
		return Header{}, errShortROM
	}

	var h Header
	copy(h.Logo[:], rom[0x0104:0x0134])
	h.Title = strings.TrimRight(string(rom[0x0134:0x0144]), "\x00")
	h.CGBFlag = rom[0x0143]
	h.Type = rom[0x0147]
	h.ROMSize = rom[0x0148]
	h.RAMSize = rom[0x0149]
	h.HeaderChecksum = rom[0x014D]
	h.GlobalChecksum = uint16(rom[0x014E])<<8 | uint16(rom[0x014F])

	h.romBanks = 2 << h.ROMSize
	if int(h.RAMSize) < len(ramSizeTable) {
		h.ramSize = ramSizeTable[h.RAMSize]
	}

	// An unrecognized or exotic mapper byte (MBC2, MMM01, HuC, TAMA5, ...)
	// falls back to plain ROM-only rather than failing the load, per the
	// header-is-advisory error policy.
	kind, hasRAM, hasBattery, hasRTC := classify(h.Type)
	h.kind, h.hasRAM, h.hasBattery, h.hasRTC = kind, hasRAM, hasBattery, hasRTC
	return h, nil
}

var ramSizeTable = [6]int{0, 2 * 1024, 8 * 1024, 32 * 1024, 128 * 1024, 64 * 1024}

func classify(t uint8) (mbcKind, bool, bool, bool) {
	switch t {
	case 0x08:
		return kindNone, true, false, false
	case 0x09:
		return kindNone, true, true, false
	case 0x01:
		return kindMBC1, false, false, false
	case 0x02:
		return kindMBC1, true, false, false
	case 0x03:
		return kindMBC1, true, true, false
	case 0x0F:
		return kindMBC3, false, true, true
	case 0x10:
		return kindMBC3, true, true, true
	case 0x11:
		return kindMBC3, false, false, false
	case 0x12:
		return kindMBC3, true, false, false
	case 0x13:
		return kindMBC3, true, true, false
	case 0x19:
		return kindMBC5, false, false, false
	case 0x1A:
		return kindMBC5, true, false, false
	case 0x1B:
		return kindMBC5, true, true, false
	case 0x1C:
		return kindMBC5, false, false, false
	case 0x1D:
		return kindMBC5, true, false, false
	case 0x1E:
		return kindMBC5, true, true, false
	default:
		return kindNone, false, false, false
	}
}

// ValidateLogo reports whether the header's Nintendo logo bitmap matches the
// canonical bytes the boot ROM checks.
func (h Header) ValidateLogo() bool {
	return h.Logo == nintendoLogo
}

// ValidateHeaderChecksum recomputes the header checksum over 0x0134-0x014C
// and compares it to the stored byte at 0x014D.
func ValidateHeaderChecksum(rom []byte) bool {
	if len(rom) < 0x150 {
		return false
	}
	var x uint8
	for i := 0x0134; i <= 0x014C; i++ {
		x = x - rom[i] - 1
	}
	return x == rom[0x014D]
}

func (h Header) IsCGB() bool { return h.CGBFlag&0x80 != 0 }
