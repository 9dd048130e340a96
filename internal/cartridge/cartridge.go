// Package cartridge parses Game Boy ROM images and implements the
// supported memory-bank controllers (None, MBC1, MBC3+RTC, MBC5).
package cartridge

import (
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/cespare/xxhash"
	"github.com/reneklacan/gbcore/internal/types"
)

// Cartridge is a loaded ROM image plus its banking controller and
// persistent RAM.
type Cartridge struct {
	rom    []byte
	ram    []byte
	header Header
	mbc    mbc
	hash   uint64
}

// Load parses a raw ROM image (already decompressed/extracted).
func Load(rom []byte) (*Cartridge, error) {
	h, err := parseHeader(rom)
	if err != nil {
		return nil, err
	}

	c := &Cartridge{rom: rom, header: h, hash: xxhash.Sum64(rom)}
	if h.hasRAM {
		c.ram = make([]byte, h.ramSize)
	}

	switch h.kind {
	case kindMBC1:
		c.mbc = newMBC1(h.romBanks, len(rom))
	case kindMBC3:
		c.mbc = newMBC3(h.romBanks, h.hasRTC)
	case kindMBC5:
		c.mbc = newMBC5(h.romBanks)
	default:
		c.mbc = newMBCNone()
	}
	return c, nil
}

// LoadFile reads a ROM from disk, transparently unwrapping .zip, .gz, and
// .7z archives (the first file inside is used).
func LoadFile(path string) (*Cartridge, error) {
	data, err := readROMFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func readROMFile(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)

	case ".zip":
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if len(zr.File) == 0 {
			return nil, errNoArchiveMember
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)

	case ".7z":
		zr, err := sevenzip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if len(zr.File) == 0 {
			return nil, errNoArchiveMember
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)

	default:
		return os.ReadFile(path)
	}
}

// Header returns the parsed header.
func (c *Cartridge) Header() Header { return c.header }

// Hash is a content-addressed identity for the loaded ROM, usable as a
// save-file or telemetry key.
func (c *Cartridge) Hash() uint64 { return c.hash }

// HasBattery reports whether external RAM survives a power cycle.
func (c *Cartridge) HasBattery() bool { return c.header.hasBattery }

// ValidateLogo reports whether the embedded Nintendo logo bitmap matches.
func (c *Cartridge) ValidateLogo() bool { return c.header.ValidateLogo() }

// ValidateHeaderChecksum reports whether the header checksum byte matches
// the recomputed checksum.
func (c *Cartridge) ValidateHeaderChecksum() bool { return ValidateHeaderChecksum(c.rom) }

func (c *Cartridge) Read(addr uint16) uint8      { return c.mbc.Read(c.rom, addr) }
func (c *Cartridge) Write(addr uint16, v uint8)  { c.mbc.Write(addr, v) }
func (c *Cartridge) ReadRAM(addr uint16) uint8   { return c.mbc.ReadRAM(c.ram, addr) }
func (c *Cartridge) WriteRAM(addr uint16, v uint8) { c.mbc.WriteRAM(c.ram, addr, v) }

// LoadRAM restores external RAM (and, for MBC3+RTC carts, the VBA-M-layout
// clock blob appended after the raw RAM bytes) from a save-RAM buffer.
func (c *Cartridge) LoadRAM(data []byte) error {
	if len(c.ram) == 0 {
		return nil
	}
	if len(data) < len(c.ram) {
		return errBadSaveRAM
	}
	copy(c.ram, data[:len(c.ram)])

	if m3, ok := c.mbc.(*mbc3); ok && m3.hasRTC {
		rest := data[len(c.ram):]
		if len(rest) > 0 {
			m3.rtc.unmarshalVBAM(rest)
		}
	}
	return nil
}

// SaveRAM serializes external RAM (and RTC blob, if applicable) in the
// format LoadRAM expects.
func (c *Cartridge) SaveRAM() []byte {
	out := make([]byte, len(c.ram))
	copy(out, c.ram)
	if m3, ok := c.mbc.(*mbc3); ok && m3.hasRTC {
		out = append(out, m3.rtc.marshalVBAM()...)
	}
	return out
}

var _ types.Stater = (*Cartridge)(nil)

func (c *Cartridge) Save(s *types.State) {
	s.WriteData(c.ram)
	c.mbc.Save(s)
}

func (c *Cartridge) Load(s *types.State) {
	s.ReadData(c.ram)
	c.mbc.Load(s)
}
