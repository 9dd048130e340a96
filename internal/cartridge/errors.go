package cartridge

import "errors"

var (
	errShortROM        = errors.New("cartridge: rom image shorter than header region")
	errNoArchiveMember = errors.New("cartridge: archive contains no rom image")
	errBadSaveRAM      = errors.New("cartridge: save ram file is malformed")
)
