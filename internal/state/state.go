// Package state implements the save-state file format: a small fixed
// header (magic + version) framing a gzip-compressed blob of whatever the
// caller wants persisted. It knows nothing about the emulator's component
// layout; internal/system decides what goes into the blob and in what
// order.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

const (
	magic   uint32 = 0x53534247 // 'GBSS', little-endian on disk
	version uint8  = 3
)

// ErrBadMagic and ErrBadVersion are returned by Read (and satisfy
// errors.Is against the errors returned by ReadFile) when the header
// doesn't match, per the "mismatch rejects the load" policy.
var (
	ErrBadMagic   = errors.New("state: bad magic")
	ErrBadVersion = errors.New("state: unsupported version")
)

// Write frames payload behind the magic/version header and gzip-compresses
// it into w.
func Write(w io.Writer, payload []byte) error {
	var header [5]byte
	binary.LittleEndian.PutUint32(header[:4], magic)
	header[4] = version
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(payload); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Read validates the header and returns the decompressed payload. Any
// error — bad magic, bad version, or a truncated/corrupt gzip stream —
// is returned before any bytes of the payload are handed back, so a
// caller that only acts on a nil error never observes a partial state.
func Read(r io.Reader) ([]byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(header[:4]) != magic {
		return nil, ErrBadMagic
	}
	if header[4] != version {
		return nil, ErrBadVersion
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// WriteFile writes payload to path as a complete save-state file.
func WriteFile(path string, payload []byte) error {
	var buf bytes.Buffer
	if err := Write(&buf, payload); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile reads and validates a save-state file, returning its payload.
// The prior in-memory state is left untouched by the caller regardless of
// outcome, since decoding happens entirely in memory before this
// returns.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data))
}
