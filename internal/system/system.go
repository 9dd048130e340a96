// Package system assembles the Cartridge, CPU, Bus, PPU, APU, Timer,
// Joypad, Interrupts, and Serial components into a single steppable
// emulator core, and implements save-state/save-RAM persistence around
// them.
package system

import (
	"fmt"

	"github.com/reneklacan/gbcore/internal/apu"
	"github.com/reneklacan/gbcore/internal/bus"
	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/cpu"
	"github.com/reneklacan/gbcore/internal/interrupts"
	"github.com/reneklacan/gbcore/internal/joypad"
	"github.com/reneklacan/gbcore/internal/ppu"
	"github.com/reneklacan/gbcore/internal/serial"
	"github.com/reneklacan/gbcore/internal/state"
	"github.com/reneklacan/gbcore/internal/timer"
	"github.com/reneklacan/gbcore/internal/types"
	"github.com/reneklacan/gbcore/pkg/log"
)

// System is the host-facing façade: load a cartridge, call Step in a
// loop, and drain frames/audio/state through the accessors below.
type System struct {
	cart *cartridge.Cartridge

	regs *types.Registers
	irq  *interrupts.Service

	timer   *timer.Controller
	ppu     *ppu.PPU
	apu     *apu.APU
	bus     *bus.Bus
	cpu     *cpu.CPU
	joypad  *joypad.State
	serial  *serial.Controller

	cgb       bool
	noBattery bool
	logger    log.Logger
}

// New wires a fresh System around cart. The cartridge's own CGB flag
// selects DMG/CGB mode unless overridden by WithModel.
func New(cart *cartridge.Cartridge, opts ...Option) *System {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	cgb := cart.Header().IsCGB()
	switch cfg.model {
	case ModelDMG:
		cgb = false
	case ModelCGB:
		cgb = true
	}

	if cfg.logger == nil {
		cfg.logger = log.NewWithFields(map[string]interface{}{
			"cartridge": cart.Header().Title,
			"cgb":       cgb,
		})
	}

	regs := &types.Registers{}
	irq := interrupts.NewService(regs)
	tim := timer.NewController(irq, regs)
	p := ppu.New(irq, regs, cgb)
	a := apu.New(regs)
	b := bus.New(cart, p, tim, a, regs, cgb)
	c := cpu.New(b, irq)
	j := joypad.New(irq, regs)
	ser := serial.New(irq, regs, cfg.serialTest)

	// Every component above binds its registers as a side effect of
	// construction; MustRead here turns a missing Bind into an immediate
	// panic instead of a register that silently reads 0xFF forever.
	regs.MustRead(types.IF)
	regs.MustRead(types.IE)
	regs.MustRead(types.LCDC)
	regs.MustRead(types.DIV)
	regs.MustRead(types.NR52)
	regs.MustRead(types.P1)

	sys := &System{
		cart:      cart,
		regs:      regs,
		irq:       irq,
		timer:     tim,
		ppu:       p,
		apu:       a,
		bus:       b,
		cpu:       c,
		joypad:    j,
		serial:    ser,
		cgb:       cgb,
		noBattery: cfg.noBattery,
		logger:    cfg.logger,
	}

	if !cart.ValidateLogo() || !cart.ValidateHeaderChecksum() {
		sys.logger.Warnf("cartridge %q failed header validation (advisory only)", cart.Header().Title)
	}
	sys.logger.Infof("loaded %q, cgb=%v, hash=%x", cart.Header().Title, cgb, cart.Hash())

	return sys
}

// IsCGB reports which hardware mode this System is running in.
func (s *System) IsCGB() bool { return s.cgb }

// Cartridge returns the loaded cartridge, for header inspection.
func (s *System) Cartridge() *cartridge.Cartridge { return s.cart }

// Joypad returns the input state for Press/Release calls.
func (s *System) Joypad() *joypad.State { return s.joypad }

// Serial returns the serial controller, for test-mode result inspection.
func (s *System) Serial() *serial.Controller { return s.serial }

// Registers returns a snapshot of the CPU register file, for telemetry.
func (s *System) Registers() cpu.Snapshot { return s.cpu.Snapshot() }

// PPUMode and LY expose the current scanline state, for telemetry.
func (s *System) PPUMode() ppu.Mode { return s.ppu.Mode() }
func (s *System) LY() uint8         { return s.ppu.LY() }

// ChannelsEnabled reports the APU's four channel-enable bits plus master
// power, packed like NR52, for telemetry.
func (s *System) ChannelsEnabled() uint8 { return s.apu.ChannelsEnabled() }

// Cycles returns the total M-cycles executed since construction.
func (s *System) Cycles() uint64 { return s.bus.Cycles() }

// Step runs exactly one CPU instruction (or one M-cycle of HALT, or one
// interrupt dispatch) and returns the number of M-cycles it consumed.
func (s *System) Step() int {
	before := s.bus.Cycles()
	s.cpu.Step()
	return int(s.bus.Cycles() - before)
}

// FrameReady reports whether a full frame has completed since the last
// call, clearing the flag on read (one-shot, matching PPU.FrameReady's own
// semantics one level up).
func (s *System) FrameReady() bool {
	return s.ppu.FrameReady()
}

// Framebuffer returns the current 160x144 ARGB framebuffer. The backing
// array is reused every frame; callers that need to retain a frame must
// copy it.
func (s *System) Framebuffer() []uint32 {
	return s.ppu.Framebuffer()
}

// AudioTake drains and returns the buffered audio samples generated since
// the last call.
func (s *System) AudioTake() []float32 {
	return s.apu.TakeSamples()
}

// AudioBuffered reports how many samples are queued without draining them,
// so a host can detect a growing backlog (it isn't pulling audio often
// enough) before AudioTake's buffer overruns.
func (s *System) AudioBuffered() int {
	return s.apu.BufferedSamples()
}

// SaveRAM serializes the cartridge's external RAM (and RTC blob, for
// MBC3+timer carts) in the .sav file format. Returns nil if the cartridge
// has no battery-backed RAM or WithoutBattery was set.
func (s *System) SaveRAM() []byte {
	if s.noBattery || !s.cart.HasBattery() {
		return nil
	}
	return s.cart.SaveRAM()
}

// LoadRAM restores external RAM from a previously-saved .sav buffer.
func (s *System) LoadRAM(data []byte) error {
	return s.cart.LoadRAM(data)
}

// componentOrder lists the Stater components in the order their blobs
// appear in a save-state file: CPU, Bus, Timer, PPU, APU, Cartridge, then
// Interrupts/Joypad/Serial appended after the components spec.md names
// explicitly.
func (s *System) componentOrder() []types.Stater {
	return []types.Stater{s.cpu, s.bus, s.timer, s.ppu, s.apu, s.cart, s.irq, s.joypad, s.serial}
}

// SaveState serializes every component's state into path using the
// magic/version-framed, gzip-compressed save-state format.
func (s *System) SaveState(path string) error {
	buf := types.NewState()
	for _, c := range s.componentOrder() {
		c.Save(buf)
	}
	return state.WriteFile(path, buf.Bytes())
}

// LoadState reads path and, if its header and decompressed payload are
// intact, loads every component's state from it in the same order
// SaveState wrote them. On any error the System is left completely
// unmodified: the file is fully decoded into memory before any
// component's Load is called.
func (s *System) LoadState(path string) error {
	payload, err := state.ReadFile(path)
	if err != nil {
		return fmt.Errorf("system: load state: %w", err)
	}
	buf := types.StateFromBytes(payload)
	for _, c := range s.componentOrder() {
		c.Load(buf)
	}
	return nil
}
