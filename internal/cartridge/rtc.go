package cartridge

import (
	"time"

	"github.com/reneklacan/gbcore/internal/types"
)

func defaultNow() int64 { return time.Now().Unix() }

// rtcSnapshot is one set of the five MBC3 clock registers.
type rtcSnapshot struct {
	seconds, minutes, hours, daysLow, daysHigh uint8
}

// rtc is the MBC3 real-time clock. It tracks wall-clock time as an elapsed
// delta from a stored Unix base rather than ticking per T-cycle, so time
// keeps advancing across process restarts.
type rtc struct {
	live    rtcSnapshot
	latched rtcSnapshot
	base    int64 // unix seconds when live was last brought up to date
}

// nowFunc is overridable in tests; production code always uses wall time.
var nowFunc = defaultNow

// update brings live up to date against the current time, propagating
// S->M->H->D carries and wrapping the 9-bit day counter at 512 into the
// carry bit. Halted clocks (DaysHigh bit 6) resync base without advancing.
func (r *rtc) update(now int64) {
	if r.live.daysHigh&0x40 != 0 {
		r.base = now
		return
	}
	elapsed := now - r.base
	if elapsed <= 0 {
		return
	}
	r.base = now

	days := r.dayCounter()
	total := int64(r.live.seconds) + int64(r.live.minutes)*60 + int64(r.live.hours)*3600 + int64(days)*86400 + elapsed

	newDays := total / 86400
	rem := total % 86400
	r.live.hours = uint8(rem / 3600)
	rem %= 3600
	r.live.minutes = uint8(rem / 60)
	r.live.seconds = uint8(rem % 60)

	carry := r.live.daysHigh & 0x80
	if newDays > 511 {
		carry = 0x80
		newDays %= 512
	}
	r.live.daysLow = uint8(newDays & 0xFF)
	msb := uint8((newDays >> 8) & 0x01)
	r.live.daysHigh = (r.live.daysHigh & 0x40) | msb | carry
}

func (r *rtc) dayCounter() int64 {
	return int64(r.live.daysLow) | int64(r.live.daysHigh&0x01)<<8
}

// latch snapshots the (updated) live registers for reads to observe until
// the next 0x00->0x01 latch sequence.
func (r *rtc) latch() {
	r.update(nowFunc())
	r.latched = r.live
}

func (r *rtc) readSelected(sel uint8) uint8 {
	switch sel {
	case 0x08:
		return r.latched.seconds
	case 0x09:
		return r.latched.minutes
	case 0x0A:
		return r.latched.hours
	case 0x0B:
		return r.latched.daysLow
	case 0x0C:
		return r.latched.daysHigh
	default:
		return 0xFF
	}
}

func (r *rtc) writeSelected(sel, v uint8) {
	r.update(nowFunc())
	switch sel {
	case 0x08:
		r.live.seconds = v & 0x3F
	case 0x09:
		r.live.minutes = v & 0x3F
	case 0x0A:
		r.live.hours = v & 0x1F
	case 0x0B:
		r.live.daysLow = v
	case 0x0C:
		r.live.daysHigh = v & 0xC1
	}
}

func (r *rtc) save(s *types.State) {
	s.Write8(r.live.seconds)
	s.Write8(r.live.minutes)
	s.Write8(r.live.hours)
	s.Write8(r.live.daysLow)
	s.Write8(r.live.daysHigh)
	s.Write8(r.latched.seconds)
	s.Write8(r.latched.minutes)
	s.Write8(r.latched.hours)
	s.Write8(r.latched.daysLow)
	s.Write8(r.latched.daysHigh)
	s.Write64(uint64(r.base))
}

func (r *rtc) load(s *types.State) {
	r.live.seconds = s.Read8()
	r.live.minutes = s.Read8()
	r.live.hours = s.Read8()
	r.live.daysLow = s.Read8()
	r.live.daysHigh = s.Read8()
	r.latched.seconds = s.Read8()
	r.latched.minutes = s.Read8()
	r.latched.hours = s.Read8()
	r.latched.daysLow = s.Read8()
	r.latched.daysHigh = s.Read8()
	r.base = int64(s.Read64())
}

// marshalVBAM encodes the RTC in the VBA-M save-RAM layout: 5 LE u32 live
// registers, 5 LE u32 latched registers, then an LE s64 sync timestamp.
// Unlike save-state, this never carries the latch edge-detector.
func (r *rtc) marshalVBAM() []byte {
	buf := make([]byte, 0, 48)
	put := func(v uint8) {
		buf = append(buf, v, 0, 0, 0)
	}
	put(r.live.seconds)
	put(r.live.minutes)
	put(r.live.hours)
	put(r.live.daysLow)
	put(r.live.daysHigh)
	put(r.latched.seconds)
	put(r.latched.minutes)
	put(r.latched.hours)
	put(r.latched.daysLow)
	put(r.latched.daysHigh)
	ts := uint64(r.base)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(ts>>(8*i)))
	}
	return buf
}

func (r *rtc) unmarshalVBAM(data []byte) bool {
	if len(data) < 48 {
		return false
	}
	get := func(i int) uint8 { return data[i*4] }
	r.live = rtcSnapshot{get(0), get(1), get(2), get(3), get(4)}
	r.latched = rtcSnapshot{get(5), get(6), get(7), get(8), get(9)}
	var ts uint64
	for i := 0; i < 8; i++ {
		ts |= uint64(data[40+i]) << (8 * i)
	}
	r.base = int64(ts)
	return true
}
