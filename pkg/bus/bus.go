// Package bus implements the address-space fabric: a uniform peek/poke
// view over u16 addresses that composes mirrored RAM, ROM, and
// memory-mapped registers into the single bus each CPU/PPU master sees.
package bus

import "github.com/nescore-emu/nescore/pkg/logger"

// AddressSpace is the contract every bus master and every backing device
// implements: a pure peek (observable only through the backing device's
// own declared side effects) and a poke.
type AddressSpace interface {
	Peek(addr uint16) uint8
	Poke(addr uint16, value uint8)
}

// Peek16 reads two bytes little-endian: lo at addr, hi at addr+1.
func Peek16(s AddressSpace, addr uint16) uint16 {
	lo := uint16(s.Peek(addr))
	hi := uint16(s.Peek(addr + 1))
	return hi<<8 | lo
}

// Peek16PageWrap reads two bytes little-endian like Peek16, but the high
// byte is read from (addr & 0xFF00) | ((addr+1) & 0xFF) instead of addr+1
// — the 6502's indirect-JMP page-wrap bug.
func Peek16PageWrap(s AddressSpace, addr uint16) uint16 {
	lo := uint16(s.Peek(addr))
	hiAddr := (addr & 0xFF00) | ((addr + 1) & 0x00FF)
	hi := uint16(s.Peek(hiAddr))
	return hi<<8 | lo
}

// Peek16ZeroPage reads two bytes with zero-page wraparound: the high byte
// comes from (ptr+1) mod 256, the pointer read of (Indirect,X) and
// (Indirect),Y. pkg/cpu's addressing code applies the same wrap inline
// rather than calling this helper.
func Peek16ZeroPage(s AddressSpace, ptr uint8) uint16 {
	lo := uint16(s.Peek(uint16(ptr)))
	hi := uint16(s.Peek(uint16(ptr + 1)))
	return hi<<8 | lo
}

// Ram is a flat read/write byte array.
type Ram struct {
	Bytes []uint8
}

// NewRam allocates a zeroed RAM region of the given size.
func NewRam(size int) *Ram {
	return &Ram{Bytes: make([]uint8, size)}
}

func (r *Ram) Peek(addr uint16) uint8 {
	if int(addr) >= len(r.Bytes) {
		return 0
	}
	return r.Bytes[addr]
}

func (r *Ram) Poke(addr uint16, value uint8) {
	if int(addr) >= len(r.Bytes) {
		return
	}
	r.Bytes[addr] = value
}

// Rom is a flat read-only byte array; writes are dropped.
type Rom struct {
	Bytes []uint8
}

// NewRom wraps an existing (already-loaded) byte slice as ROM.
func NewRom(bytes []uint8) *Rom {
	return &Rom{Bytes: bytes}
}

func (r *Rom) Peek(addr uint16) uint8 {
	if int(addr) >= len(r.Bytes) {
		return 0
	}
	return r.Bytes[addr]
}

func (r *Rom) Poke(addr uint16, value uint8) {
	// ROM writes are dropped, not trapped — bus conflicts are a non-goal.
	logger.LogBus("dropped write $%02X to ROM at $%04X", value, addr)
}

// Func adapts a pair of closures to the AddressSpace interface — handy for
// single-register devices that don't warrant a whole struct.
type Func struct {
	PeekFn func(addr uint16) uint8
	PokeFn func(addr uint16, value uint8)
}

func (f Func) Peek(addr uint16) uint8 {
	if f.PeekFn == nil {
		return 0
	}
	return f.PeekFn(addr)
}

func (f Func) Poke(addr uint16, value uint8) {
	if f.PokeFn != nil {
		f.PokeFn(addr, value)
	}
}
