// Package nes wires the CPU, PPU, APU, cartridge, and joystick ports into
// one clocked system: it owns the cyclic CPU<->PPU interconnect (both
// sides depend on the other's bus), the CPU address-space composition,
// NMI/IRQ routing, and OAM DMA CPU-stall timing.
package nes

import (
	"errors"

	"github.com/nescore-emu/nescore/pkg/apu"
	"github.com/nescore-emu/nescore/pkg/bus"
	"github.com/nescore-emu/nescore/pkg/cartridge"
	"github.com/nescore-emu/nescore/pkg/cpu"
	"github.com/nescore-emu/nescore/pkg/input"
	"github.com/nescore-emu/nescore/pkg/logger"
	"github.com/nescore-emu/nescore/pkg/ppu"
)

// ErrCartridgeMismatch is returned by DecodeState when a save state's
// cartridge RAM section doesn't match the currently-loaded cartridge's
// PRG/CHR RAM sizes - almost always because the state was taken against
// a different ROM.
var ErrCartridgeMismatch = errors.New("save state does not match the loaded cartridge")

// System is a fully wired NES: one cartridge, one CPU, one PPU, one APU,
// two joystick ports.
type System struct {
	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.Ports
	Cart  *cartridge.Cartridge

	ram       *bus.Ram
	nametable *NameTableMirror
	cpuBus    *bus.Mapper

	dmaStall int
	Cycles   uint64
}

// busMemoryReader adapts a bus.AddressSpace to apu.MemoryReader so the
// DMC channel can pull sample bytes off the CPU bus (PRG ROM/RAM).
type busMemoryReader struct{ bus.AddressSpace }

func (b busMemoryReader) Read(addr uint16) uint8 { return b.Peek(addr) }

// New builds a System around the given cartridge.
func New(cart *cartridge.Cartridge) *System {
	s := &System{
		APU:   apu.New(),
		Input: input.New(),
		Cart:  cart,
		ram:   bus.NewRam(2048),
	}
	s.CPU = cpu.New(nil)
	s.nametable = &NameTableMirror{Mode: cart.Header.Mirroring}
	s.PPU = ppu.New(s.buildPPUBus())
	s.CPU.Bus = s.buildCPUBus()
	s.APU.SetMemory(busMemoryReader{s.CPU.Bus})

	return s
}

// buildPPUBus composes the PPU's $0000-$3FFF address space: cartridge
// CHR at $0000-$1FFF, mirrored nametable RAM at $2000-$3EFF, and
// mirrored palette RAM at $3F00-$3FFF.
func (s *System) buildPPUBus() bus.AddressSpace {
	palette := &bus.PaletteControl{}
	paletteMirror := bus.NewMirrored(palette, 0x3F00, 0x3F1F, 0x3F00, 0x3FFF, true)

	m := bus.NewMapper()
	m.Map(0x0000, 0x1FFF, s.Cart.CHRSpace(), true)
	m.Map(0x2000, 0x2FFF, s.nametable, true)
	m.Map(0x3000, 0x3EFF, bus.NewMirrored(s.nametable, 0x2000, 0x2EFF, 0x3000, 0x3EFF, true), true)
	m.Map(0x3F00, 0x3FFF, paletteMirror, true)
	return m
}

// buildCPUBus composes the CPU's full $0000-$FFFF address space.
func (s *System) buildCPUBus() *bus.Mapper {
	m := bus.NewMapper()
	m.Map(0x0000, 0x1FFF, bus.NewMirrored(s.ram, 0x0000, 0x07FF, 0x0000, 0x1FFF, true), true)
	m.Map(0x2000, 0x3FFF, bus.NewMirrored(
		bus.Func{PeekFn: s.PPU.ReadRegister, PokeFn: s.PPU.WriteRegister},
		0x2000, 0x2007, 0x2000, 0x3FFF, true), true)
	m.Map(0x4000, 0x4013, bus.Func{PeekFn: s.APU.ReadRegister, PokeFn: s.APU.WriteRegister}, true)
	m.Map(0x4014, 0x4014, bus.Func{PeekFn: func(uint16) uint8 { return 0 }, PokeFn: s.triggerOAMDMA}, true)
	m.Map(0x4015, 0x4015, bus.Func{PeekFn: s.APU.ReadRegister, PokeFn: s.APU.WriteRegister}, true)
	m.Map(0x4016, 0x4016, bus.Func{
		PeekFn: func(uint16) uint8 { return s.Input.Read(0) },
		PokeFn: func(_ uint16, v uint8) { s.Input.Write(v) },
	}, true)
	m.Map(0x4017, 0x4017, bus.Func{
		PeekFn: func(uint16) uint8 { return s.Input.Read(1) },
		PokeFn: s.APU.WriteRegister,
	}, true)
	m.Map(0x4020, 0xFFFF, s.Cart.PRGSpace(), true)
	return m
}

// triggerOAMDMA services a CPU write to $4014: copies the 256-byte page
// at value<<8 into PPU OAM and stalls the CPU for 513 cycles, or 514 if
// the triggering write landed on an odd CPU cycle (the extra cycle to
// align to an even "get" cycle before the DMA's read/write pairs begin).
func (s *System) triggerOAMDMA(_ uint16, value uint8) {
	var page [256]uint8
	base := uint16(value) << 8
	for i := 0; i < 256; i++ {
		page[i] = s.CPU.Bus.Peek(base + uint16(i))
	}
	s.PPU.WriteOAMDMA(page)

	stall := 513
	if s.CPU.Cycles%2 != 0 {
		stall = 514
	}
	s.dmaStall += stall
	logger.LogBus("OAM DMA from page $%02X00, stalling CPU %d cycles", value, stall)
}

// Reset resets every component to power-up state.
func (s *System) Reset() {
	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()
	s.Cycles = 0
	s.dmaStall = 0
}

// Tick advances the whole system by exactly one CPU cycle: the CPU (or,
// during an OAM DMA stall, nothing) for one cycle, the PPU for three
// (it runs 3x the CPU's dot rate), and the APU for one, then routes any
// NMI/IRQ lines the PPU/APU raised back to the CPU.
func (s *System) Tick() {
	if s.dmaStall > 0 {
		s.dmaStall--
	} else {
		s.CPU.Tick()
	}

	for i := 0; i < 3; i++ {
		s.PPU.Tick()
		if s.PPU.NMIRequested {
			s.CPU.TriggerNMI()
			s.PPU.NMIRequested = false
		}
	}

	s.APU.Step()
	s.CPU.SetIRQLine(s.APU.IRQPending() || (s.PPU.MapperIRQ != nil && s.PPU.MapperIRQ()))

	s.Cycles++
}

// RunFrame ticks the system until the PPU completes one full frame.
func (s *System) RunFrame() {
	startFrame := s.PPU.Frame
	for s.PPU.Frame == startFrame {
		s.Tick()
	}
}

// FrameBuffer returns the PPU's current 256x240 ARGB framebuffer.
func (s *System) FrameBuffer() []uint32 {
	return s.PPU.FrameBuffer[:]
}
