// Package cpu implements the 6502-family CPU core: the full official and
// illegal opcode set, all addressing modes, and the pending-cycle Tick
// model the clock driver walks one CPU cycle at a time.
package cpu

import (
	"github.com/nescore-emu/nescore/pkg/bus"
	"github.com/nescore-emu/nescore/pkg/logger"
)

// CPU represents the 6502 processor
type CPU struct {
	// Registers
	A  uint8  // Accumulator
	X  uint8  // X register
	Y  uint8  // Y register
	SP uint8  // Stack pointer
	PC uint16 // Program counter
	P  uint8  // Status register

	// Bus is the address-space fabric the CPU peeks/pokes through.
	Bus bus.AddressSpace

	// Cycles is the running total of CPU cycles ticked since Reset.
	Cycles uint64

	// pending is the number of Tick calls left to absorb before the
	// next instruction is fetched - one instruction's cost is spent as
	// one real cycle plus (cost-1) pending no-op ticks.
	pending int

	// Halted is set by a KIL/JAM opcode; the CPU stops fetching
	// forever but stays available for test assertion.
	Halted   bool
	HaltCode uint8

	// NMI is edge-triggered: TriggerNMI latches a pending request that
	// fires (and clears) the next time an instruction boundary is
	// reached. IRQ is level-triggered: callers (PPU bridge, mappers
	// with IRQ lines) hold it asserted/deasserted with SetIRQLine, and
	// it fires at every instruction boundary where it's asserted and
	// the I flag is clear.
	nmiPending bool
	irqLine    bool

	// Debug fields for freeze detection
	lastPC       uint16
	stuckCounter int
}

// Status flag bits
const (
	FlagCarry     = 1 << 0 // C
	FlagZero      = 1 << 1 // Z
	FlagInterrupt = 1 << 2 // I
	FlagDecimal   = 1 << 3 // D
	FlagBreak     = 1 << 4 // B
	FlagUnused    = 1 << 5 // -
	FlagOverflow  = 1 << 6 // V
	FlagNegative  = 1 << 7 // N
)

// New creates a new CPU instance wired to the given address space.
func New(bus bus.AddressSpace) *CPU {
	return &CPU{
		Bus: bus,
		SP:  0xFD,
		P:   FlagUnused | FlagInterrupt,
	}
}

// Reset resets the CPU to initial state and loads PC from the reset vector.
func (c *CPU) Reset() {
	c.A = 0
	c.X = 0
	c.Y = 0
	c.SP = 0xFD
	c.P = FlagUnused | FlagInterrupt
	c.Halted = false
	c.HaltCode = 0
	c.pending = 0
	c.nmiPending = false

	c.PC = c.read16(0xFFFC)
	c.Cycles = 0
}

// TriggerNMI latches an edge-triggered Non-Maskable Interrupt request.
func (c *CPU) TriggerNMI() {
	c.nmiPending = true
}

// TriggerIRQ is a back-compat alias for SetIRQLine(true): it asserts the
// level-triggered IRQ line. Use SetIRQLine for a source that needs to
// later deassert its own request.
func (c *CPU) TriggerIRQ() {
	c.irqLine = true
}

// SetIRQLine asserts or deasserts the level-triggered IRQ line.
func (c *CPU) SetIRQLine(asserted bool) {
	c.irqLine = asserted
}

// IRQ reports whether the IRQ line is currently asserted (read-only
// view retained for callers that inspected the old IRQ field).
func (c *CPU) IRQ() bool {
	return c.irqLine
}

// Tick advances the CPU by exactly one CPU cycle: the clock driver calls
// this once per CPU cycle it issues. While an instruction's remaining
// cost is still pending, Tick is a no-op apart from the cycle count. At
// an instruction boundary, Tick services a pending NMI or level IRQ, or
// else fetches and executes the next opcode, and stashes (cost-1) as
// the new pending count.
func (c *CPU) Tick() {
	if c.Halted {
		return
	}

	c.Cycles++

	if c.pending > 0 {
		c.pending--
		return
	}

	if c.nmiPending {
		c.nmiPending = false
		logger.LogCPU("NMI triggered at PC=$%04X", c.PC)
		c.handleNMI()
		c.pending = 7 - 1
		return
	}

	if c.irqLine && !c.getFlag(FlagInterrupt) {
		logger.LogCPU("IRQ triggered at PC=$%04X", c.PC)
		c.handleIRQ()
		c.pending = 7 - 1
		return
	}

	opcode := c.read(c.PC)
	c.PC++

	if isKilOpcode(opcode) {
		c.Halted = true
		c.HaltCode = opcode
		logger.LogCPU("KIL/JAM opcode $%02X at PC=$%04X, CPU halted", opcode, c.PC-1)
		return
	}

	cost := c.executeInstruction(opcode)
	c.pending = cost - 1
}

func isKilOpcode(opcode uint8) bool {
	switch opcode {
	case 0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2:
		return true
	}
	return false
}

// Step runs Tick until the current instruction (and any interrupt entry
// it triggers) fully retires, returning the number of cycles it cost.
// This is the convenience entry point for callers that don't need
// cycle-by-cycle interleaving with other devices.
func (c *CPU) Step() int {
	before := c.Cycles
	c.Tick()
	for c.pending > 0 && !c.Halted {
		c.Tick()
	}
	return int(c.Cycles - before)
}

// handleNMI pushes PC/status and jumps to the NMI vector.
func (c *CPU) handleNMI() {
	c.push16(c.PC)
	c.push(c.P &^ FlagBreak)
	c.setFlag(FlagInterrupt, true)
	nmiVector := c.read16(0xFFFA)
	logger.LogCPU("NMI vector: $%04X, jumping to NMI handler", nmiVector)
	c.PC = nmiVector
}

// handleIRQ pushes PC/status and jumps to the IRQ/BRK vector.
func (c *CPU) handleIRQ() {
	c.push16(c.PC)
	c.push(c.P &^ FlagBreak)
	c.setFlag(FlagInterrupt, true)
	c.PC = c.read16(0xFFFE)
}

// Flag operations
func (c *CPU) getFlag(flag uint8) bool {
	return c.P&flag != 0
}

func (c *CPU) setFlag(flag uint8, value bool) {
	if value {
		c.P |= flag
	} else {
		c.P &^= flag
	}
}

// Memory operations
func (c *CPU) read(addr uint16) uint8 {
	return c.Bus.Peek(addr)
}

func (c *CPU) write(addr uint16, value uint8) {
	c.Bus.Poke(addr, value)
}

func (c *CPU) read16(addr uint16) uint16 {
	return bus.Peek16(c.Bus, addr)
}

// Stack operations
func (c *CPU) push(value uint8) {
	c.write(0x100|uint16(c.SP), value)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.read(0x100 | uint16(c.SP))
}

func (c *CPU) push16(value uint16) {
	c.push(uint8(value >> 8))
	c.push(uint8(value & 0xFF))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return hi<<8 | lo
}

// GetFlag returns the state of a flag (public method for testing)
func (c *CPU) GetFlag(flag uint8) bool {
	return c.getFlag(flag)
}
