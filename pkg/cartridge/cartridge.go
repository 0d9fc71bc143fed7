// Package cartridge parses the iNES ROM container and exposes the PRG
// and CHR banks as bus.AddressSpace views, per spec.md §4.1's cartridge
// bus layout and §6's iNES contract. Only mapper 0 (NROM, one or two
// 16 KiB PRG banks, direct CHR mapping) is supported — every other
// mapper number is refused at load as InvalidRom (spec.md §1 Non-goals).
package cartridge

import (
	"errors"
	"fmt"
	"io"

	"github.com/nescore-emu/nescore/pkg/bus"
)

// ErrInvalidROM is returned by Load for any iNES parse failure, including
// an unsupported mapper number.
var ErrInvalidROM = errors.New("invalid or unsupported rom")

const (
	prgBankSize = 16384
	chrBankSize = 8192
	trainerSize = 512
	headerSize  = 16
)

// Mirroring selects how the two PPU nametables are laid out across the
// $2000-$2FFF window.
type Mirroring int

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorFourScreen
)

// Header is the parsed 16-byte iNES header.
type Header struct {
	PRGBanks  uint8 // x 16 KiB
	CHRBanks  uint8 // x 8 KiB
	Mapper    uint8
	Mirroring Mirroring
	Battery   bool
	Trainer   bool
}

// Cartridge holds the decoded ROM banks and their bus views.
type Cartridge struct {
	Header Header

	prg    bus.AddressSpace // $8000-$FFFF view, already bank-mirrored
	prgRAM *bus.Ram         // $6000-$7FFF, present only if battery-backed
	chr    bus.AddressSpace // $0000-$1FFF pattern-table view (ROM or RAM)
	chrRAM bool
}

// Load reads an iNES file from r and builds a Cartridge.
func Load(r io.Reader) (*Cartridge, error) {
	raw := make([]uint8, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrInvalidROM, err)
	}
	if string(raw[0:4]) != "NES\x1a" {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidROM)
	}

	h := Header{
		PRGBanks: raw[4],
		CHRBanks: raw[5],
		Mapper:   (raw[6] >> 4) | (raw[7] & 0xF0),
		Battery:  raw[6]&0x02 != 0,
		Trainer:  raw[6]&0x04 != 0,
	}
	switch {
	case raw[6]&0x08 != 0:
		h.Mirroring = MirrorFourScreen
	case raw[6]&0x01 != 0:
		h.Mirroring = MirrorVertical
	default:
		h.Mirroring = MirrorHorizontal
	}
	if h.Mapper != 0 {
		return nil, fmt.Errorf("%w: mapper %d unsupported (NROM only)", ErrInvalidROM, h.Mapper)
	}
	if h.PRGBanks == 0 || h.PRGBanks > 2 {
		return nil, fmt.Errorf("%w: NROM requires one or two 16KiB PRG banks, got %d", ErrInvalidROM, h.PRGBanks)
	}

	if h.Trainer {
		if _, err := io.CopyN(io.Discard, r, trainerSize); err != nil {
			return nil, fmt.Errorf("%w: short trainer: %v", ErrInvalidROM, err)
		}
	}

	prgBytes := make([]uint8, int(h.PRGBanks)*prgBankSize)
	if _, err := io.ReadFull(r, prgBytes); err != nil {
		return nil, fmt.Errorf("%w: short PRG ROM: %v", ErrInvalidROM, err)
	}

	cart := &Cartridge{Header: h}

	prgRom := bus.NewRom(prgBytes)
	if h.PRGBanks == 1 {
		// A single bank is mirrored to fill both halves of $8000-$FFFF.
		cart.prg = bus.NewMirrored(prgRom, 0x8000, 0xBFFF, 0x8000, 0xFFFF, false)
	} else {
		m := bus.NewMapper()
		m.Map(0x8000, 0xFFFF, prgRom, false)
		cart.prg = m
	}

	if h.Battery {
		cart.prgRAM = bus.NewRam(8192)
	}

	if h.CHRBanks == 0 {
		cart.chrRAM = true
		cart.chr = bus.NewRam(chrBankSize)
	} else {
		chrBytes := make([]uint8, int(h.CHRBanks)*chrBankSize)
		if _, err := io.ReadFull(r, chrBytes); err != nil {
			return nil, fmt.Errorf("%w: short CHR ROM: %v", ErrInvalidROM, err)
		}
		cart.chr = bus.NewRom(chrBytes)
	}

	return cart, nil
}

// PRGSpace returns the AddressSpace the CPU bus mounts at $4020-$FFFF:
// PRG RAM (if battery-backed) at $6000-$7FFF, PRG ROM at $8000-$FFFF.
// Unmapped addresses in $4020-$5FFF fall through to open bus.
func (c *Cartridge) PRGSpace() bus.AddressSpace {
	m := bus.NewMapper()
	if c.prgRAM != nil {
		m.Map(0x6000, 0x7FFF, c.prgRAM, false)
	}
	m.Map(0x8000, 0xFFFF, c.prg, true)
	return m
}

// CHRSpace returns the AddressSpace the PPU bus mounts at $0000-$1FFF.
func (c *Cartridge) CHRSpace() bus.AddressSpace {
	return c.chr
}

// PRGRAM returns the battery-backed PRG RAM bytes, or nil if this
// cartridge has none. Used by save states to persist $6000-$7FFF.
func (c *Cartridge) PRGRAM() []uint8 {
	if c.prgRAM == nil {
		return nil
	}
	return c.prgRAM.Bytes
}

// CHRRAM returns the CHR RAM bytes, or nil if this cartridge has CHR ROM
// instead. Used by save states to persist mutable pattern-table data.
func (c *Cartridge) CHRRAM() []uint8 {
	if !c.chrRAM {
		return nil
	}
	return c.chr.(*bus.Ram).Bytes
}
