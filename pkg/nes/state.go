package nes

import (
	"encoding/binary"
	"io"
)

// EncodeState writes every component's state in turn - CPU, PPU, APU,
// input, the shared 2KiB of CPU RAM, the nametable RAM, and the
// cartridge's mutable RAM (battery-backed PRG RAM and/or CHR RAM, each
// length-prefixed since their size depends on what the cartridge
// declares) - plus the OAM-DMA stall counter so a save mid-DMA resumes
// correctly.
func (s *System) EncodeState(w io.Writer) error {
	if err := s.CPU.EncodeState(w); err != nil {
		return err
	}
	if err := s.PPU.EncodeState(w); err != nil {
		return err
	}
	if err := s.APU.EncodeState(w); err != nil {
		return err
	}
	if err := s.Input.EncodeState(w); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.ram.Bytes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.nametable.RAM); err != nil {
		return err
	}
	if err := writeLengthPrefixed(w, s.Cart.PRGRAM()); err != nil {
		return err
	}
	if err := writeLengthPrefixed(w, s.Cart.CHRRAM()); err != nil {
		return err
	}
	fields := []interface{}{int32(s.dmaStall), s.Cycles}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState reads back a state written by EncodeState, in the same
// order.
func (s *System) DecodeState(r io.Reader) error {
	if err := s.CPU.DecodeState(r); err != nil {
		return err
	}
	if err := s.PPU.DecodeState(r); err != nil {
		return err
	}
	if err := s.APU.DecodeState(r); err != nil {
		return err
	}
	if err := s.Input.DecodeState(r); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, s.ram.Bytes); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &s.nametable.RAM); err != nil {
		return err
	}
	if err := readLengthPrefixed(r, s.Cart.PRGRAM()); err != nil {
		return err
	}
	if err := readLengthPrefixed(r, s.Cart.CHRRAM()); err != nil {
		return err
	}
	var dmaStall int32
	fields := []interface{}{&dmaStall, &s.Cycles}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	s.dmaStall = int(dmaStall)
	return nil
}

// writeLengthPrefixed writes a u64 byte count followed by the bytes
// themselves; a nil slice (cartridge has no RAM of that kind) writes a
// zero-length record so the stream stays self-describing either way.
func writeLengthPrefixed(w io.Writer, data []uint8) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, data)
}

// readLengthPrefixed reads back a writeLengthPrefixed record. dst must
// already be sized to match what the cartridge declares; a length
// mismatch means the save state was taken against a different ROM.
func readLengthPrefixed(r io.Reader, dst []uint8) error {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	if n != uint64(len(dst)) {
		if n == 0 && len(dst) == 0 {
			return nil
		}
		return ErrCartridgeMismatch
	}
	if n == 0 {
		return nil
	}
	return binary.Read(r, binary.LittleEndian, dst)
}
