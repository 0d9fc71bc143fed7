package nes

import (
	"bytes"
	"testing"

	"github.com/nescore-emu/nescore/pkg/cartridge"
)

// blankCart builds a minimal one-bank NROM cartridge with an all-NOP PRG
// bank and a reset vector pointing at $8000.
func blankCart(t *testing.T) *cartridge.Cartridge {
	t.Helper()
	data := make([]uint8, 16+16384+8192)
	copy(data[0:4], []byte("NES\x1a"))
	data[4] = 1 // 1 PRG bank
	data[5] = 1 // 1 CHR bank
	for i := 16; i < 16+16384; i++ {
		data[i] = 0xEA // NOP
	}
	// Reset vector at $FFFC/$FFFD -> $8000, within the mirrored bank at
	// PRG offset 0x3FFC/0x3FFD.
	data[16+0x3FFC] = 0x00
	data[16+0x3FFD] = 0x80

	cart, err := cartridge.Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to build test cartridge: %v", err)
	}
	return cart
}

func TestSystemResetsToCartridgeVector(t *testing.T) {
	s := New(blankCart(t))
	s.Reset()
	if s.CPU.PC != 0x8000 {
		t.Fatalf("expected PC=$8000 after reset, got $%04X", s.CPU.PC)
	}
}

func TestTickAdvancesPPUThreeTimesPerCPUCycle(t *testing.T) {
	s := New(blankCart(t))
	s.Reset()
	startDot := s.PPU.Cycle
	s.Tick()
	gotDot := s.PPU.Cycle
	advanced := gotDot - startDot
	if advanced < 0 {
		advanced += 341 // scanline wrapped
	}
	if advanced != 3 {
		t.Fatalf("expected PPU to advance 3 dots per system Tick, advanced %d", advanced)
	}
}

func TestOAMDMAStallsCPUForPageCopyDuration(t *testing.T) {
	s := New(blankCart(t))
	s.Reset()

	// Force an even triggering cycle so the stall is exactly 513.
	s.CPU.Cycles = 0
	for i := 0; i < 256; i++ {
		s.ram.Bytes[i] = uint8(i)
	}
	s.triggerOAMDMA(0x4014, 0x00)

	if s.dmaStall != 513 {
		t.Fatalf("expected 513-cycle stall on even trigger, got %d", s.dmaStall)
	}
	if s.PPU.OAM[42] != 42 {
		t.Fatalf("expected OAM DMA to have copied page bytes, OAM[42]=%d", s.PPU.OAM[42])
	}

	stallBefore := s.dmaStall
	pcBefore := s.CPU.PC
	s.Tick()
	if s.dmaStall != stallBefore-1 {
		t.Fatalf("expected stall to decrement by one per system Tick")
	}
	if s.CPU.PC != pcBefore {
		t.Fatalf("expected CPU PC frozen during DMA stall")
	}
}

func TestOAMDMAOddTriggerAddsExtraCycle(t *testing.T) {
	s := New(blankCart(t))
	s.Reset()
	s.CPU.Cycles = 1 // odd
	s.triggerOAMDMA(0x4014, 0x00)
	if s.dmaStall != 514 {
		t.Fatalf("expected 514-cycle stall on odd trigger, got %d", s.dmaStall)
	}
}

func TestRunFrameCompletesExactlyOneFrame(t *testing.T) {
	s := New(blankCart(t))
	s.Reset()
	startFrame := s.PPU.Frame
	s.RunFrame()
	if s.PPU.Frame != startFrame+1 {
		t.Fatalf("expected frame counter to advance by exactly one, got %d -> %d", startFrame, s.PPU.Frame)
	}
}

func TestNametableMirroringHorizontal(t *testing.T) {
	cart := blankCart(t)
	cart.Header.Mirroring = cartridge.MirrorHorizontal
	nt := &NameTableMirror{Mode: cartridge.MirrorHorizontal}
	nt.Poke(0x2000, 0xAB) // table 0
	if nt.Peek(0x2400) != 0xAB {
		t.Fatal("horizontal mirroring: table 1 should alias table 0")
	}
	if nt.Peek(0x2800) == 0xAB {
		t.Fatal("horizontal mirroring: table 2 should be independent of table 0")
	}
}

func TestNametableMirroringVertical(t *testing.T) {
	nt := &NameTableMirror{Mode: cartridge.MirrorVertical}
	nt.Poke(0x2000, 0xCD) // table 0
	if nt.Peek(0x2800) != 0xCD {
		t.Fatal("vertical mirroring: table 2 should alias table 0")
	}
	if nt.Peek(0x2400) == 0xCD {
		t.Fatal("vertical mirroring: table 1 should be independent of table 0")
	}
}
