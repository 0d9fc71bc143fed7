package bus

import "testing"

func TestRamMirroring(t *testing.T) {
	ram := NewRam(0x0800)
	m := NewMapper()
	m.Map(0x0000, 0x1FFF, NewMirrored(ram, 0x0000, 0x07FF, 0x0000, 0x1FFF, false), true)

	m.Poke(0x0000, 0x42)
	for _, mirror := range []uint16{0x0000, 0x0800, 0x1000, 0x1800} {
		if got := m.Peek(mirror); got != 0x42 {
			t.Fatalf("mirror $%04X: got $%02X, want $42", mirror, got)
		}
	}
}

func TestMapperFirstRangeWins(t *testing.T) {
	a := &Ram{Bytes: []uint8{0xAA}}
	b := &Ram{Bytes: []uint8{0xBB}}
	m := NewMapper()
	m.Map(0x00, 0xFF, a, false)
	m.Map(0x00, 0xFF, b, false) // shadowed, never reached

	if got := m.Peek(0x00); got != 0xAA {
		t.Fatalf("expected first range to win, got $%02X", got)
	}
}

func TestMapperUnmappedReturnsOpenBus(t *testing.T) {
	m := NewMapper()
	m.Map(0x00, 0x0F, NewRam(16), false)

	m.Poke(0x05, 0x77) // drives the open-bus latch
	if got := m.Peek(0x20); got != 0x77 {
		t.Fatalf("unmapped read: got $%02X, want open-bus $77", got)
	}
}

func TestPaletteAlias(t *testing.T) {
	pc := &PaletteControl{}
	cases := []struct{ a, b uint16 }{
		{0x3F10, 0x3F00}, {0x3F14, 0x3F04}, {0x3F18, 0x3F08}, {0x3F1C, 0x3F0C},
	}
	for _, c := range cases {
		pc.Poke(c.a, 0x2C)
		if got := pc.Peek(c.b); got != 0x2C {
			t.Fatalf("poke $%04X then peek $%04X: got $%02X, want $2C", c.a, c.b, got)
		}
		pc.Poke(c.b, 0x11)
		if got := pc.Peek(c.a); got != 0x11 {
			t.Fatalf("poke $%04X then peek $%04X: got $%02X, want $11", c.b, c.a, got)
		}
	}
}

func TestPeek16PageWrapBug(t *testing.T) {
	ram := NewRam(0x10000)
	ram.Poke(0x30FF, 0x80)
	ram.Poke(0x3000, 0x50) // wrong page, should NOT be used
	ram.Poke(0x3100, 0x60) // correct next byte under plain Peek16

	if got := Peek16(ram, 0x30FF); got != 0x6080 {
		t.Fatalf("Peek16 across page: got $%04X, want $6080", got)
	}
	if got := Peek16PageWrap(ram, 0x30FF); got != 0x5080 {
		t.Fatalf("Peek16PageWrap: got $%04X, want $5080 (page-wrap bug)", got)
	}
}
