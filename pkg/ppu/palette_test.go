package ppu

import "testing"

func TestPaletteManagerCreation(t *testing.T) {
	pm := NewPaletteManager(testPPUBus())

	if pm == nil {
		t.Fatal("PaletteManager should not be nil")
	}
	if pm.Emphasis != 0 {
		t.Errorf("expected emphasis=0, got %02X", pm.Emphasis)
	}
}

func TestColorReadsThroughBus(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)

	b.Poke(0x3F01, 0x30)

	normal := pm.Color(0x01)
	b.Poke(0x3F01, 0x27)
	changed := pm.Color(0x01)

	if normal == changed {
		t.Error("Color should reflect whatever is currently stored on the bus, not a cached copy")
	}
}

func TestBackdropMirroringThroughBus(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)

	b.Poke(0x3F00, 0x0F) // universal backdrop

	if pm.Color(0x10) != pm.Color(0x00) {
		t.Error("$3F10 should alias the universal backdrop at $3F00")
	}

	b.Poke(0x3F10, 0x20)
	if pm.Color(0x00) != pm.getARGBColor(0x20) {
		t.Error("writing through the mirror should update the backdrop cell")
	}
}

func TestBackgroundColors(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)

	b.Poke(0x3F00, 0x0F)
	b.Poke(0x3F01, 0x30)
	b.Poke(0x3F02, 0x27)
	b.Poke(0x3F03, 0x17)

	color0 := pm.GetBackgroundColor(0, 0)
	color1 := pm.GetBackgroundColor(0, 1)
	color2 := pm.GetBackgroundColor(0, 2)
	color3 := pm.GetBackgroundColor(0, 3)

	if color0 == color1 || color1 == color2 || color2 == color3 {
		t.Error("background colors should be different")
	}

	backdropFromPalette1 := pm.GetBackgroundColor(1, 0)
	if color0 != backdropFromPalette1 {
		t.Error("universal backdrop should be the same for every background palette")
	}
}

func TestSpriteColors(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)

	b.Poke(0x3F11, 0x30)
	b.Poke(0x3F12, 0x27)
	b.Poke(0x3F13, 0x17)

	color0 := pm.GetSpriteColor(0, 0)
	color1 := pm.GetSpriteColor(0, 1)
	color2 := pm.GetSpriteColor(0, 2)
	color3 := pm.GetSpriteColor(0, 3)

	if color0&0xFF000000 != 0x00000000 {
		t.Errorf("sprite color 0 should be transparent, got %08X", color0)
	}
	if color1&0xFF000000 != 0xFF000000 {
		t.Errorf("sprite color 1 should be opaque, got %08X", color1)
	}
	if color1 == color2 || color2 == color3 {
		t.Error("sprite colors should be different")
	}
}

func TestColorEmphasis(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)
	b.Poke(0x3F01, 0x30)

	normalColor := pm.GetBackgroundColor(0, 1)

	pm.SetEmphasis(0x20)
	emphasizedColor := pm.GetBackgroundColor(0, 1)
	if normalColor == emphasizedColor {
		t.Error("colors should change once emphasis is applied")
	}

	pm.SetEmphasis(0xE0)
	allEmphasisColor := pm.GetBackgroundColor(0, 1)
	if emphasizedColor == allEmphasisColor {
		t.Error("different emphasis settings should produce different colors")
	}
}

func TestPaletteBoundsChecking(t *testing.T) {
	pm := NewPaletteManager(testPPUBus())

	if color := pm.GetBackgroundColor(4, 0); color != 0xFF000000 {
		t.Errorf("invalid background palette should return black, got %08X", color)
	}
	if color := pm.GetSpriteColor(4, 0); color != 0x00000000 {
		t.Errorf("invalid sprite palette should return transparent, got %08X", color)
	}
	if color := pm.GetBackgroundColor(0, 4); color != 0xFF000000 {
		t.Errorf("invalid background color should return black, got %08X", color)
	}
	if color := pm.GetSpriteColor(0, 4); color != 0x00000000 {
		t.Errorf("invalid sprite color should return transparent, got %08X", color)
	}
}

func TestMasterPaletteIsAllOpaque(t *testing.T) {
	b := testPPUBus()
	pm := NewPaletteManager(b)

	for i := 0; i < 64; i++ {
		b.Poke(0x3F01, uint8(i))
		color := pm.GetBackgroundColor(0, 1)
		if color&0xFF000000 != 0xFF000000 {
			t.Errorf("master palette color %d should be opaque, got %08X", i, color)
		}
	}
}
