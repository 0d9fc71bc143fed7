package bus

// Mirrored folds any address in the extended window [ExtLo, ExtHi] back
// into the base window [Lo, Hi] by modulo, then forwards to Inner. If
// KeepOriginal is true the forwarded address is offset from Lo; otherwise
// it is offset from zero (Inner sees a zero-based address).
type Mirrored struct {
	Inner        AddressSpace
	Lo, Hi       uint16
	ExtLo, ExtHi uint16
	KeepOriginal bool
}

// NewMirrored builds a Mirrored window. span = hi-lo+1 must be > 0.
func NewMirrored(inner AddressSpace, lo, hi, extLo, extHi uint16, keepOriginal bool) *Mirrored {
	return &Mirrored{Inner: inner, Lo: lo, Hi: hi, ExtLo: extLo, ExtHi: extHi, KeepOriginal: keepOriginal}
}

func (m *Mirrored) fold(addr uint16) uint16 {
	span := uint32(m.Hi) - uint32(m.Lo) + 1
	off := (uint32(addr) - uint32(m.ExtLo)) % span
	if m.KeepOriginal {
		return uint16(uint32(m.Lo) + off)
	}
	return uint16(off)
}

func (m *Mirrored) Peek(addr uint16) uint8 {
	if addr < m.ExtLo || addr > m.ExtHi {
		return 0
	}
	return m.Inner.Peek(m.fold(addr))
}

func (m *Mirrored) Poke(addr uint16, value uint8) {
	if addr < m.ExtLo || addr > m.ExtHi {
		return
	}
	m.Inner.Poke(m.fold(addr), value)
}
