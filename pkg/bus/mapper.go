package bus

import "github.com/nescore-emu/nescore/pkg/logger"

// mappedRange is one entry in a Mapper's ordered range list.
type mappedRange struct {
	lo, hi              uint16
	backend             AddressSpace
	keepOriginalAddress bool
}

// Mapper dispatches peek/poke to the first range in its ordered list that
// contains the address. If keepOriginalAddress is false, the backend sees
// addr-lo instead of addr. Reads/writes that hit no range return/drop
// against the open-bus latch — the last value actually driven on the bus,
// observable through Mapper.OpenBus.
type Mapper struct {
	ranges  []mappedRange
	OpenBus uint8
}

// NewMapper builds an empty range mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map registers a range [lo, hi] routed to backend. Ranges must not
// overlap; lookup always uses the first containing range in registration
// order, so overlapping registrations would silently shadow one another —
// callers are expected to keep ranges disjoint per spec.
func (m *Mapper) Map(lo, hi uint16, backend AddressSpace, keepOriginalAddress bool) *Mapper {
	m.ranges = append(m.ranges, mappedRange{lo: lo, hi: hi, backend: backend, keepOriginalAddress: keepOriginalAddress})
	return m
}

func (m *Mapper) find(addr uint16) (AddressSpace, uint16, bool) {
	for _, r := range m.ranges {
		if addr >= r.lo && addr <= r.hi {
			if r.keepOriginalAddress {
				return r.backend, addr, true
			}
			return r.backend, addr - r.lo, true
		}
	}
	return nil, 0, false
}

func (m *Mapper) Peek(addr uint16) uint8 {
	backend, a, ok := m.find(addr)
	if !ok {
		logger.LogBus("unmapped read at $%04X, returning open-bus $%02X", addr, m.OpenBus)
		return m.OpenBus
	}
	v := backend.Peek(a)
	m.OpenBus = v
	return v
}

func (m *Mapper) Poke(addr uint16, value uint8) {
	backend, a, ok := m.find(addr)
	m.OpenBus = value
	if !ok {
		logger.LogBus("dropped write $%02X at unmapped $%04X", value, addr)
		return
	}
	backend.Poke(a, value)
}
