package input

import (
	"encoding/binary"
	"io"
)

// EncodeState writes both ports' shift-register state and the shared
// strobe line, little-endian.
func (c *Ports) EncodeState(w io.Writer) error {
	fields := []interface{}{
		c.ports[0], c.ports[1], c.strobe,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState reads back a state written by EncodeState.
func (c *Ports) DecodeState(r io.Reader) error {
	// Field by field: binary.Read cannot set a struct's unexported fields.
	// The byte layout matches EncodeState's whole-struct writes.
	fields := []interface{}{
		&c.ports[0].buttons, &c.ports[0].latched, &c.ports[0].index,
		&c.ports[1].buttons, &c.ports[1].latched, &c.ports[1].index,
		&c.strobe,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}
