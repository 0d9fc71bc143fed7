// Package savestate wraps a system's own binary encoding with the
// trailing integrity footer every save-state file ends in, and gives the
// headless protocol server one pair of entry points (Save/Load) instead
// of reaching into each component directly.
package savestate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// footer is the magic value written after a complete, well-formed state.
const footer uint32 = 0xF00F

// ErrBadFooter is returned by Load when the trailing footer doesn't
// match, meaning the stream was truncated or isn't a save state at all.
var ErrBadFooter = errors.New("savestate: missing or corrupt footer")

// System is anything a save state can be taken of and restored onto -
// *nes.System satisfies this without pkg/savestate needing to import it,
// keeping the dependency direction the other way around.
type System interface {
	EncodeState(w io.Writer) error
	DecodeState(r io.Reader) error
}

// Save writes sys's full state to w, terminated by the footer.
func Save(w io.Writer, sys System) error {
	if err := sys.EncodeState(w); err != nil {
		return fmt.Errorf("savestate: encode: %w", err)
	}
	return binary.Write(w, binary.LittleEndian, footer)
}

// Load restores sys's full state from r and checks the trailing footer.
// On any error sys's state is left however DecodeState left it - callers
// that need power-on-if-failed semantics should Reset sys first and
// restore from a backup snapshot on error, per spec.md's IoError
// contract for LoadState failures.
func Load(r io.Reader, sys System) error {
	if err := sys.DecodeState(r); err != nil {
		return fmt.Errorf("savestate: decode: %w", err)
	}
	var got uint32
	if err := binary.Read(r, binary.LittleEndian, &got); err != nil {
		return fmt.Errorf("savestate: reading footer: %w", err)
	}
	if got != footer {
		return ErrBadFooter
	}
	return nil
}
