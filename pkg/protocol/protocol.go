// Package protocol implements the byte-framed request/response control
// channel a host process drives a System through: load a ROM, step it,
// read back frames and memory, save and restore state. It is transport-
// agnostic - anything with an io.Reader and io.Writer (a TCP conn, a unix
// socket, or stdin/stdout) can carry it.
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nescore-emu/nescore/pkg/cartridge"
	"github.com/nescore-emu/nescore/pkg/logger"
	"github.com/nescore-emu/nescore/pkg/nes"
	"github.com/nescore-emu/nescore/pkg/savestate"
)

// Opcodes, matching the wire protocol exactly (opcode 0 is reserved).
const (
	OpLoadRom      = 1
	OpStepFrame    = 2
	OpRenderFrame  = 3
	OpSetInputs    = 4
	OpSaveState    = 5
	OpLoadState    = 6
	OpGetInfo      = 7
	OpStep         = 8
	OpSaveTas      = 9
	OpPeek         = 10
	OpPoke         = 11
	OpSetRendering = 12
)

// Render styles for OpRenderFrame.
const (
	RenderStylePaletteIndex = 0
	RenderStyleRGB          = 1
)

const (
	frameWidth  = 256
	frameHeight = 240
	frameDots   = frameWidth * frameHeight
)

// coreVersion is the single byte GetInfo reports as the core's version.
const coreVersion = 1

// ErrDesync is returned when the connection reads opcode 0 or an
// out-of-range command byte - per spec, the server aborts the connection
// but not the process.
var ErrDesync = errors.New("protocol: desync (invalid opcode)")

// Server drives one System through the wire protocol on one connection.
// It is not safe for concurrent use by multiple goroutines against the
// same connection; Serve owns the connection for its entire lifetime.
type Server struct {
	sys  *nes.System
	cart *cartridge.Cartridge

	rendering   bool
	DisableSync bool

	syncCounter uint8
}

// NewServer builds a Server with no ROM loaded yet. LoadRom must be the
// first command a client sends.
func NewServer() *Server {
	return &Server{rendering: true}
}

// Serve reads opcodes from r and writes responses to w until r reaches
// EOF, the opcode stream desyncs, or ctx... (no context: Serve returns
// plainly on EOF, which is the normal shutdown path per spec.md §6).
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		op, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.dispatch(op, br, bw); err != nil {
			if errors.Is(err, ErrDesync) {
				logger.LogWarn("protocol: %v", err)
				return err
			}
			return err
		}

		if !s.DisableSync {
			if err := bw.WriteByte(s.syncCounter); err != nil {
				return err
			}
			s.syncCounter++
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(op byte, r *bufio.Reader, w *bufio.Writer) error {
	switch op {
	case OpLoadRom:
		return s.handleLoadRom(r)
	case OpStepFrame:
		if s.sys != nil {
			s.sys.RunFrame()
		}
		return nil
	case OpRenderFrame:
		return s.handleRenderFrame(r, w)
	case OpSetInputs:
		return s.handleSetInputs(r)
	case OpSaveState:
		return s.handleSaveState(r)
	case OpLoadState:
		return s.handleLoadState(r)
	case OpGetInfo:
		return s.handleGetInfo(w)
	case OpStep:
		if s.sys != nil {
			s.sys.Tick()
		}
		return nil
	case OpSaveTas:
		// Movie/TAS recording is out of scope; acknowledge so the
		// opcode framing never desyncs a client that sends it.
		return nil
	case OpPeek:
		return s.handlePeek(r, w)
	case OpPoke:
		return s.handlePoke(r)
	case OpSetRendering:
		return s.handleSetRendering(r)
	default:
		return ErrDesync
	}
}

func (s *Server) handleLoadRom(r *bufio.Reader) error {
	if _, err := r.ReadByte(); err != nil { // record flag: reserved, unused
		return err
	}
	name, err := readString(r)
	if err != nil {
		return err
	}

	f, err := os.Open(name)
	if err != nil {
		logger.LogError("protocol: LoadRom open %q: %v", name, err)
		return nil
	}
	defer f.Close()

	cart, err := cartridge.Load(f)
	if err != nil {
		logger.LogError("protocol: LoadRom %q: %v", name, err)
		return nil // InvalidRom: keep whatever ROM was already loaded
	}

	s.cart = cart
	s.sys = nes.New(cart)
	s.sys.Reset()
	return nil
}

func (s *Server) handleRenderFrame(r *bufio.Reader, w *bufio.Writer) error {
	style, err := r.ReadByte()
	if err != nil {
		return err
	}
	if s.sys == nil || !s.rendering {
		size := frameDots
		if style == RenderStyleRGB {
			size = frameDots * 3
		}
		_, err := w.Write(make([]byte, size))
		return err
	}

	switch style {
	case RenderStylePaletteIndex:
		_, err := w.Write(s.sys.PPU.IndexBuffer[:])
		return err
	case RenderStyleRGB:
		var rgb [frameDots * 3]byte
		for i, c := range s.sys.PPU.FrameBuffer {
			rgb[i*3] = byte(c >> 16)
			rgb[i*3+1] = byte(c >> 8)
			rgb[i*3+2] = byte(c)
		}
		_, err := w.Write(rgb[:])
		return err
	default:
		return fmt.Errorf("protocol: unknown render style %d", style)
	}
}

func (s *Server) handleSetInputs(r *bufio.Reader) error {
	id, err := r.ReadByte()
	if err != nil {
		return err
	}
	mask, err := r.ReadByte()
	if err != nil {
		return err
	}
	if s.sys != nil {
		s.sys.Input.SetButtons(int(id), mask)
	}
	return nil
}

func (s *Server) handleSaveState(r *bufio.Reader) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	if s.sys == nil {
		return nil
	}

	f, err := os.Create(name)
	if err != nil {
		logger.LogError("protocol: SaveState %q: %v", name, err)
		return nil
	}
	defer f.Close()

	if err := savestate.Save(f, s.sys); err != nil {
		logger.LogError("protocol: SaveState %q: %v", name, err)
		os.Remove(name) // discard the partial file; live state is untouched
	}
	return nil
}

func (s *Server) handleLoadState(r *bufio.Reader) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	if s.sys == nil {
		return nil
	}

	f, err := os.Open(name)
	if err != nil {
		logger.LogError("protocol: LoadState %q: %v", name, err)
		return nil
	}
	defer f.Close()

	if err := savestate.Load(f, s.sys); err != nil {
		logger.LogError("protocol: LoadState %q: %v", name, err)
		// Partial/corrupt load: per spec.md §7 reset to power-on rather
		// than leave the system in a half-restored state.
		s.sys.Reset()
	}
	return nil
}

func (s *Server) handleGetInfo(w *bufio.Writer) error {
	loaded := byte(0)
	if s.sys != nil {
		loaded = 1
	}
	_, err := w.Write([]byte{coreVersion, loaded})
	return err
}

func (s *Server) handlePeek(r *bufio.Reader, w *bufio.Writer) error {
	addr, err := readU16(r)
	if err != nil {
		return err
	}
	var v byte
	if s.sys != nil {
		v = s.sys.CPU.Bus.Peek(addr)
	}
	return w.WriteByte(v)
}

func (s *Server) handlePoke(r *bufio.Reader) error {
	addr, err := readU16(r)
	if err != nil {
		return err
	}
	value, err := r.ReadByte()
	if err != nil {
		return err
	}
	if s.sys != nil {
		s.sys.CPU.Bus.Poke(addr, value)
	}
	return nil
}

func (s *Server) handleSetRendering(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	s.rendering = b != 0
	return nil
}

// readString reads a u32 length prefix followed by that many raw bytes,
// matching the original implementation's write_string framing.
func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readU16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
