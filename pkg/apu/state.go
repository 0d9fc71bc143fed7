package apu

import (
	"encoding/binary"
	"io"
)

// EncodeState writes every channel's full register/timer/envelope state
// plus the frame sequencer's position, little-endian. The Output sample
// ring is not persisted - it is a presentation buffer a host drains every
// frame, not emulator state a reload needs to reproduce.
func (a *APU) EncodeState(w io.Writer) error {
	fields := []interface{}{
		a.Pulse1, a.Pulse2, a.Triangle, a.Noise, a.DMC,
		a.FrameCounter, int32(a.FrameStep), a.FrameIRQ,
		a.sequencerCycle, a.Cycles, a.sampleAccum,
		a.AudioEnabled,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeState reads back a state written by EncodeState.
func (a *APU) DecodeState(r io.Reader) error {
	var frameStep int32
	fields := []interface{}{
		&a.Pulse1, &a.Pulse2, &a.Triangle, &a.Noise, &a.DMC,
		&a.FrameCounter, &frameStep, &a.FrameIRQ,
		&a.sequencerCycle, &a.Cycles, &a.sampleAccum,
		&a.AudioEnabled,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	a.FrameStep = int(frameStep)
	return nil
}
