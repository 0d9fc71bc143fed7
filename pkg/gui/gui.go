// Package gui is the SDL2 desktop presentation layer: window, renderer,
// framebuffer texture, audio queue, and keyboard-to-joystick mapping. It
// is the only package in this module that imports go-sdl2 - pkg/nes and
// everything it wires stays presentation-free.
package gui

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/nescore-emu/nescore/pkg/input"
	"github.com/nescore-emu/nescore/pkg/logger"
	"github.com/nescore-emu/nescore/pkg/nes"
)

const (
	WindowWidth  = 256 * 3 // NES resolution 256x240 scaled 3x
	WindowHeight = 240 * 3
	WindowTitle  = "nescore - NES emulator core"

	AudioSampleRate = 44100
	AudioBufferSize = 1024
	AudioChannels   = 1
	AudioFormat     = sdl.AUDIO_F32LSB

	TargetFPS = 60.0988 // NES actual framerate: 1789773 / 29780.5
)

// FrameTime is the wall-clock budget for one NES frame at TargetFPS.
var FrameTime = time.Duration(16639267) * time.Nanosecond

// NESGUI owns the SDL window/renderer/texture/audio device driving one
// running System.
type NESGUI struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	sys      *nes.System
	running  bool

	audioDevice sdl.AudioDeviceID
	audioSpec   *sdl.AudioSpec

	fpsCounter int
	fpsTimer   time.Time
	currentFPS float64
	showFPS    bool
}

// NewNESGUI creates the SDL window/renderer/texture/audio stack for sys.
func NewNESGUI(sys *nes.System) (*NESGUI, error) {
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, err
	}

	window, err := sdl.CreateWindow(
		WindowTitle,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		WindowWidth,
		WindowHeight,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, err
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, err
	}
	renderer.SetDrawBlendMode(sdl.BLENDMODE_NONE)

	// FrameBuffer is already packed ARGB8888 words, matching this
	// texture format exactly - no per-pixel channel shuffling needed.
	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		256,
		240,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, err
	}
	texture.SetBlendMode(sdl.BLENDMODE_NONE)

	g := &NESGUI{
		window:   window,
		renderer: renderer,
		texture:  texture,
		sys:      sys,
		running:  true,
		fpsTimer: time.Now(),
		showFPS:  true,
	}

	if err := g.initAudio(); err != nil {
		logger.LogError("audio init failed, continuing without sound: %v", err)
	}

	return g, nil
}

// Destroy tears down every SDL resource NewNESGUI created.
func (g *NESGUI) Destroy() {
	if g.audioDevice != 0 {
		sdl.CloseAudioDevice(g.audioDevice)
	}
	if g.texture != nil {
		g.texture.Destroy()
	}
	if g.renderer != nil {
		g.renderer.Destroy()
	}
	if g.window != nil {
		g.window.Destroy()
	}
	sdl.Quit()
}

// Run drives the GUI's main loop: events, one emulated frame, present,
// paced to TargetFPS by tracking total elapsed time rather than
// per-frame sleep (which drifts under OS scheduling jitter).
func (g *NESGUI) Run() {
	frameCount := 0
	startTime := time.Now()

	for g.running {
		g.handleEvents()
		g.update()
		g.render()

		frameCount++
		targetEndTime := startTime.Add(time.Duration(frameCount) * FrameTime)
		if now := time.Now(); now.Before(targetEndTime) {
			time.Sleep(targetEndTime.Sub(now))
		}
	}
}

func (g *NESGUI) handleEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			g.running = false
		case *sdl.KeyboardEvent:
			g.handleKeyboard(e)
		}
	}
}

// handleKeyboard maps keyboard input to controller 1: Z/X/A/S for
// A/B/Select/Start, arrow keys for the D-pad, Esc to quit.
func (g *NESGUI) handleKeyboard(event *sdl.KeyboardEvent) {
	pressed := event.State == sdl.PRESSED

	switch event.Keysym.Sym {
	case sdl.K_z:
		g.sys.Input.SetButton(0, input.ButtonMaskA, pressed)
	case sdl.K_x:
		g.sys.Input.SetButton(0, input.ButtonMaskB, pressed)
	case sdl.K_a:
		g.sys.Input.SetButton(0, input.ButtonMaskSelect, pressed)
	case sdl.K_s:
		g.sys.Input.SetButton(0, input.ButtonMaskStart, pressed)
	case sdl.K_UP:
		g.sys.Input.SetButton(0, input.ButtonMaskUp, pressed)
	case sdl.K_DOWN:
		g.sys.Input.SetButton(0, input.ButtonMaskDown, pressed)
	case sdl.K_LEFT:
		g.sys.Input.SetButton(0, input.ButtonMaskLeft, pressed)
	case sdl.K_RIGHT:
		g.sys.Input.SetButton(0, input.ButtonMaskRight, pressed)
	case sdl.K_ESCAPE:
		g.running = false
	case sdl.K_F3:
		if pressed {
			g.showFPS = !g.showFPS
		}
	}
}

func (g *NESGUI) update() {
	g.sys.RunFrame()
	g.queueAudio()
	g.updateFPS()
}

func (g *NESGUI) render() {
	fb := g.sys.FrameBuffer()
	g.texture.Update(nil, unsafe.Pointer(&fb[0]), 256*4)

	g.renderer.SetDrawColor(0, 0, 0, 255)
	g.renderer.Clear()
	g.renderer.Copy(g.texture, nil, nil)

	if g.showFPS {
		g.updateWindowTitle()
	}
	g.renderer.Present()
}

func (g *NESGUI) initAudio() error {
	want := &sdl.AudioSpec{
		Freq:     AudioSampleRate,
		Format:   AudioFormat,
		Channels: AudioChannels,
		Samples:  AudioBufferSize,
	}

	var have sdl.AudioSpec
	device, err := sdl.OpenAudioDevice("", false, want, &have, sdl.AUDIO_ALLOW_ANY_CHANGE)
	if err != nil {
		// 16-bit integer format is the broadest-compatibility fallback.
		want.Format = sdl.AUDIO_S16LSB
		device, err = sdl.OpenAudioDevice("", false, want, &have, sdl.AUDIO_ALLOW_ANY_CHANGE)
		if err != nil {
			return fmt.Errorf("open audio device: %w", err)
		}
	}

	g.audioDevice = device
	g.audioSpec = &have
	sdl.PauseAudioDevice(device, false)
	return nil
}

// queueAudio drains the APU's accumulated float samples into the SDL
// audio queue, converting to whatever format the device actually opened
// with, then clears the APU's buffer so it doesn't replay old samples.
func (g *NESGUI) queueAudio() {
	if g.audioDevice == 0 {
		return
	}

	samples := g.sys.APU.Output
	if len(samples) == 0 {
		return
	}

	queuedBytes := sdl.GetQueuedAudioSize(g.audioDevice)
	maxBytes := uint32(AudioBufferSize * 4 * 2) // ~2 buffers of headroom
	if queuedBytes < maxBytes {
		var audioData []byte
		switch g.audioSpec.Format {
		case sdl.AUDIO_F32LSB:
			audioData = make([]byte, len(samples)*4)
			for i, s := range samples {
				bits := *(*uint32)(unsafe.Pointer(&s))
				audioData[i*4+0] = byte(bits)
				audioData[i*4+1] = byte(bits >> 8)
				audioData[i*4+2] = byte(bits >> 16)
				audioData[i*4+3] = byte(bits >> 24)
			}
		case sdl.AUDIO_S16LSB:
			audioData = make([]byte, len(samples)*2)
			for i, s := range samples {
				if s > 1.0 {
					s = 1.0
				} else if s < -1.0 {
					s = -1.0
				}
				intSample := int16(s * 32767)
				audioData[i*2+0] = byte(intSample)
				audioData[i*2+1] = byte(intSample >> 8)
			}
		}
		if len(audioData) > 0 {
			sdl.QueueAudio(g.audioDevice, audioData)
		}
	}

	g.sys.APU.Output = g.sys.APU.Output[:0]
}

func (g *NESGUI) updateFPS() {
	g.fpsCounter++
	if elapsed := time.Since(g.fpsTimer); elapsed >= 500*time.Millisecond {
		g.currentFPS = float64(g.fpsCounter) / elapsed.Seconds()
		g.fpsCounter = 0
		g.fpsTimer = time.Now()
	}
}

func (g *NESGUI) updateWindowTitle() {
	g.window.SetTitle(fmt.Sprintf("%s - FPS: %.1f", WindowTitle, g.currentFPS))
}
