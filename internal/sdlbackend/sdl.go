// Package sdlbackend adapts go-sdl2 into engine.Display, engine.Audio, and
// engine.Input. A single Backend owns the window, the audio device, and the
// keyboard state, and pumps SDL events on its own goroutine so the engine's
// polling calls never block on the OS event queue.
package sdlbackend

import (
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/bradford-hamilton/chippy8/internal/config"
)

const (
	sampleRate = 44100
	frequency  = 440
	amplitude  = 0.3
)

// keyMap mirrors the CHIP-8 hex keypad onto a QWERTY grid.
var keyMap = map[sdl.Keycode]byte{
	sdl.K_1: 0x1, sdl.K_2: 0x2, sdl.K_3: 0x3, sdl.K_4: 0xC,
	sdl.K_q: 0x4, sdl.K_w: 0x5, sdl.K_e: 0x6, sdl.K_r: 0xD,
	sdl.K_a: 0x7, sdl.K_s: 0x8, sdl.K_d: 0x9, sdl.K_f: 0xE,
	sdl.K_z: 0xA, sdl.K_x: 0x0, sdl.K_c: 0xB, sdl.K_v: 0xF,
}

// Backend is a combined Display/Audio/Input implementation over go-sdl2.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	scale    int32
	width    int32
	height   int32

	audioDevice sdl.AudioDeviceID
	phase       float64
	playing     bool
	audioMu     sync.Mutex

	keysMu sync.RWMutex
	keys   map[byte]struct{}

	quit chan struct{}
	done sync.WaitGroup
}

// New initializes SDL video and audio subsystems, creates a scaled window
// sized to the engine's configured frame buffer, and starts the event pump.
func New(cfg config.Config, scale int32) (*Backend, error) {
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, errors.Wrap(err, "initialize SDL")
	}

	width, height := int32(cfg.Display.Width), int32(cfg.Display.Height)

	window, err := sdl.CreateWindow(
		"chippy8",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		width*scale, height*scale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create SDL window")
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return nil, errors.Wrap(err, "create SDL renderer")
	}

	b := &Backend{
		window:   window,
		renderer: renderer,
		scale:    scale,
		width:    width,
		height:   height,
		keys:     make(map[byte]struct{}),
		quit:     make(chan struct{}),
	}

	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 1,
		Samples:  512,
		Callback: sdl.AudioCallback(b.audioCallbackWrapper),
	}
	var obtained sdl.AudioSpec
	deviceID, err := sdl.OpenAudioDevice("", false, spec, &obtained, 0)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return nil, errors.Wrap(err, "open SDL audio device")
	}
	b.audioDevice = deviceID
	sdl.PauseAudioDevice(b.audioDevice, false)

	b.done.Add(1)
	go b.pumpEvents()

	return b, nil
}

func (b *Backend) pumpEvents() {
	defer b.done.Done()
	for {
		select {
		case <-b.quit:
			return
		default:
		}

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			ke, ok := event.(*sdl.KeyboardEvent)
			if !ok {
				continue
			}
			chipKey, ok := keyMap[ke.Keysym.Sym]
			if !ok {
				continue
			}

			b.keysMu.Lock()
			if ke.Type == sdl.KEYDOWN {
				b.keys[chipKey] = struct{}{}
			} else if ke.Type == sdl.KEYUP {
				delete(b.keys, chipKey)
			}
			b.keysMu.Unlock()
		}

		sdl.Delay(1)
	}
}

// GetKeysDown implements engine.Input.
func (b *Backend) GetKeysDown() map[byte]struct{} {
	b.keysMu.RLock()
	defer b.keysMu.RUnlock()

	out := make(map[byte]struct{}, len(b.keys))
	for k := range b.keys {
		out[k] = struct{}{}
	}
	return out
}

// Draw implements engine.Display.
func (b *Backend) Draw(frame []bool) {
	b.renderer.SetDrawColor(0, 0, 0, 255)
	b.renderer.Clear()

	b.renderer.SetDrawColor(0, 255, 0, 255)
	for y := int32(0); y < b.height; y++ {
		for x := int32(0); x < b.width; x++ {
			if !frame[int(y)*int(b.width)+int(x)] {
				continue
			}
			rect := sdl.Rect{X: x * b.scale, Y: y * b.scale, W: b.scale, H: b.scale}
			b.renderer.FillRect(&rect)
		}
	}

	b.renderer.Present()
}

func (b *Backend) audioCallbackWrapper(userdata interface{}, stream []byte) {
	b.audioCallback(stream)
}

// audioCallback generates a square wave while playing is set, silence
// otherwise.
func (b *Backend) audioCallback(stream []byte) {
	b.audioMu.Lock()
	defer b.audioMu.Unlock()

	if !b.playing {
		for i := range stream {
			stream[i] = 0
		}
		return
	}

	phaseIncrement := 2 * math.Pi * frequency / sampleRate
	for i := 0; i+1 < len(stream); i += 2 {
		var sample int16
		if math.Sin(b.phase) >= 0 {
			sample = int16(amplitude * 32767)
		} else {
			sample = int16(-amplitude * 32767)
		}
		stream[i] = byte(sample)
		stream[i+1] = byte(sample >> 8)

		b.phase += phaseIncrement
		if b.phase >= 2*math.Pi {
			b.phase -= 2 * math.Pi
		}
	}
}

// PlayTone implements engine.Audio.
func (b *Backend) PlayTone() {
	b.audioMu.Lock()
	b.playing = true
	b.audioMu.Unlock()
}

// StopTone implements engine.Audio.
func (b *Backend) StopTone() {
	b.audioMu.Lock()
	b.playing = false
	b.audioMu.Unlock()
}

// Close stops the event pump and releases SDL resources.
func (b *Backend) Close() {
	close(b.quit)
	b.done.Wait()

	if b.audioDevice != 0 {
		sdl.CloseAudioDevice(b.audioDevice)
	}
	b.renderer.Destroy()
	b.window.Destroy()
	sdl.Quit()
}
