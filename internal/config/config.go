// Package config assembles the immutable run configuration for a chippy8
// engine: clock speed, quirks, memory layout, and the backend selectors
// consumed by cmd/run.go to build concrete Display/Audio/Input backends.
package config

import (
	"image/color"

	"github.com/bradford-hamilton/chippy8/internal/keymap"
)

// DefaultFont is the built-in 16-glyph, 5-byte-per-glyph hex font, written
// into memory at FontStart before a ROM is loaded.
var DefaultFont = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Quirks selects between documented CHIP-8 interpreter behavioral variants.
// All default false, matching the original COSMAC VIP behavior.
type Quirks struct {
	// SkipResetVF leaves VF unchanged after 8XY1/8XY2/8XY3 (default: VF is reset to 0).
	SkipResetVF bool

	// PreserveIndex leaves I unchanged after FX55/FX65 (default: I += x+1).
	PreserveIndex bool

	// SkipDrawWait makes DRW return immediately (default: waits for the next 60Hz tick).
	SkipDrawWait bool

	// WrapSprites wraps sprites past display edges (default: clips per row/column).
	WrapSprites bool

	// SkipShiftSet shifts Vx in place for 8XY6/8XYE (default: shifts Vy into Vx).
	SkipShiftSet bool

	// JumpWithVx offsets BNNN by V[(NNN>>8)&0xF] instead of V0.
	JumpWithVx bool
}

// Memory describes the flat address space layout.
type Memory struct {
	// Length is the total addressable byte count.
	Length int

	// ProgramStart is where the ROM is written.
	ProgramStart int

	// FontStart is where the default font is written.
	FontStart int

	// Font is the glyph data written at FontStart.
	Font [80]byte
}

// Display configures the windowed output and is consumed by whichever
// concrete Display backend the Engine selector (Display.Engine) resolves to.
type Display struct {
	// Engine names the concrete backend: "pixel", "sdl", or "ebiten".
	Engine string

	Width, Height int

	// ScaleFactor is the number of host pixels rendered per virtual pixel.
	// The pixel backend ignores it and renders into a fixed 1024x768 window.
	ScaleFactor int

	// Colors holds the off/on palette, in that order.
	Colors [2]color.RGBA
}

// Audio configures the tone-producing backend.
type Audio struct {
	// Engine names the concrete backend: "beep", "sdl", or "none". With the
	// sdl display, SDL audio is used unless this is "none"; with the pixel
	// or ebiten display, only "beep" produces sound.
	Engine string
}

// Input configures the keypad-polling backend.
type Input struct {
	// Engine names the input backend: "pixel", "sdl", or "ebiten". cmd/run.go
	// does not consult it; input is always read from the display backend.
	Engine string

	// KeyMap maps a CHIP-8 key index (0x0-0xF) to a host key name, consumed
	// by whichever concrete backend translates key names to its own codes.
	KeyMap map[byte]string
}

// Config is the immutable configuration for a single emulator run.
type Config struct {
	// ClockSpeed is the instruction rate in Hz.
	ClockSpeed int

	Quirks  Quirks
	Memory  Memory
	Display Display
	Audio   Audio
	Input   Input
}

// Default returns the conventional CHIP-8 configuration: 600Hz clock,
// 4096 bytes of memory, ROM at 0x200, font at 0x50, 64x32 display, and all
// quirks off.
func Default() Config {
	return Config{
		ClockSpeed: 600,
		Quirks:     Quirks{},
		Memory: Memory{
			Length:       4096,
			ProgramStart: 0x200,
			FontStart:    0x50,
			Font:         DefaultFont,
		},
		Display: Display{
			Engine:      "pixel",
			Width:       64,
			Height:      32,
			ScaleFactor: 16,
			Colors: [2]color.RGBA{
				{R: 0, G: 0, B: 0, A: 0xFF},
				{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
			},
		},
		Audio: Audio{Engine: "beep"},
		Input: Input{
			Engine: "pixel",
			KeyMap: DefaultKeyMap(),
		},
	}
}

// DefaultKeyMap is the conventional QWERTY layout for the 4x4 COSMAC VIP
// keypad:
//
//	1 2 3 C        1 2 3 4
//	4 5 6 D   -->   Q W E R
//	7 8 9 E        A S D F
//	A 0 B F        Z X C V
func DefaultKeyMap() map[byte]string {
	names := [16]string{
		"1", "2", "3", "4",
		"Q", "W", "E", "R",
		"A", "S", "D", "F",
		"Z", "X", "C", "V",
	}

	out := make(map[byte]string, len(keymap.Keys))
	for position, key := range keymap.Keys {
		out[key] = names[position]
	}
	return out
}
