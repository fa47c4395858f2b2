// Package displaybackend adapts faiface/pixel into the engine.Display and
// engine.Input interfaces. It owns the window, the hex-keypad key map, and
// the color palette; the engine never touches pixelgl directly.
package displaybackend

import (
	"image/color"
	"strings"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"github.com/pkg/errors"

	"github.com/bradford-hamilton/chippy8/internal/config"
)

// Window wraps a pixelgl window sized to the engine's configured frame
// buffer, scaled up to a fixed on-screen resolution.
type Window struct {
	*pixelgl.Window
	width, height int
	on, off       color.RGBA
	keyMap        map[byte]pixelgl.Button
}

const screenWidth float64 = 1024
const screenHeight float64 = 768

// NewWindow creates and shows a pixelgl window. Must be called from the
// main goroutine; pixelgl requires OS-thread affinity for GL calls.
func NewWindow(cfg config.Config) (*Window, error) {
	wcfg := pixelgl.WindowConfig{
		Title:  "chippy8",
		Bounds: pixel.R(0, 0, screenWidth, screenHeight),
		VSync:  true,
	}
	w, err := pixelgl.NewWindow(wcfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pixelgl window")
	}

	return &Window{
		Window: w,
		width:  cfg.Display.Width,
		height: cfg.Display.Height,
		on:     cfg.Display.Colors[1],
		off:    cfg.Display.Colors[0],
		keyMap: keyMapFromConfig(cfg.Input.KeyMap),
	}, nil
}

// Draw renders frame, a row-major width*height cell snapshot from
// engine.FrameBuffer.Snapshot, as a grid of filled rectangles.
func (w *Window) Draw(frame []bool) {
	if w.Window.Closed() {
		return
	}

	w.Window.Clear(w.off)
	im := imdraw.New(nil)
	im.Color = w.on

	cellW := screenWidth / float64(w.width)
	cellH := screenHeight / float64(w.height)

	for y := 0; y < w.height; y++ {
		for x := 0; x < w.width; x++ {
			if !frame[y*w.width+x] {
				continue
			}
			flippedY := float64(w.height - 1 - y)
			im.Push(pixel.V(cellW*float64(x), cellH*flippedY))
			im.Push(pixel.V(cellW*float64(x)+cellW, cellH*flippedY+cellH))
			im.Rectangle(0)
		}
	}

	im.Draw(w.Window)
	w.Window.Update()
}

// GetKeysDown reports every mapped key currently held down. Called once per
// fetch-decode-execute cycle, so there is no need for the press-repeat
// ticker a real-time game loop would want.
func (w *Window) GetKeysDown() map[byte]struct{} {
	down := make(map[byte]struct{}, len(w.keyMap))
	for hex, button := range w.keyMap {
		if w.Window.Pressed(button) {
			down[hex] = struct{}{}
		}
	}
	return down
}

func keyMapFromConfig(m map[byte]string) map[byte]pixelgl.Button {
	buttons := map[string]pixelgl.Button{
		"1": pixelgl.Key1, "2": pixelgl.Key2, "3": pixelgl.Key3, "4": pixelgl.Key4,
		"q": pixelgl.KeyQ, "w": pixelgl.KeyW, "e": pixelgl.KeyE, "r": pixelgl.KeyR,
		"a": pixelgl.KeyA, "s": pixelgl.KeyS, "d": pixelgl.KeyD, "f": pixelgl.KeyF,
		"z": pixelgl.KeyZ, "x": pixelgl.KeyX, "c": pixelgl.KeyC, "v": pixelgl.KeyV,
	}
	out := make(map[byte]pixelgl.Button, len(m))
	for hex, name := range m {
		if b, ok := buttons[strings.ToLower(name)]; ok {
			out[hex] = b
		}
	}
	return out
}
