// Package ebitenbackend adapts hajimehoshi/ebiten into engine.Display and
// engine.Input. Because ebiten owns the main loop (ebiten.RunGame blocks the
// calling goroutine), Backend is driven from ebiten's Update/Draw callbacks
// while the engine's own Play loop runs on a separate goroutine; the two
// sides only share a mutex-guarded frame and key snapshot.
package ebitenbackend

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/bradford-hamilton/chippy8/internal/config"
)

var keyMap = map[ebiten.Key]byte{
	ebiten.Key1: 0x1, ebiten.Key2: 0x2, ebiten.Key3: 0x3, ebiten.Key4: 0xC,
	ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xD,
	ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xE,
	ebiten.KeyZ: 0xA, ebiten.KeyX: 0x0, ebiten.KeyC: 0xB, ebiten.KeyV: 0xF,
}

// Backend implements engine.Display and engine.Input over an ebiten.Game.
type Backend struct {
	width, height int

	frameMu sync.Mutex
	frame   []bool

	keysMu sync.RWMutex
	keys   map[byte]struct{}

	offscreen *ebiten.Image
	dirty     bool
}

// NewBackend allocates the shared state. Call NewGame to obtain the
// ebiten.Game to pass to ebiten.RunGame on the main goroutine.
func NewBackend(cfg config.Config) *Backend {
	return &Backend{
		width:     cfg.Display.Width,
		height:    cfg.Display.Height,
		frame:     make([]bool, cfg.Display.Width*cfg.Display.Height),
		keys:      make(map[byte]struct{}),
		offscreen: ebiten.NewImage(cfg.Display.Width, cfg.Display.Height),
	}
}

// Draw implements engine.Display. It only stores the snapshot; the actual
// render happens in Game.Draw on ebiten's own goroutine.
func (b *Backend) Draw(frame []bool) {
	b.frameMu.Lock()
	defer b.frameMu.Unlock()
	copy(b.frame, frame)
	b.dirty = true
}

// GetKeysDown implements engine.Input, reading the snapshot Game.Update last
// refreshed.
func (b *Backend) GetKeysDown() map[byte]struct{} {
	b.keysMu.RLock()
	defer b.keysMu.RUnlock()

	out := make(map[byte]struct{}, len(b.keys))
	for k := range b.keys {
		out[k] = struct{}{}
	}
	return out
}

// Game adapts Backend to the ebiten.Game interface.
type Game struct {
	backend      *Backend
	windowWidth  int
	windowHeight int
}

// NewGame wraps backend for ebiten.RunGame at the given window size.
func NewGame(backend *Backend, windowWidth, windowHeight int) *Game {
	return &Game{backend: backend, windowWidth: windowWidth, windowHeight: windowHeight}
}

func (g *Game) Update() error {
	pressed := inpututil.AppendPressedKeys(nil)

	g.backend.keysMu.Lock()
	for k := range g.backend.keys {
		delete(g.backend.keys, k)
	}
	for _, key := range pressed {
		if chipKey, ok := keyMap[key]; ok {
			g.backend.keys[chipKey] = struct{}{}
		}
	}
	g.backend.keysMu.Unlock()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	b := g.backend

	b.frameMu.Lock()
	if b.dirty {
		pixels := make([]byte, b.width*b.height*4)
		for i, on := range b.frame {
			if on {
				pixels[i*4], pixels[i*4+1], pixels[i*4+2], pixels[i*4+3] = 0xff, 0xff, 0xff, 0xff
			} else {
				pixels[i*4], pixels[i*4+1], pixels[i*4+2], pixels[i*4+3] = 0, 0, 0, 0xff
			}
		}
		b.offscreen.WritePixels(pixels)
		b.dirty = false
	}
	b.frameMu.Unlock()

	screen.Fill(color.Black)
	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(float64(g.windowWidth)/float64(b.width), float64(g.windowHeight)/float64(b.height))
	opts.Filter = ebiten.FilterNearest
	screen.DrawImage(b.offscreen, opts)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.windowWidth, g.windowHeight
}

// RunGame configures the window and blocks on ebiten.RunGame. Must be
// called from the main goroutine.
func RunGame(game *Game, windowWidth, windowHeight int) error {
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("chippy8")
	ebiten.SetMaxTPS(60)
	return ebiten.RunGame(game)
}
