// Package engine implements the CHIP-8 fetch-decode-execute core: the
// register/memory/stack machine, the XOR sprite drawing primitive, the two
// 60Hz timers, and the display-sync gate that coordinates DXYN with the
// refresh rate. Concrete Display/Audio/Input backends are supplied by the
// caller; the engine never names one.
package engine

import (
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/bradford-hamilton/chippy8/internal/config"
)

// eventBacklog bounds the event channel so a burst of timer/display-sync
// ticks does not block a worker goroutine waiting on a slow consumer cycle.
// Workers send blockingly: once this many events are pending, the next
// send waits until the Executor drains one.
const eventBacklog = 64

// Engine is the CHIP-8 executor: it owns CPU state, memory, and the frame
// buffer exclusively, and coordinates with the timers and display-sync
// ticker strictly through atomics and the event channel.
type Engine struct {
	cfg config.Config

	mem *Memory
	fb  *FrameBuffer

	v     [16]byte
	i     uint16
	pc    int
	stack []int

	delay *Timer
	sound *Timer
	sync  *DisplaySync

	events   chan Event
	display  Display
	audio    Audio
	input    Input
	shutdown atomic.Bool
}

// New constructs an Engine from cfg. display, audio, and input may each be
// nil; the engine degrades gracefully except for FX0A, which returns a
// MissingInputError when no input backend is attached.
func New(cfg config.Config, display Display, audio Audio, input Input) *Engine {
	events := make(chan Event, eventBacklog)

	e := &Engine{
		cfg:     cfg,
		mem:     NewMemory(cfg.Memory.Length),
		fb:      NewFrameBuffer(cfg.Display.Width, cfg.Display.Height),
		pc:      cfg.Memory.ProgramStart,
		events:  events,
		display: display,
		audio:   audio,
		input:   input,
	}

	e.delay = NewTimer(nil)
	e.sound = NewTimer(events)
	e.sync = NewDisplaySync(events)

	return e
}

// Close stops the timer and display-sync worker goroutines and joins them.
// Play calls Close itself before returning, so call it directly only for an
// Engine that never ran Play (as tests do); a second Close panics.
func (e *Engine) Close() {
	e.delay.Stop()
	e.sound.Stop()
	e.sync.Stop()
}

// Play loads the default font and rom, installs a SIGINT shutdown watcher,
// and runs the execution loop until shutdown. It returns cleanly when
// stopped by signal; any decode, memory, or stack error is fatal and
// terminates the process with a one-line diagnostic and non-zero status.
func (e *Engine) Play(rom []byte) {
	if err := e.mem.WriteRange(e.cfg.Memory.FontStart, e.cfg.Memory.Font[:]); err != nil {
		e.fatal(errors.Wrap(err, "load default font"))
	}
	if err := e.mem.WriteRange(e.cfg.Memory.ProgramStart, rom); err != nil {
		e.fatal(errors.Wrap(err, "load rom"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		e.shutdown.Store(true)
	}()
	defer signal.Stop(sigCh)
	defer e.Close()

	cycleDuration := time.Second / time.Duration(e.cfg.ClockSpeed)

	for !e.shutdown.Load() {
		if err := e.Step(); err != nil {
			e.fatal(err)
		}
		time.Sleep(cycleDuration)
	}
}

// Shutdown requests that a running Play loop stop after its current cycle.
// Safe to call from any goroutine, including a backend's window-close
// handler when the engine is driven by a host loop other than Play's own
// signal watcher (e.g. an ebiten.Game whose RunGame owns the main thread).
func (e *Engine) Shutdown() {
	e.shutdown.Store(true)
}

func (e *Engine) fatal(err error) {
	os.Stderr.WriteString("chippy8: " + err.Error() + "\n")
	os.Exit(1)
}

// Step runs a single fetch-decode-execute cycle: it drains at most one
// pending collaborator event, snapshots pressed keys, fetches and decodes
// the opcode at PC, advances PC, and executes the resulting instruction.
func (e *Engine) Step() error {
	e.drainEvent()

	var keys map[byte]struct{}
	if e.input != nil {
		keys = e.input.GetKeysDown()
	}

	word, err := e.fetch()
	if err != nil {
		return errors.Wrap(err, "fetch opcode")
	}

	inst, err := Decode(word)
	if err != nil {
		return errors.Wrap(err, "decode opcode")
	}

	e.pc += 2

	return e.execute(inst, keys)
}

func (e *Engine) fetch() (uint16, error) {
	bytes, err := e.mem.ReadRange(e.pc, 2)
	if err != nil {
		return 0, err
	}
	return uint16(bytes[0])<<8 | uint16(bytes[1]), nil
}

func (e *Engine) drainEvent() {
	select {
	case ev := <-e.events:
		switch ev.Kind {
		case EventPlayTone:
			if e.audio != nil {
				e.audio.PlayTone()
			}
		case EventStopTone:
			if e.audio != nil {
				e.audio.StopTone()
			}
		case EventRepaint:
			if e.display != nil {
				e.display.Draw(e.fb.Snapshot())
			}
		}
	default:
	}
}

// requestRepaint posts a non-blocking repaint event, used by CLS to make
// the clear visible without waiting for the next display-sync tick.
func (e *Engine) requestRepaint() {
	select {
	case e.events <- Event{Kind: EventRepaint}:
	default:
	}
}

func (e *Engine) execute(inst Instruction, keysPressed map[byte]struct{}) error {
	x, y, n, nn, nnn := inst.X, inst.Y, inst.N, inst.NN, inst.NNN

	switch inst.Kind {
	case KindCLS:
		e.fb.Clear()
		e.requestRepaint()

	case KindRET:
		if len(e.stack) == 0 {
			return &StackUnderflowError{}
		}
		e.pc = e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]

	case KindJP:
		e.pc = int(nnn)

	case KindCALL:
		e.stack = append(e.stack, e.pc)
		e.pc = int(nnn)

	case KindSEVxByte:
		if e.v[x] == nn {
			e.pc += 2
		}

	case KindSNEVxByte:
		if e.v[x] != nn {
			e.pc += 2
		}

	case KindSEVxVy:
		if e.v[x] == e.v[y] {
			e.pc += 2
		}

	case KindLDVxByte:
		e.v[x] = nn

	case KindADDVxByte:
		e.v[x] += nn

	case KindLDVxVy:
		e.v[x] = e.v[y]

	case KindOR:
		e.v[x] |= e.v[y]
		if !e.cfg.Quirks.SkipResetVF {
			e.v[0xF] = 0
		}

	case KindAND:
		e.v[x] &= e.v[y]
		if !e.cfg.Quirks.SkipResetVF {
			e.v[0xF] = 0
		}

	case KindXOR:
		e.v[x] ^= e.v[y]
		if !e.cfg.Quirks.SkipResetVF {
			e.v[0xF] = 0
		}

	case KindADDVxVy:
		sum := int(e.v[x]) + int(e.v[y])
		e.v[x] = byte(sum)
		if sum > 0xFF {
			e.v[0xF] = 1
		} else {
			e.v[0xF] = 0
		}

	case KindSUB:
		borrow := e.v[x] >= e.v[y]
		e.v[x] = e.v[x] - e.v[y]
		e.v[0xF] = boolToByte(borrow)

	case KindSHR:
		src := y
		if e.cfg.Quirks.SkipShiftSet {
			src = x
		}
		bit := e.v[src] & 0x1
		e.v[x] = e.v[src] >> 1
		e.v[0xF] = bit

	case KindSUBN:
		borrow := e.v[y] >= e.v[x]
		e.v[x] = e.v[y] - e.v[x]
		e.v[0xF] = boolToByte(borrow)

	case KindSHL:
		src := y
		if e.cfg.Quirks.SkipShiftSet {
			src = x
		}
		bit := (e.v[src] >> 7) & 0x1
		e.v[x] = e.v[src] << 1
		e.v[0xF] = bit

	case KindSNEVxVy:
		if e.v[x] != e.v[y] {
			e.pc += 2
		}

	case KindLDI:
		e.i = nnn

	case KindJPV0:
		offset := e.v[0]
		if e.cfg.Quirks.JumpWithVx {
			offset = e.v[(nnn>>8)&0xF]
		}
		e.pc = int(nnn) + int(offset)

	case KindRND:
		e.v[x] = byte(rand.Intn(256)) & nn

	case KindDRW:
		return e.draw(x, y, n)

	case KindSKP:
		key := e.v[x] & 0xF
		if _, pressed := keysPressed[key]; pressed {
			e.pc += 2
		}

	case KindSKNP:
		key := e.v[x] & 0xF
		if _, pressed := keysPressed[key]; !pressed {
			e.pc += 2
		}

	case KindLDVxDT:
		e.v[x] = e.delay.Get()

	case KindLDVxK:
		return e.waitForKey(x)

	case KindLDDTVx:
		e.delay.Set(e.v[x])

	case KindLDSTVx:
		e.sound.Set(e.v[x])

	case KindADDIVx:
		e.i = uint16((int(e.i) + int(e.v[x])) & 0xFFFF)

	case KindLDFVx:
		e.i = uint16(e.cfg.Memory.FontStart) + uint16(e.v[x]&0xF)*5

	case KindLDBVx:
		value := e.v[x]
		for offset, div := 0, byte(100); div > 0; offset, div = offset+1, div/10 {
			if err := e.mem.WriteByte(int(e.i)+offset, (value/div)%10); err != nil {
				return err
			}
		}

	case KindLDIVx:
		for k := 0; k <= x; k++ {
			if err := e.mem.WriteByte(int(e.i)+k, e.v[k]); err != nil {
				return err
			}
		}
		if !e.cfg.Quirks.PreserveIndex {
			e.i += uint16(x + 1)
		}

	case KindLDVxI:
		for k := 0; k <= x; k++ {
			b, err := e.mem.ReadByte(int(e.i) + k)
			if err != nil {
				return err
			}
			e.v[k] = b
		}
		if !e.cfg.Quirks.PreserveIndex {
			e.i += uint16(x + 1)
		}
	}

	return nil
}

func (e *Engine) draw(xReg, yReg, height int) error {
	e.v[0xF] = 0

	sprite, err := e.mem.ReadRange(int(e.i), height)
	if err != nil {
		return err
	}

	x0 := int(e.v[xReg])
	y0 := int(e.v[yReg])

	if e.fb.Draw(sprite, x0, y0, e.cfg.Quirks.WrapSprites) {
		e.v[0xF] = 1
	}

	if !e.cfg.Quirks.SkipDrawWait && e.sync != nil {
		e.sync.Await(&e.shutdown)
	}

	return nil
}

// waitForKey implements FX0A: the original hardware blocks until a pressed
// key is released. If the input backend supplies its own KeyWaiter, that
// implementation is used; otherwise the wait is synthesized from repeated
// GetKeysDown polls. Shutdown short-circuits the wait in both cases.
func (e *Engine) waitForKey(reg int) error {
	if e.input == nil {
		return &MissingInputError{}
	}

	if waiter, ok := e.input.(KeyWaiter); ok {
		key, completed := waiter.WaitForKey(&e.shutdown)
		if !completed {
			return nil
		}
		if key > 0xF {
			return &InvalidKeyError{Key: key}
		}
		e.v[reg] = key
		return nil
	}

	const pollInterval = time.Millisecond

	var key byte
	found := false
	for !found {
		if e.shutdown.Load() {
			return nil
		}
		for k := range e.input.GetKeysDown() {
			key, found = k, true
			break
		}
		if !found {
			time.Sleep(pollInterval)
		}
	}

	for {
		if e.shutdown.Load() {
			return nil
		}
		if _, stillPressed := e.input.GetKeysDown()[key]; !stillPressed {
			break
		}
		time.Sleep(pollInterval)
	}

	if key > 0xF {
		return &InvalidKeyError{Key: key}
	}
	e.v[reg] = key
	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
