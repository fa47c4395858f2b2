package cmd

import (
	"fmt"
	"os"

	"github.com/faiface/pixel/pixelgl"
	"github.com/spf13/cobra"

	"github.com/bradford-hamilton/chippy8/internal/audiobackend"
	"github.com/bradford-hamilton/chippy8/internal/config"
	"github.com/bradford-hamilton/chippy8/internal/displaybackend"
	"github.com/bradford-hamilton/chippy8/internal/ebitenbackend"
	"github.com/bradford-hamilton/chippy8/internal/engine"
	"github.com/bradford-hamilton/chippy8/internal/sdlbackend"
)

var (
	flagClockSpeed   int
	flagMemoryLength int
	flagProgramStart int
	flagFontStart    int
	flagDisplay      string
	flagAudio        string
	flagInput        string
	flagScale        int
	flagBeepPath     string

	flagSkipResetVF   bool
	flagPreserveIndex bool
	flagSkipDrawWait  bool
	flagWrapSprites   bool
	flagSkipShiftSet  bool
	flagJumpWithVx    bool
)

// runCmd runs the chippy8 interpreter against a ROM file and waits for a
// shutdown signal to exit.
var runCmd = &cobra.Command{
	Use:   "run `path/to/rom`",
	Short: "run the chippy8 interpreter",
	Args:  cobra.ExactArgs(1),
	Run:   runChippy,
}

func init() {
	runCmd.Flags().IntVar(&flagClockSpeed, "clock-speed", 600, "instruction execution rate in Hz")
	runCmd.Flags().IntVar(&flagMemoryLength, "memory-length", 4096, "total addressable memory in bytes")
	runCmd.Flags().IntVar(&flagProgramStart, "program-start", 0x200, "address the ROM is loaded at")
	runCmd.Flags().IntVar(&flagFontStart, "font-start", 0x50, "address the built-in font is loaded at")
	runCmd.Flags().StringVar(&flagDisplay, "display", "pixel", "display backend: pixel, sdl, or ebiten")
	runCmd.Flags().StringVar(&flagAudio, "audio", "beep", "audio backend: beep, sdl, or none; the sdl display uses SDL audio unless none, the others play only beep")
	runCmd.Flags().StringVar(&flagInput, "input", "", "input backend name; input is always read from the display backend")
	runCmd.Flags().IntVar(&flagScale, "scale", 16, "host pixels rendered per virtual pixel (sdl and ebiten displays; pixel uses a fixed 1024x768 window)")
	runCmd.Flags().StringVar(&flagBeepPath, "beep-asset", "assets/beep.mp3", "path to the beep backend's tone asset")

	runCmd.Flags().BoolVar(&flagSkipResetVF, "quirk-skip-reset-vf", false, "leave VF unchanged after 8XY1/8XY2/8XY3")
	runCmd.Flags().BoolVar(&flagPreserveIndex, "quirk-preserve-index", false, "leave I unchanged after FX55/FX65")
	runCmd.Flags().BoolVar(&flagSkipDrawWait, "quirk-skip-draw-wait", false, "don't gate DRW on the 60Hz display sync")
	runCmd.Flags().BoolVar(&flagWrapSprites, "quirk-wrap-sprites", false, "wrap sprites at display edges instead of clipping")
	runCmd.Flags().BoolVar(&flagSkipShiftSet, "quirk-skip-shift-set", false, "shift Vx in place for 8XY6/8XYE instead of Vy")
	runCmd.Flags().BoolVar(&flagJumpWithVx, "quirk-jump-with-vx", false, "offset BNNN by Vx instead of V0")
}

func buildConfig() config.Config {
	cfg := config.Default()

	cfg.ClockSpeed = flagClockSpeed
	cfg.Memory.Length = flagMemoryLength
	cfg.Memory.ProgramStart = flagProgramStart
	cfg.Memory.FontStart = flagFontStart

	cfg.Display.Engine = flagDisplay
	cfg.Display.ScaleFactor = flagScale
	cfg.Audio.Engine = flagAudio

	cfg.Input.Engine = flagInput
	if cfg.Input.Engine == "" {
		cfg.Input.Engine = flagDisplay
	}

	cfg.Quirks = config.Quirks{
		SkipResetVF:   flagSkipResetVF,
		PreserveIndex: flagPreserveIndex,
		SkipDrawWait:  flagSkipDrawWait,
		WrapSprites:   flagWrapSprites,
		SkipShiftSet:  flagSkipShiftSet,
		JumpWithVx:    flagJumpWithVx,
	}

	return cfg
}

func runChippy(cmd *cobra.Command, args []string) {
	rom, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "chippy8: error reading rom %q: %v\n", args[0], err)
		os.Exit(1)
	}

	cfg := buildConfig()

	// pixelgl claims the calling OS thread for the lifetime of the window,
	// so the pixel backend must own main() rather than be constructed
	// inline here.
	if cfg.Display.Engine == "pixel" {
		pixelgl.Run(func() { runWithPixel(cfg, rom) })
		return
	}

	if cfg.Display.Engine == "ebiten" {
		runWithEbiten(cfg, rom)
		return
	}

	runWithSDL(cfg, rom)
}

func runWithPixel(cfg config.Config, rom []byte) {
	win, err := displaybackend.NewWindow(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chippy8: %v\n", err)
		os.Exit(1)
	}

	audio := buildAudio(cfg)

	e := engine.New(cfg, win, audio, win)
	e.Play(rom)
}

func runWithSDL(cfg config.Config, rom []byte) {
	backend, err := sdlbackend.New(cfg, int32(cfg.Display.ScaleFactor))
	if err != nil {
		fmt.Fprintf(os.Stderr, "chippy8: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	var audio interface {
		PlayTone()
		StopTone()
	} = backend
	if cfg.Audio.Engine == "none" {
		audio = nil
	}

	e := engine.New(cfg, backend, audio, backend)
	e.Play(rom)
}

func runWithEbiten(cfg config.Config, rom []byte) {
	backend := ebitenbackend.NewBackend(cfg)
	audio := buildAudio(cfg)

	e := engine.New(cfg, backend, audio, backend)
	go e.Play(rom)

	windowWidth := cfg.Display.Width * cfg.Display.ScaleFactor
	windowHeight := cfg.Display.Height * cfg.Display.ScaleFactor
	game := ebitenbackend.NewGame(backend, windowWidth, windowHeight)

	if err := ebitenbackend.RunGame(game, windowWidth, windowHeight); err != nil {
		e.Shutdown()
		fmt.Fprintf(os.Stderr, "chippy8: %v\n", err)
		os.Exit(1)
	}
	e.Shutdown()
}

func buildAudio(cfg config.Config) interface {
	PlayTone()
	StopTone()
} {
	if cfg.Audio.Engine != "beep" {
		return nil
	}
	speaker, err := audiobackend.NewSpeaker(flagBeepPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chippy8: audio disabled: %v\n", err)
		return nil
	}
	return speaker
}
