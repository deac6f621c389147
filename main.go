package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"

	"github.com/mbianchi/go-advance/advance"
	"github.com/mbianchi/go-advance/advance/addr"
	"github.com/mbianchi/go-advance/advance/video"
)

const frameTime = time.Second / 60

// keyHoldFrames is how long a key press from the terminal stays down;
// terminals only report presses, never releases.
const keyHoldFrames = 6

type TerminalRenderer struct {
	screen  tcell.Screen
	gba     *advance.GBA
	running bool

	// Pending release countdowns per key bit.
	held map[uint16]int
}

func NewTerminalRenderer(gba *advance.GBA) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:  screen,
		gba:     gba,
		running: true,
		held:    map[uint16]int{},
	}, nil
}

func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-ticker.C:
			t.releaseKeys()
			frame := t.gba.StepFrame()
			t.render(frame)
			t.screen.Show()
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		}
	}

	return nil
}

func (t *TerminalRenderer) press(key uint16) {
	t.gba.SetKey(key, true)
	t.held[key] = keyHoldFrames
}

func (t *TerminalRenderer) releaseKeys() {
	for key, frames := range t.held {
		if frames <= 1 {
			t.gba.SetKey(key, false)
			delete(t.held, key)
		} else {
			t.held[key] = frames - 1
		}
	}
}

func (t *TerminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape:
				t.running = false
				return
			case tcell.KeyUp:
				t.press(addr.KeyUp)
			case tcell.KeyDown:
				t.press(addr.KeyDown)
			case tcell.KeyLeft:
				t.press(addr.KeyLeft)
			case tcell.KeyRight:
				t.press(addr.KeyRight)
			case tcell.KeyEnter:
				t.press(addr.KeyStart)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'z':
					t.press(addr.KeyA)
				case 'x':
					t.press(addr.KeyB)
				case 'a':
					t.press(addr.KeyL)
				case 's':
					t.press(addr.KeyR)
				case ' ':
					t.press(addr.KeySelect)
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// render draws the frame using half-block cells: each character holds
// two vertically stacked pixels, so 240x160 fits in 240x80 cells.
func (t *TerminalRenderer) render(fb *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			tr, tg, tb := fb.Pixel(x, y)
			br, bg, bb := fb.Pixel(x, y+1)

			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(tr), int32(tg), int32(tb))).
				Background(tcell.NewRGBColor(int32(br), int32(bg), int32(bb)))
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func main() {
	app := cli.NewApp()
	app.Name = "advance"
	app.Description = "A Game Boy Advance emulator"
	app.Usage = "advance [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "bios",
			Usage: "Path to the GBA BIOS image",
		},
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 0,
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	gba, err := advance.NewWithFiles(c.String("bios"), romPath)
	if err != nil {
		return err
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames with a positive value")
		}
		start := time.Now()
		for i := 0; i < frames; i++ {
			gba.StepFrame()
		}
		slog.Info("Headless run finished", "frames", frames, "elapsed", time.Since(start))
		return nil
	}

	renderer, err := NewTerminalRenderer(gba)
	if err != nil {
		return err
	}
	return renderer.Run()
}
