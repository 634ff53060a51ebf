// Command dmgcore is a minimal headless runner: it loads a ROM,
// advances it a fixed number of frames, and optionally dumps the
// final frame as a PPM image. It contains no emulation logic of its
// own; everything goes through the root package's Create/RunFrame.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/rjgabel2/dmgcore"
	"github.com/rjgabel2/dmgcore/lcd"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgcore"
	app.Usage = "dmgcore [options] <ROM file>"
	app.Description = "Headless runner for the DMG core"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "frames",
			Usage: "number of frames to run",
			Value: 60,
		},
		cli.StringFlag{
			Name:  "dump-ppm",
			Usage: "write the final frame to this path as a PPM image",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore: run failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}
	romPath := c.Args().Get(0)
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("--frames must be positive")
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	machine, err := dmgcore.Create(rom)
	if err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	defer dmgcore.Destroy(machine)

	fb := lcd.NewFrameBuffer()
	machine.SetFrameBuffer(fb)

	for i := 0; i < frames; i++ {
		if fatal := machine.RunFrame(); fatal != nil {
			return fmt.Errorf("frame %d: %w", i, fatal)
		}
		machine.Bus().ResetCycles()
	}

	printSummary(frames)

	if dest := c.String("dump-ppm"); dest != "" {
		if err := dumpPPM(dest, fb); err != nil {
			return fmt.Errorf("writing PPM: %w", err)
		}
		slog.Info("wrote frame snapshot", "path", dest)
	}

	return nil
}

// printSummary writes a one-line progress summary, truncated to fit
// the terminal width when stdout is a terminal.
func printSummary(frames int) {
	line := fmt.Sprintf("ran %d frame(s)", frames)

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err == nil && width > 0 && len(line) > width {
		line = line[:width]
	}

	fmt.Println(line)
}
