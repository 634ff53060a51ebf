package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rjgabel2/dmgcore/lcd"
)

// greyscaleRamp maps a 2-bit color index (the raw value the LCD writes
// into the framebuffer) to a shade, lightest-to-darkest, matching the
// classic four-shade DMG palette rather than BGP's programmable
// mapping; the machine exposes raw indices precisely so a consumer can
// apply whatever palette it likes here.
var greyscaleRamp = [4]colorful.Color{
	colorful.Color{R: 1.0, G: 1.0, B: 1.0},
	colorful.Color{R: 0.67, G: 0.67, B: 0.67},
	colorful.Color{R: 0.33, G: 0.33, B: 0.33},
	colorful.Color{R: 0.0, G: 0.0, B: 0.0},
}

// dumpPPM writes fb out as a binary PPM (P6) image using the
// greyscale ramp above.
func dumpPPM(path string, fb *lcd.FrameBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P6\n%d %d\n255\n", lcd.Width, lcd.Height)

	pixels := fb.ToSlice()
	for _, idx := range pixels {
		shade := greyscaleRamp[idx&0x3]
		r, g, b := shade.RGB255()
		w.Write([]byte{r, g, b})
	}

	return w.Flush()
}
