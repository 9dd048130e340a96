// Command gbcore is a thin, headless host around internal/system: it loads
// a ROM, steps the core for a fixed number of frames, and optionally
// writes PNG snapshots, a save-state file, and/or serves a telemetry
// websocket. It owns no window, no audio device, and no gamepad input.
package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"

	"github.com/reneklacan/gbcore/internal/cartridge"
	"github.com/reneklacan/gbcore/internal/system"
	"github.com/reneklacan/gbcore/internal/telemetry"
	"github.com/reneklacan/gbcore/pkg/log"
	"github.com/urfave/cli"
	"golang.org/x/image/draw"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbcore"
	app.Usage = "gbcore --rom <path> [options]"
	app.Description = "Headless Game Boy / Game Boy Color core runner"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to the ROM file (.gb/.gbc/.zip/.gz/.7z)"},
		cli.IntFlag{Name: "frames", Value: 60, Usage: "number of frames to run before exiting"},
		cli.StringFlag{Name: "snapshot", Usage: "write a PNG of the final frame to this path"},
		cli.IntFlag{Name: "snapshot-scale", Value: 1, Usage: "integer upscale factor applied to --snapshot"},
		cli.IntFlag{Name: "snapshot-interval", Usage: "also write numbered snapshots every N frames (0 = disabled)"},
		cli.StringFlag{Name: "save-state", Usage: "write a save-state file after the run completes"},
		cli.BoolFlag{Name: "telemetry", Usage: "serve a telemetry websocket on --telemetry-addr while running"},
		cli.StringFlag{Name: "telemetry-addr", Value: "127.0.0.1:8090", Usage: "listen address for --telemetry"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gbcore:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		return errors.New("--rom is required")
	}

	logger := log.New()
	cart, err := cartridge.LoadFile(romPath)
	if err != nil {
		return fmt.Errorf("load rom: %w", err)
	}

	sys := system.New(cart, system.WithLogger(logger))

	var telemetrySrv *telemetry.Server
	if c.Bool("telemetry") {
		telemetrySrv = telemetry.NewServer(sys)
		mux := http.NewServeMux()
		mux.HandleFunc("/", telemetrySrv.ServeHTTP)
		addr := c.String("telemetry-addr")
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Errorf("telemetry server stopped: %v", err)
			}
		}()
		logger.Infof("telemetry listening on ws://%s", addr)
	}

	frames := c.Int("frames")
	interval := c.Int("snapshot-interval")
	frameCount := 0
	for frameCount < frames {
		sys.Step()
		if !sys.FrameReady() {
			continue
		}
		frameCount++

		if telemetrySrv != nil {
			telemetrySrv.PushFrame()
		}
		if snapBase := c.String("snapshot"); interval > 0 && snapBase != "" && frameCount%interval == 0 {
			path := fmt.Sprintf("%s.%06d.png", snapBase, frameCount)
			if err := writeSnapshot(path, sys.Framebuffer(), c.Int("snapshot-scale")); err != nil {
				logger.Errorf("snapshot at frame %d: %v", frameCount, err)
			}
		}
	}

	if path := c.String("snapshot"); path != "" {
		if err := writeSnapshot(path, sys.Framebuffer(), c.Int("snapshot-scale")); err != nil {
			return fmt.Errorf("final snapshot: %w", err)
		}
	}

	if path := c.String("save-state"); path != "" {
		if err := sys.SaveState(path); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	if ram := sys.SaveRAM(); ram != nil {
		savPath := romPath + ".sav"
		if err := os.WriteFile(savPath, ram, 0o644); err != nil {
			logger.Errorf("save RAM: %v", err)
		}
	}

	logger.Infof("ran %d frames, %d M-cycles", frameCount, sys.Cycles())
	return nil
}

const (
	screenWidth  = 160
	screenHeight = 144
)

// writeSnapshot upscales the 160x144 ARGB framebuffer by scale (using
// CatmullRom interpolation for scale>1, since image/draw has no scaling
// Interpolator in the standard library) and writes it as a PNG.
func writeSnapshot(path string, framebuffer []uint32, scale int) error {
	if scale < 1 {
		scale = 1
	}
	src := image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight))
	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			argb := framebuffer[y*screenWidth+x]
			src.Set(x, y, argbColor(argb))
		}
	}

	dst := image.Image(src)
	if scale > 1 {
		scaled := image.NewRGBA(image.Rect(0, 0, screenWidth*scale, screenHeight*scale))
		draw.CatmullRom.Scale(scaled, scaled.Rect, src, src.Rect, draw.Over, nil)
		dst = scaled
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}

type argbColor uint32

func (c argbColor) RGBA() (r, g, b, a uint32) {
	a = uint32(uint8(c>>24)) * 0x101
	r = uint32(uint8(c>>16)) * 0x101
	g = uint32(uint8(c>>8)) * 0x101
	b = uint32(uint8(c)) * 0x101
	return
}
