package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/preview"
	"github.com/funvibe/dvi/internal/preview/window"
	"github.com/funvibe/dvi/pkg/cli"
)

func main() {
	var (
		headless bool
		ticks    uint64
		out      string
		scale    int
		tps      int
	)
	flag.BoolVar(&headless, "headless", false, "Render without a window.")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run until interrupted).")
	flag.StringVar(&out, "o", "", "Write the last headless frame to this PNG file.")
	flag.IntVar(&scale, "scale", 0, "Window scale factor.")
	flag.IntVar(&tps, "tps", 0, "Frames per second.")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dvi-preview [flags] FILE")
		os.Exit(2)
	}
	path := flag.Arg(0)

	settings, err := loadSettings(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if scale > 0 {
		settings.Preview.Scale = scale
	}
	if tps > 0 {
		settings.Preview.TPS = tps
	}
	log := cli.NewLogger(settings.LogLevel, os.Stderr)

	sess, err := preview.NewSession(path, settings, log)
	if sess == nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	w, err := sess.Watch(settings.Watch.Debounce)
	if err != nil {
		log.Warn("hot reload disabled", "err", err)
	} else {
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if headless {
		var last *backend.Result
		err := preview.RunHeadless(ctx, sess, ticks, func(tick uint64, res *backend.Result, err error) {
			if err != nil {
				log.Warn("frame failed", "tick", tick, "err", err)
			}
			if res != nil {
				last = res
			}
		})
		if err != nil && err != context.Canceled {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if out != "" && last != nil {
			if err := writePNG(out, last); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
		return
	}

	if err := window.Run(ctx, sess, settings.Canvas.Width, settings.Canvas.Height, settings.Preview.Scale); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSettings(path string) (*config.Settings, error) {
	found, err := config.FindSettings(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	s, err := config.LoadSettings(found)
	if err != nil {
		return nil, err
	}
	return s, s.ApplyEnv()
}

func writePNG(path string, res *backend.Result) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
