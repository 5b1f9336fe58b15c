package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/olivier-w/pulse/internal/media"
	"github.com/olivier-w/pulse/internal/render"
	"github.com/olivier-w/pulse/internal/ui"
	"github.com/olivier-w/pulse/internal/web"
)

func main() {
	var (
		controller = flag.String("controller", controllerMedia, "Playback controller (media|waveform)")
		fps        = flag.Float64("fps", 60, "Target frames per second")
		listen     = flag.String("listen", "", "Serve the remote monitor on this address, e.g. :8080")
		debug      = flag.Bool("debug", false, "Write debug logs to pulse-debug.log")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: pulse [flags] [track]\n\nSupported formats: %s and .m3u/.pls playlists.\n\n", media.SupportedExtsList())
		flag.PrintDefaults()
	}
	flag.Parse()

	opts := options{
		controller: *controller,
		fps:        *fps,
		profile:    render.DetectColorProfile(),
	}
	if err := run(opts, *listen, *debug, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, listen string, debug bool, args []string) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("expected at most one track, got %d", len(args))
	}

	opts.log = log.New(io.Discard, "", 0)
	if debug {
		f, err := tea.LogToFile("pulse-debug.log", "pulse")
		if err != nil {
			return err
		}
		defer f.Close()
		opts.log = log.New(f, "[pulse] ", log.LstdFlags)
	}

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		opts.width, opts.height = w, h
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if listen != "" {
		srv := web.NewServer(opts.log)
		opts.publisher = srv
		go func() {
			if err := srv.Run(ctx, listen); err != nil {
				opts.log.Printf("[web] %v", err)
			}
		}()
	}

	var model tea.Model
	if len(args) == 1 {
		scene, err := openScene(args[0], opts)
		if err != nil {
			return err
		}
		model = scene
	} else {
		startup := newStartupModel(func(path string) (ui.Model, error) {
			return openScene(path, opts)
		})
		if startup.browser.HasError() {
			return startup.browser.Error()
		}
		model = startup
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}
