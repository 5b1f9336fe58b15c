package main

import (
	"fmt"
	"log"

	"github.com/olivier-w/pulse/internal/media"
	"github.com/olivier-w/pulse/internal/playback"
	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/render"
	"github.com/olivier-w/pulse/internal/ui"
)

const (
	controllerMedia    = "media"
	controllerWaveform = "waveform"
)

type options struct {
	controller string
	fps        float64
	width      int
	height     int
	profile    render.ColorProfile
	publisher  ui.Publisher
	log        *log.Logger
}

func (o options) validate() error {
	switch o.controller {
	case controllerMedia, controllerWaveform:
	default:
		return fmt.Errorf("unknown controller %q (want %s or %s)", o.controller, controllerMedia, controllerWaveform)
	}
	if o.fps <= 0 {
		return fmt.Errorf("fps must be positive (got %.2f)", o.fps)
	}
	return nil
}

// openScene resolves arg to a track, opens the audio output and player, and
// builds the scene around the selected controller.
func openScene(arg string, opts options) (ui.Model, error) {
	path, err := media.Resolve(arg)
	if err != nil {
		return ui.Model{}, err
	}

	format, err := player.Probe(path)
	if err != nil {
		return ui.Model{}, err
	}
	out, err := player.NewOutput(format.SampleRate, format.Channels)
	if err != nil {
		return ui.Model{}, err
	}
	p, err := player.New(path, out)
	if err != nil {
		return ui.Model{}, fmt.Errorf("error creating player: %w", err)
	}

	cfg := playback.Config{FPS: opts.fps, Channels: format.Channels, Log: opts.log}
	newCtrl, err := controllerFactory(opts.controller, p, path, cfg)
	if err != nil {
		p.Close()
		return ui.Model{}, err
	}
	opts.log.Printf("opened %s (%d Hz, %d ch, %s) with the %s controller",
		path, format.SampleRate, format.Channels, format.Duration, opts.controller)

	return ui.New(player.ReadMetadata(path), newCtrl, ui.Config{
		FPS:       opts.fps,
		Profile:   opts.profile,
		Width:     opts.width,
		Height:    opts.height,
		Publisher: opts.publisher,
		Log:       opts.log,
	}), nil
}

func controllerFactory(kind string, src player.Source, path string, cfg playback.Config) (ui.NewController, error) {
	switch kind {
	case controllerMedia:
		return func(l playback.Listener) playback.Controller {
			return playback.NewMedia(src, l, cfg)
		}, nil
	case controllerWaveform:
		return func(l playback.Listener) playback.Controller {
			return playback.NewWaveform(src, path, l, cfg)
		}, nil
	}
	return nil, fmt.Errorf("unknown controller %q", kind)
}
