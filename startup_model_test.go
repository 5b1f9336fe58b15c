package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/pulse/internal/playback"
	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/ui"
)

func failingOpen(path string) (ui.Model, error) {
	return ui.Model{}, errBoom{}
}

func TestStartupModelSelectionEntersOpeningPhase(t *testing.T) {
	var opened string
	open := func(path string) (ui.Model, error) {
		opened = path
		return ui.Model{}, errBoom{}
	}

	model, cmd := newStartupModel(open).Update(ui.BrowserSelectedMsg{Path: "song.mp3"})
	if cmd == nil {
		t.Fatal("expected opening command")
	}

	startup, ok := model.(startupModel)
	if !ok {
		t.Fatalf("expected startupModel, got %T", model)
	}
	if startup.phase != phaseOpening {
		t.Fatalf("expected phaseOpening, got %v", startup.phase)
	}
	if !strings.Contains(startup.View(), "Opening") {
		t.Fatalf("expected opening view, got %q", startup.View())
	}

	msg := openSelectionCmd("song.mp3", open)()
	resolved, ok := msg.(startupResolvedMsg)
	if !ok || resolved.err == nil || opened != "song.mp3" {
		t.Fatalf("unexpected resolution %#v (opened %q)", msg, opened)
	}
}

func TestStartupModelErrorReturnsToBrowsePhase(t *testing.T) {
	m := newStartupModel(failingOpen)
	m.phase = phaseOpening

	model, cmd := m.Update(startupResolvedMsg{err: errBoom{}})
	if cmd != nil {
		t.Fatal("expected no command on error return")
	}

	startup := model.(startupModel)
	if startup.phase != phaseBrowse {
		t.Fatalf("expected phaseBrowse, got %v", startup.phase)
	}
	if !strings.Contains(startup.View(), "boom") {
		t.Fatal("expected error message in view")
	}
}

func TestStartupModelHandsOverToScene(t *testing.T) {
	m := newStartupModel(failingOpen)
	m.phase = phaseOpening
	m.width, m.height = 80, 24

	scene := ui.New(player.Metadata{Title: "Song"}, func(l playback.Listener) playback.Controller {
		return &idleController{}
	}, ui.Config{Detail: 1})

	model, cmd := m.Update(startupResolvedMsg{model: scene})
	if _, ok := model.(ui.Model); !ok {
		t.Fatalf("expected ui.Model, got %T", model)
	}
	if cmd == nil {
		t.Fatal("expected scene init command")
	}
}

func TestStartupModelCancelQuits(t *testing.T) {
	_, cmd := newStartupModel(failingOpen).Update(ui.BrowserCancelledMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestStartupModelQuitWhileOpening(t *testing.T) {
	m := newStartupModel(failingOpen)
	m.phase = phaseOpening
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatal("expected quit command while opening")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{"media", options{controller: "media", fps: 60}, false},
		{"waveform", options{controller: "waveform", fps: 30}, false},
		{"unknown controller", options{controller: "video", fps: 60}, true},
		{"zero fps", options{controller: "media"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.validate(); (err != nil) != tt.wantErr {
				t.Fatalf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	good := options{controller: "media", fps: 60}
	if err := run(options{controller: "nope", fps: 60}, "", false, nil); err == nil {
		t.Fatal("expected error for unknown controller")
	}
	if err := run(good, "", false, []string{"a.mp3", "b.mp3"}); err == nil {
		t.Fatal("expected error for two tracks")
	}
	if err := run(good, "", false, []string{txt}); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestControllerFactory(t *testing.T) {
	for _, kind := range []string{"media", "waveform"} {
		newCtrl, err := controllerFactory(kind, nil, "song.mp3", playback.Config{})
		if err != nil || newCtrl == nil {
			t.Fatalf("%s: factory=%v err=%v", kind, newCtrl != nil, err)
		}
	}
	if _, err := controllerFactory("video", nil, "", playback.Config{}); err == nil {
		t.Fatal("expected error for unknown controller")
	}
}

type idleController struct{}

func (*idleController) Init() tea.Cmd                 { return nil }
func (*idleController) Update(tea.Msg) tea.Cmd        { return nil }
func (*idleController) TogglePlay() tea.Cmd           { return nil }
func (*idleController) SeekPercent(float64) tea.Cmd   { return nil }
func (*idleController) SeekBy(time.Duration) tea.Cmd  { return nil }
func (*idleController) Transport() playback.Transport { return playback.Transport{} }
func (*idleController) View(int) string               { return "" }
func (*idleController) Close() error                  { return nil }

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
