package ui

import (
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/pulse/internal/frameloop"
	"github.com/olivier-w/pulse/internal/params"
	"github.com/olivier-w/pulse/internal/playback"
	"github.com/olivier-w/pulse/internal/player"
	"github.com/olivier-w/pulse/internal/render"
	"github.com/olivier-w/pulse/internal/web"
)

const (
	blobRadius    = 2.0
	defaultDetail = 20

	seekStep  = 5 * time.Second
	orbitStep = 0.25
	zoomStep  = 0.9
)

// Publisher receives a snapshot after every rendered frame. Publish must not
// block.
type Publisher interface {
	Publish(web.Snapshot)
}

// Config holds the scene settings.
type Config struct {
	FPS     float64
	Profile render.ColorProfile
	// Detail is the icosphere subdivision level. Zero means 20.
	Detail int
	// Width and Height seed the layout before the first resize message.
	Width     int
	Height    int
	Publisher Publisher
	Log       *log.Logger
}

// NewController builds the playback controller for a scene, wired to the
// scene's listener.
type NewController func(playback.Listener) playback.Controller

// Model is the Bubbletea model for the blob scene.
type Model struct {
	ctrl     playback.Controller
	smoother *params.Smoother
	renderer *render.Renderer
	orbit    *render.Orbit
	mesh     *render.Mesh
	frames   *frameloop.Task
	spinner  spinner.Model
	metadata player.Metadata
	started  time.Time

	frame        string
	titlePlaying bool
	width        int
	height       int
	quitting     bool

	publisher Publisher
	log       *log.Logger
}

// New creates the scene. The listener handed to newCtrl feeds the smoother;
// the render loop reads whatever was written last before each frame.
func New(meta player.Metadata, newCtrl NewController, cfg Config) Model {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Detail <= 0 {
		cfg.Detail = defaultDetail
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}

	smoother := params.NewSmoother()
	ctrl := newCtrl(playback.Listener{
		OnAudioData:     smoother.SetBands,
		OnPlayingChange: smoother.SetPlaying,
	})

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return Model{
		ctrl:      ctrl,
		smoother:  smoother,
		renderer:  render.NewRenderer(cfg.Profile),
		orbit:     render.NewOrbit(render.DefaultCamera(), int(cfg.FPS)),
		mesh:      render.Icosphere(blobRadius, cfg.Detail),
		frames:    frameloop.New(cfg.FPS),
		spinner:   s,
		metadata:  meta,
		started:   time.Now(),
		width:     cfg.Width,
		height:    cfg.Height,
		publisher: cfg.Publisher,
		log:       cfg.Log,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.ctrl.Init(),
		m.frames.Start(),
		m.spinner.Tick,
		tea.SetWindowTitle(windowTitle(m.metadata.Display(), false)),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.handleMsg(msg)
	return next, cmd
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if pct, ok := m.seekPercentAt(msg.X, msg.Y); ok {
				return m, m.ctrl.SeekPercent(pct)
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.Transport().Ready() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameloop.FrameMsg:
		if !m.frames.Owns(msg) {
			return m, m.ctrl.Update(msg)
		}
		live, next := m.frames.Handle(msg)
		if !live {
			return m, nil
		}
		return m, tea.Batch(next, m.renderFrame(msg.Time))
	}

	return m, m.ctrl.Update(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case isQuit(msg):
		return m.quit()
	case key.Matches(msg, keys.TogglePlay):
		return m.ctrl.TogglePlay()
	case key.Matches(msg, keys.SeekBack):
		return m.ctrl.SeekBy(-seekStep)
	case key.Matches(msg, keys.SeekFwd):
		return m.ctrl.SeekBy(seekStep)
	case key.Matches(msg, keys.SeekTo):
		digit := msg.String()[0] - '0'
		return m.ctrl.SeekPercent(float64(digit) * 10)
	case key.Matches(msg, keys.OrbitLeft):
		m.orbit.Rotate(-orbitStep, 0)
	case key.Matches(msg, keys.OrbitRight):
		m.orbit.Rotate(orbitStep, 0)
	case key.Matches(msg, keys.OrbitUp):
		m.orbit.Rotate(0, orbitStep)
	case key.Matches(msg, keys.OrbitDown):
		m.orbit.Rotate(0, -orbitStep)
	case key.Matches(msg, keys.ZoomIn):
		m.orbit.Zoom(zoomStep)
	case key.Matches(msg, keys.ZoomOut):
		m.orbit.Zoom(1 / zoomStep)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.frames.Stop()
	if err := m.ctrl.Close(); err != nil {
		m.log.Printf("close controller: %v", err)
	}
	return tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
}

// renderFrame advances the smoother and camera one step and redraws the blob.
func (m *Model) renderFrame(now time.Time) tea.Cmd {
	m.smoother.Step(now.Sub(m.started))
	cam := m.orbit.Step()

	width, _ := m.size()
	m.renderer.Resize(width, m.blobHeight(m.controllerRows()))
	m.frame = m.renderer.Render(m.mesh, m.smoother.Uniforms(), m.smoother.Scale(), cam)

	if m.publisher != nil {
		m.publisher.Publish(m.snapshot())
	}

	if playing := m.smoother.Playing(); playing != m.titlePlaying {
		m.titlePlaying = playing
		return tea.SetWindowTitle(windowTitle(m.metadata.Display(), playing))
	}
	return nil
}

func (m *Model) snapshot() web.Snapshot {
	return web.Snapshot{
		Track:     m.metadata.Display(),
		Transport: m.ctrl.Transport(),
		Bands:     m.smoother.Bands(),
		Uniforms:  m.smoother.Uniforms(),
		Scale:     m.smoother.Scale()[0],
	}
}

// size falls back to 80×24 until the terminal reports its size.
func (m *Model) size() (int, int) {
	if m.width <= 0 || m.height <= 0 {
		return 80, 24
	}
	return m.width, m.height
}

func (m *Model) barWidth() int {
	width, _ := m.size()
	return max(width-2*len(indent), 10)
}

func (m *Model) controllerRows() int {
	return lipgloss.Height(m.ctrl.View(m.barWidth()))
}

func (m *Model) blobHeight(ctrlRows int) int {
	_, height := m.size()
	return max(height-rowsAbove-rowsBelowFixed-ctrlRows, 1)
}

// seekPercentAt maps a click to a seek percentage. Every controller row except
// the trailing status line is a seek row.
func (m *Model) seekPercentAt(x, y int) (float64, bool) {
	rows := m.controllerRows()
	top := rowsAbove + m.blobHeight(rows) + 1
	if y < top || y >= top+rows-1 {
		return 0, false
	}
	pct := float64(x-len(indent)) / float64(m.barWidth()) * 100
	return min(max(pct, 0), 100), true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	loading := ""
	if !m.ctrl.Transport().Ready() {
		loading = m.spinner.View() + " loading"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent + renderHeader(m.metadata, loading) + "\n")
	b.WriteString("\n")
	b.WriteString(m.frame)
	b.WriteString("\n\n")
	b.WriteString(indentBlock(m.ctrl.View(m.barWidth()), indent))
	b.WriteString("\n\n")
	b.WriteString(indent + helpStyle.Render(helpText()))

	_, height := m.size()
	return padToHeight(b.String(), height)
}
