package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/pulse/internal/media"
)

type fileItem struct {
	name string
	ext  string
}

func (i fileItem) Title() string       { return i.name }
func (i fileItem) Description() string { return i.ext }
func (i fileItem) FilterValue() string { return i.name }

type pathItem struct{}

func (i pathItem) Title() string       { return "Open path..." }
func (i pathItem) Description() string { return "type a file or playlist path" }
func (i pathItem) FilterValue() string { return "path" }

// BrowserModel lists the playable files in the working directory. It reports
// the choice with BrowserSelectedMsg or BrowserCancelledMsg instead of
// quitting, so it can be embedded in another model.
type BrowserModel struct {
	list     list.Model
	input    textinput.Model
	pathMode bool
	err      error
}

// NewBrowser scans the current directory.
func NewBrowser() BrowserModel {
	entries, err := os.ReadDir(".")
	if err != nil {
		return BrowserModel{err: fmt.Errorf("cannot read directory: %w", err)}
	}

	items := []list.Item{pathItem{}}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !media.IsSupportedExt(ext) && !media.IsPlaylistExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		items = append(items, fileItem{name: name, ext: filepath.Ext(e.Name())})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	l := list.New(items, delegate, 80, 20)
	l.Title = "pulse"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = headerStyle

	ti := textinput.New()
	ti.Placeholder = "path/to/track.mp3"
	ti.CharLimit = 4096
	ti.Width = 60

	return BrowserModel{list: l, input: ti}
}

// HasError returns true if the browser could not be initialized.
func (m BrowserModel) HasError() bool {
	return m.err != nil
}

// Error returns the initialization error, if any.
func (m BrowserModel) Error() error {
	return m.err
}

func (m BrowserModel) Init() tea.Cmd {
	return tea.SetWindowTitle("pulse")
}

func selected(path string) tea.Cmd {
	return func() tea.Msg { return BrowserSelectedMsg{Path: path} }
}

func cancelled() tea.Msg { return BrowserCancelledMsg{} }

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		if msg, ok := msg.(tea.KeyMsg); ok && isQuit(msg) {
			return m, cancelled
		}
		return m, nil
	}
	if m.pathMode {
		return m.updatePathInput(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Don't intercept keys when filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			switch item := m.list.SelectedItem().(type) {
			case pathItem:
				m.pathMode = true
				m.input.Focus()
				return m, tea.Batch(textinput.Blink, tea.SetWindowTitle("pulse · open path"))
			case fileItem:
				return m, selected(item.name + item.ext)
			}
		case "q", "esc", "ctrl+c":
			return m, cancelled
		}

	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m BrowserModel) updatePathInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			if path := strings.TrimSpace(m.input.Value()); path != "" {
				return m, selected(path)
			}
		case "esc":
			m.pathMode = false
			m.input.Reset()
			m.input.Blur()
			return m, tea.SetWindowTitle("pulse")
		case "ctrl+c":
			return m, cancelled
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m BrowserModel) View() string {
	if m.err != nil {
		return "\n  " + headerStyle.Render("pulse") + "\n\n  " + errorStyle.Render(m.err.Error()) + "\n"
	}
	if m.pathMode {
		s := "\n"
		s += "  " + headerStyle.Render("pulse") + "\n"
		s += "\n"
		s += "  " + statusStyle.Render("Open path:") + "\n"
		s += "  " + m.input.View() + "\n"
		s += "\n"
		s += "  " + helpStyle.Render("enter confirm  esc back  ctrl+c quit") + "\n"
		return s
	}
	return m.list.View()
}
