// Package frameloop provides a cancellable per-frame tick for Bubble Tea
// programs. Ticks are tagged with the task id and a sequence number so a tick
// that was already in flight when the task stopped is dropped instead of
// rescheduling itself.
package frameloop

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// FrameMsg is delivered once per frame while a task runs.
type FrameMsg struct {
	Time time.Time
	id   int
	seq  int
}

// Task is a restartable, cancellable frame tick. It is not safe for concurrent
// use; drive it from the Bubble Tea update loop.
type Task struct {
	id       int
	seq      int
	interval time.Duration
	running  bool
}

// New creates a stopped task ticking at fps frames per second.
func New(fps float64) *Task {
	if fps <= 0 {
		fps = 60
	}
	return &Task{
		id:       nextID(),
		interval: time.Duration(float64(time.Second) / fps),
	}
}

// Interval returns the frame interval.
func (t *Task) Interval() time.Duration { return t.interval }

// Running reports whether the task is scheduled.
func (t *Task) Running() bool { return t.running }

// Start schedules the first frame. Starting a running task is a no-op.
func (t *Task) Start() tea.Cmd {
	if t.running {
		return nil
	}
	t.running = true
	t.seq++
	return t.tick()
}

// Stop cancels the task. Any frame already in flight is discarded by Handle.
func (t *Task) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.seq++
}

// Owns reports whether msg was produced by this task, current or stale.
func (t *Task) Owns(msg FrameMsg) bool {
	return msg.id == t.id
}

// Handle accepts a frame. It reports whether the frame is live and returns the
// command scheduling the next one. Stale frames return false and nil.
func (t *Task) Handle(msg FrameMsg) (bool, tea.Cmd) {
	if msg.id != t.id || msg.seq != t.seq || !t.running {
		return false, nil
	}
	return true, t.tick()
}

func (t *Task) tick() tea.Cmd {
	id, seq := t.id, t.seq
	return tea.Tick(t.interval, func(now time.Time) tea.Msg {
		return FrameMsg{Time: now, id: id, seq: seq}
	})
}
