package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxFrames caps the scrollback
const maxFrames = 5000

// Terminal is the scrolling traffic view
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	frames    []FrameMsg
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(true, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.render()
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Add(msg FrameMsg) {
	t.frames = append(t.frames, msg)
	if len(t.frames) > maxFrames {
		t.frames = t.frames[len(t.frames)-maxFrames:]
	}
	t.render()
}

// Resolve updates the status of the TX line with the given sequence number.
// It reports false if the line has scrolled out.
func (t *Terminal) Resolve(seq int, status TXStatus, note string) bool {
	for i := len(t.frames) - 1; i >= 0; i-- {
		f := &t.frames[i]
		if f.Dir == DirTX && f.Seq == seq {
			f.Status = status
			f.Note = note
			t.render()
			return true
		}
	}
	return false
}

func (t *Terminal) Frames() []FrameMsg {
	return t.frames
}

func (t *Terminal) Clear() {
	t.frames = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.render()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.render()
}

func (t *Terminal) ScrollUp() {
	t.viewport.LineUp(1)
}

func (t *Terminal) ScrollDown() {
	t.viewport.LineDown(1)
}

func (t *Terminal) GotoTop() {
	t.viewport.GotoTop()
}

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatAll(t.frames), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages are handled by the console so the viewport never eats them
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
