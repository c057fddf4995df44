package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-rs232/internal/tui/colors"
)

// Direction of a console line
type Direction int

const (
	DirRX Direction = iota
	DirTX
	DirEvent
)

// TXStatus tracks a send through the device queue
type TXStatus int

const (
	TXQueued TXStatus = iota
	TXWritten
	TXFailed
)

// FrameMsg is one line of console traffic
type FrameMsg struct {
	Timestamp time.Time
	Data      []byte
	Dir       Direction
	Status    TXStatus
	// Seq ties a TX completion back to the line it updates
	Seq int
	// Note replaces the data rendering for events and failures
	Note string
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type Formatter struct {
	mode DisplayMode
}

func NewFormatter(showHex, showASCII bool) *Formatter {
	return &Formatter{mode: DisplayMode{ShowHex: showHex, ShowASCII: showASCII}}
}

func (f *Formatter) Mode() DisplayMode {
	return f.mode
}

func (f *Formatter) ToggleHex() {
	f.mode.ShowHex = !f.mode.ShowHex
}

func (f *Formatter) ToggleASCII() {
	f.mode.ShowASCII = !f.mode.ShowASCII
}

// Payload renders data according to the display mode, without styling
func (f *Formatter) Payload(data []byte) string {
	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+Printable(data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(data)))
	}
	return strings.Join(parts, "  ")
}

func (f *Formatter) Format(msg FrameMsg) string {
	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))

	body := f.Payload(msg.Data)
	if msg.Note != "" {
		body = msg.Note
	}
	return fmt.Sprintf("%s %s: %s", timestamp, indicator(msg), body)
}

func (f *Formatter) FormatAll(msgs []FrameMsg) []string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, f.Format(msg))
	}
	return lines
}

func indicator(msg FrameMsg) string {
	style := lipgloss.NewStyle().Bold(true)
	switch msg.Dir {
	case DirTX:
		switch msg.Status {
		case TXQueued:
			return style.Foreground(colors.Yellow).Render("↗ TX ○")
		case TXWritten:
			return style.Foreground(colors.Green).Render("↗ TX ✓")
		default:
			return style.Foreground(colors.Red).Render("↗ TX ✗")
		}
	case DirEvent:
		return style.Foreground(colors.Mauve).Render("• --")
	default:
		return style.Foreground(colors.Sky).Render("↙ RX")
	}
}

// Printable replaces anything outside printable ASCII with a dot
func Printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
