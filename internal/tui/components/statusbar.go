package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-rs232/internal/tui/colors"
	"github.com/allbin/go-rs232/internal/tui/styles"
)

type connState int

const (
	stateDisconnected connState = iota
	stateBusy
	stateConnected
)

// DeviceInfo is what the status bar shows about the device
type DeviceInfo struct {
	BaudRate int
	Affinity bool
	Pending  int
	Executed uint64
	Failed   uint64
}

type StatusBar struct {
	port  string
	state connState
	err   error
	width int
	info  DeviceInfo
}

func NewStatusBar(port string) *StatusBar {
	return &StatusBar{port: port}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetInfo(info DeviceInfo) {
	sb.info = info
}

func (sb *StatusBar) SetBusy() {
	sb.state = stateBusy
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.state = stateConnected
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.state = stateDisconnected
	sb.err = err
}

func (sb *StatusBar) Err() error {
	return sb.err
}

func (sb *StatusBar) indicator() string {
	switch {
	case sb.err != nil:
		return styles.GetStatusStyle(styles.StatusError).Render("✗")
	case sb.state == stateConnected:
		return styles.GetStatusStyle(styles.StatusConnected).Render("●")
	case sb.state == stateBusy:
		return styles.GetStatusStyle(styles.StatusBusy).Render("○")
	default:
		return styles.GetStatusStyle(styles.StatusDisconnected).Render("○")
	}
}

// View renders the bottom line: mode, port and connection on the left,
// device details and clock on the right.
func (sb *StatusBar) View(insert bool, sendingMode SendingMode, clock string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeStyle := lipgloss.NewStyle().Foreground(colors.Base).Bold(true).Padding(0, 1)
	mode := modeStyle.Background(colors.Blue).Render("NORMAL")
	if insert {
		mode = modeStyle.Background(colors.Green).Render("INSERT")
	}

	port := lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true).Padding(0, 1).Render(sb.port)
	divider := lipgloss.NewStyle().Foreground(colors.Surface2).Padding(0, 1).Render("│")

	left := []string{mode, port, sb.indicator()}
	if insert {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	if sb.err != nil {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Red).Padding(0, 1).Render(sb.err.Error()))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	execMode := "direct"
	if sb.info.Affinity {
		execMode = fmt.Sprintf("affinity q:%d ok:%d err:%d", sb.info.Pending, sb.info.Executed, sb.info.Failed)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d 8N1 %s", sb.info.BaudRate, execMode))
	clockView := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1).Render(clock)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clockView)

	spacerWidth := max(width-lipgloss.Width(leftSide)-lipgloss.Width(rightSide), 1)
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
