/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-rs232"
	"github.com/allbin/go-rs232/internal/tui/components"
	"github.com/allbin/go-rs232/internal/tui/keys"
)

const (
	pollInterval   = 100 * time.Millisecond
	receiveTimeout = time.Second
	sendTimeout    = 5 * time.Second
	receiveBufSize = 1024
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console [port]",
	Short: "Interactive console for a serial device",
	Long: `Open an interactive terminal on a serial device.

Every connect, disconnect, send and read goes through the same device, so the
console shows the queue at work: sent lines are marked queued until the
worker has written them. Incoming data is polled while connected.

Keys: i insert mode, esc normal mode, tab ASCII/HEX, c connect, d disconnect,
x/a toggle hex/ascii columns, ? help, q quit.

Example usage:
  rs232 console MOCK
  rs232 console /dev/ttyUSB0 --baud 115200`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath, err := portArg(args, 0)
		if err != nil {
			return err
		}
		direct, _ := cmd.Flags().GetBool("direct")

		dev, _, err := openDevice(portPath, direct)
		if err != nil {
			return err
		}
		defer dev.Close()

		m := newConsoleModel(dev)
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().IntP("baud", "b", 9600, "Baud rate")
	consoleCmd.Flags().Bool("direct", false, "Run port operations on the calling goroutine instead of the worker")
}

type (
	connectResultMsg    struct{ err error }
	disconnectResultMsg struct{ err error }
	sendResultMsg       struct {
		seq int
		err error
	}
	receiveResultMsg struct {
		data []byte
		err  error
	}
	statusResultMsg struct{ status rs232.Status }
	pollMsg         time.Time
)

// consoleModel is the Bubble Tea model for the console command
type consoleModel struct {
	dev       *rs232.Device
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConsoleKeys

	ready     bool
	insert    bool
	connected bool
	receiving bool
	txSeq     int
}

func newConsoleModel(dev *rs232.Device) *consoleModel {
	m := &consoleModel{
		dev:       dev,
		terminal:  components.NewTerminal(0, 0),
		statusBar: components.NewStatusBar(dev.Port()),
		input:     components.NewInput(),
		help:      help.New(),
		keys:      keys.NewConsoleKeys(),
	}
	m.statusBar.SetBusy()
	return m
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.connect(), m.refreshStatus(), poll())
}

func poll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m *consoleModel) connect() tea.Cmd {
	dev := m.dev
	return func() tea.Msg {
		return connectResultMsg{err: dev.Connect()}
	}
}

func (m *consoleModel) disconnect() tea.Cmd {
	dev := m.dev
	return func() tea.Msg {
		return disconnectResultMsg{err: dev.Disconnect()}
	}
}

func (m *consoleModel) send(seq int, data []byte) tea.Cmd {
	dev := m.dev
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return sendResultMsg{seq: seq, err: dev.SendBytesContext(ctx, data)}
	}
}

func (m *consoleModel) receive() tea.Cmd {
	dev := m.dev
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), receiveTimeout)
		defer cancel()
		buf := make([]byte, receiveBufSize)
		n, err := dev.ReceiveContext(ctx, buf)
		return receiveResultMsg{data: buf[:n], err: err}
	}
}

func (m *consoleModel) refreshStatus() tea.Cmd {
	dev := m.dev
	return func() tea.Msg {
		st, err := dev.Status()
		if err != nil {
			return nil
		}
		return statusResultMsg{status: st}
	}
}

func (m *consoleModel) event(format string, args ...any) {
	m.terminal.Add(components.FrameMsg{
		Timestamp: time.Now(),
		Dir:       components.DirEvent,
		Note:      fmt.Sprintf(format, args...),
	})
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// input box (3 lines with border) plus the status bar
		m.terminal.SetSize(msg.Width, max(msg.Height-4, 1))
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.ready = true
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)

	case connectResultMsg:
		if msg.err != nil && !errors.Is(msg.err, rs232.ErrAlreadyConnected) {
			m.statusBar.SetDisconnected(msg.err)
			m.event("connect failed: %v", msg.err)
			break
		}
		m.connected = true
		m.statusBar.SetConnected()
		m.event("connected")
		cmds = append(cmds, m.refreshStatus())

	case disconnectResultMsg:
		m.connected = false
		m.statusBar.SetDisconnected(msg.err)
		if msg.err != nil {
			m.event("disconnect: %v", msg.err)
		} else {
			m.event("disconnected")
		}
		cmds = append(cmds, m.refreshStatus())

	case sendResultMsg:
		status, note := components.TXWritten, ""
		if msg.err != nil {
			status, note = components.TXFailed, msg.err.Error()
			logger.Warn("console send failed", zap.Int("seq", msg.seq), zap.Error(msg.err))
		}
		m.terminal.Resolve(msg.seq, status, note)
		cmds = append(cmds, m.refreshStatus())

	case receiveResultMsg:
		m.receiving = false
		if len(msg.data) > 0 {
			m.terminal.Add(components.FrameMsg{
				Timestamp: time.Now(),
				Data:      msg.data,
				Dir:       components.DirRX,
			})
		}
		if msg.err != nil && !errors.Is(msg.err, io.EOF) && !errors.Is(msg.err, context.DeadlineExceeded) {
			if errors.Is(msg.err, rs232.ErrNotConnected) {
				m.connected = false
				m.statusBar.SetDisconnected(nil)
			} else {
				m.event("receive: %v", msg.err)
			}
		}

	case statusResultMsg:
		st := msg.status
		m.connected = st.Connected
		m.statusBar.SetInfo(components.DeviceInfo{
			BaudRate: st.BaudRate,
			Affinity: st.Affinity,
			Pending:  st.Worker.Pending,
			Executed: st.Worker.Executed,
			Failed:   st.Worker.Failed,
		})

	case pollMsg:
		cmds = append(cmds, poll())
		if m.connected && !m.receiving {
			m.receiving = true
			cmds = append(cmds, m.receive())
		}

	case tea.KeyMsg:
		if m.insert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *consoleModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit
	case key.Matches(msg, m.keys.Escape):
		m.insert = false
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		return m.submitInput()
	case msg.Type == tea.KeyUp:
		m.input.HistoryUp()
		return nil
	case msg.Type == tea.KeyDown:
		m.input.HistoryDown()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *consoleModel) submitInput() tea.Cmd {
	if m.input.Value() == "" {
		return nil
	}
	data, err := m.input.Payload()
	if err != nil {
		m.event("invalid hex input: %v", err)
		return nil
	}

	m.txSeq++
	m.terminal.Add(components.FrameMsg{
		Timestamp: time.Now(),
		Data:      data,
		Dir:       components.DirTX,
		Status:    components.TXQueued,
		Seq:       m.txSeq,
	})
	m.input.AddToHistory(m.input.Value())
	m.input.SetValue("")
	return m.send(m.txSeq, data)
}

func (m *consoleModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.InsertMode):
		m.insert = true
		m.input.Focus()
	case key.Matches(msg, m.keys.Connect):
		m.statusBar.SetBusy()
		return m.connect()
	case key.Matches(msg, m.keys.Disconnect):
		m.statusBar.SetBusy()
		return m.disconnect()
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()
	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.ToggleASCII()
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
	case key.Matches(msg, m.keys.Up):
		m.terminal.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.terminal.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()
	}
	return nil
}

func (m *consoleModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	parts := []string{
		m.terminal.View(),
		m.input.View(m.insert),
		m.statusBar.View(m.insert, m.input.SendingMode(), time.Now().Format("15:04:05")),
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
