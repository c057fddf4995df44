/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-rs232/internal/tui/components"
	"github.com/allbin/go-rs232/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Connect to a serial port, send data and disconnect.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | rs232 send /dev/ttyUSB0
- Interactive mode: rs232 send /dev/ttyUSB0 (prompts for input)

Example usage:
  rs232 send "Hello World" /dev/ttyUSB0
  rs232 send "AT+GMR" /dev/ttyUSB0 --newline
  rs232 send 0206000300000099 MOCK --hex
  echo "test" | rs232 send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data string
		var portPath string

		// Parse arguments: either "send data port" or "send port"
		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		direct, _ := cmd.Flags().GetBool("direct")

		payload, err := buildPayload(data, hexMode, addNewline)
		if err != nil {
			return err
		}
		return sendData(portPath, payload, timeout, direct)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", 9600, "Baud rate")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "How long to wait for the send")
	sendCmd.Flags().Bool("direct", false, "Run port operations on the calling goroutine instead of the worker")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// buildPayload converts command line data into bytes. A newline is only
// appended to text payloads.
func buildPayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		b, err := components.ParseHex(data)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return b, nil
	}
	if addNewline {
		data += "\n"
	}
	return []byte(data), nil
}

func sendData(portPath string, data []byte, timeout time.Duration, direct bool) error {
	fmt.Printf("%s Opening %s...\n", styles.InfoStyle.Render("⚡"), portPath)

	dev, null, err := openDevice(portPath, direct)
	if err != nil {
		return fmt.Errorf("%s %w", styles.ErrorStyle.Render("✗"), err)
	}
	defer dev.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := dev.ConnectContext(ctx); err != nil {
		return fmt.Errorf("%s %w", styles.ErrorStyle.Render("✗"), err)
	}
	fmt.Printf("%s Connected successfully\n", styles.SuccessStyle.Render("✓"))

	fmt.Printf("%s Sending %d bytes...\n", styles.InfoStyle.Render("📤"), len(data))
	if err := dev.SendBytesContext(ctx, data); err != nil {
		return fmt.Errorf("%s failed to send data: %w", styles.ErrorStyle.Render("✗"), err)
	}
	fmt.Printf("%s Successfully sent %d bytes\n", styles.SuccessStyle.Render("✓"), len(data))
	fmt.Printf("%s Data: %s\n", styles.InfoStyle.Render("📋"), preview(data, 50))

	if null != nil {
		fmt.Printf("%s Null transport captured: % X\n", styles.InfoStyle.Render("🧪"), null.Written())
	}

	return dev.DisconnectContext(ctx)
}

// preview returns the first n bytes of data as printable text
func preview(data []byte, n int) string {
	if len(data) > n {
		return components.Printable(data[:n]) + "..."
	}
	return components.Printable(data)
}
