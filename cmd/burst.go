/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/allbin/go-rs232"
	"github.com/allbin/go-rs232/internal/tui/styles"
)

const (
	frameMarker = 0xAA
	frameSize   = 4
)

// burstCmd represents the burst command
var burstCmd = &cobra.Command{
	Use:   "burst [port]",
	Short: "Send from many goroutines at once through one device",
	Long: `Start several goroutines that all send numbered frames through the same
device and report how long it took.

Each frame is four bytes: 0xAA, the sender number and a big-endian sequence
number. On the MOCK port the captured output is checked afterwards: every
frame must be intact and each sender's frames must appear in the order they
were sent.

Example usage:
  rs232 burst MOCK --workers 8 --count 500
  rs232 burst /dev/ttyUSB0 --direct`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath, err := portArg(args, 0)
		if err != nil {
			return err
		}
		workers, _ := cmd.Flags().GetInt("workers")
		count, _ := cmd.Flags().GetInt("count")
		direct, _ := cmd.Flags().GetBool("direct")
		if workers < 1 || workers > 255 {
			return fmt.Errorf("workers must be between 1 and 255")
		}
		if count < 1 || count > 0xFFFF {
			return fmt.Errorf("count must be between 1 and 65535")
		}

		dev, null, err := openDevice(portPath, direct)
		if err != nil {
			return err
		}
		defer dev.Close()

		if err := dev.Connect(); err != nil {
			return err
		}

		mode := "affinity"
		if !dev.Affinity() {
			mode = "direct"
		}
		fmt.Printf("%s %d senders x %d frames on %s (%s)\n",
			styles.InfoStyle.Render("⚡"), workers, count, portPath, mode)

		elapsed, sent, err := runBurst(dev, workers, count)
		if err != nil {
			fmt.Printf("%s %d frames sent, errors:\n%v\n", styles.ErrorStyle.Render("✗"), sent, err)
			return fmt.Errorf("burst failed")
		}

		rate := float64(sent) / elapsed.Seconds()
		fmt.Printf("%s %d frames in %s (%.0f frames/s)\n",
			styles.SuccessStyle.Render("✓"), sent, elapsed.Round(time.Millisecond), rate)

		if st, err := dev.Status(); err == nil && st.Affinity {
			fmt.Printf("%s worker: submitted=%d executed=%d failed=%d\n",
				styles.InfoStyle.Render("📋"), st.Worker.Submitted, st.Worker.Executed, st.Worker.Failed)
		}

		if null != nil {
			if err := verifyFrames(null.Written(), workers, count); err != nil {
				fmt.Printf("%s verification failed:\n%v\n", styles.ErrorStyle.Render("✗"), err)
				return fmt.Errorf("burst verification failed")
			}
			fmt.Printf("%s all frames intact and in order\n", styles.SuccessStyle.Render("✓"))
		}

		return dev.Disconnect()
	},
}

func init() {
	rootCmd.AddCommand(burstCmd)

	burstCmd.Flags().IntP("baud", "b", 9600, "Baud rate")
	burstCmd.Flags().IntP("workers", "w", 4, "Number of concurrent senders")
	burstCmd.Flags().IntP("count", "c", 100, "Frames per sender")
	burstCmd.Flags().Bool("direct", false, "Run port operations on the calling goroutine instead of the worker")
}

func frame(sender, seq int) []byte {
	return []byte{frameMarker, byte(sender), byte(seq >> 8), byte(seq)}
}

// runBurst sends count frames from each of workers goroutines and collects
// every error
func runBurst(dev *rs232.Device, workers, count int) (time.Duration, uint64, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
		sent atomic.Uint64
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(sender int) {
			defer wg.Done()
			for seq := 0; seq < count; seq++ {
				if err := dev.SendBytes(frame(sender, seq)); err != nil {
					logger.Warn("send failed", zap.Int("sender", sender), zap.Int("seq", seq), zap.Error(err))
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("sender %d frame %d: %w", sender, seq, err))
					mu.Unlock()
					return
				}
				sent.Inc()
			}
		}(w)
	}
	wg.Wait()
	return time.Since(start), sent.Load(), errs
}

// verifyFrames checks captured output: every frame must be whole and each
// sender's sequence numbers must appear in order without gaps
func verifyFrames(data []byte, workers, count int) error {
	var errs error
	if want := workers * count * frameSize; len(data) != want {
		errs = multierr.Append(errs, fmt.Errorf("captured %d bytes, want %d", len(data), want))
	}

	next := make([]int, workers)
	for off := 0; off+frameSize <= len(data); off += frameSize {
		f := data[off : off+frameSize]
		if f[0] != frameMarker {
			errs = multierr.Append(errs, fmt.Errorf("offset %d: bad marker %#02x", off, f[0]))
			continue
		}
		sender := int(f[1])
		if sender >= workers {
			errs = multierr.Append(errs, fmt.Errorf("offset %d: unknown sender %d", off, sender))
			continue
		}
		seq := int(f[2])<<8 | int(f[3])
		if seq != next[sender] {
			errs = multierr.Append(errs, fmt.Errorf("offset %d: sender %d sent frame %d, want %d", off, sender, seq, next[sender]))
		}
		next[sender] = seq + 1
	}
	return errs
}
