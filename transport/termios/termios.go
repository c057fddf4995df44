//go:build linux

// Package termios is a Linux serial driver that talks to the tty layer
// directly through golang.org/x/sys/unix. It registers itself as "termios".
package termios

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/allbin/go-rs232/transport"
)

// Name is the registry name of this driver
const Name = "termios"

func init() {
	transport.Register(Name, func() transport.Transport { return New() })
}

// Transport opens /dev tty devices in raw 8N1 mode
type Transport struct {
	// DevDir is the directory scanned by List
	DevDir string
	// ReadTimeoutTenths is VTIME, the read timeout in tenths of a second
	ReadTimeoutTenths uint8
}

// Ensure Transport implements transport.Transport at compile time
var _ transport.Transport = (*Transport)(nil)

// New returns the driver scanning /dev with a 100ms read timeout
func New() *Transport {
	return &Transport{
		DevDir:            "/dev",
		ReadTimeoutTenths: 1,
	}
}

// Init checks that the device directory is readable
func (t *Transport) Init() error {
	info, err := os.Stat(t.DevDir)
	if err != nil {
		return fmt.Errorf("termios: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("termios: %s is not a directory", t.DevDir)
	}
	return nil
}

var (
	// communication-capable tty families
	portPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
		regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
		regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
		regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
		regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
		regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
		regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	}
)

// List returns the sorted character devices in DevDir that look like serial
// ports. Virtual terminals and ptys never match.
func (t *Transport) List() ([]string, error) {
	entries, err := os.ReadDir(t.DevDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		if !isSerialName(entry.Name()) {
			continue
		}
		full := filepath.Join(t.DevDir, entry.Name())
		if isCharacterDevice(full) {
			ports = append(ports, full)
		}
	}
	sort.Strings(ports)
	return ports, nil
}

func isSerialName(name string) bool {
	for _, p := range portPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Open opens name and configures it for raw 8N1 at baud
func (t *Transport) Open(name string, baud int) (transport.Handle, error) {
	speed, err := baudConstant(baud)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", transport.ErrPortOpen, name, err)
	}

	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		switch err {
		case unix.ENOENT, unix.ENODEV, unix.ENXIO, unix.EBUSY, unix.EACCES:
			return nil, fmt.Errorf("%w: %q: %v", transport.ErrPortUnavailable, name, err)
		}
		return nil, fmt.Errorf("%w: %q: %v", transport.ErrPortOpen, name, err)
	}

	if err := configure(fd, speed, t.ReadTimeoutTenths); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %q: %v", transport.ErrPortOpen, name, err)
	}

	return &handle{fd: fd}, nil
}

// configure puts fd into raw mode: 8 data bits, no parity, one stop bit,
// no flow control, VMIN=0 and VTIME=timeout
func configure(fd int, speed uint32, timeout uint8) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %v", err)
	}

	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = timeout

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %v", err)
	}
	return nil
}

// baudConstant converts an integer baud rate to the termios speed constant
func baudConstant(rate int) (uint32, error) {
	speed, ok := baudRates[rate]
	if !ok {
		return 0, fmt.Errorf("unsupported baud rate %d", rate)
	}
	return speed, nil
}

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// handle is an open tty. It is confined to one goroutine by its owner.
type handle struct {
	fd     int
	closed bool
}

func (h *handle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, transport.ErrPortClosed
	}
	n, err := unix.Read(h.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (h *handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, transport.ErrPortClosed
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(h.fd, p[written:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Flush waits until all output written to the port has been transmitted
func (h *handle) Flush() error {
	if h.closed {
		return transport.ErrPortClosed
	}
	return unix.IoctlSetInt(h.fd, unix.TCSBRK, 1)
}

func (h *handle) Close() error {
	if h.closed {
		return transport.ErrPortClosed
	}
	h.closed = true
	return unix.Close(h.fd)
}
