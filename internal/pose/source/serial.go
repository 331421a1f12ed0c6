package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

// ErrWriteFailed is returned when a command is only partly written.
var ErrWriteFailed = errors.New("failed to write to serial port")

// PortOptions describes the serial connection to a pose board. The JSON
// names match the "serial" block of the server configuration.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalise validates the options and fills in defaults for unset values.
func (o PortOptions) Normalise() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial opens
// ports with.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalise()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// Port is the part of a serial port a SerialSource uses.
type Port interface {
	io.ReadWriteCloser
}

// PortOpener opens the device at path. Tests substitute an in-memory port.
type PortOpener func(path string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real serial device.
func OpenSerialPort(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// SerialConfig configures a SerialSource.
type SerialConfig struct {
	Path    string
	Options PortOptions

	// StartCommands are written, one per line, once the port is open.
	StartCommands []string

	// Opener defaults to OpenSerialPort.
	Opener PortOpener

	// Clock stamps frames that arrive without a timestamp.
	Clock timeutil.Clock
}

// SerialSource streams frames from a board that writes one JSON frame per
// line.
type SerialSource struct {
	cfg SerialConfig

	mu        sync.Mutex
	port      Port
	commandMu sync.Mutex
}

// NewSerialSource validates cfg without touching the device.
func NewSerialSource(cfg SerialConfig) (*SerialSource, error) {
	if cfg.Path == "" {
		return nil, errors.New("serial source requires a device path")
	}
	if _, err := cfg.Options.Normalise(); err != nil {
		return nil, err
	}
	if cfg.Opener == nil {
		cfg.Opener = OpenSerialPort
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &SerialSource{cfg: cfg}, nil
}

// Open opens the port and sends the start commands.
func (s *SerialSource) Open(context.Context) error {
	mode, err := s.cfg.Options.SerialMode()
	if err != nil {
		return err
	}
	port, err := s.cfg.Opener(s.cfg.Path, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.cfg.Path, err)
	}
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
	monitoring.Logf("opened serial frame source %s at %d baud", s.cfg.Path, mode.BaudRate)

	for _, cmd := range s.cfg.StartCommands {
		if err := s.SendCommand(cmd); err != nil {
			s.Close()
			return fmt.Errorf("failed to send start command %q: %w", cmd, err)
		}
	}
	return nil
}

// SendCommand writes one newline-terminated command to the board.
func (s *SerialSource) SendCommand(command string) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return errors.New("serial port not open")
	}

	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Stream reads frames until the port closes or ctx is cancelled.
func (s *SerialSource) Stream(ctx context.Context, push func(*l1landmarks.Frame)) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return errors.New("serial port not open")
	}
	return scanLines(ctx, port, func(line []byte) error {
		f, err := l1landmarks.ParseFrame(line, s.cfg.Clock.Now())
		if err != nil {
			// boards print boot banners and diagnostics on the same line
			monitoring.Tracef("serial: ignoring line %q: %v", truncate(line, 80), err)
			return nil
		}
		push(f)
		return nil
	})
}

// Close closes the port. It is safe to call more than once.
func (s *SerialSource) Close() error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
