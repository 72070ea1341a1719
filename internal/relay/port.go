// internal/relay/port.go
package relay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// PortOpener opens the serial port for one session.
// ONE attempt per call; the caller owns the returned port.
type PortOpener func() (io.ReadWriteCloser, error)

// SerialConfig is the minimal serial line config.
type SerialConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// SerialOpener returns an opener for a real serial device.
func SerialOpener(cfg SerialConfig) (PortOpener, error) {
	if cfg.Address == "" {
		return nil, errors.New("relay: serial address required")
	}

	sc := &serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	}

	return func() (io.ReadWriteCloser, error) {
		p, err := serial.Open(sc)
		if err != nil {
			return nil, fmt.Errorf("relay: open %s: %w", sc.Address, err)
		}
		return p, nil
	}, nil
}

// isReadTimeout reports whether err is an idle serial read, not a failure.
func isReadTimeout(err error) bool {
	if errors.Is(err, serial.ErrTimeout) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
