// internal/relay/relay.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config is the minimal runtime config the relay needs.
type Config struct {
	Listen string
	// Allow restricts peers; empty allows everyone.
	Allow []netip.Prefix
}

// Relay bridges one TCP session at a time to the serial port.
type Relay struct {
	cfg    Config
	open   PortOpener
	logger *zap.Logger

	active atomic.Bool
	wg     sync.WaitGroup

	mu  sync.Mutex
	end context.CancelFunc // cancels the live session, nil when idle
}

// New creates a relay with immutable config.
func New(cfg Config, open PortOpener, logger *zap.Logger) (*Relay, error) {
	if open == nil {
		return nil, errors.New("relay: port opener required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{cfg: cfg, open: open, logger: logger}, nil
}

// ParseAllow converts CIDR strings to prefixes.
func ParseAllow(cidrs []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("relay: allow %q: %w", c, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// Run listens on cfg.Listen and serves until ctx is done.
func (r *Relay) Run(ctx context.Context, out chan<- Event) error {
	ln, err := net.Listen("tcp", r.cfg.Listen)
	if err != nil {
		return fmt.Errorf("relay: listen %s: %w", r.cfg.Listen, err)
	}
	r.logger.Info("relay listening", zap.String("addr", ln.Addr().String()))
	return r.Serve(ctx, ln, out)
}

// Serve accepts connections on ln until ctx is done.
// Every accepted TCP connection produces an Attempt followed by exactly one
// Accepted or Rejected. Serve returns after all sessions have ended.
func (r *Relay) Serve(ctx context.Context, ln net.Listener, out chan<- Event) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer r.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("relay: accept: %w", err)
		}

		r.handle(ctx, conn, out)
	}
}

func (r *Relay) handle(ctx context.Context, conn net.Conn, out chan<- Event) {
	peer := conn.RemoteAddr().String()

	if !r.emit(ctx, out, Event{Kind: Attempt, Peer: peer}) {
		_ = conn.Close()
		return
	}

	if !r.allowed(conn.RemoteAddr()) {
		r.reject(ctx, conn, out, ReasonNotAllow, nil)
		return
	}

	// one session at a time
	if !r.active.CompareAndSwap(false, true) {
		r.reject(ctx, conn, out, ReasonBusy, nil)
		return
	}

	port, err := r.open()
	if err != nil {
		r.active.Store(false)
		r.reject(ctx, conn, out, ReasonPortError, err)
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.end = cancel
	r.mu.Unlock()

	r.logger.Info("session started", zap.String("peer", peer))
	r.emit(ctx, out, Event{Kind: Accepted, Peer: peer})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		err := pipe(sctx, conn, port)
		r.mu.Lock()
		r.end = nil
		r.mu.Unlock()
		cancel()
		r.logger.Info("session ended", zap.String("peer", peer), zap.Error(err))

		// SessionEnded is queued before the next session can be accepted.
		r.emit(ctx, out, Event{Kind: SessionEnded, Peer: peer, Err: err})
		r.active.Store(false)
	}()
}

func (r *Relay) reject(ctx context.Context, conn net.Conn, out chan<- Event, reason Reason, err error) {
	peer := conn.RemoteAddr().String()
	_ = conn.Close()

	r.logger.Info("connection rejected",
		zap.String("peer", peer),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	r.emit(ctx, out, Event{Kind: Rejected, Peer: peer, Reason: reason, Err: err})
}

// emit delivers ev unless ctx is done first.
func (r *Relay) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	ev.At = time.Now()
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Relay) allowed(addr net.Addr) bool {
	if len(r.cfg.Allow) == 0 {
		return true
	}

	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return false
	}
	ip := ap.Addr().Unmap()

	for _, p := range r.cfg.Allow {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Active reports whether a session currently owns the serial port.
func (r *Relay) Active() bool {
	return r.active.Load()
}

// EndSession closes the live session, if any. SessionEnded follows on the
// event channel once both endpoints are closed.
func (r *Relay) EndSession() bool {
	r.mu.Lock()
	end := r.end
	r.mu.Unlock()

	if end == nil {
		return false
	}
	r.logger.Info("ending session on request")
	end()
	return true
}

// ------------------------------------------------------------
// SESSION PIPE
// ------------------------------------------------------------

// pipe copies bytes both ways until either side closes or ctx is done.
// Both endpoints are closed on return.
func pipe(ctx context.Context, conn net.Conn, port io.ReadWriteCloser) error {
	done := make(chan struct{})
	errc := make(chan error, 2)

	go func() {
		_, err := io.Copy(port, conn)
		errc <- err
	}()
	go func() {
		errc <- copySerial(done, conn, port)
	}()

	var first error
	pending := 2
	select {
	case first = <-errc:
		pending--
	case <-ctx.Done():
	}

	close(done)
	_ = conn.Close()
	_ = port.Close()

	for ; pending > 0; pending-- {
		<-errc
	}

	if first != nil && !errors.Is(first, net.ErrClosed) && !errors.Is(first, io.EOF) {
		return first
	}
	return nil
}

// copySerial copies port -> dst. Read timeouts are idle periods, not errors.
func copySerial(done <-chan struct{}, dst io.Writer, port io.Reader) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-done:
			return nil
		default:
		}

		n, err := port.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if isReadTimeout(err) {
				continue
			}
			return err
		}
	}
}
