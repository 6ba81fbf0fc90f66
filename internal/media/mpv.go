package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/DexterLB/mpvipc"
)

var ErrPlayerClosed = errors.New("media: player closed")

// observe_property ids.
const (
	propTimePos int64 = iota + 1
	propPause
)

// MPV drives an mpv process over its JSON IPC socket.
type MPV struct {
	cmd    *exec.Cmd
	conn   *mpvipc.Connection
	sock   string
	logger *slog.Logger

	mu     sync.Mutex
	state  Status
	closed bool

	events chan *mpvipc.Event
	stop   chan struct{}
	status chan Status
	done   chan struct{}
}

type MPVOption func(*mpvConfig)

type mpvConfig struct {
	path   string
	logger *slog.Logger
	window bool
}

func WithMPVPath(path string) MPVOption {
	return func(c *mpvConfig) {
		if path != "" {
			c.path = path
		}
	}
}

func WithMPVLogger(l *slog.Logger) MPVOption {
	return func(c *mpvConfig) { c.logger = l }
}

// WithoutWindow runs mpv with no video output, for audio-only previews.
func WithoutWindow() MPVOption {
	return func(c *mpvConfig) { c.window = false }
}

// StartMPV launches an idle, paused mpv and connects to its IPC socket.
func StartMPV(ctx context.Context, opts ...MPVOption) (*MPV, error) {
	cfg := mpvConfig{path: "mpv", logger: slog.Default(), window: true}
	for _, o := range opts {
		o(&cfg)
	}

	sock := filepath.Join(os.TempDir(), fmt.Sprintf("snipscrub-mpv-%d.sock", os.Getpid()))
	_ = os.Remove(sock)

	args := []string{
		"--idle=yes",
		"--pause",
		"--keep-open=yes",
		"--no-terminal",
		"--input-ipc-server=" + sock,
	}
	if cfg.window {
		args = append(args, "--force-window=yes")
	} else {
		args = append(args, "--vo=null")
	}
	cmd := exec.Command(cfg.path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	m, err := attachMPV(ctx, cmd, sock, cfg.logger)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	return m, nil
}

// attachMPV connects to an mpv socket and starts observing playback.
// cmd may be nil when the process is not ours to reap.
func attachMPV(ctx context.Context, cmd *exec.Cmd, sock string, logger *slog.Logger) (*MPV, error) {
	conn, err := openSocket(ctx, sock)
	if err != nil {
		return nil, err
	}

	m := &MPV{
		cmd:    cmd,
		conn:   conn,
		sock:   sock,
		logger: logger,
		status: make(chan Status, 1),
		done:   make(chan struct{}),
	}
	m.events, m.stop = conn.NewEventListener()
	go func() {
		conn.WaitUntilClosed()
		close(m.done)
	}()
	go m.watch()

	for id, prop := range map[int64]string{propTimePos: "time-pos", propPause: "pause"} {
		if _, err := m.call(ctx, "observe_property", id, prop); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// openSocket retries until mpv has created its socket.
func openSocket(ctx context.Context, sock string) (*mpvipc.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		conn := mpvipc.NewConnection(sock)
		err := conn.Open()
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to mpv ipc socket: %w", err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// do runs a blocking mpvipc request and gives up when ctx ends or the
// connection drops.
func (m *MPV) do(ctx context.Context, fn func() (any, error)) (any, error) {
	type result struct {
		data any
		err  error
	}
	res := make(chan result, 1)
	go func() {
		data, err := fn()
		res <- result{data, err}
	}()
	select {
	case r := <-res:
		return r.data, r.err
	case <-m.done:
		return nil, ErrPlayerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MPV) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MPV) call(ctx context.Context, args ...any) (any, error) {
	if m.isClosed() {
		return nil, ErrPlayerClosed
	}
	data, err := m.do(ctx, func() (any, error) { return m.conn.Call(args...) })
	if err != nil && !errors.Is(err, ErrPlayerClosed) && !errors.Is(err, ctx.Err()) {
		return nil, fmt.Errorf("mpv %v: %w", args[0], err)
	}
	return data, err
}

func (m *MPV) set(ctx context.Context, prop string, value any) error {
	if m.isClosed() {
		return ErrPlayerClosed
	}
	_, err := m.do(ctx, func() (any, error) { return nil, m.conn.Set(prop, value) })
	return err
}

func (m *MPV) get(ctx context.Context, prop string) (any, error) {
	if m.isClosed() {
		return nil, ErrPlayerClosed
	}
	return m.do(ctx, func() (any, error) { return m.conn.Get(prop) })
}

func (m *MPV) watch() {
	defer close(m.status)
	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(ev)
		case <-m.done:
			return
		}
	}
}

func (m *MPV) handleEvent(ev *mpvipc.Event) {
	m.mu.Lock()
	switch {
	case ev.Name == "property-change" && ev.ID == propTimePos:
		if pos, ok := ev.Data.(float64); ok {
			m.state.Position = pos
		}
	case ev.Name == "property-change" && ev.ID == propPause:
		if paused, ok := ev.Data.(bool); ok {
			m.state.Playing = !paused
		}
	case ev.Name == "file-loaded":
		m.state.Loaded = true
	case ev.Name == "end-file":
		m.state.Loaded = false
	default:
		m.mu.Unlock()
		return
	}
	st := m.state
	m.mu.Unlock()
	sendLatest(m.status, st)
}

// sendLatest writes v to ch, dropping the older value when the buffer is
// full. It never blocks.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Load opens uri and waits until mpv reports its duration.
func (m *MPV) Load(ctx context.Context, uri string) (Metadata, error) {
	if _, err := m.call(ctx, "loadfile", uri, "replace"); err != nil {
		return Metadata{}, fmt.Errorf("failed to load %s: %w", uri, err)
	}
	for {
		if d, err := m.get(ctx, "duration"); err == nil {
			if secs, ok := d.(float64); ok && secs > 0 {
				return Metadata{Duration: secs}, nil
			}
		}
		select {
		case <-ctx.Done():
			return Metadata{}, fmt.Errorf("failed to read duration of %s: %w", uri, ctx.Err())
		case <-m.done:
			return Metadata{}, ErrPlayerClosed
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (m *MPV) Play(ctx context.Context) error { return m.set(ctx, "pause", false) }

func (m *MPV) Pause(ctx context.Context) error { return m.set(ctx, "pause", true) }

// Seek jumps to seconds. A tolerance of 100ms or more allows a keyframe
// seek, which is much cheaper while scrubbing.
func (m *MPV) Seek(ctx context.Context, seconds float64, tolerance time.Duration) error {
	_, err := m.call(ctx, "seek", seconds, seekMode(tolerance))
	return err
}

func seekMode(tolerance time.Duration) string {
	if tolerance >= ScrubTolerance {
		return "absolute+keyframes"
	}
	return "absolute+exact"
}

func (m *MPV) Status() <-chan Status { return m.status }

func (m *MPV) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	_, _ = m.do(ctx, func() (any, error) { return m.conn.Call("quit") })
	cancel()
	close(m.stop)
	_ = m.conn.Close()
	<-m.done

	if m.cmd != nil {
		waited := make(chan error, 1)
		go func() { waited <- m.cmd.Wait() }()
		select {
		case <-waited:
		case <-time.After(2 * time.Second):
			_ = m.cmd.Process.Kill()
			<-waited
		}
		_ = os.Remove(m.sock)
	}
	return nil
}
