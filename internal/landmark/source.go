package landmark

import "errors"

// ErrSourceClosed is returned by Next once a source has been closed.
var ErrSourceClosed = errors.New("landmark source closed")

// Source defines the interface for hand frame producers. A source delivers
// one FrameSet per capture tick; a set may carry zero, one, or two hands.
type Source interface {
	// Next blocks until the next frame set is available.
	// Returns ErrSourceClosed once the source is exhausted.
	Next() (*FrameSet, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for frame sources.
type Config struct {
	// MaxHands is the maximum number of hands per frame set (default: 2).
	MaxHands int

	// MinScore is the minimum detection confidence; hands below it are dropped.
	MinScore float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands: 2,
		MinScore: 0.5,
	}
}

// ChanSource adapts a channel of frame sets (e.g. a websocket ingress) to the
// Source interface.
type ChanSource struct {
	ch     chan *FrameSet
	closed chan struct{}
}

// NewChanSource creates a ChanSource with the given buffer depth.
func NewChanSource(buffer int) *ChanSource {
	return &ChanSource{
		ch:     make(chan *FrameSet, buffer),
		closed: make(chan struct{}),
	}
}

// Push offers a frame set to the source. Returns false if the source is
// closed or the buffer is full (the frame is dropped, never blocks).
func (s *ChanSource) Push(fs *FrameSet) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.ch <- fs:
		return true
	default:
		return false
	}
}

// Next blocks until a frame set is pushed or the source is closed.
func (s *ChanSource) Next() (*FrameSet, error) {
	select {
	case fs := <-s.ch:
		return fs, nil
	case <-s.closed:
		return nil, ErrSourceClosed
	}
}

// Close shuts down the source. Safe to call once.
func (s *ChanSource) Close() error {
	close(s.closed)
	return nil
}

// MockSource is a test implementation of the Source interface.
// It allows tests to script the frame sets delivered to the pipeline.
type MockSource struct {
	frames []*FrameSet
	err    error
	pos    int
}

// NewMockSource creates a new MockSource instance.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetFrames sets the frame sets that will be returned by Next, in order.
func (m *MockSource) SetFrames(frames []*FrameSet) {
	m.frames = frames
	m.pos = 0
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.err = err
}

// Next returns the next scripted frame set, or ErrSourceClosed when exhausted.
func (m *MockSource) Next() (*FrameSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.pos >= len(m.frames) {
		return nil, ErrSourceClosed
	}
	fs := m.frames[m.pos]
	m.pos++
	return fs, nil
}

// Close is a no-op for the mock source.
func (m *MockSource) Close() error {
	return nil
}
