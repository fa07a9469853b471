package ferry

import (
	"context"
	"io"
)

// DefaultChunkSize is the buffer capacity requested from the source on each
// pull when no explicit chunk size is configured.
const DefaultChunkSize = 16_640

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StateIdle    StreamState = iota // Before the first pull.
	StatePulling                    // At least one pull issued, more expected.
	StateClosed                     // Source exhausted or stream cancelled.
	StateErrored                    // A pull failed; the error is sticky.
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePulling:
		return "pulling"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithChunkSize sets the buffer capacity requested per pull. Non-positive
// values leave the default in place.
func WithChunkSize(n int) StreamOption {
	return func(s *Stream) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithAutoClose controls whether the source is closed automatically on
// end-of-data and on cancellation. It defaults to true. A failed pull
// always closes the source, regardless of this setting.
func WithAutoClose(v bool) StreamOption {
	return func(s *Stream) { s.autoClose = v }
}

// WithHighWaterMark sets the buffering hint used as channel capacity by
// Chunks. The pull loop itself attaches no meaning to it.
func WithHighWaterMark(n int) StreamOption {
	return func(s *Stream) {
		if n > 0 {
			s.highWater = n
		}
	}
}

// Stream adapts a pull-based byte source into a demand-driven sequence of
// chunks. Each call to Next issues exactly one read against the source, so
// at most one read is ever in flight; the type is not safe for concurrent
// use and needs no locking by construction.
//
// The stream owns the source for its lifetime: when the source also
// implements io.Closer it is closed at most once, automatically on
// end-of-data or cancellation (unless auto-close is disabled) and
// unconditionally after a failed read.
type Stream struct {
	src       io.Reader
	chunkSize int
	autoClose bool
	highWater int

	state      StreamState
	err        error
	pendingEOF bool
	srcClosed  bool
}

// NewStream wraps src in a Stream. The zero configuration uses
// DefaultChunkSize chunks and closes the source automatically.
func NewStream(src io.Reader, opts ...StreamOption) *Stream {
	s := &Stream{
		src:       src,
		chunkSize: DefaultChunkSize,
		autoClose: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the stream's current state.
func (s *Stream) State() StreamState {
	return s.state
}

// Next pulls the next chunk from the source. It returns the filled prefix
// of a freshly allocated buffer, which the caller owns. A zero-length chunk
// with a nil error is valid and does not mean end-of-data.
//
// At end-of-data Next returns io.EOF after closing the source (when
// auto-close is enabled). A read failure is returned unmodified after a
// best-effort close of the source; close failures during that cleanup are
// discarded so they never mask the read error. Terminal results are sticky:
// once Next has returned io.EOF or an error, every later call returns the
// same value.
func (s *Stream) Next() ([]byte, error) {
	if s.state == StateClosed || s.state == StateErrored {
		return nil, s.err
	}

	if s.pendingEOF {
		s.finish()
		return nil, io.EOF
	}

	s.state = StatePulling
	buf := make([]byte, s.chunkSize)

	n, err := s.src.Read(buf)
	switch {
	case err == io.EOF:
		// A reader may deliver final bytes together with EOF; hand the
		// chunk out now and report end-of-data on the following pull.
		if n > 0 {
			s.pendingEOF = true
			return buf[:n], nil
		}
		s.finish()
		return nil, io.EOF
	case err != nil:
		s.closeSource()
		s.state = StateErrored
		s.err = err
		return nil, err
	}

	return buf[:n], nil
}

// Close cancels the stream. When auto-close is enabled the source is closed
// (once); any close failure is suppressed. Close is idempotent and a no-op
// after the stream has already reached a terminal state. Subsequent calls
// to Next return ErrStreamClosed.
func (s *Stream) Close() error {
	if s.state == StateClosed || s.state == StateErrored {
		return nil
	}
	if s.autoClose {
		s.closeSource()
	}
	s.state = StateClosed
	s.err = ErrStreamClosed
	return nil
}

func (s *Stream) finish() {
	if s.autoClose {
		s.closeSource()
	}
	s.state = StateClosed
	s.err = io.EOF
}

func (s *Stream) closeSource() {
	if s.srcClosed {
		return
	}
	s.srcClosed = true
	if c, ok := s.src.(io.Closer); ok {
		_ = c.Close()
	}
}

// Chunk is one element of the channel produced by Chunks: either a data
// chunk or the error that terminated the stream, never both.
type Chunk struct {
	Data []byte
	Err  error
}

// Chunks drives the stream from a goroutine and delivers chunks over a
// channel whose capacity is the configured high-water mark. The channel is
// closed at end-of-data or after an error element has been sent. Context
// cancellation is honored at the next pull boundary and closes the stream;
// a read already in progress settles first.
func (s *Stream) Chunks(ctx context.Context) <-chan Chunk {
	out := make(chan Chunk, s.highWater)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				_ = s.Close()
				return
			}

			data, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case out <- Chunk{Data: data}:
			case <-ctx.Done():
				_ = s.Close()
				return
			}
		}
	}()

	return out
}
