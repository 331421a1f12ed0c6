package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/reps.report/internal/monitoring"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/timeutil"
)

// ReaderOptions configures a ReaderSource.
type ReaderOptions struct {
	// Clock stamps frames without a timestamp and paces replay.
	Clock timeutil.Clock

	// Realtime replays frames at the spacing of their timestamps instead
	// of as fast as they can be read.
	Realtime bool
}

// ReaderSource streams frames encoded one JSON object per line.
type ReaderSource struct {
	open func() (io.ReadCloser, error)
	opts ReaderOptions

	mu  sync.Mutex
	rc  io.ReadCloser
	bad atomic.Uint64
}

// NewReaderSource reads from r. r is closed by Close when it implements
// io.Closer.
func NewReaderSource(r io.Reader, opts ReaderOptions) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		if rc, ok := r.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(r), nil
	}, opts)
}

// NewFileSource reads a recorded session from path, opened by Open.
func NewFileSource(path string, opts ReaderOptions) *ReaderSource {
	return newReaderSource(func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open frame file: %w", err)
		}
		return f, nil
	}, opts)
}

func newReaderSource(open func() (io.ReadCloser, error), opts ReaderOptions) *ReaderSource {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &ReaderSource{open: open, opts: opts}
}

// Open acquires the underlying reader.
func (s *ReaderSource) Open(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc != nil {
		return errors.New("frame source already open")
	}
	rc, err := s.open()
	if err != nil {
		return err
	}
	s.rc = rc
	return nil
}

// Stream decodes frames and hands them to push until the reader is
// exhausted or ctx is cancelled.
func (s *ReaderSource) Stream(ctx context.Context, push func(*l1landmarks.Frame)) error {
	s.mu.Lock()
	rc := s.rc
	s.mu.Unlock()
	if rc == nil {
		return errors.New("frame source not open")
	}

	var prev time.Time
	return scanLines(ctx, rc, func(line []byte) error {
		f, err := l1landmarks.ParseFrame(line, s.opts.Clock.Now())
		if err != nil {
			s.bad.Add(1)
			monitoring.Logf("skipping undecodable frame: %v", err)
			return nil
		}
		if s.opts.Realtime {
			if !prev.IsZero() {
				if gap := f.Timestamp.Sub(prev); gap > 0 {
					s.opts.Clock.Sleep(gap)
				}
			}
			prev = f.Timestamp
		}
		push(f)
		return nil
	})
}

// Malformed counts lines that could not be decoded.
func (s *ReaderSource) Malformed() uint64 { return s.bad.Load() }

// Close releases the reader. It is safe to call more than once.
func (s *ReaderSource) Close() error {
	s.mu.Lock()
	rc := s.rc
	s.rc = nil
	s.mu.Unlock()
	if rc == nil {
		return nil
	}
	return rc.Close()
}
