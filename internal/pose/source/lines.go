package source

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// maxLineBytes bounds one encoded frame. A full 33-joint frame with
// visibility is a few kilobytes.
const maxLineBytes = 1 << 20

// scanLines reads newline-delimited records from r and calls handle for
// each non-blank one until r is exhausted, handle fails or ctx is done.
// The blocking read runs on its own goroutine so cancellation is not held
// up by a quiet device.
func scanLines(ctx context.Context, r io.Reader, handle func(line []byte) error) error {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineChan := make(chan []byte)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			line := bytes.TrimSpace(scan.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lineChan <- append([]byte(nil), line...):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			if err := handle(line); err != nil {
				return err
			}
		}
	}
}
