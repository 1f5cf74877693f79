package contentrepo

import (
	"context"
	"io"
)

// ProgressFunc is a callback function for upload progress updates.
// It receives the number of bytes handed to the transport so far, and the
// payload total or 0 when the total is unknown. It is called from the
// upload's supervising goroutine, with loaded never decreasing.
type ProgressFunc func(loaded, total int64)

// progressTick is one progress event emitted by the streaming transport.
type progressTick struct {
	loaded int64
	total  int64
}

// progressReader wraps the payload and emits a tick for every chunk the
// transport consumes. Sends give up once ctx ends so a settled upload never
// wedges the transfer goroutine.
type progressReader struct {
	reader io.Reader
	ctx    context.Context
	ticks  chan<- progressTick
	loaded int64
	total  int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.loaded += int64(n)
		select {
		case pr.ticks <- progressTick{loaded: pr.loaded, total: pr.total}:
		case <-pr.ctx.Done():
		}
	}
	return n, err
}
