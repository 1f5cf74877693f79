package contentrepo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/KarpelesLab/pjson"
	"github.com/google/uuid"
)

// Upload tracks one in-flight transfer and doubles as its completion future:
// Wait blocks for settlement, Done exposes the settlement signal. Handles
// are created by UploadContent and stay valid after settlement.
type Upload struct {
	id    uint64
	trace string // correlates this upload's log lines

	lk     sync.Mutex
	loaded int64
	total  int64

	ctx       context.Context // governs the transfer
	cancel    context.CancelFunc
	abortOnce sync.Once
	abortErr  error         // reason recorded by the first abort
	abortSig  chan struct{} // closed once an abort was requested

	done chan struct{} // closed at settlement
	resp *UploadResponse
	err  error
}

// uploadRequest carries one upload's normalized inputs between the
// coordinator, the supervising goroutine and the transport.
type uploadRequest struct {
	up          *Upload
	body        io.Reader
	filename    string
	contentType string
	total       int64
	format      ResultFormat
	progress    ProgressFunc
}

// ID returns the identifier the registry assigned to this upload.
func (u *Upload) ID() uint64 {
	return u.id
}

// Progress returns the bytes handed to the transport so far and the payload
// total. A total of 0 means the size is not known, not that the payload is
// empty. Both values stay readable after settlement.
func (u *Upload) Progress() (loaded, total int64) {
	u.lk.Lock()
	defer u.lk.Unlock()
	return u.loaded, u.total
}

func (u *Upload) setProgress(loaded, total int64) {
	u.lk.Lock()
	u.loaded, u.total = loaded, total
	u.lk.Unlock()
}

// Done is closed once the upload settles, through exactly one of: success, a
// classified failure, or an abort.
func (u *Upload) Done() <-chan struct{} {
	return u.done
}

// Wait blocks until the upload settles or ctx ends. Once settled it returns
// the terminal result; calling it again returns the same values.
func (u *Upload) Wait(ctx context.Context) (*UploadResponse, error) {
	select {
	case <-u.done:
		return u.resp, u.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MarshalJSON exposes the handle's progress counters, for surfaces that
// render the current uploads.
func (u *Upload) MarshalJSON() ([]byte, error) {
	loaded, total := u.Progress()
	return pjson.Marshal(struct {
		ID     uint64 `json:"id"`
		Loaded int64  `json:"loaded"`
		Total  int64  `json:"total"`
	}{u.id, loaded, total})
}

// abort requests cancellation with the given reason. The first reason wins,
// later calls are no-ops. Settlement follows from the supervising goroutine.
func (u *Upload) abort(reason error) {
	u.abortOnce.Do(func() {
		u.abortErr = reason
		close(u.abortSig)
		u.cancel()
	})
}

// abortReason returns the recorded abort reason, or plain ErrAborted when
// the transfer context ended without one (the caller's context was
// cancelled directly).
func (u *Upload) abortReason() error {
	select {
	case <-u.abortSig:
		return u.abortErr
	default:
		return ErrAborted
	}
}

// UploadContent transmits a payload to the repository's upload endpoint. The
// returned handle is registered before any payload or network activity
// starts, so CurrentUploads sees it and CancelUpload can target it right
// away; the transfer itself runs asynchronously. Collect the outcome through
// Wait or Done.
//
// Parameters:
// - ctx: governs the transfer; cancelling it aborts the upload
// - body: payload bytes; *os.File and friends also supply a filename
// - opts: per-upload settings, nil for defaults
func (c *Client) UploadContent(ctx context.Context, body io.Reader, opts *UploadOpts) *Upload {
	if opts == nil {
		opts = &UploadOpts{}
	}
	if body == nil {
		body = bytes.NewReader(nil)
	}

	var filename string
	if !opts.OmitFilename {
		filename = resolveName(opts, body)
	}
	format := opts.Format
	if format == FormatDefault {
		format = c.format
	}

	upCtx, cancel := context.WithCancel(ctx)
	up := &Upload{
		trace:    uuid.New().String(),
		ctx:      upCtx,
		cancel:   cancel,
		abortSig: make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.uploads.add(up)

	go c.run(&uploadRequest{
		up:          up,
		body:        body,
		filename:    filename,
		contentType: opts.ContentType,
		format:      format,
		progress:    opts.Progress,
	})
	return up
}

// UploadWriterTo uploads a payload that writes itself, streaming wt's output
// through a pipe. Useful for content generated on the fly, where no size is
// known up front.
func (c *Client) UploadWriterTo(ctx context.Context, wt io.WriterTo, opts *UploadOpts) *Upload {
	reader, writer := io.Pipe()
	go func() {
		_, err := wt.WriteTo(writer)
		writer.CloseWithError(err)
	}()

	up := c.UploadContent(ctx, reader, opts)
	go func() {
		// unblock the writer if the upload ends early
		<-up.Done()
		reader.Close()
	}()
	return up
}

// run supervises a single upload: it starts the selected transport in its
// own goroutine, fans progress ticks out to the handle, the caller's
// callback and the stall watchdog, and performs the one and only settlement,
// removing the handle from the registry on every path.
func (c *Client) run(req *uploadRequest) {
	up := req.up
	t := time.Now()

	if Debug {
		slog.DebugContext(up.ctx, fmt.Sprintf("[contentrepo] upload #%d starting", up.id), "event", "upload:start", "upload:trace", up.trace)
	}

	settle := func(resp *UploadResponse, err error) {
		up.resp, up.err = resp, err
		c.uploads.drop(up)
		close(up.done)
		up.cancel()

		if Debug {
			if err != nil {
				slog.ErrorContext(up.ctx, fmt.Sprintf("[contentrepo] upload #%d failed: %s", up.id, err), "event", "upload:fail", "upload:trace", up.trace)
			} else {
				d := time.Since(t)
				slog.DebugContext(up.ctx, fmt.Sprintf("[contentrepo] upload #%d done in %s", up.id, d), "event", "upload:done", "upload:trace", up.trace, "upload:duration", d)
			}
		}
	}

	strat := c.strategy()
	ticks := make(chan progressTick)
	res := make(chan transportResult, 1)

	// the delegate owns its own deadline policy, so only fine-grained
	// transports get a watchdog; a nil channel never fires
	var wd *watchdog
	var expire <-chan time.Time
	if strat.fineGrained() {
		wd = newWatchdog(c.timeout)
		defer wd.Stop()
		expire = wd.C
	}

	go c.transfer(strat, req, ticks, res)

	for {
		// an abort beats whatever else is ready
		select {
		case <-up.ctx.Done():
			settle(nil, up.abortReason())
			return
		default:
		}

		select {
		case <-up.ctx.Done():
			settle(nil, up.abortReason())
			return
		case tick := <-ticks:
			up.setProgress(tick.loaded, tick.total)
			if wd != nil {
				wd.Renew()
			}
			if req.progress != nil {
				req.progress(tick.loaded, tick.total)
			}
		case <-expire:
			up.abort(ErrUploadStalled)
			settle(nil, ErrUploadStalled)
			return
		case r := <-res:
			if r.err != nil {
				settle(nil, r.err)
				return
			}
			resp, err := buildResponse(up.ctx, r.body, req.format)
			settle(resp, err)
			return
		}
	}
}

type transportResult struct {
	body []byte
	err  error
}

// transfer resolves the payload and drives the transport, reporting back on
// res. Payload probing happens here rather than in UploadContent so a reader
// that blocks cannot delay registration or cancellation.
func (c *Client) transfer(strat transport, req *uploadRequest, ticks chan<- progressTick, res chan<- transportResult) {
	body, contentType, total := resolvePayload(req.body, req.contentType)
	req.body, req.contentType, req.total = body, contentType, total
	req.up.setProgress(0, total)

	raw, err := strat.send(req.up.ctx, req, ticks)
	res <- transportResult{body: raw, err: err}
}
