package contentrepo

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Requester is an interface fulfilled by a wider protocol client that
// provides generic authenticated request machinery. Implementations own
// authentication, retries and HTTP status policing, and return the response
// body of a successful call; their errors come back through the upload's
// settlement untouched. Using this interface keeps the upload client
// pluggable into such a stack without a dependency loop.
type Requester interface {
	AuthedRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, opts RequestOpts) ([]byte, error)
}

// RequestOpts carries the per-request extras handed to a Requester.
type RequestOpts struct {
	// Prefix replaces the collaborator's default URL prefix, here the
	// media prefix.
	Prefix string

	// Headers are set on the outgoing request.
	Headers http.Header
}

// delegatedTransport hands the upload to the configured Requester. Progress
// is coarse in this mode: a single tick once the delegate returns. The stall
// watchdog stays unarmed, as the delegate runs its own deadline and retry
// policy and a silent wire is expected.
type delegatedTransport struct {
	c *Client
}

func (d *delegatedTransport) fineGrained() bool { return false }

func (d *delegatedTransport) send(ctx context.Context, req *uploadRequest, ticks chan<- progressTick) ([]byte, error) {
	q := url.Values{}
	if req.filename != "" {
		q.Set("filename", req.filename)
	}
	h := make(http.Header)
	h.Set("Content-Type", req.contentType)

	raw, err := d.c.requester.AuthedRequest(ctx, http.MethodPost, "/upload", q, req.body, RequestOpts{
		Prefix:  d.c.prefix,
		Headers: h,
	})
	if err != nil {
		// the delegate's classification is authoritative
		return nil, err
	}

	if req.total > 0 {
		select {
		case ticks <- progressTick{loaded: req.total, total: req.total}:
		case <-ctx.Done():
		}
	}
	return raw, nil
}
