package contentrepo

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// transport is one way of moving a payload to the repository. The streaming
// transport drives the HTTP client directly with per-chunk progress; the
// delegated transport hands the request to an external collaborator.
type transport interface {
	// send transmits the payload and returns the body of a successful
	// response. Errors come back already classified, except delegate
	// errors which are forwarded untouched.
	send(ctx context.Context, req *uploadRequest, ticks chan<- progressTick) ([]byte, error)

	// fineGrained reports whether send emits per-chunk ticks, which is
	// what decides if the stall watchdog gets armed.
	fineGrained() bool
}

// strategy picks the transport for a new upload: the configured delegate
// when there is one, the built-in streaming transport otherwise. The choice
// is made once per upload, never mid-flight.
func (c *Client) strategy() transport {
	if c.requester != nil {
		return &delegatedTransport{c: c}
	}
	return &streamTransport{c: c}
}

// streamTransport POSTs the payload to the repository's upload endpoint over
// the client's http.Client, wrapping the payload so every consumed chunk
// becomes a progress tick.
type streamTransport struct {
	c *Client
}

func (s *streamTransport) fineGrained() bool { return true }

func (s *streamTransport) send(ctx context.Context, req *uploadRequest, ticks chan<- progressTick) ([]byte, error) {
	body := &progressReader{reader: req.body, ctx: ctx, ticks: ticks, total: req.total}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.uploadURL(req.filename), body)
	if err != nil {
		return nil, &ConnectionError{e: err}
	}
	if req.total > 0 {
		// the wrapper hides the payload's length from net/http
		r.ContentLength = req.total
	}
	r.Header.Set("Content-Type", req.contentType)
	if !s.c.tokenInQuery && s.c.token != "" {
		r.Header.Set("Authorization", "Bearer "+s.c.token)
	}

	resp, err := s.c.http.Do(r)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if len(raw) == 0 {
		return nil, &ProtocolError{Msg: "no response body"}
	}
	if resp.StatusCode >= 400 {
		return nil, classifyResponse(ctx, resp.StatusCode, raw)
	}
	return raw, nil
}

// uploadURL builds the upload endpoint URL with the optional percent-encoded
// filename and, in compatibility mode, the access_token query parameter.
func (c *Client) uploadURL(filename string) string {
	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}
	if c.tokenInQuery && c.token != "" {
		q.Set("access_token", c.token)
	}

	target := c.base + c.prefix + "/upload"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}
