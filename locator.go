package contentrepo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ContentLocator is a deferred reference to a repository endpoint: base URL,
// path and query parameters, kept apart so callers can rebuild or sign the
// request themselves. It is not a capability; fetching it still requires
// whatever credential sits in Params.
type ContentLocator struct {
	Base   string
	Path   string
	Params url.Values
}

// URL assembles the locator into a full URL string.
func (l ContentLocator) URL() string {
	u := l.Base + l.Path
	if len(l.Params) > 0 {
		u += "?" + l.Params.Encode()
	}
	return u
}

// ContentURI returns the locator of the repository's upload endpoint. The
// credential is always exposed under the access_token query key here,
// regardless of how the client itself transmits it, as callers driving their
// own transfer have no access to the client's header handling.
func (c *Client) ContentURI() ContentLocator {
	return ContentLocator{
		Base:   c.base,
		Path:   c.prefix + "/upload",
		Params: url.Values{"access_token": []string{c.token}},
	}
}

// MXC is a parsed mxc:// content URI, the form the repository hands back
// after an upload.
type MXC struct {
	ServerName string
	MediaID    string
}

func (m MXC) String() string {
	return "mxc://" + m.ServerName + "/" + m.MediaID
}

// ParseMXC validates and splits an mxc://server/mediaid content URI.
func ParseMXC(s string) (MXC, error) {
	rest, ok := strings.CutPrefix(s, "mxc://")
	if !ok {
		return MXC{}, fmt.Errorf("not an mxc URI: %q", s)
	}
	server, media, ok := strings.Cut(rest, "/")
	if !ok || server == "" || media == "" {
		return MXC{}, fmt.Errorf("malformed mxc URI: %q", s)
	}
	return MXC{ServerName: server, MediaID: media}, nil
}

// ThumbnailOpts requests a server-side thumbnail instead of the full
// content.
type ThumbnailOpts struct {
	Width  int
	Height int
	Method string // "crop" or "scale"
}

// DownloadURL converts a content URI returned by an upload into the HTTP URL
// it can be fetched from on this client's repository. With opts set, the
// thumbnail endpoint is used instead of the download one.
func (c *Client) DownloadURL(contentURI string, opts *ThumbnailOpts) (string, error) {
	mxc, err := ParseMXC(contentURI)
	if err != nil {
		return "", err
	}

	base := c.base + c.prefix
	loc := "/" + url.PathEscape(mxc.ServerName) + "/" + url.PathEscape(mxc.MediaID)
	if opts == nil {
		return base + "/download" + loc, nil
	}

	q := url.Values{}
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Method != "" {
		q.Set("method", opts.Method)
	}
	target := base + "/thumbnail" + loc
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target, nil
}
