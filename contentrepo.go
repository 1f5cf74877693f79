// Package contentrepo provides a client for uploading content to a remote
// content repository over HTTP, in the style of Matrix media stores. It
// handles transport selection, live progress reporting, cancellation of
// in-flight uploads, stall detection, and normalizes the repository's
// failure modes into a small error taxonomy.
package contentrepo

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	// Debug enables verbose logging of upload activity through log/slog
	Debug = false
)

// DefaultMediaPrefix is the URL prefix of the repository's media endpoints.
const DefaultMediaPrefix = "/_matrix/media/r0"

// DefaultUploadTimeout is how long an upload may go without progress before
// the stall watchdog aborts it. Progress renews the window; it is not a
// total duration limit.
const DefaultUploadTimeout = 30 * time.Second

// Config carries the pre-resolved settings a Client runs with. Base URL and
// credential are expected to come from the surrounding application's own
// configuration.
type Config struct {
	// BaseURL is the repository root, eg. "https://media.example.com".
	// Required.
	BaseURL string

	// AccessToken authenticates uploads. Sent as an Authorization: Bearer
	// header unless TokenInQuery is set.
	AccessToken string

	// TokenInQuery switches the credential to the access_token query
	// parameter, for older repositories that do not accept the header.
	// Only one of the two forms is ever sent.
	TokenInQuery bool

	// Prefix replaces DefaultMediaPrefix in endpoint URLs.
	Prefix string

	// Format is the deployment-wide default shape of upload results, used
	// when UploadOpts.Format is left as FormatDefault. The zero value
	// means FormatParsed. Deployments that want the raw body or the bare
	// content URI set this explicitly rather than having the client guess
	// from its environment.
	Format ResultFormat

	// UploadTimeout replaces DefaultUploadTimeout as the stall window.
	UploadTimeout time.Duration

	// HTTPClient replaces the package-level UploadHttpClient for the
	// streaming transport.
	HTTPClient *http.Client

	// Requester, when set, routes uploads through an external
	// authenticated-request collaborator instead of the built-in
	// streaming transport. See the Requester interface.
	Requester Requester
}

// Client performs uploads against one repository and tracks them while they
// run. It is safe for concurrent use.
type Client struct {
	base         string
	token        string
	tokenInQuery bool
	prefix       string
	format       ResultFormat
	timeout      time.Duration
	http         *http.Client
	requester    Requester

	uploads *registry
}

// New builds a Client from cfg, filling in package defaults for anything
// left unset.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("contentrepo: BaseURL is required")
	}

	c := &Client{
		base:         strings.TrimSuffix(cfg.BaseURL, "/"),
		token:        cfg.AccessToken,
		tokenInQuery: cfg.TokenInQuery,
		prefix:       cfg.Prefix,
		format:       cfg.Format,
		timeout:      cfg.UploadTimeout,
		http:         cfg.HTTPClient,
		requester:    cfg.Requester,
		uploads:      newRegistry(),
	}
	if c.prefix == "" {
		c.prefix = DefaultMediaPrefix
	}
	if c.format == FormatDefault {
		c.format = FormatParsed
	}
	if c.timeout <= 0 {
		c.timeout = DefaultUploadTimeout
	}
	if c.http == nil {
		c.http = UploadHttpClient
	}
	return c, nil
}
