package contentrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/KarpelesLab/pjson"
)

// ErrAborted is the terminal error of a cancelled upload, whether the
// cancellation came from CancelUpload, the caller's context or the stall
// watchdog. Test for it with errors.Is.
var ErrAborted = errors.New("upload aborted")

// ErrUploadStalled is the terminal error of an upload killed by the stall
// watchdog. It unwraps to ErrAborted so both cancellation flavors can be
// caught together.
var ErrUploadStalled error = &stalledError{}

type stalledError struct{}

func (*stalledError) Error() string {
	return "upload stalled: no progress in 30 seconds"
}

func (*stalledError) Unwrap() error {
	return ErrAborted
}

// Error is a structured error response from the content repository, built
// from a status >= 400 reply whose body carries the errcode/error pair.
type Error struct {
	Code    int    // HTTP status code
	ErrCode string // machine readable code, eg. "M_TOO_LARGE"
	Message string // human readable message from the server
}

func (r *Error) Error() string {
	return fmt.Sprintf("[contentrepo] error from server: %s (%s)", r.Message, r.ErrCode)
}

func (r *Error) Unwrap() error {
	// check for various type of errors
	switch r.Code {
	case 403:
		return os.ErrPermission
	case 404:
		return fs.ErrNotExist
	default:
		return nil
	}
}

// HttpError is a status >= 400 reply whose body could not be read as a
// structured repository error. The raw body is kept for diagnostics.
type HttpError struct {
	Code int
	Body []byte
	e    error
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.Code, e.Body)
}

func (e *HttpError) Unwrap() error {
	return e.e
}

// ConnectionError is a transport level failure: no usable HTTP response was
// obtained at all.
type ConnectionError struct {
	e error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s", e.e)
}

func (e *ConnectionError) Unwrap() error {
	return e.e
}

// ProtocolError is a response that arrived but cannot be used: an empty
// body, malformed JSON on a success status, or a missing content URI when
// only the URI was requested.
type ProtocolError struct {
	Msg string
	e   error
}

func (e *ProtocolError) Error() string {
	if e.e != nil {
		return fmt.Sprintf("protocol error: %s: %s", e.Msg, e.e)
	}
	return "protocol error: " + e.Msg
}

func (e *ProtocolError) Unwrap() error {
	return e.e
}

// classifyTransport normalizes an error returned by the HTTP transport. A
// cancelled or timed out context means the request was torn down locally,
// which is an abort, not a connection failure.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrAborted
	}
	return &ConnectionError{e: err}
}

// classifyResponse turns a status >= 400 reply into a structured *Error when
// the body carries {errcode, error}, and an *HttpError otherwise.
func classifyResponse(ctx context.Context, status int, body []byte) error {
	var remote struct {
		ErrCode string `json:"errcode"`
		Err     string `json:"error"`
	}
	if err := pjson.UnmarshalContext(ctx, body, &remote); err != nil || remote.ErrCode == "" {
		return &HttpError{Code: status, Body: body, e: err}
	}
	return &Error{Code: status, ErrCode: remote.ErrCode, Message: remote.Err}
}
