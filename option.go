package contentrepo

import (
	"bytes"
	"io"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when no content type was supplied and none
// could be sniffed from the payload.
const DefaultContentType = "application/octet-stream"

// sniffLen is how many leading payload bytes are fed to the content type
// detector.
const sniffLen = 3072

// ResultFormat selects the shape an upload resolves to once the repository
// replies.
type ResultFormat int

const (
	// FormatDefault defers to the client's configured format.
	FormatDefault ResultFormat = iota
	// FormatParsed resolves the response body parsed as JSON.
	FormatParsed
	// FormatRaw resolves the raw response body, skipping JSON parsing
	// entirely.
	FormatRaw
	// FormatURIOnly resolves just the content URI extracted from the
	// response body.
	FormatURIOnly
)

// UploadOpts controls a single UploadContent call. The zero value uploads a
// payload under its own name (when it has one) with a sniffed content type
// and the client's default result format.
type UploadOpts struct {
	// Name is the filename to attach to the upload. When empty, payloads
	// exposing a Name() string method (such as *os.File) supply it.
	Name string

	// OmitFilename suppresses the filename query parameter even when a
	// name is known.
	OmitFilename bool

	// ContentType is sent as-is when set, bypassing payload sniffing.
	ContentType string

	// Progress, when set, receives progress updates for this upload.
	Progress ProgressFunc

	// Format overrides the client's default result format.
	Format ResultFormat
}

// namer is implemented by payloads that carry their own filename, most
// notably *os.File.
type namer interface {
	Name() string
}

// resolveName picks the filename sent with the upload: the explicit option
// wins, then the payload's own name. Empty means no filename parameter.
func resolveName(opts *UploadOpts, payload io.Reader) string {
	if opts.Name != "" {
		return opts.Name
	}
	if n, ok := payload.(namer); ok {
		if name := n.Name(); name != "" {
			return filepath.Base(name)
		}
	}
	return ""
}

// resolvePayload measures the payload and resolves its content type, without
// losing any bytes. Seekable payloads are measured by seeking to the end and
// back; for the rest the total stays 0 (unknown). When no content type was
// given the payload head is sniffed, falling back to a generic binary type.
// The returned reader must be used in place of the original, as sniffing may
// consume leading bytes of a non-seekable payload.
func resolvePayload(r io.Reader, contentType string) (io.Reader, string, int64) {
	var total int64
	seeker, seekable := r.(io.Seeker)
	if seekable {
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			// seek failed, continue in the unknown
			seekable = false
		} else {
			seeker.Seek(0, io.SeekStart)
			total = end
		}
	}

	if contentType != "" {
		return r, contentType, total
	}

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(r, head)
	head = head[:n]

	if seekable {
		// rewind, keep the original reader intact
		seeker.Seek(0, io.SeekStart)
	} else {
		// stitch the consumed head back in front
		r = io.MultiReader(bytes.NewReader(head), r)
	}

	if n == 0 {
		return r, DefaultContentType, total
	}
	return r, mimetype.Detect(head).String(), total
}
