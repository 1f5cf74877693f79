package contentrepo

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/KarpelesLab/pjson"
)

// UploadResponse is the settled value of a successful upload. The raw body
// is always retained; ContentURI is populated whenever the body parsed and
// carried one.
type UploadResponse struct {
	// ContentURI is the locator the repository assigned to the uploaded
	// content, typically of the form mxc://server/mediaid. Empty when the
	// upload ran with FormatRaw or the body had no content_uri field.
	ContentURI string

	raw []byte

	dataParsed any
	dataError  error
	dataParse  sync.Once
}

// Raw returns the unparsed response body.
func (r *UploadResponse) Raw() []byte {
	return r.raw
}

// Value returns the response body parsed as JSON. Parsing happens at most
// once and is cached, so an upload run with FormatRaw can still be parsed
// later.
func (r *UploadResponse) Value() (any, error) {
	r.dataParse.Do(func() {
		r.dataError = pjson.Unmarshal(r.raw, &r.dataParsed)
	})
	return r.dataParsed, r.dataError
}

// Apply unmarshals the response body into v.
func (r *UploadResponse) Apply(v any) error {
	return pjson.Unmarshal(r.raw, v)
}

// Get walks the parsed body along a /-separated path of object keys and
// returns the value found there, or fs.ErrNotExist.
func (r *UploadResponse) Get(v string) (any, error) {
	va := strings.Split(v, "/")
	cur, err := r.Value()
	if err != nil {
		return nil, err
	}

	for _, sub := range va {
		if sub == "" {
			continue
		}
		// we assume each sub will be an index in cur as a map
		curV, ok := cur.(map[string]any)
		if !ok {
			return nil, fs.ErrNotExist
		}
		cur, ok = curV[sub]
		if !ok {
			return nil, fs.ErrNotExist
		}
	}
	return cur, nil
}

// GetString is Get for string values.
func (r *UploadResponse) GetString(v string) (string, error) {
	res, err := r.Get(v)
	if err != nil {
		return "", err
	}
	str, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type %T for string %s", res, v)
	}
	return str, nil
}

// buildResponse normalizes a success body according to the resolved result
// format. FormatRaw skips parsing; the other formats require valid JSON, and
// FormatURIOnly additionally requires a content_uri field.
func buildResponse(ctx context.Context, body []byte, format ResultFormat) (*UploadResponse, error) {
	res := &UploadResponse{raw: body}
	if format == FormatRaw {
		return res, nil
	}

	var parsed any
	if err := pjson.UnmarshalContext(ctx, body, &parsed); err != nil {
		return nil, &ProtocolError{Msg: "malformed response body", e: err}
	}
	res.dataParse.Do(func() { res.dataParsed = parsed })

	if m, ok := parsed.(map[string]any); ok {
		if uri, ok := m["content_uri"].(string); ok {
			res.ContentURI = uri
		}
	}
	if format == FormatURIOnly && res.ContentURI == "" {
		return nil, &ProtocolError{Msg: "no content_uri in response"}
	}
	return res, nil
}
