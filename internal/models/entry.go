package models

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-offline-cache/internal/utils"
)

// Request is the part of an intercepted request the cache layer looks at.
// Only GET requests are ever stored, so no body is carried.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
}

// NewRequest captures the identity-bearing fields of an HTTP request
func NewRequest(r *http.Request) *Request {
	return &Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
	}
}

// NewGetRequest builds a GET request for rawURL
func NewGetRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{Method: http.MethodGet, URL: u, Header: http.Header{}}, nil
}

// IsNavigation reports whether the request asks for an HTML document
func (r *Request) IsNavigation() bool {
	return r.Method == http.MethodGet && utils.AcceptsHTML(r.Header.Get("Accept"))
}

// Response is a fully buffered HTTP response
type Response struct {
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
}

// OK reports whether the status code is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	clone := &Response{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
	}
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	return clone
}

// ToHTTP converts the buffered response into an *http.Response answering req
func (r *Response) ToHTTP(req *http.Request) *http.Response {
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        utils.StatusLine(r.StatusCode),
		StatusCode:    r.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

// CacheEntry is a stored response together with its capture metadata
type CacheEntry struct {
	URL      string       `json:"url"`
	Class    RequestClass `json:"class"`
	CachedAt int64        `json:"cached_at"` // Unix milliseconds
	Response Response     `json:"response"`
}

// CachedTime returns the capture time
func (e *CacheEntry) CachedTime() time.Time {
	return time.UnixMilli(e.CachedAt)
}

// Age returns how long ago the entry was captured
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedTime())
}

// IsFresh reports whether the entry is younger than maxAge
func (e *CacheEntry) IsFresh(now time.Time, maxAge time.Duration) bool {
	return e.Age(now) < maxAge
}

// ServedResponse returns a copy of the stored response carrying the capture
// timestamp in the sw-cached-at header
func (e *CacheEntry) ServedResponse() *Response {
	resp := e.Response.Clone()
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(utils.CachedAtHeader, utils.FormatCachedAt(e.CachedAt))
	return resp
}
