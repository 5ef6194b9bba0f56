package utils

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// CachedAtHeader carries the capture timestamp of a stored response
const CachedAtHeader = "sw-cached-at"

// hopByHopHeaders are connection-scoped and never forwarded by a proxy
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// FormatCachedAt renders a millisecond epoch as decimal text
func FormatCachedAt(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// ParseCachedAt parses the sw-cached-at header value
func ParseCachedAt(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty %s header", CachedAtHeader)
	}

	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s header %q: %w", CachedAtHeader, value, err)
	}
	return ms, nil
}

// AcceptsHTML reports whether an Accept header asks for an HTML document
func AcceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
			return true
		}
	}
	return false
}

// StatusLine returns the "200 OK" form of a status code
func StatusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

// CopyHeaders copies end-to-end headers from src to dst
func CopyHeaders(dst, src http.Header) {
	for key, values := range src {
		if IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// IsHopByHopHeader reports whether the header must not be forwarded
func IsHopByHopHeader(key string) bool {
	canonical := http.CanonicalHeaderKey(key)
	for _, h := range hopByHopHeaders {
		if canonical == h {
			return true
		}
	}
	return false
}
