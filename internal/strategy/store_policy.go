package strategy

import (
	"net/http"
	"strings"

	"go-offline-cache/internal/models"
)

// Reasons a network response is not written to a namespace
const (
	skipStatus      = "status"
	skipPartial     = "partial"
	skipNoStore     = "no_store"
	skipPrivate     = "private"
	skipCredentials = "credentials"
)

// StorePolicy decides which network responses may be stored. The zero value
// treats the store as shared between clients and keeps personalized
// responses out of it.
type StorePolicy struct {
	// SingleClient marks a deployment serving exactly one user, where
	// responses to credentialed requests may be stored.
	SingleClient bool
}

// Storable reports whether resp, fetched for req, may be stored. When it may
// not, the returned reason names the rule that refused it.
func (p StorePolicy) Storable(req *models.Request, class models.RequestClass, resp *models.Response) (bool, string) {
	if !resp.OK() {
		return false, skipStatus
	}
	// a fragment must never stand in for the full resource
	if resp.StatusCode == http.StatusPartialContent || req.Header.Get("Range") != "" {
		return false, skipPartial
	}

	respDirectives := cacheDirectives(resp.Header)
	if respDirectives["no-store"] || cacheDirectives(req.Header)["no-store"] {
		return false, skipNoStore
	}

	if p.SingleClient {
		return true, ""
	}

	if respDirectives["private"] || len(resp.Header.Values("Set-Cookie")) > 0 {
		return false, skipPrivate
	}
	if req.Header.Get("Authorization") != "" && !respDirectives["public"] {
		return false, skipCredentials
	}
	// static assets do not vary with the session cookie
	if req.Header.Get("Cookie") != "" && class != models.RequestClassStatic && !respDirectives["public"] {
		return false, skipCredentials
	}
	return true, ""
}

// cacheDirectives returns the Cache-Control directive names present in h.
// Arguments such as private="Set-Cookie" are ignored.
func cacheDirectives(h http.Header) map[string]bool {
	directives := make(map[string]bool)
	for _, value := range h.Values("Cache-Control") {
		for _, part := range strings.Split(value, ",") {
			name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
			if name != "" {
				directives[strings.ToLower(name)] = true
			}
		}
	}
	return directives
}
