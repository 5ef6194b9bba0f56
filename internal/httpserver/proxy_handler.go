package httpserver

import (
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// handleProxy forwards a request through the intercepting transport.
// Absolute-URI requests are forwarded as is when they target a forward
// origin, relative ones are resolved against the app origin.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.writeErrorResponse(w, "CONNECT is not supported", http.StatusMethodNotAllowed)
		return
	}

	target := s.targetURL(r)
	if !s.forwardable(target) {
		s.logger.Debug("Refusing to forward request", zap.String("url", target.String()))
		s.writeErrorResponse(w, "Origin is not served by this proxy", http.StatusForbidden)
		return
	}
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	utils.CopyHeaders(outReq.Header, r.Header)
	outReq.ContentLength = r.ContentLength

	resp, err := s.transport.RoundTrip(outReq)
	if err != nil {
		s.handleProxyError(w, outReq, err)
		return
	}
	defer resp.Body.Close()

	s.copyResponse(w, resp)
}

func (s *Server) targetURL(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return s.appOrigin.ResolveReference(&url.URL{
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	})
}

func (s *Server) forwardable(target *url.URL) bool {
	if utils.SameOrigin(target, s.appOrigin) {
		return true
	}
	for _, origin := range s.forward {
		if utils.SameOrigin(target, origin) {
			return true
		}
	}
	return false
}

// handleProxyError answers navigation requests with the offline page when it
// is available and everything else with 502
func (s *Server) handleProxyError(w http.ResponseWriter, req *http.Request, err error) {
	s.logger.Debug("Proxied request failed", zap.String("url", req.URL.String()), zap.Error(err))

	if models.NewRequest(req).IsNavigation() {
		if worker := s.registration.Active(); worker != nil {
			if page, ok := worker.OfflinePage(req.Context()); ok {
				resp := page.ToHTTP(req)
				defer resp.Body.Close()
				s.copyResponse(w, resp)
				return
			}
		}
	}

	s.writeErrorResponse(w, "Network request failed", http.StatusBadGateway)
}

func (s *Server) copyResponse(w http.ResponseWriter, resp *http.Response) {
	utils.CopyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("Failed to write proxied response", zap.Error(err))
	}
}
