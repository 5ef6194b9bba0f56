package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// ErrNetwork marks a failure to obtain a response from the network
var ErrNetwork = errors.New("network request failed")

// Ensure HTTPFetcher implements interfaces.Fetcher
var _ interfaces.Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher performs network requests through an http.RoundTripper and
// buffers the complete response
type HTTPFetcher struct {
	client   *http.Client
	observer interfaces.ConnectivityObserver
	logger   *zap.Logger
}

// NewHTTPFetcher creates a fetcher sending requests through transport.
// observer may be nil.
func NewHTTPFetcher(transport http.RoundTripper, timeout time.Duration, observer interfaces.ConnectivityObserver, logger *zap.Logger) *HTTPFetcher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPFetcher{
		client:   &http.Client{Transport: transport, Timeout: timeout},
		observer: observer,
		logger:   logger,
	}
}

// Fetch sends the request and returns the buffered response. Any status code
// is a successful fetch; only transport failures are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	utils.CopyHeaders(httpReq.Header, req.Header)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.fail(ctx, req, "request", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.fail(ctx, req, "body", err)
		return nil, fmt.Errorf("%w: reading body of %s: %w", ErrNetwork, req.URL, err)
	}

	f.setOnline(true)

	header := http.Header{}
	utils.CopyHeaders(header, resp.Header)

	return &models.Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}

func (f *HTTPFetcher) fail(ctx context.Context, req *models.Request, stage string, err error) {
	metrics.RecordNetworkFailure(stage)
	f.logger.Debug("Network fetch failed",
		zap.String("url", req.URL.String()),
		zap.String("stage", stage),
		zap.Error(err))

	// a caller giving up says nothing about connectivity
	if ctx.Err() == nil {
		f.setOnline(false)
	}
}

func (f *HTTPFetcher) setOnline(online bool) {
	if f.observer != nil {
		f.observer.SetOnline(online)
	}
}
