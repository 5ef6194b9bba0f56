package interceptor

import (
	"net/http"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Controller returns the worker currently serving intercepted requests
type Controller interface {
	Active() *lifecycle.Worker
}

var _ Controller = (*lifecycle.Registration)(nil)

// Transport is an http.RoundTripper answering intercepted requests from the
// active worker and passing everything else to next
type Transport struct {
	next       http.RoundTripper
	classifier interfaces.RequestClassifier
	controller Controller
	logger     *zap.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, classifier interfaces.RequestClassifier, controller Controller, logger *zap.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{
		next:       next,
		classifier: classifier,
		controller: controller,
		logger:     logger,
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.intercept(req)
	if resp != nil || err != nil {
		return resp, err
	}
	return t.next.RoundTrip(req)
}

// intercept returns nil and no error when req must go to the network untouched
func (t *Transport) intercept(req *http.Request) (*http.Response, error) {
	r := models.NewRequest(req)

	class, ok := t.classifier.Classify(r)
	if !ok {
		if req.Method != http.MethodGet {
			metrics.RecordPassthrough("method")
		} else {
			metrics.RecordPassthrough("origin")
		}
		return nil, nil
	}

	worker := t.controller.Active()
	if worker == nil {
		metrics.RecordPassthrough("no_controller")
		return nil, nil
	}

	metrics.RecordRequest(string(class))
	if req.Body != nil {
		_ = req.Body.Close()
	}

	result, err := worker.Handle(req.Context(), r, class)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("Served intercepted request",
		zap.String("url", req.URL.String()),
		zap.String("class", string(class)),
		zap.String("source", string(result.Source)))

	return result.Response.ToHTTP(req), nil
}
