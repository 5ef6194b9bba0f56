package network

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/scheduler"
)

// Prober periodically checks whether the application origin is reachable
// and reports the result to a ConnectivityObserver
type Prober struct {
	client    *http.Client
	target    string
	observer  interfaces.ConnectivityObserver
	logger    *zap.Logger
	scheduler *scheduler.Scheduler
}

// NewProber creates a prober sending HEAD requests to target every interval.
// observer may be nil.
func NewProber(transport http.RoundTripper, target string, interval, timeout time.Duration, observer interfaces.ConnectivityObserver, logger *zap.Logger) *Prober {
	if transport == nil {
		transport = http.DefaultTransport
	}
	p := &Prober{
		client:   &http.Client{Transport: transport, Timeout: timeout},
		target:   target,
		observer: observer,
		logger:   logger,
	}
	p.scheduler = scheduler.New(interval, func(ctx context.Context) {
		p.Probe(ctx)
	})
	return p
}

// Start begins periodic probing
func (p *Prober) Start() {
	p.scheduler.Start()
	p.logger.Info("Started connectivity probe", zap.String("target", p.target))
}

// Stop ends periodic probing
func (p *Prober) Stop() {
	p.scheduler.Stop()
}

// Probe performs one connectivity check. Any HTTP response counts as online.
func (p *Prober) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target, nil)
	if err != nil {
		p.logger.Error("Invalid connectivity probe target", zap.String("target", p.target), zap.Error(err))
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Debug("Connectivity probe failed", zap.String("target", p.target), zap.Error(err))
		p.setOnline(false)
		return false
	}
	_ = resp.Body.Close()

	p.setOnline(true)
	return true
}

func (p *Prober) setOnline(online bool) {
	if p.observer != nil {
		p.observer.SetOnline(online)
	}
}
