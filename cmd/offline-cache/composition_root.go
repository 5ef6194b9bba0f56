package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/cache/l1"
	"go-offline-cache/internal/cache/l2"
	"go-offline-cache/internal/cache/multi"
	"go-offline-cache/internal/cache/noop"
	"go-offline-cache/internal/cache/storage"
	"go-offline-cache/internal/cache_rules"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/control"
	"go-offline-cache/internal/freshness"
	"go-offline-cache/internal/httpserver"
	"go-offline-cache/internal/interceptor"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/network"
	"go-offline-cache/internal/strategy"
)

const defaultConfigPath = "/app/offline_config.yaml"

// CompositionRoot holds all application dependencies and provides a centralized
// place for dependency injection and service initialization.
type CompositionRoot struct {
	// Configuration
	Config       *config.Config
	Logger       *zap.Logger
	AppOrigin    *url.URL
	PrayerOrigin *url.URL

	// Cache components
	L1Cache    interfaces.Cache
	L2Cache    interfaces.Cache
	Store      interfaces.Cache
	KeyBuilder interfaces.KeyBuilder
	Storage    *storage.CacheStorage

	// Network
	Upstream http.RoundTripper
	Fetcher  *network.HTTPFetcher
	Prober   *network.Prober

	// Services
	Tracker      *freshness.Tracker
	Background   *strategy.Background
	HostState    *control.HostState
	Registration *lifecycle.Registration
	Channel      *control.Channel
	Classifier   *cache_rules.Classifier
	Transport    *interceptor.Transport
	HTTPServer   *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Configuration (defines how components should be configured)
// 3. Cache components (L1, L2, tiered store, namespace registry)
// 4. Network (fetcher, connectivity probe)
// 5. Services (registration, control channel, interceptor)
// 6. HTTP Server (uses all above components)
func NewCompositionRoot(configPath string) (*CompositionRoot, error) {
	root := &CompositionRoot{}

	// Initialize logger first
	if err := root.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load configuration
	if err := root.loadConfig(configPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize cache components
	if err := root.initCacheComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	// Initialize network components
	root.initNetwork()

	// Initialize services
	if err := root.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize HTTP server
	root.initHTTPServer()

	return root, nil
}

// initLogger initializes the application logger
func (r *CompositionRoot) initLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	r.Logger = logger
	redis.SetLogger(NewRedisLogger(logger))
	return nil
}

// loadConfig loads the application configuration
func (r *CompositionRoot) loadConfig(configPath string) error {
	if configPath == "" {
		configPath = os.Getenv("OFFLINE_CONFIG_FILE")
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath, r.Logger)
	if err != nil {
		return err
	}

	origin, err := cfg.AppOrigin()
	if err != nil {
		return err
	}

	r.Config = cfg
	r.AppOrigin = origin
	return nil
}

// initCacheComponents initializes all cache-related components
func (r *CompositionRoot) initCacheComponents() error {
	// Initialize L1 cache (BigCache)
	if err := r.initL1Cache(); err != nil {
		return fmt.Errorf("failed to initialize L1 cache: %w", err)
	}

	// Initialize L2 cache (KeyDB)
	if err := r.initL2Cache(); err != nil {
		return fmt.Errorf("failed to initialize L2 cache: %w", err)
	}

	if err := r.ensureCacheTier(); err != nil {
		return fmt.Errorf("failed to initialize fallback L1 cache: %w", err)
	}

	r.Store = multi.NewMultiCache(
		[]interfaces.Cache{r.L1Cache, r.L2Cache},
		r.Config.MultiCache.EnablePropagation,
		r.Logger,
	)

	// Initialize key builder and namespace registry
	r.KeyBuilder = cache.NewKeyBuilder()
	r.Storage = storage.NewCacheStorage(r.Store, r.KeyBuilder, r.Logger)

	return nil
}

// initL1Cache initializes the L1 cache (BigCache)
func (r *CompositionRoot) initL1Cache() error {
	if r.Config.BigCache.Enabled {
		l1Cache, err := l1.NewBigCache(&r.Config.BigCache, r.Logger)
		if err != nil {
			return err
		}
		r.L1Cache = l1Cache
		r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.BigCache.Size))
	} else {
		r.L1Cache = noop.NewNoOpCache()
		r.Logger.Info("BigCache (L1) disabled")
	}
	return nil
}

// ensureCacheTier starts BigCache when neither tier can hold entries, which
// happens when L1 is disabled and KeyDB is unreachable
func (r *CompositionRoot) ensureCacheTier() error {
	_, l1Disabled := r.L1Cache.(*noop.NoOpCache)
	_, l2Disabled := r.L2Cache.(*noop.NoOpCache)
	if !l1Disabled || !l2Disabled {
		return nil
	}

	r.Logger.Warn("No cache tier available, enabling BigCache (L1)")
	r.Config.BigCache.Enabled = true
	r.Config.BigCache.ApplyDefaults()
	return r.initL1Cache()
}

// initL2Cache initializes the L2 cache (KeyDB)
func (r *CompositionRoot) initL2Cache() error {
	if !r.Config.KeyDB.Enabled {
		r.L2Cache = noop.NewNoOpCache()
		r.Logger.Info("KeyDB (L2) disabled")
		return nil
	}

	keydbURL, err := GetKeyDBURL(r.Logger)
	if err != nil {
		return err
	}

	// Create KeyDB client
	keydbClient, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
	if err != nil {
		r.Logger.Warn("Failed to connect to KeyDB, falling back to no L2 cache",
			zap.String("keydb_url", redactURL(keydbURL)),
			zap.Error(err))
		r.L2Cache = noop.NewNoOpCache()
		return nil
	}

	r.L2Cache = l2.NewKeyDBCache(&r.Config.KeyDB, keydbClient, r.Logger)
	r.Logger.Info("KeyDB (L2) initialized", zap.String("keydb_url", redactURL(keydbURL)))
	return nil
}

// initNetwork initializes the outbound transport, fetcher and connectivity probe
func (r *CompositionRoot) initNetwork() {
	r.HostState = control.NewHostState()
	r.Upstream = http.DefaultTransport.(*http.Transport).Clone()
	r.Fetcher = network.NewHTTPFetcher(r.Upstream, r.Config.Network.FetchTimeout, r.HostState, r.Logger)

	probeTarget := r.AppOrigin.ResolveReference(&url.URL{Path: r.Config.Connectivity.ProbePath})
	r.Prober = network.NewProber(
		r.Upstream,
		probeTarget.String(),
		r.Config.Connectivity.ProbeInterval,
		r.Config.Connectivity.ProbeTimeout,
		r.HostState,
		r.Logger,
	)
}

// initServices initializes application services
func (r *CompositionRoot) initServices() error {
	prayerOrigin, err := r.Config.PrayerAPIOrigin()
	if err != nil {
		return err
	}
	r.PrayerOrigin = prayerOrigin

	r.Tracker = freshness.NewTracker(clock.New(), r.Config.MaxAge)
	r.Background = strategy.NewBackground(r.Logger)

	workerConfig := lifecycle.WorkerConfig{
		Namespaces:           r.Config.Namespaces(),
		Origin:               r.AppOrigin,
		Precache:             r.Config.App.Precache,
		OfflinePage:          r.Config.App.OfflinePage,
		SkipWaitingOnInstall: r.Config.SkipWaitingOnInstall(),
		StorePolicy:          strategy.StorePolicy{SingleClient: r.Config.Server.SingleClient},
	}
	newWorker := func() *lifecycle.Worker {
		return lifecycle.NewWorker(workerConfig, r.Storage, r.Fetcher, r.Tracker, r.Background, r.Logger)
	}

	r.Registration = lifecycle.NewRegistration(newWorker, r.HostState, r.Logger)
	r.Channel = control.NewChannel(r.Registration, r.Storage, r.HostState, r.Logger)

	r.Classifier = cache_rules.NewClassifier(
		r.Logger,
		r.AppOrigin,
		prayerOrigin,
		r.Config.App.APIPrefix,
		r.Config.StaticExtensions,
	)
	r.Transport = interceptor.NewTransport(r.Upstream, r.Classifier, r.Registration, r.Logger)

	return nil
}

// initHTTPServer initializes the HTTP server
func (r *CompositionRoot) initHTTPServer() {
	r.HTTPServer = httpserver.NewServer(
		r.Channel,
		r.Registration,
		r.Transport,
		r.AppOrigin,
		[]*url.URL{r.AppOrigin, r.PrayerOrigin},
		r.Logger,
	)
}

// Cleanup performs cleanup of all resources
func (r *CompositionRoot) Cleanup() error {
	var errors []error

	if r.Prober != nil {
		r.Prober.Stop()
	}

	// Let in-flight background refreshes finish writing
	if r.Background != nil {
		done := make(chan struct{})
		go func() {
			r.Background.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(r.Config.Network.FetchTimeout):
			r.Logger.Warn("Background refreshes still running at shutdown")
		}
	}

	// Close L1 cache
	if l1BigCache, ok := r.L1Cache.(*l1.BigCache); ok {
		if err := l1BigCache.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close L1 cache: %w", err))
		}
	}

	// Close L2 cache
	if l2KeyDBCache, ok := r.L2Cache.(*l2.KeyDBCache); ok {
		if err := l2KeyDBCache.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close L2 cache: %w", err))
		}
	}

	// Sync logger
	if r.Logger != nil {
		if err := r.Logger.Sync(); err != nil {
			errors = append(errors, fmt.Errorf("failed to sync logger: %w", err))
		}
	}

	// Return first error if any
	if len(errors) > 0 {
		return errors[0]
	}

	return nil
}

// StartServer starts the HTTP server on the configured Unix socket or TCP address
func (r *CompositionRoot) StartServer() error {
	if socketPath := r.GetSocketPath(); socketPath != "" {
		return r.HTTPServer.StartUnixSocket(socketPath)
	}
	return r.HTTPServer.Start(r.Config.Server.ListenAddr)
}

// GetSocketPath returns the Unix socket path for the server, if any
func (r *CompositionRoot) GetSocketPath() string {
	if socketPath := os.Getenv("OFFLINE_SOCKET_PATH"); socketPath != "" {
		return socketPath
	}
	return r.Config.Server.SocketPath
}
