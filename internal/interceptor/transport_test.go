package interceptor

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-offline-cache/internal/cache_rules"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/freshness"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/interfaces/mock"
	"go-offline-cache/internal/lifecycle"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/network"
	"go-offline-cache/internal/strategy"
	"go-offline-cache/internal/testutil"
	"go-offline-cache/internal/utils"
)

type controllerFunc func() *lifecycle.Worker

func (f controllerFunc) Active() *lifecycle.Worker { return f() }

func newClassifier(t *testing.T) *cache_rules.Classifier {
	t.Helper()
	app, err := url.Parse("https://yafaqih.app")
	require.NoError(t, err)
	prayer, err := url.Parse("https://api.aladhan.com")
	require.NoError(t, err)
	return cache_rules.NewClassifier(zap.NewNop(), app, prayer, "/api/", config.DefaultStaticExtensions)
}

func newWorker(t *testing.T, s interfaces.CacheStorage, fetcher interfaces.Fetcher) *lifecycle.Worker {
	t.Helper()
	origin, err := url.Parse("https://yafaqih.app")
	require.NoError(t, err)

	background := strategy.NewBackground(zap.NewNop())
	t.Cleanup(background.Wait)

	return lifecycle.NewWorker(lifecycle.WorkerConfig{
		Namespaces: models.NewNamespaces("app", "v1"),
		Origin:     origin,
	}, s, fetcher, freshness.NewTracker(clock.NewMock(), config.DefaultMaxAge), background, zap.NewNop())
}

func TestTransport_PassthroughNeverTouchesNamespaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mock.NewMockCacheStorage(ctrl)
	fetcher := mock.NewMockFetcher(ctrl)
	worker := newWorker(t, storage, fetcher)

	next := httpmock.NewMockTransport()
	next.RegisterResponder(http.MethodPost, "https://yafaqih.app/api/questions", httpmock.NewStringResponder(http.StatusCreated, "created"))
	next.RegisterResponder(http.MethodGet, "https://cdn.example.com/lib.js", httpmock.NewStringResponder(http.StatusOK, "lib"))

	client := &http.Client{Transport: NewTransport(next, newClassifier(t), controllerFunc(func() *lifecycle.Worker { return worker }), zap.NewNop())}

	resp, err := client.Post("https://yafaqih.app/api/questions", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp, err = client.Get("https://cdn.example.com/lib.js")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, 2, next.GetTotalCallCount())
}

func TestTransport_NoControllerPassesThrough(t *testing.T) {
	next := httpmock.NewMockTransport()
	next.RegisterResponder(http.MethodGet, "https://yafaqih.app/app.js", httpmock.NewStringResponder(http.StatusOK, "network"))

	client := &http.Client{Transport: NewTransport(next, newClassifier(t), lifecycle.NewRegistration(nil, nil, zap.NewNop()), zap.NewNop())}

	resp, err := client.Get("https://yafaqih.app/app.js")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "network", string(body))
	assert.Equal(t, 1, next.GetTotalCallCount())
}

func TestTransport_ServesInterceptedRequestFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := testutil.NewStorage(t)
	cachedAt := time.UnixMilli(1700000000000)
	testutil.Seed(t, s, "app-v1-static", "https://yafaqih.app/app.js", cachedAt, "cached")

	worker := newWorker(t, s, mock.NewMockFetcher(ctrl))
	next := httpmock.NewMockTransport()

	client := &http.Client{Transport: NewTransport(next, newClassifier(t), controllerFunc(func() *lifecycle.Worker { return worker }), zap.NewNop())}

	resp, err := client.Get("https://yafaqih.app/app.js#top")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cached", string(body))
	assert.Equal(t, utils.FormatCachedAt(cachedAt.UnixMilli()), resp.Header.Get(utils.CachedAtHeader))
	assert.Zero(t, next.GetTotalCallCount())
}

func TestTransport_PropagatesNetworkFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, network.ErrNetwork)

	worker := newWorker(t, testutil.NewStorage(t), fetcher)
	client := &http.Client{Transport: NewTransport(httpmock.NewMockTransport(), newClassifier(t), controllerFunc(func() *lifecycle.Worker { return worker }), zap.NewNop())}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://yafaqih.app/api/me", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, network.ErrNetwork)
}

func TestTransport_ClassifiesEveryRequestOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	classifier := mock.NewMockRequestClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any()).
		DoAndReturn(func(req *models.Request) (models.RequestClass, bool) {
			assert.Equal(t, "/health", req.URL.Path)
			return "", false
		}).Times(1)

	next := httpmock.NewMockTransport()
	next.RegisterResponder(http.MethodGet, "https://yafaqih.app/health", httpmock.NewStringResponder(http.StatusOK, "ok"))

	// the controller is never consulted for passthrough requests
	controller := controllerFunc(func() *lifecycle.Worker {
		t.Fatal("unexpected controller lookup")
		return nil
	})

	client := &http.Client{Transport: NewTransport(next, classifier, controller, zap.NewNop())}
	resp, err := client.Get("https://yafaqih.app/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, 1, next.GetTotalCallCount())
}
