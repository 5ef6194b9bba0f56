package l2

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces/mock"
)

func newTestConfig() *config.KeyDBConfig {
	cfg := &config.KeyDBConfig{Enabled: true, ScanCount: 50}
	cfg.ApplyDefaults()
	return cfg
}

func TestNewKeyDBCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cfg := newTestConfig()
	logger := zap.NewNop()

	cache := NewKeyDBCache(cfg, mockClient, logger)

	assert.NotNil(t, cache)
	assert.Equal(t, mockClient, cache.client)
	assert.Equal(t, cfg, cache.config)
	assert.Equal(t, logger, cache.logger)
}

func TestKeyDBCache_Get_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(redis.NewStringResult("test-data", nil))

	val, found, err := cache.Get(context.Background(), "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("test-data"), val)
}

func TestKeyDBCache_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Get(gomock.Any(), "missing").Return(redis.NewStringResult("", redis.Nil))

	val, found, err := cache.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestKeyDBCache_Get_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	connErr := errors.New("connection refused")
	mockClient.EXPECT().Get(gomock.Any(), "test-key").Return(redis.NewStringResult("", connErr))

	_, found, err := cache.Get(context.Background(), "test-key")

	assert.ErrorIs(t, err, connErr)
	assert.False(t, found)
}

func TestKeyDBCache_Set_UsesEntryTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cfg := newTestConfig()
	cfg.EntryTTL = 48 * time.Hour
	cache := NewKeyDBCache(cfg, mockClient, zap.NewNop())

	mockClient.EXPECT().
		Set(gomock.Any(), "test-key", []byte("test-value"), 48*time.Hour).
		Return(redis.NewStatusResult("OK", nil))

	assert.NoError(t, cache.Set(context.Background(), "test-key", []byte("test-value")))
}

func TestKeyDBCache_Set_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().
		Set(gomock.Any(), "test-key", gomock.Any(), time.Duration(0)).
		Return(redis.NewStatusResult("", errors.New("OOM")))

	assert.Error(t, cache.Set(context.Background(), "test-key", []byte("x")))
}

func TestKeyDBCache_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Del(gomock.Any(), "test-key").Return(redis.NewIntResult(1, nil))
	mockClient.EXPECT().Del(gomock.Any(), "broken").Return(redis.NewIntResult(0, errors.New("timeout")))

	assert.NoError(t, cache.Delete(context.Background(), "test-key"))
	assert.Error(t, cache.Delete(context.Background(), "broken"))
}

func TestKeyDBCache_Keys_WalksAllPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	gomock.InOrder(
		mockClient.EXPECT().
			Scan(gomock.Any(), uint64(0), "offline:app-v1-static|*", int64(50)).
			Return(redis.NewScanCmdResult([]string{"offline:app-v1-static|GET /b.js", "offline:app-v1-static|GET /a.js"}, 17, nil)),
		mockClient.EXPECT().
			Scan(gomock.Any(), uint64(17), "offline:app-v1-static|*", int64(50)).
			Return(redis.NewScanCmdResult([]string{"offline:app-v1-static|GET /a.js", "offline:app-v1-static|GET /c.js"}, 0, nil)),
	)

	keys, err := cache.Keys(context.Background(), "offline:app-v1-static|")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"offline:app-v1-static|GET /a.js",
		"offline:app-v1-static|GET /b.js",
		"offline:app-v1-static|GET /c.js",
	}, keys)
}

func TestKeyDBCache_Keys_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().
		Scan(gomock.Any(), uint64(0), gomock.Any(), gomock.Any()).
		Return(redis.NewScanCmdResult(nil, 0, errors.New("LOADING")))

	keys, err := cache.Keys(context.Background(), "offline:")

	assert.Error(t, err)
	assert.Nil(t, keys)
}

func TestKeyDBCache_PingAndClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock.NewMockKeyDbClient(ctrl)
	cache := NewKeyDBCache(newTestConfig(), mockClient, zap.NewNop())

	mockClient.EXPECT().Ping(gomock.Any()).Return(redis.NewStatusResult("PONG", nil))
	mockClient.EXPECT().Close().Return(nil)

	assert.NoError(t, cache.Ping(context.Background()))
	assert.NoError(t, cache.Close())
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"offline:app-v1|", "offline:app-v1|"},
		{"a*b", `a\*b`},
		{"q?[x]", `q\?\[x\]`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeGlob(tt.in))
	}
}
