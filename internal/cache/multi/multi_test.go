package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/interfaces/mock"
)

func TestNewMultiCache(t *testing.T) {
	logger := zap.NewNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	caches := []interfaces.Cache{cache1, cache2}

	multiCache := NewMultiCache(caches, false, logger)

	assert.NotNil(t, multiCache)
	assert.Equal(t, 2, len(multiCache.caches))
	assert.Equal(t, cache1, multiCache.caches[0])
	assert.Equal(t, cache2, multiCache.caches[1])
	assert.Equal(t, 2, multiCache.GetCacheCount())
}

func TestMultiCache_Get_FirstCacheHit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, true, zap.NewNop())

	expectedVal := []byte("test-value")
	cache1.EXPECT().Get(ctx, "test-key").Return(expectedVal, true, nil).Times(1)
	// cache2.Get should not be called since cache1 has the value

	val, found, err := multiCache.Get(ctx, "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expectedVal, val)
}

func TestMultiCache_Get_SecondCacheHit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, false, zap.NewNop())

	expectedVal := []byte("test-value")
	cache1.EXPECT().Get(ctx, "test-key").Return(nil, false, nil).Times(1)
	cache2.EXPECT().Get(ctx, "test-key").Return(expectedVal, true, nil).Times(1)
	cache1.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	val, found, err := multiCache.Get(ctx, "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expectedVal, val)
}

func TestMultiCache_Get_SecondCacheHit_Propagates(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, true, zap.NewNop())

	expectedVal := []byte("test-value")
	cache1.EXPECT().Get(ctx, "test-key").Return(nil, false, nil).Times(1)
	cache2.EXPECT().Get(ctx, "test-key").Return(expectedVal, true, nil).Times(1)
	cache1.EXPECT().Set(ctx, "test-key", expectedVal).Return(errors.New("full")).Times(1)

	val, found, err := multiCache.Get(ctx, "test-key")

	assert.NoError(t, err, "propagation failures must not fail the read")
	assert.True(t, found)
	assert.Equal(t, expectedVal, val)
}

func TestMultiCache_Get_AllCachesMiss(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, true, zap.NewNop())

	cache1.EXPECT().Get(ctx, "test-key").Return(nil, false, nil).Times(1)
	cache2.EXPECT().Get(ctx, "test-key").Return(nil, false, nil).Times(1)

	val, found, err := multiCache.Get(ctx, "test-key")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestMultiCache_Get_ErrorStops(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, true, zap.NewNop())

	readErr := errors.New("corrupt shard")
	cache1.EXPECT().Get(ctx, "test-key").Return(nil, false, readErr).Times(1)

	_, found, err := multiCache.Get(ctx, "test-key")

	assert.ErrorIs(t, err, readErr)
	assert.False(t, found)
}

func TestMultiCache_Get_NoCaches(t *testing.T) {
	multiCache := NewMultiCache([]interfaces.Cache{}, false, zap.NewNop())

	val, found, err := multiCache.Get(context.Background(), "test-key")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestMultiCache_Set_AllCaches(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, false, zap.NewNop())

	testVal := []byte("test-value")
	cache1.EXPECT().Set(ctx, "test-key", testVal).Return(nil).Times(1)
	cache2.EXPECT().Set(ctx, "test-key", testVal).Return(nil).Times(1)

	assert.NoError(t, multiCache.Set(ctx, "test-key", testVal))
}

func TestMultiCache_Set_JoinsErrors(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, false, zap.NewNop())

	l2Err := errors.New("keydb down")
	cache1.EXPECT().Set(ctx, "test-key", gomock.Any()).Return(nil).Times(1)
	cache2.EXPECT().Set(ctx, "test-key", gomock.Any()).Return(l2Err).Times(1)

	err := multiCache.Set(ctx, "test-key", []byte("v"))

	assert.ErrorIs(t, err, l2Err)
}

func TestMultiCache_Set_NoCaches(t *testing.T) {
	multiCache := NewMultiCache([]interfaces.Cache{}, false, zap.NewNop())

	assert.NoError(t, multiCache.Set(context.Background(), "test-key", []byte("test-value")))
}

func TestMultiCache_Delete_AllCaches(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, false, zap.NewNop())

	delErr := errors.New("timeout")
	cache1.EXPECT().Delete(ctx, "test-key").Return(delErr).Times(1)
	cache2.EXPECT().Delete(ctx, "test-key").Return(nil).Times(1)

	assert.ErrorIs(t, multiCache.Delete(ctx, "test-key"), delErr, "every tier is attempted even after a failure")
}

func TestMultiCache_Delete_NoCaches(t *testing.T) {
	multiCache := NewMultiCache([]interfaces.Cache{}, false, zap.NewNop())

	assert.NoError(t, multiCache.Delete(context.Background(), "test-key"))
}

func TestMultiCache_Keys_Union(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1, cache2}, false, zap.NewNop())

	cache1.EXPECT().Keys(ctx, "p:").Return([]string{"p:b", "p:a"}, nil)
	cache2.EXPECT().Keys(ctx, "p:").Return([]string{"p:c", "p:a"}, nil)

	keys, err := multiCache.Keys(ctx, "p:")

	require.NoError(t, err)
	assert.Equal(t, []string{"p:a", "p:b", "p:c"}, keys)
}

func TestMultiCache_Keys_Error(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache1 := mock.NewMockCache(ctrl)
	multiCache := NewMultiCache([]interfaces.Cache{cache1}, false, zap.NewNop())

	cache1.EXPECT().Keys(ctx, "p:").Return(nil, errors.New("scan failed"))

	_, err := multiCache.Keys(ctx, "p:")

	assert.Error(t, err)
}
