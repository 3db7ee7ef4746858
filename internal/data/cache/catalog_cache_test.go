package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aidledger-audit/internal/domain/catalog"
)

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) GetLocation(ctx context.Context, id uuid.UUID) (*catalog.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Location), args.Error(1)
}

func (m *mockCatalogRepository) GetActor(ctx context.Context, id uuid.UUID) (*catalog.Actor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Actor), args.Error(1)
}

func (m *mockCatalogRepository) ListItemKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCatalogCache_ListItemKeys(t *testing.T) {
	ctx := context.Background()
	ttl := 5 * time.Minute

	t.Run("cache hit", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := &mockCatalogRepository{}
		c := NewCatalogCache(newTestLogger(), client, repo, ttl)

		redisMock.ExpectSMembers(itemKeysKey).SetVal([]string{"tent", "blanket"})

		keys, err := c.ListItemKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"blanket", "tent"}, keys)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		repo.AssertNotCalled(t, "ListItemKeys", mock.Anything)
	})

	t.Run("cache miss loads and stores", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := &mockCatalogRepository{}
		c := NewCatalogCache(newTestLogger(), client, repo, ttl)

		redisMock.ExpectSMembers(itemKeysKey).SetVal([]string{})
		repo.On("ListItemKeys", mock.Anything).Return([]string{"blanket", "tent"}, nil)
		redisMock.ExpectSAdd(itemKeysKey, "blanket", "tent").SetVal(2)
		redisMock.ExpectExpire(itemKeysKey, ttl).SetVal(true)

		keys, err := c.ListItemKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"blanket", "tent"}, keys)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		repo.AssertExpectations(t)
	})

	t.Run("redis failure falls back to database", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := &mockCatalogRepository{}
		c := NewCatalogCache(newTestLogger(), client, repo, ttl)

		redisMock.ExpectSMembers(itemKeysKey).SetErr(errors.New("connection refused"))
		repo.On("ListItemKeys", mock.Anything).Return([]string{"tent"}, nil)
		redisMock.ExpectSAdd(itemKeysKey, "tent").SetVal(1)
		redisMock.ExpectExpire(itemKeysKey, ttl).SetVal(true)

		keys, err := c.ListItemKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"tent"}, keys)
		repo.AssertExpectations(t)
	})

	t.Run("database failure is returned", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		repo := &mockCatalogRepository{}
		c := NewCatalogCache(newTestLogger(), client, repo, ttl)

		dbErr := errors.New("db down")
		redisMock.ExpectSMembers(itemKeysKey).RedisNil()
		repo.On("ListItemKeys", mock.Anything).Return(nil, dbErr)

		keys, err := c.ListItemKeys(ctx)
		assert.Nil(t, keys)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestCatalogCache_PassThrough(t *testing.T) {
	client, _ := redismock.NewClientMock()
	repo := &mockCatalogRepository{}
	c := NewCatalogCache(newTestLogger(), client, repo, time.Minute)

	actorID := uuid.New()
	actor := &catalog.Actor{ID: actorID, Role: catalog.RoleAdmin}
	repo.On("GetActor", mock.Anything, actorID).Return(actor, nil)

	got, err := c.GetActor(context.Background(), actorID)
	require.NoError(t, err)
	assert.Same(t, actor, got)
	repo.AssertExpectations(t)
}

func TestCatalogCache_Invalidate(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	c := NewCatalogCache(newTestLogger(), client, &mockCatalogRepository{}, time.Minute)

	redisMock.ExpectDel(itemKeysKey).SetVal(1)
	assert.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
