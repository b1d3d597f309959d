package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(c)
	t.Cleanup(func() {
		_ = c.Close()
		SetClient(nil)
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]entry) func() error {
		return func() error {
			calls++
			*dest = []entry{{ID: 1, Name: "Sport"}, {ID: 2, Name: "Music"}}
			return nil
		}
	}

	var first []entry
	require.NoError(t, Aside(ctx, CategoriesKey, &first, CategoriesTTL, fetch(&first)))
	assert.Len(t, first, 2)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(CategoriesKey))
	assert.Equal(t, CategoriesTTL, mr.TTL(CategoriesKey))

	var second []entry
	require.NoError(t, Aside(ctx, CategoriesKey, &second, CategoriesTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second read must be served from cache")

	Invalidate(ctx, CategoriesKey)
	assert.False(t, mr.Exists(CategoriesKey))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("db down")

	var dest []entry
	err := Aside(context.Background(), CategoriesKey, &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(CategoriesKey))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)

	var dest []entry
	err := Aside(context.Background(), CategoriesKey, &dest, time.Minute, func() error {
		dest = []entry{{ID: 3, Name: "Travel"}}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []entry{{ID: 3, Name: "Travel"}}, dest)
}

func TestGetJSON_CorruptValue(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set(CategoriesKey, "{not json"))

	var dest []entry
	found, err := GetJSON(context.Background(), CategoriesKey, &dest)
	assert.False(t, found)
	assert.Error(t, err)

	calls := 0
	require.NoError(t, Aside(context.Background(), CategoriesKey, &dest, time.Minute, func() error {
		calls++
		dest = []entry{{ID: 1, Name: "Sport"}}
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	c := Connect("redis://" + mr.Addr() + "/0")
	require.NotNil(t, c)
	defer c.Close()
	assert.Same(t, c, client)

	assert.Nil(t, Connect("redis://%zz"))
	assert.Nil(t, client)
}
