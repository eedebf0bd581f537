package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BasicOperations(t *testing.T) {
	c := New(5*time.Minute, 10*time.Minute)

	c.Set("stats", "value1")
	val, found := c.Get("stats")
	require.True(t, found)
	assert.Equal(t, "value1", val)

	_, found = c.Get("nonexistent")
	assert.False(t, found)

	c.Delete("stats")
	_, found = c.Get("stats")
	assert.False(t, found)

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.ItemCount())
	assert.Equal(t, Stats{ItemCount: 2}, c.GetStats())

	c.Clear()
	assert.Equal(t, 0, c.ItemCount())
}

func TestCache_Expiration(t *testing.T) {
	c := New(20*time.Millisecond, time.Minute)
	c.Set("stats", "v")

	time.Sleep(50 * time.Millisecond)

	_, found := c.Get("stats")
	assert.False(t, found)
}

func TestCache_RememberLoadsOnce(t *testing.T) {
	c := New(time.Minute, time.Minute)
	var loads atomic.Int32

	load := func() (any, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "badge", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Remember("stats", load)
			assert.NoError(t, err)
			assert.Equal(t, "badge", v)
		}()
	}
	wg.Wait()

	v, err := c.Remember("stats", load)
	require.NoError(t, err)
	assert.Equal(t, "badge", v)
	assert.Equal(t, int32(1), loads.Load())
}

func TestCache_RememberDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute, time.Minute)
	boom := errors.New("boom")

	_, err := c.Remember("stats", func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, found := c.Get("stats")
	assert.False(t, found)

	v, err := c.Remember("stats", func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
