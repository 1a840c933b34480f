package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_WriteRead(t *testing.T) {
	b := NewRing[int](4, DropOldest, nil)
	defer b.Close()

	_, ok := b.Read()
	assert.False(t, ok)

	require.NoError(t, b.Write(1))
	require.NoError(t, b.Write(2))
	assert.Equal(t, 2, b.Size())
	assert.Equal(t, 4, b.Capacity())

	v, ok := b.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = b.Read()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 0, b.Size())
}

func TestRing_DropOldest(t *testing.T) {
	var dropped []int
	b := NewRing[int](2, DropOldest, func(item int) {
		dropped = append(dropped, item)
	})
	defer b.Close()

	require.NoError(t, b.Write(1))
	require.NoError(t, b.Write(2))
	require.NoError(t, b.Write(3))

	assert.Equal(t, []int{1}, dropped)
	assert.Equal(t, []int{2, 3}, b.ReadBatch(10))
	assert.Equal(t, int64(1), b.Stats().Drops())
	assert.Equal(t, int64(1), b.Stats().Overflows())
}

func TestRing_DropNewest(t *testing.T) {
	var dropped []int
	b := NewRing[int](2, DropNewest, func(item int) {
		dropped = append(dropped, item)
	})
	defer b.Close()

	require.NoError(t, b.Write(1))
	require.NoError(t, b.Write(2))
	require.NoError(t, b.Write(3))

	assert.Equal(t, []int{3}, dropped)
	assert.Equal(t, []int{1, 2}, b.ReadBatch(10))
}

func TestRing_BlockPolicy(t *testing.T) {
	b := NewRing[int](1, Block, nil)
	defer b.Close()

	require.NoError(t, b.Write(1))

	unblocked := make(chan error, 1)
	go func() {
		unblocked <- b.Write(2)
	}()

	select {
	case <-unblocked:
		t.Fatal("write should block on a full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := b.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case err := <-unblocked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write did not unblock after read")
	}

	v, ok = b.Read()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRing_CloseUnblocksWriters(t *testing.T) {
	b := NewRing[int](1, Block, nil)
	require.NoError(t, b.Write(1))

	unblocked := make(chan error, 1)
	go func() {
		unblocked <- b.Write(2)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-unblocked:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked writer not released by Close")
	}

	assert.Error(t, b.Write(3))
}

func TestRing_ReadBatch(t *testing.T) {
	b := NewRing[int](8, DropOldest, nil)
	defer b.Close()

	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Write(i))
	}

	assert.Equal(t, []int{1, 2, 3}, b.ReadBatch(3))
	assert.Equal(t, []int{4, 5}, b.ReadBatch(10))
	assert.Nil(t, b.ReadBatch(10))
	assert.Nil(t, b.ReadBatch(0))
}

func TestRing_WrapAround(t *testing.T) {
	b := NewRing[int](3, DropOldest, nil)
	defer b.Close()

	for i := 1; i <= 10; i++ {
		require.NoError(t, b.Write(i))
	}

	assert.Equal(t, []int{8, 9, 10}, b.ReadBatch(3))
}

func TestRing_ConcurrentWriters(t *testing.T) {
	b := NewRing[int](1024, DropOldest, nil)
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Write(j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, b.Size())
	assert.Equal(t, int64(800), b.Stats().Writes())
}
