package workerpool_test

import (
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vmcmoto/motoportal/pkg/workerpool"
)

func TestPool_RunsEveryTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := workerpool.New(4)
	var count atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Go(func() { count.Add(1) }))
	}
	pool.Shutdown()

	assert.Equal(t, int64(100), count.Load())
}

func TestPool_GoAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := workerpool.New(2)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Go(func() {}), workerpool.ErrPoolClosed)
}

func TestMap_KeepsInputOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	items := []string{"1", "2", "x", "4"}
	res := workerpool.Map(3, items, strconv.Atoi)

	require.Len(t, res, 4)
	assert.Equal(t, 1, res[0].Value)
	assert.Equal(t, 2, res[1].Value)
	assert.Error(t, res[2].Err)
	assert.Equal(t, 4, res[3].Value)
}

func TestMap_PanicBecomesError(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := workerpool.Map(2, []int{1, 0, 3}, func(n int) (int, error) {
		if n == 0 {
			panic("corrupt image header")
		}
		return 10 / n, nil
	})

	assert.NoError(t, res[0].Err)
	require.Error(t, res[1].Err)
	assert.Contains(t, res[1].Err.Error(), "corrupt image header")
	assert.Equal(t, 3, res[2].Value)
}

func TestMap_Empty(t *testing.T) {
	res := workerpool.Map(4, nil, func(int) (int, error) { return 0, errors.New("never called") })
	assert.Empty(t, res)
}
