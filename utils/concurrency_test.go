package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPathSetNoDuplicates(t *testing.T) {
	s := NewPathSet()

	assert.True(t, s.Add("reports/june.csv"), "first Add should return true")
	assert.False(t, s.Add("reports/june.csv"), "second Add of same path should return false")
	assert.False(t, s.Add("./reports/../reports/june.csv"), "cleaned path is the same file")
	assert.True(t, s.Add("reports/july.csv"))
}

func TestPathSetConcurrency(t *testing.T) {
	s := NewPathSet()
	var added int64

	pool := NewWorkerPool(10)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("reports/same.csv") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	assert.Equal(t, int64(1), added, "expected exactly 1 successful add")
}

func TestWorkerPoolRunsEveryJob(t *testing.T) {
	pool := NewWorkerPool(4)
	var done int64
	for i := 0; i < 50; i++ {
		pool.Submit(func() { atomic.AddInt64(&done, 1) })
	}
	pool.Wait()
	assert.Equal(t, int64(50), done)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)
	var running, peak int64
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()
	assert.LessOrEqual(t, peak, int64(2))
	assert.GreaterOrEqual(t, peak, int64(1))
}

func TestNewWorkerPoolClampsWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	assert.Equal(t, 1, cap(pool.slots))
}
