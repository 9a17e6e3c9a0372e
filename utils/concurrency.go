package utils

import (
	"path/filepath"
	"sync"
)

// WorkerPool runs submitted jobs on at most maxWorkers goroutines at a time.
type WorkerPool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool. maxWorkers below 1 means 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{slots: make(chan struct{}, maxWorkers)}
}

// Submit blocks until a worker slot is free, then runs job in the background.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.slots <- struct{}{}
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// PathSet records input files already scheduled. Paths are compared after
// filepath.Clean, so "./june.csv" and "june.csv" are the same file.
type PathSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewPathSet() *PathSet {
	return &PathSet{seen: make(map[string]struct{})}
}

// Add reports whether path was not yet in the set.
func (s *PathSet) Add(path string) bool {
	key := filepath.Clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}
