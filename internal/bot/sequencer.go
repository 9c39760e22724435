package bot

import (
	"context"
	"sync"
)

// Sequencer runs jobs for the same key one at a time in submission order.
// Jobs for different keys run concurrently. Each key gets a worker
// goroutine that exits once its queue drains.
type Sequencer struct {
	mu     sync.Mutex
	queues map[int64]*queue
	wg     sync.WaitGroup
}

type queue struct {
	jobs []func()
}

func NewSequencer() *Sequencer {
	return &Sequencer{queues: make(map[int64]*queue)}
}

// Go enqueues job for key and returns immediately.
func (s *Sequencer) Go(key int64, job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[key]; ok {
		q.jobs = append(q.jobs, job)
		return
	}
	q := &queue{jobs: []func(){job}}
	s.queues[key] = q
	s.wg.Add(1)
	go s.drain(key, q)
}

func (s *Sequencer) drain(key int64, q *queue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.jobs) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		s.mu.Unlock()
		job()
	}
}

// Do enqueues job for key and waits for it to finish or for ctx to end.
// A job abandoned by ctx still runs in order.
func (s *Sequencer) Do(ctx context.Context, key int64, job func()) error {
	done := make(chan struct{})
	s.Go(key, func() {
		defer close(done)
		job()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every queued job has run.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
