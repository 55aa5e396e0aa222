package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
)

const dispatchTimeout = 15 * time.Second

// Queue hands notifications to dispatchers on background workers. Enqueue never blocks.
type Queue struct {
	ch          chan Notification
	dispatchers []Dispatcher
	log         *logrus.Entry
	workers     int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a queue with a bounded buffer.
func NewQueue(log *logrus.Entry, workers, buffer int, dispatchers ...Dispatcher) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Queue{
		ch:          make(chan Notification, buffer),
		dispatchers: dispatchers,
		log:         log.WithField("component", "notify"),
		workers:     workers,
	}
}

// Start launches the workers. They drain the buffer and exit after Close.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for n := range q.ch {
				q.dispatch(n)
			}
		}()
	}
}

// Enqueue schedules n. It reports false when the queue is full or closed.
func (q *Queue) Enqueue(n Notification) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- n:
		return true
	default:
		metrics.Notifications.WithLabelValues(metrics.ResultDropped).Inc()
		q.log.WithFields(logrus.Fields{"type": n.Type, "tenant": n.TenantID}).Warn("notification queue full, dropping")
		return false
	}
}

// Close stops accepting notifications and waits for the workers to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) dispatch(n Notification) {
	for _, d := range q.dispatchers {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err := d.Dispatch(ctx, n)
		cancel()
		if err != nil {
			metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
			q.log.WithError(err).WithFields(logrus.Fields{
				"type":   n.Type,
				"tenant": n.TenantID,
			}).Error("notification dispatch failed")
			continue
		}
		metrics.Notifications.WithLabelValues(metrics.ResultOK).Inc()
	}
}
