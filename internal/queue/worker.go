package queue

import (
	"context"
	"sync"
	"time"

	"govalert/internal/metrics"
	"govalert/pkg/logger"
)

// HandlerFunc executes one task. Handlers own their retry policy: a handler
// that wants another attempt re-enqueues with a delay and returns nil.
type HandlerFunc func(ctx context.Context, task Task) error

// Worker polls the delayed queue and dispatches due tasks by kind.
type Worker struct {
	queue     *RedisQueue
	handlers  map[Kind]HandlerFunc
	log       *logger.Logger
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewWorker(q *RedisQueue, log *logger.Logger) *Worker {
	return &Worker{
		queue:     q,
		handlers:  make(map[Kind]HandlerFunc),
		log:       log,
		interval:  500 * time.Millisecond,
		batchSize: 50,
		stopChan:  make(chan struct{}),
	}
}

func (w *Worker) Register(kind Kind, h HandlerFunc) {
	w.handlers[kind] = h
}

// Start begins the worker loop
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processBatch()
		}
	}
}

func (w *Worker) processBatch() {
	ctx := context.Background()
	tasks, err := w.queue.PollDue(ctx, w.batchSize)
	if err != nil {
		w.log.Errorf("queue poll failed: %v", err)
		return
	}

	for _, task := range tasks {
		handler, ok := w.handlers[task.Kind]
		if !ok {
			w.log.Errorf("no handler registered for task kind %s", task.Kind)
			continue
		}
		metrics.QueueTasksProcessedTotal.WithLabelValues(string(task.Kind)).Inc()
		if err := handler(ctx, task); err != nil {
			metrics.QueueTaskFailuresTotal.WithLabelValues(string(task.Kind)).Inc()
			w.log.Errorf("task %s (%s) failed: %v", task.ID, task.Kind, err)
		}
	}
}
