// Package delivery owns outbound send attempts: an in-process retry queue and
// the multi-channel deliverer it drains into.
package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hrplatform/go-notification-engine/internal/metrics"
)

// Recipient pairs a recipient user ID with its persisted notification record
type Recipient struct {
	UserID   string
	RecordID primitive.ObjectID
}

// Task is one outbound send attempt batch. The notification records behind it
// are always persisted before the task is enqueued, so losing a queued task
// on restart loses only the attempt, never the intent.
type Task struct {
	ID         string
	Title      string
	Message    string
	URL        string
	Metadata   map[string]string
	Recipients []Recipient

	retries int
}

// TaskDeliverer attempts delivery of one task. Failures must be classified:
// only errors wrapped by Transient are retried.
type TaskDeliverer interface {
	Deliver(ctx context.Context, task *Task) error
}

const (
	defaultMaxRetries = 3
	defaultDrainDelay = 100 * time.Millisecond
)

// Queue is an in-process, FIFO, single-consumer retry queue for send tasks.
// Enqueue is fire-and-forget: exhausted tasks are logged and dropped, never
// surfaced to the caller. The queue is deliberately not durable.
type Queue struct {
	deliverer  TaskDeliverer
	maxRetries int
	drainDelay time.Duration
	log        zerolog.Logger

	mu       sync.Mutex
	tasks    []*Task
	draining bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// NewQueue creates a retry queue. Zero values select the defaults of
// 3 retries and a 100ms delay between drains.
func NewQueue(deliverer TaskDeliverer, maxRetries int, drainDelay time.Duration, log zerolog.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if drainDelay <= 0 {
		drainDelay = defaultDrainDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		deliverer:  deliverer,
		maxRetries: maxRetries,
		drainDelay: drainDelay,
		log:        log.With().Str("component", "send_queue").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Enqueue appends a task and starts the consumer if it is idle
func (q *Queue) Enqueue(task *Task) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn().Str("task_id", task.ID).Msg("queue closed, dropping task")
		return
	}
	q.tasks = append(q.tasks, task)
	metrics.SendQueueDepth.Set(float64(len(q.tasks)))
	start := !q.draining
	if start {
		q.draining = true
		q.done.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Len returns the number of queued tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Shutdown discards all queued tasks and stops the consumer. In-flight
// channel calls are not aborted, only never retried.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	discarded := len(q.tasks)
	q.tasks = nil
	q.mu.Unlock()

	q.cancel()
	q.done.Wait()

	metrics.SendQueueDepth.Set(0)
	if discarded > 0 {
		q.log.Warn().Int("discarded", discarded).Msg("send queue shut down with tasks remaining")
	}
}

func (q *Queue) drain() {
	defer q.done.Done()

	for {
		q.mu.Lock()
		if q.closed || len(q.tasks) == 0 {
			q.draining = false
			metrics.SendQueueDepth.Set(float64(len(q.tasks)))
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		metrics.SendQueueDepth.Set(float64(len(q.tasks)))
		q.mu.Unlock()

		q.attempt(task)

		// Fixed short delay between drains; keeps a failing provider from
		// turning retries into a tight spin.
		select {
		case <-q.ctx.Done():
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
			return
		case <-time.After(q.drainDelay):
		}
	}
}

func (q *Queue) attempt(task *Task) {
	err := q.deliverer.Deliver(q.ctx, task)
	if err == nil {
		return
	}

	if !IsTransient(err) {
		metrics.SendTasksDropped.Inc()
		q.log.Error().Err(err).Str("task_id", task.ID).Msg("terminal delivery failure, dropping task")
		return
	}

	if task.retries >= q.maxRetries {
		metrics.SendTasksDropped.Inc()
		q.log.Error().Err(err).Str("task_id", task.ID).Int("retries", task.retries).
			Msg("delivery retries exhausted, dropping task")
		return
	}

	task.retries++
	metrics.SendRetries.Inc()
	q.log.Warn().Err(err).Str("task_id", task.ID).Int("retry", task.retries).
		Msg("delivery failed, re-queueing task")

	q.mu.Lock()
	if !q.closed {
		q.tasks = append(q.tasks, task)
		metrics.SendQueueDepth.Set(float64(len(q.tasks)))
	}
	q.mu.Unlock()
}
