package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TaskAction names the carrier-side work a fulfillment task asks for.
type TaskAction string

const (
	ActionProvision      TaskAction = "provision"
	ActionCancelShipment TaskAction = "cancel_shipment"
)

// FulfillmentTask is the message placed on the fulfillment queue.
type FulfillmentTask struct {
	Action  TaskAction `json:"action"`
	OrderID string     `json:"order_id"`
}

var (
	// ErrSchedulerClosed is returned when a task is scheduled after shutdown began.
	ErrSchedulerClosed = errors.New("fulfillment scheduler closed")
	ErrSchedulerFull   = errors.New("fulfillment scheduler queue full")
)

// FulfillmentScheduler hands carrier work off the request path.
type FulfillmentScheduler interface {
	Schedule(ctx context.Context, task FulfillmentTask) error
}

// TaskHandler executes a fulfillment task.
type TaskHandler interface {
	HandleTask(ctx context.Context, task FulfillmentTask) error
}

// TaskPublisher is the broker side of QueueScheduler.
type TaskPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueScheduler publishes tasks to a message broker for a consumer to pick up.
type QueueScheduler struct {
	publisher TaskPublisher
}

// NewQueueScheduler creates a scheduler that publishes through p.
func NewQueueScheduler(p TaskPublisher) *QueueScheduler {
	return &QueueScheduler{publisher: p}
}

// Schedule implements FulfillmentScheduler.
func (s *QueueScheduler) Schedule(ctx context.Context, task FulfillmentTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment task: %w", err)
	}
	return s.publisher.Publish(ctx, body)
}

// DecodeTask parses a message published by QueueScheduler.
func DecodeTask(body []byte) (FulfillmentTask, error) {
	var task FulfillmentTask
	if err := json.Unmarshal(body, &task); err != nil {
		return task, fmt.Errorf("failed to decode fulfillment task: %w", err)
	}
	if task.OrderID == "" {
		return task, errors.New("fulfillment task has no order id")
	}
	switch task.Action {
	case ActionProvision, ActionCancelShipment:
	default:
		return task, fmt.Errorf("unknown fulfillment action %q", task.Action)
	}
	return task, nil
}

// LocalScheduler runs tasks on a bounded pool of goroutines. It is used when no broker
// is configured; anything it drops is picked up later by the reconciliation worker.
type LocalScheduler struct {
	handler TaskHandler
	logger  *zap.Logger
	workers int

	mu     sync.RWMutex
	closed bool
	tasks  chan FulfillmentTask
	wg     sync.WaitGroup
}

// NewLocalScheduler creates a scheduler with the given worker count and buffer size.
func NewLocalScheduler(handler TaskHandler, workers, buffer int, logger *zap.Logger) *LocalScheduler {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalScheduler{
		handler: handler,
		logger:  logger.Named("scheduler"),
		workers: workers,
		tasks:   make(chan FulfillmentTask, buffer),
	}
}

// Start launches the workers. They run until Stop is called; ctx bounds each task.
func (s *LocalScheduler) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for task := range s.tasks {
				if err := s.handler.HandleTask(ctx, task); err != nil {
					s.logger.Warn("fulfillment task failed",
						zap.String("action", string(task.Action)),
						zap.String("order_id", task.OrderID),
						zap.Error(err))
				}
			}
		}()
	}
}

// Schedule implements FulfillmentScheduler. It never blocks.
func (s *LocalScheduler) Schedule(ctx context.Context, task FulfillmentTask) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	select {
	case s.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSchedulerFull
	}
}

// Stop drains queued tasks and waits for the workers to exit.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.tasks)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
