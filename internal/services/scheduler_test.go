package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, task services.FulfillmentTask) error

func (f handlerFunc) HandleTask(ctx context.Context, task services.FulfillmentTask) error {
	return f(ctx, task)
}

type capturePublisher struct {
	bodies [][]byte
}

func (p *capturePublisher) Publish(_ context.Context, body []byte) error {
	p.bodies = append(p.bodies, body)
	return nil
}

func TestQueueScheduler_RoundTrip(t *testing.T) {
	pub := &capturePublisher{}
	sched := services.NewQueueScheduler(pub)

	require.NoError(t, sched.Schedule(context.Background(), services.FulfillmentTask{Action: services.ActionProvision, OrderID: "o-1"}))
	require.Len(t, pub.bodies, 1)
	assert.JSONEq(t, `{"action":"provision","order_id":"o-1"}`, string(pub.bodies[0]))

	task, err := services.DecodeTask(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, services.FulfillmentTask{Action: services.ActionProvision, OrderID: "o-1"}, task)
}

func TestDecodeTask_Rejects(t *testing.T) {
	for _, body := range []string{`not json`, `{"action":"provision"}`, `{"action":"refund","order_id":"o-1"}`} {
		_, err := services.DecodeTask([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestLocalScheduler(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	handler := handlerFunc(func(_ context.Context, task services.FulfillmentTask) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task.OrderID)
		return nil
	})

	sched := services.NewLocalScheduler(handler, 2, 8, nil)
	sched.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, sched.Schedule(context.Background(), services.FulfillmentTask{Action: services.ActionProvision, OrderID: id}))
	}
	sched.Stop()

	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	mu.Unlock()

	err := sched.Schedule(context.Background(), services.FulfillmentTask{Action: services.ActionProvision, OrderID: "d"})
	assert.ErrorIs(t, err, services.ErrSchedulerClosed)
}

func TestLocalScheduler_FullQueueDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	handler := handlerFunc(func(context.Context, services.FulfillmentTask) error {
		<-release
		return nil
	})
	sched := services.NewLocalScheduler(handler, 1, 1, nil)
	sched.Start(context.Background())
	defer func() {
		close(release)
		sched.Stop()
	}()

	task := services.FulfillmentTask{Action: services.ActionProvision, OrderID: "x"}
	require.NoError(t, sched.Schedule(context.Background(), task))

	// The single worker is parked on the first task; one more fits the buffer.
	assert.Eventually(t, func() bool {
		return sched.Schedule(context.Background(), task) == nil
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, sched.Schedule(context.Background(), task), services.ErrSchedulerFull)
}
