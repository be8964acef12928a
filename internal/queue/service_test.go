package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mahirjain10/image-handlers/config"
	"github.com/mahirjain10/image-handlers/internal/handlers"
	"github.com/mahirjain10/image-handlers/internal/queue/models"
	"github.com/mahirjain10/image-handlers/internal/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	errs map[string]error
	seen []string
}

func (h *stubHandler) Name() string { return "optimize" }

func (h *stubHandler) Handle(ctx context.Context, n types.UploadNotification) (types.Result, error) {
	h.seen = append(h.seen, n.Key)
	result := types.Result{Handler: h.Name(), Bucket: n.Bucket, Key: n.Key}
	if err := h.errs[n.Key]; err != nil {
		result.Outcome = types.OutcomeFailed
		return result, err
	}
	result.Outcome = types.OutcomeWritten
	result.Written = []string{n.Key}
	return result, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*types.StatusMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, message *types.StatusMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return p.err
}

func delivery(keys ...string) amqp.Delivery {
	body := `{"Records":[`
	for i, key := range keys {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"s3":{"bucket":{"name":"bucket"},"object":{"key":%q}}}`, key)
	}
	body += `]}`
	return amqp.Delivery{Body: []byte(body)}
}

func newTestService(publisher StatusPublisher) *RabbitMqService {
	return NewRabbitMqService(config.NewConfig(), nil, publisher, nil)
}

func TestProcessMessageHandlesEveryRecord(t *testing.T) {
	publisher := &recordingPublisher{}
	service := newTestService(publisher)
	h := &stubHandler{}

	err := service.ProcessMessage(context.Background(), h, delivery("a.jpg", "b.png"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.png"}, h.seen)
	require.Len(t, publisher.messages, 2)
	assert.Equal(t, statusRoutingKey, publisher.messages[0].Pattern)
	assert.Equal(t, types.PROCESSED, publisher.messages[0].Data.Status)
	assert.Equal(t, "b.png", publisher.messages[1].Data.Key)
}

func TestProcessMessageRejectsInvalidBody(t *testing.T) {
	service := newTestService(nil)

	err := service.ProcessMessage(context.Background(), &stubHandler{}, amqp.Delivery{Body: []byte("{not json")})
	require.Error(t, err)

	var procErr models.ProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.False(t, procErr.Requeue)
}

func TestProcessMessageWithoutRecords(t *testing.T) {
	h := &stubHandler{}
	assert.NoError(t, newTestService(nil).ProcessMessage(context.Background(), h, delivery()))
	assert.Empty(t, h.seen)
}

func TestProcessMessageRequeuesTransientStorageErrors(t *testing.T) {
	publisher := &recordingPublisher{}
	service := newTestService(publisher)
	h := &stubHandler{errs: map[string]error{
		"a.jpg": fmt.Errorf("%w: put bucket/a.jpg: SlowDown: please reduce your request rate", handlers.ErrStorage),
	}}

	err := service.ProcessMessage(context.Background(), h, delivery("a.jpg", "b.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, handlers.ErrStorage)

	var procErr models.ProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.True(t, procErr.Requeue)

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, h.seen)
	require.Len(t, publisher.messages, 2)
	assert.Equal(t, types.FAILED, publisher.messages[0].Data.Status)
	assert.NotEmpty(t, publisher.messages[0].Data.ErrorMsg)
	assert.Equal(t, types.PROCESSED, publisher.messages[1].Data.Status)
}

func TestProcessMessageDoesNotRequeueCodecErrors(t *testing.T) {
	h := &stubHandler{errs: map[string]error{
		"a.jpg": fmt.Errorf("%w: decode timeout", handlers.ErrCodec),
	}}

	err := newTestService(nil).ProcessMessage(context.Background(), h, delivery("a.jpg"))

	var procErr models.ProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.False(t, procErr.Requeue)
}

func TestProcessMessageIgnoresPublishFailure(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("channel closed")}
	err := newTestService(publisher).ProcessMessage(context.Background(), &stubHandler{}, delivery("a.jpg"))
	assert.NoError(t, err)
	assert.Len(t, publisher.messages, 1)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("context deadline exceeded"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("SlowDown: reduce your request rate"), true},
		{errors.New("ServiceUnavailable"), true},
		{errors.New("NoSuchKey: not found"), false},
		{errors.New("AccessDenied"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransientError(tt.err), "%v", tt.err)
	}
}

func TestSuperviseConsumersFailsWhenEveryConsumerReturns(t *testing.T) {
	var ran atomic.Int32
	stopped := func(ctx context.Context) { ran.Add(1) }

	err := superviseConsumers(context.Background(), []func(context.Context){stopped, stopped, stopped})
	assert.ErrorIs(t, err, ErrConsumersStopped)
	assert.Equal(t, int32(3), ran.Load())
}

func TestSuperviseConsumersKeepsRunningWhileOneConsumerLives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := func(ctx context.Context) {}
	running := func(ctx context.Context) { <-ctx.Done() }

	result := make(chan error, 1)
	go func() {
		result <- superviseConsumers(ctx, []func(context.Context){stopped, running})
	}()

	select {
	case err := <-result:
		t.Fatalf("returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("did not return after cancel")
	}
}

func TestSleepCtxStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.False(t, sleepCtx(ctx, time.Minute))
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
