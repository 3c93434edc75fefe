package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue is the minimal pub/sub contract the server uses to run engagement
// batches off the request path.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is a process-local queue with bounded retry. It backs the
// operator-triggered run dispatch; durable call dispatch goes through amqp.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	Log      *zap.SugaredLogger
}

func NewInMemoryQueue(log *zap.SugaredLogger) *InMemoryQueue {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
		Log:      log,
	}
}

type job struct {
	payload    any
	retryCount int
	maxRetries int
}

// Publish delivers the payload to every subscriber asynchronously.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	j := job{payload: payload, maxRetries: 3}
	for _, handler := range handlers {
		go q.process(topic, handler, j)
	}
	return nil
}

func (q *InMemoryQueue) process(topic string, handler func(payload any) error, j job) {
	for j.retryCount <= j.maxRetries {
		err := handler(j.payload)
		if err == nil {
			return
		}

		j.retryCount++
		q.Log.Warnw("queue job failed",
			"topic", topic, "attempt", j.retryCount, "max", j.maxRetries, "err", err)
		if j.retryCount > j.maxRetries {
			q.Log.Errorw("queue job permanently failed", "topic", topic, "err", err)
			return
		}
		time.Sleep(time.Duration(j.retryCount*500) * time.Millisecond)
	}
}

// Subscribe registers a handler for a topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
