package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a list-backed queue (LPUSH / BRPOP). The client is owned by
// the caller.
type RedisQueue struct {
	client *redis.Client
	queue  string
	wait   time.Duration
}

func NewRedisQueue(client *redis.Client, queue string, blockWait time.Duration) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if queue == "" {
		queue = "hushpay:outbound"
	}
	if blockWait <= 0 {
		blockWait = 5 * time.Second
	}
	return &RedisQueue{client: client, queue: queue, wait: blockWait}, nil
}

func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	payload, err := encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := q.client.LPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		cancel()
	}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				values, err := q.client.BRPop(ctx, q.wait, q.queue).Result()
				if err != nil {
					if errors.Is(err, redis.Nil) {
						continue
					}
					if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
						return
					}
					fail(fmt.Errorf("redis consume: %w", err))
					return
				}
				if len(values) != 2 {
					continue
				}
				msg, err := decode([]byte(values[1]))
				if err != nil {
					continue
				}
				if handlerErr := handler(ctx, msg); handlerErr != nil {
					_ = q.client.RPush(context.WithoutCancel(ctx), q.queue, values[1]).Err()
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return context.Canceled
}

func (q *RedisQueue) Close() error { return nil }

var _ Queue = (*RedisQueue)(nil)
