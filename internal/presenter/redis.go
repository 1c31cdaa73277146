package presenter

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

const (
	// SummaryKeyPrefix prefixes the key that holds each batch summary.
	SummaryKeyPrefix = "drivenest:batch:"
	// SummaryTTL is how long batch summaries stay in Redis.
	SummaryTTL = 7 * 24 * time.Hour

	redisQueueSize = 1024
	redisTimeout   = 2 * time.Second
)

// RedisClient is the subset of *redis.Client the publisher uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis publishes every event as JSON on a channel and stores each batch
// summary under SummaryKeyPrefix+batchID. Publishing happens on its own
// goroutine so a slow Redis never stalls event delivery; when the buffer
// is full events are dropped with a warning.
type Redis struct {
	client  RedisClient
	channel string
	log     *logrus.Entry

	queue chan Envelope
	done  chan struct{}
	once  sync.Once
}

// NewRedisClient dials addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRedis starts the publisher goroutine.
func NewRedis(client RedisClient, channel string) *Redis {
	r := &Redis{
		client:  client,
		channel: channel,
		log:     logrus.WithField("component", "redis"),
		queue:   make(chan Envelope, redisQueueSize),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Redis) enqueue(env Envelope) {
	select {
	case r.queue <- env:
	default:
		r.log.WithField("type", env.Type).Warn("publish queue full, dropping event")
	}
}

func (r *Redis) loop() {
	defer close(r.done)
	for env := range r.queue {
		r.publish(env)
	}
}

func (r *Redis) publish(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		r.log.WithError(err).Error("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.WithError(err).Warn("publish failed")
	}
	if env.Type == TypeDone {
		if err := r.client.Set(ctx, SummaryKeyPrefix+env.BatchID, payload, SummaryTTL).Err(); err != nil {
			r.log.WithError(err).Warn("store summary failed")
		}
	}
}

// Close drains queued events and stops the publisher. Events arriving after
// Close must not happen; the upload manager is closed first.
func (r *Redis) Close() {
	r.once.Do(func() { close(r.queue) })
	<-r.done
}

func (r *Redis) TaskUpdated(u domain.TaskUpdate)      { r.enqueue(taskEnvelope(u)) }
func (r *Redis) BatchCompleted(s domain.BatchSummary) { r.enqueue(doneEnvelope(s)) }
func (r *Redis) FileRejected(x domain.Rejection)      { r.enqueue(rejectedEnvelope(x)) }
