package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the pub/sub channel carrying a job's events.
func EventsChannel(jobID string) string {
	return fmt.Sprintf("faktur:jobs:%s:events", jobID)
}

// PercentKey holds the last percent published for a job.
func PercentKey(jobID string) string {
	return fmt.Sprintf("faktur:jobs:%s:percent", jobID)
}

// RedisPublisher mirrors job events onto Redis pub/sub so other processes
// can follow a job.
type RedisPublisher struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisPublisher connects from a redis:// URL.
func NewRedisPublisher(redisURL string, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisPublisherFromClient(redis.NewClient(opts), logger), nil
}

func NewRedisPublisherFromClient(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, ttl: time.Hour, timeout: 2 * time.Second, logger: logger}
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Publish sends ev on the job channel; a progress event also updates the
// percent key.
func (p *RedisPublisher) Publish(ctx context.Context, jobID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Type == EventProgress {
		pipe := p.client.TxPipeline()
		pipe.Set(ctx, PercentKey(jobID), ev.Percent, p.ttl)
		pipe.Publish(ctx, EventsChannel(jobID), payload)
		_, err = pipe.Exec(ctx)
		return err
	}
	return p.client.Publish(ctx, EventsChannel(jobID), payload).Err()
}

// LastPercent reads the percent key; ok is false when nothing was published.
func (p *RedisPublisher) LastPercent(ctx context.Context, jobID string) (int, bool, error) {
	v, err := p.client.Get(ctx, PercentKey(jobID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Subscribe follows a job's channel until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, jobID string) (<-chan Event, error) {
	sub := p.client.Subscribe(ctx, EventsChannel(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan Event, defaultSubscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					p.logger.Warn("bad progress payload", "job_id", jobID, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Reporter returns a sink that publishes to jobID. Publish failures are
// logged and never reach the job.
func (p *RedisPublisher) Reporter(jobID string) Reporter {
	return redisReporter{p: p, jobID: jobID}
}

type redisReporter struct {
	p     *RedisPublisher
	jobID string
}

func (r redisReporter) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.p.timeout)
	defer cancel()
	if err := r.p.Publish(ctx, r.jobID, ev); err != nil {
		r.p.logger.Warn("redis progress publish failed", "job_id", r.jobID, "error", err)
	}
}

func (r redisReporter) Log(message string)   { r.send(LogEvent(message)) }
func (r redisReporter) Progress(percent int) { r.send(ProgressEvent(percent)) }
