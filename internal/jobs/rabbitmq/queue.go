// Package rabbitmq carries analysis jobs over a RabbitMQ queue so the API
// and worker can run as separate processes.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/logger"
)

// DefaultQueueName is used when Config.Queue is empty.
const DefaultQueueName = "cashflow.analysis"

// retrySuffix names the delay queue. Messages wait there until their TTL
// expires and are then dead-lettered back onto the work queue.
const retrySuffix = ".retry"

const retryPublishTimeout = 10 * time.Second

// Config describes the broker connection.
type Config struct {
	URL          string
	Queue        string
	Prefetch     int
	Durable      bool
	Workers      int
	RetryBackoff time.Duration
}

// channel is the subset of *amqp.Channel the queue uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Queue publishes jobs as JSON messages and consumes them with manual acks.
// Job state is mirrored into a JobStore so the API can report progress.
type Queue struct {
	conn    *amqp.Connection
	ch      channel
	queue   string
	retry   string
	store   jobs.JobStore
	workers int
	backoff time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
	closed bool
}

// NewQueue dials the broker and declares the queue.
func NewQueue(cfg Config, store jobs.JobStore) (*Queue, error) {
	if cfg.URL == "" {
		return nil, errors.New("NewQueue: RabbitMQ URL is required")
	}
	name := cfg.Queue
	if name == "" {
		name = DefaultQueueName
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("NewQueue: dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("NewQueue: opening channel: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("NewQueue: setting qos: %w", err)
		}
	}
	if _, err := ch.QueueDeclare(name, cfg.Durable, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("NewQueue: declaring queue: %w", err)
	}
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": name,
	}
	if _, err := ch.QueueDeclare(name+retrySuffix, cfg.Durable, false, false, false, retryArgs); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("NewQueue: declaring retry queue: %w", err)
	}

	q := newQueue(ch, name, store, cfg.Workers, cfg.RetryBackoff)
	q.conn = conn
	return q, nil
}

func newQueue(ch channel, name string, store jobs.JobStore, workers int, backoff time.Duration) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{ch: ch, queue: name, retry: name + retrySuffix, store: store, workers: workers, backoff: backoff}
}

// Publish implements jobs.Publisher.
func (q *Queue) Publish(ctx context.Context, job *jobs.AnalysisJob) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return jobs.ErrQueueClosed
	}

	jobs.Prepare(job, time.Now())
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("Publish: saving job: %w", err)
		}
	}
	return q.send(ctx, q.queue, job, 0)
}

// send publishes job to key. A positive delay becomes the per-message TTL.
func (q *Queue) send(ctx context.Context, key string, job *jobs.AnalysisJob, delay time.Duration) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("Publish: encoding job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.JobID,
		Type:         string(job.Type),
		Body:         body,
	}
	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}
	err = q.ch.PublishWithContext(ctx, "", key, false, false, msg)
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}

// Start implements jobs.Consumer. It subscribes and returns; workers run
// until ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return jobs.ErrQueueClosed
	}
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	msgs, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("Start: subscribing: %w", err)
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					q.handle(ctx, msg, handler)
				}
			}
		}()
	}
	return nil
}

// handle runs one delivery. A retry is republished onto the delay queue with
// a fresh body so RetryCount survives the round trip, and the original is
// only acked once that publish succeeds. If it fails the original is
// requeued.
func (q *Queue) handle(ctx context.Context, msg amqp.Delivery, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	var job jobs.AnalysisJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageId).Msg("Dropping undecodable job message")
		_ = msg.Ack(false)
		return
	}

	jobs.MarkRunning(&job, time.Now())
	q.save(ctx, &job)

	err := handler(ctx, &job)
	retry := jobs.Finish(&job, err, time.Now())

	// The outcome is recorded even if Stop cancelled ctx mid-run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), retryPublishTimeout)
	defer cancel()
	q.save(ctx, &job)

	if !retry {
		_ = msg.Ack(false)
		return
	}

	delay := jobs.Backoff(q.backoff, job.RetryCount)
	log.Warn().
		Err(err).
		Str("job_id", job.JobID).
		Int("retry_count", job.RetryCount).
		Dur("delay", delay).
		Msg("Job failed, scheduling retry")

	retryJob := jobs.Clone(&job)
	jobs.ResetForRetry(retryJob)
	if err := q.send(ctx, q.retry, retryJob, delay); err != nil {
		log.Error().Err(err).Str("job_id", retryJob.JobID).Msg("Failed to republish job, requeueing delivery")
		_ = msg.Nack(false, true)
		return
	}
	q.save(ctx, retryJob)
	_ = msg.Ack(false)
}

func (q *Queue) save(ctx context.Context, job *jobs.AnalysisJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements jobs.Consumer.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops consuming and closes the broker connection.
func (q *Queue) Close() error {
	_ = q.Stop(context.Background())
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
