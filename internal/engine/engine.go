// Package engine implements C10: the consumer engine owning
// subscription, the bounded worker pool, the five-step per-record
// lifecycle, and per-partition commit ordering. Grounded on
// pkg/messaging/kafka/new_consumer.go's ConsumeWithWorkerPool
// (fetcher goroutine -> channel -> bounded worker pool -> per-worker
// panic recovery) and pkg/consumer/lifecycle.go's triple-select
// Start/sync.Once Shutdown, generalized from a placeholder sleep-loop
// worker to the real decode -> route -> execute -> classify ->
// schedule-retry-or-DLQ -> commit pipeline.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/archon-labs/intelligence-engine/internal/bus"
	"github.com/archon-labs/intelligence-engine/internal/corrctx"
	"github.com/archon-labs/intelligence-engine/internal/dlq"
	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/handlers"
	"github.com/archon-labs/intelligence-engine/internal/health"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
	"github.com/archon-labs/intelligence-engine/pkg/vos"
)

// nextEventID derives a fresh, time-sortable event ID for a synthetic
// envelope (a result or retry spawned from an original record) using
// pkg/vos's ULID value object. Falls back to a suffixed ID in the
// practically-unreachable case that entropy generation fails, so a
// publish never blocks on ID generation.
func nextEventID(original, suffix string) string {
	id, err := vos.NewULID()
	if err != nil {
		return original + suffix
	}
	return id.String()
}

// RetryMode selects how a retryable failure is rescheduled (spec §4.6).
type RetryMode string

const (
	// RetryModeRepublish re-publishes the retry envelope onto the bus, so
	// it is redelivered through the normal fetch/dispatch path like any
	// other request. The default: works identically across every bus
	// driver and survives an engine restart mid-delay.
	RetryModeRepublish RetryMode = "republish"

	// RetryModeInProcess redispatches the retry in-memory via
	// time.AfterFunc, without a bus round trip. Lower latency, but a
	// retry in flight is lost if the process restarts before the delay
	// elapses — acceptable for deployments that value throughput over
	// that edge case.
	RetryModeInProcess RetryMode = "inprocess"
)

// Config tunes the engine's concurrency and batching behavior.
type Config struct {
	Concurrency     int
	MaxPollRecords  int
	ShutdownTimeout time.Duration

	// HandlerTimeout bounds a single dispatcher.Dispatch call (spec
	// §4.10 step 2: "execute within a per-operation timeout"). Defaults
	// to 30s.
	HandlerTimeout time.Duration

	// RetryMode selects the reschedule strategy; defaults to
	// RetryModeRepublish.
	RetryMode RetryMode
}

// Engine is the C10 consumer loop: one Reader, one bounded worker pool,
// one commit-ordering actor that orders commits per partition.
type Engine struct {
	cfg        Config
	reader     bus.Reader
	dispatcher *handlers.Dispatcher
	classifier *retryclassifier.BackoffConfig
	dlqPub     *dlq.Publisher
	resultBus  bus.Writer
	resultTopic func(envelope.OperationType) string
	obs        observability.Observability

	workerCtx    context.Context
	stopWorkers  context.CancelFunc
	workers      sync.WaitGroup
	shutdownOnce sync.Once
	isRunning    bool
	mu           sync.Mutex

	fetchedCh chan bus.Record // registers fetch order, before dispatch to workers
	commitCh  chan bus.Record // signals a record finished processing, in completion order

	metrics   *health.Metrics   // nil unless WithMetrics is passed
	heartbeat *health.Heartbeat // nil unless WithHeartbeat is passed
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithMetrics wires the C11 Prometheus collectors into the engine's
// per-record lifecycle: handler latency/success/failure and DLQ
// publish counts.
func WithMetrics(m *health.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithHeartbeat wires the C11 liveness heartbeat into the engine's fetch
// loop: every successful fetch iteration touches it, so the health
// server's liveness check reflects whether the loop is actually making
// progress rather than just whether the process started.
func WithHeartbeat(h *health.Heartbeat) Option {
	return func(e *Engine) { e.heartbeat = h }
}

// New constructs an Engine. backoff governs the retry delay schedule;
// resultTopic maps a completed operation type to its completion topic.
func New(cfg Config, reader bus.Reader, dispatcher *handlers.Dispatcher, backoff retryclassifier.BackoffConfig, dlqPub *dlq.Publisher, resultBus bus.Writer, resultTopic func(envelope.OperationType) string, obs observability.Observability, opts ...Option) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MaxPollRecords <= 0 {
		cfg.MaxPollRecords = 10
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.RetryMode == "" {
		cfg.RetryMode = RetryModeRepublish
	}
	e := &Engine{
		cfg:         cfg,
		reader:      reader,
		dispatcher:  dispatcher,
		classifier:  &backoff,
		dlqPub:      dlqPub,
		resultBus:   resultBus,
		resultTopic: resultTopic,
		obs:         obs,
		fetchedCh:   make(chan bus.Record, cfg.MaxPollRecords*4),
		commitCh:    make(chan bus.Record, cfg.MaxPollRecords*4),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start runs the engine until ctx is cancelled, an unrecoverable error
// occurs, or an OS signal (SIGINT, SIGTERM) is received — the same
// triple-select shutdown pattern the teacher's HTTP and consumer
// servers both use.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine: already running")
	}
	e.isRunning = true
	e.workerCtx, e.stopWorkers = context.WithCancel(context.Background())
	e.mu.Unlock()

	e.obs.Logger().Info(ctx, "starting consumer engine",
		observability.Int("concurrency", e.cfg.Concurrency),
		observability.Int("max_poll_records", e.cfg.MaxPollRecords))

	errCh := make(chan error, 1)
	go func() {
		if err := e.run(e.workerCtx); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("%w (shutdown: %v)", err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case sig := <-sigCh:
		e.obs.Logger().Info(ctx, "signal received, initiating graceful shutdown", observability.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the fetcher, drains in-flight workers within ctx's
// deadline, and closes the reader. Safe to call once; subsequent calls
// are no-ops.
func (e *Engine) Shutdown(ctx context.Context) error {
	var shutdownErr error
	e.shutdownOnce.Do(func() {
		e.obs.Logger().Info(ctx, "shutting down consumer engine")
		if e.stopWorkers != nil {
			e.stopWorkers()
		}

		done := make(chan struct{})
		go func() {
			e.workers.Wait()
			close(done)
		}()

		select {
		case <-done:
			e.obs.Logger().Info(ctx, "all workers finished gracefully")
		case <-ctx.Done():
			e.obs.Logger().Warn(ctx, "shutdown timeout exceeded, abandoning still-running workers")
			shutdownErr = ctx.Err()
		}

		e.mu.Lock()
		e.isRunning = false
		e.mu.Unlock()

		if err := e.reader.Close(); err != nil {
			shutdownErr = fmt.Errorf("%w (close reader: %v)", shutdownErr, err)
		}
	})
	return shutdownErr
}

// run wires the fetcher goroutine, the commit-ordering worker, and the
// bounded worker pool together, and blocks until ctx is cancelled.
func (e *Engine) run(ctx context.Context) error {
	recordCh := make(chan bus.Record, e.cfg.Concurrency*2)

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		e.commitWorker(ctx)
	}()

	for i := 0; i < e.cfg.Concurrency; i++ {
		e.workers.Add(1)
		go func(id int) {
			defer e.workers.Done()
			e.worker(ctx, id, recordCh)
		}(i)
	}

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		defer close(recordCh)
		e.fetch(ctx, recordCh)
	}()

	<-ctx.Done()
	return nil
}

func (e *Engine) fetch(ctx context.Context, out chan<- bus.Record) {
	for {
		if ctx.Err() != nil {
			return
		}
		records, err := e.reader.FetchBatch(ctx, e.cfg.MaxPollRecords)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.obs.Logger().Error(ctx, "fetch error", observability.Error(err))
			continue
		}
		if e.heartbeat != nil {
			e.heartbeat.Beat(time.Now())
		}
		for _, r := range records {
			select {
			case e.fetchedCh <- r:
			case <-ctx.Done():
				return
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}

// worker implements the five-step per-record lifecycle: decode, route,
// execute, classify-on-failure, schedule-retry-or-DLQ, mark committable.
// A panic in any step is recovered per-record so one bad message never
// takes down the pool.
func (e *Engine) worker(ctx context.Context, id int, in <-chan bus.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-in:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						e.obs.Logger().Error(ctx, "panic in worker",
							observability.Int("worker_id", id), observability.Any("panic", r))
						e.commitCh <- record
					}
				}()
				e.processRecord(ctx, record)
			}()
		}
	}
}

func (e *Engine) processRecord(ctx context.Context, record bus.Record) {
	env, payload, err := envelope.Decode(record.Value)
	if err != nil {
		e.terminalFail(ctx, record, envelope.Envelope{}, retryclassifier.Classify(err), nil)
		return
	}
	e.dispatchAndHandle(ctx, record, env, payload)
}

// dispatchAndHandle runs one dispatch attempt for env/payload against
// record's eventual commit, and routes the outcome to success, retry,
// or terminal failure. Shared by the initial bus-fetched attempt and,
// under RetryModeInProcess, every subsequent in-memory redispatch, so a
// retried record is never decoded twice.
func (e *Engine) dispatchAndHandle(ctx context.Context, record bus.Record, env envelope.Envelope, payload any) {
	ctx = corrctx.With(ctx, env.CorrelationID)
	log := corrctx.Logger(ctx, e.obs)

	dispatchCtx, cancel := context.WithTimeout(ctx, e.cfg.HandlerTimeout)
	defer cancel()

	start := time.Now()
	result, ok, err := e.dispatcher.Dispatch(dispatchCtx, env.EventType, payload)
	if e.metrics != nil {
		e.metrics.HandlerLatencySeconds.WithLabelValues(string(env.EventType)).Observe(time.Since(start).Seconds())
	}
	if !ok {
		e.terminalFail(ctx, record, env, retryclassifier.WithClass(retryclassifier.ClassInvalidInput,
			fmt.Errorf("no handler registered for %q", env.EventType)), toDLQHistory(env.RetryHistory))
		return
	}
	if err != nil {
		classified := retryclassifier.Classify(err)
		if e.metrics != nil {
			e.metrics.HandlerFailureTotal.WithLabelValues(string(env.EventType), string(classified.Class)).Inc()
		}
		if classified.Retryable && env.RetryCount < e.classifier.MaxRetries {
			e.scheduleRetry(ctx, record, env, payload, classified)
			return
		}
		e.terminalFail(ctx, record, env, classified, toDLQHistory(env.RetryHistory))
		return
	}

	if e.metrics != nil {
		e.metrics.HandlerSuccessTotal.WithLabelValues(string(env.EventType)).Inc()
	}
	log.Info(ctx, "operation completed", observability.String("event_type", string(env.EventType)), observability.Bool("partial_results", result.PartialResults))
	e.publishResult(ctx, record, env, result)
}

// toDLQHistory converts an envelope's carried retry history into the DLQ
// record's own Attempt shape.
func toDLQHistory(history []envelope.RetryAttempt) []dlq.Attempt {
	if len(history) == 0 {
		return nil
	}
	out := make([]dlq.Attempt, len(history))
	for i, a := range history {
		out[i] = dlq.Attempt{
			AttemptNumber: a.AttemptNumber,
			Timestamp:     a.Timestamp,
			ErrorClass:    retryclassifier.ErrorClass(a.ErrorClass),
			Error:         a.Error,
			Backoff:       a.Backoff,
		}
	}
	return out
}

func (e *Engine) publishResult(ctx context.Context, record bus.Record, env envelope.Envelope, result handlers.Result) {
	if e.resultBus == nil {
		e.commitCh <- record
		return
	}

	completion := envelope.Envelope{
		EventID:       nextEventID(env.EventID, ":result"),
		EventType:     env.EventType,
		Kind:          envelope.KindCompletion,
		CorrelationID: env.CorrelationID,
		Timestamp:     time.Now().UTC(),
		Source:        env.Source,
	}
	completion, encErr := envelope.EncodePayload(completion, result.Data)
	if encErr != nil {
		e.obs.Logger().Error(ctx, "failed to encode completion payload", observability.Error(encErr))
		return
	}
	body, encErr := envelope.Encode(completion)
	if encErr != nil {
		e.obs.Logger().Error(ctx, "failed to encode completion envelope", observability.Error(encErr))
		return
	}

	topic := e.resultTopic(env.EventType)
	if pubErr := e.resultBus.Publish(ctx, topic, env.CorrelationID, nil, body); pubErr != nil {
		e.obs.Logger().Error(ctx, "failed to publish completion", observability.Error(pubErr))
		return
	}
	e.commitCh <- record
}

func (e *Engine) scheduleRetry(ctx context.Context, record bus.Record, env envelope.Envelope, payload any, classified *retryclassifier.ClassifiedError) {
	attemptNumber := env.RetryCount + 1
	delay := e.classifier.Delay(attemptNumber)
	e.obs.Logger().Warn(ctx, "scheduling retry",
		observability.String("error_class", string(classified.Class)),
		observability.Int("retry_count", attemptNumber),
		observability.String("delay", delay.String()))
	if e.metrics != nil {
		e.metrics.ActiveRetries.Inc()
		time.AfterFunc(delay, func() { e.metrics.ActiveRetries.Dec() })
	}

	attempt := envelope.RetryAttempt{
		AttemptNumber: attemptNumber,
		Timestamp:     time.Now().UTC(),
		ErrorClass:    string(classified.Class),
		Error:         classified.Error(),
		Backoff:       delay,
	}
	retryEnv := envelope.NewRetry(env, nextEventID(env.EventID, ":retry"), time.Now().UTC(), attempt)

	if e.cfg.RetryMode == RetryModeInProcess {
		time.AfterFunc(delay, func() {
			e.dispatchAndHandle(context.Background(), record, retryEnv, payload)
		})
		return
	}

	if e.resultBus != nil {
		body, encErr := envelope.Encode(retryEnv)
		if encErr == nil {
			time.AfterFunc(delay, func() {
				publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = e.resultBus.Publish(publishCtx, record.Topic, env.CorrelationID, nil, body)
			})
		}
	}
	e.commitCh <- record
}

func (e *Engine) terminalFail(ctx context.Context, record bus.Record, env envelope.Envelope, classified *retryclassifier.ClassifiedError, history []dlq.Attempt) {
	e.obs.Logger().Error(ctx, "terminal failure",
		observability.String("error_class", string(classified.Class)), observability.Error(classified))

	if e.dlqPub == nil {
		e.commitCh <- record
		return
	}

	if err := e.dlqPub.Publish(ctx, env, classified, history); err != nil {
		e.obs.Logger().Error(ctx, "failed to publish to DLQ, not committing", observability.Error(err))
		return // per spec §4.7, the offset is not committed when DLQ publish fails
	}
	if e.metrics != nil {
		e.metrics.DLQPublishTotal.Inc()
	}
	e.commitCh <- record
}

type partitionKey struct {
	topic     string
	partition int
}

// partitionQueue tracks fetch-order for one partition plus which of
// those records have finished processing, so the commit worker can
// advance only the contiguous completed prefix.
type partitionQueue struct {
	order []int64 // offsets in fetch order, not yet committed
	done  map[int64]bus.Record
}

// commitWorker is the single actor that commits offsets. Workers run
// concurrently and may finish out of fetch order; this worker buffers
// completions per partition and only commits the contiguous prefix
// starting from the oldest still-pending record, so a record is never
// committed ahead of an earlier uncommitted record on the same
// partition — no worker ever calls Commit directly.
func (e *Engine) commitWorker(ctx context.Context) {
	state := make(map[partitionKey]*partitionQueue)

	keyOf := func(r bus.Record) partitionKey { return partitionKey{topic: r.Topic, partition: r.Partition} }

	for {
		select {
		case <-ctx.Done():
			return

		case record, ok := <-e.fetchedCh:
			if !ok {
				return
			}
			k := keyOf(record)
			q, exists := state[k]
			if !exists {
				q = &partitionQueue{done: make(map[int64]bus.Record)}
				state[k] = q
			}
			q.order = append(q.order, record.Offset)

		case record, ok := <-e.commitCh:
			if !ok {
				return
			}
			k := keyOf(record)
			q, exists := state[k]
			if !exists {
				// registered before the engine started tracking (e.g. a
				// retried/synthetic record); commit it directly.
				if err := e.reader.Commit(ctx, []bus.Record{record}); err != nil {
					e.obs.Logger().Error(ctx, "commit failed", observability.Error(err))
				}
				continue
			}
			q.done[record.Offset] = record

			var ready []bus.Record
			for len(q.order) > 0 {
				front := q.order[0]
				rec, isDone := q.done[front]
				if !isDone {
					break
				}
				ready = append(ready, rec)
				delete(q.done, front)
				q.order = q.order[1:]
			}
			if len(ready) == 0 {
				continue
			}
			if err := e.reader.Commit(ctx, ready); err != nil {
				e.obs.Logger().Error(ctx, "commit failed", observability.Error(err))
			}
			if len(q.order) == 0 && len(q.done) == 0 {
				delete(state, k)
			}
		}
	}
}
