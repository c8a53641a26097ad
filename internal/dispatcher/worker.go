package dispatcher

import (
    "context"
    "fmt"
    "math"
    "sync"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pdftables/internal/metrics"
    "github.com/local/pdftables/internal/queue"
)

type Queue interface {
    Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
    Ack(ctx context.Context, msgID string) error
    IsCancelled(ctx context.Context, jobID string) (bool, error)
    EnqueueDelayed(ctx context.Context, m queue.Message, executeAt time.Time) error
    AddDLQ(ctx context.Context, m queue.Message, reason string) error
}

// Runner executes conversion jobs.
type Runner interface {
    Run(ctx context.Context, jobID string, attempt int) error
    // Fail records that the job will not be retried.
    Fail(ctx context.Context, jobID string, cause error)
}

type Config struct {
    Concurrency    int
    Consumer       string
    JobTimeout     time.Duration
    MaxAttempts    int
    RetryBaseDelay time.Duration
    BackoffFactor  float64
    BlockTimeout   time.Duration
}

type Worker struct {
    cfg  Config
    q    Queue
    r    Runner
    stop chan struct{}
    wg   sync.WaitGroup
}

func New(cfg Config, q Queue, r Runner) *Worker {
    if cfg.Concurrency <= 0 { cfg.Concurrency = 2 }
    if cfg.Consumer == "" { cfg.Consumer = "worker" }
    if cfg.JobTimeout <= 0 { cfg.JobTimeout = 5 * time.Minute }
    if cfg.MaxAttempts <= 0 { cfg.MaxAttempts = 1 }
    if cfg.RetryBaseDelay <= 0 { cfg.RetryBaseDelay = 2 * time.Second }
    if cfg.BackoffFactor < 1 { cfg.BackoffFactor = 2 }
    if cfg.BlockTimeout <= 0 { cfg.BlockTimeout = 2 * time.Second }
    return &Worker{cfg: cfg, q: q, r: r, stop: make(chan struct{})}
}

func (w *Worker) Start() {
    for i := 0; i < w.cfg.Concurrency; i++ {
        w.wg.Add(1)
        go w.loop(i)
    }
}

// Stop signals the loops and waits for in-flight jobs until ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
    close(w.stop)
    done := make(chan struct{})
    go func() { w.wg.Wait(); close(done) }()
    select {
    case <-done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (w *Worker) loop(id int) {
    defer w.wg.Done()
    consumer := fmt.Sprintf("%s-%d", w.cfg.Consumer, id)
    log.Info().Int("worker", id).Msg("conversion worker started")
    for {
        select {
        case <-w.stop:
            log.Info().Int("worker", id).Msg("conversion worker stopped")
            return
        default:
        }

        msgID, data, err := w.q.Dequeue(context.Background(), consumer, w.cfg.BlockTimeout)
        if err != nil {
            log.Error().Err(err).Msg("queue dequeue error")
            time.Sleep(500 * time.Millisecond)
            continue
        }
        if msgID == "" { continue }
        w.handle(context.Background(), msgID, data)
    }
}

// handle processes one queue entry and always acknowledges it; retries are
// re-enqueued as new delayed entries.
func (w *Worker) handle(ctx context.Context, msgID string, data []byte) {
    defer func() {
        if err := w.q.Ack(ctx, msgID); err != nil {
            log.Error().Err(err).Str("msg_id", msgID).Msg("ack failed")
        }
    }()

    m, err := queue.Decode(data)
    if err != nil {
        log.Error().Err(err).Str("msg_id", msgID).Msg("dropping malformed queue entry")
        return
    }
    if cancelled, _ := w.q.IsCancelled(ctx, m.JobID); cancelled {
        log.Warn().Str("job_id", m.JobID).Msg("job cancelled before processing; skipping")
        return
    }

    jctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
    start := time.Now()
    err = w.r.Run(jctx, m.JobID, m.Attempt)
    cancel()
    if err == nil {
        metrics.IncJobs("completed")
        metrics.ObserveJob(time.Since(start))
        return
    }

    next := m.Attempt + 1
    if isTransientError(err) && next < w.cfg.MaxAttempts {
        delay := w.backoff(m.Attempt)
        log.Warn().Err(err).Str("job_id", m.JobID).Int("attempt", next).Dur("delay", delay).Msg("job failed, retrying")
        retry := queue.Message{JobID: m.JobID, Attempt: next}
        qerr := w.q.EnqueueDelayed(ctx, retry, time.Now().Add(delay))
        if qerr == nil {
            metrics.IncRetry()
            return
        }
        log.Error().Err(qerr).Str("job_id", m.JobID).Msg("could not schedule retry")
    }

    log.Error().Err(err).Str("job_id", m.JobID).Int("attempts", next).Bool("fatal", isFatalError(err)).Msg("job failed")
    if qerr := w.q.AddDLQ(ctx, m, err.Error()); qerr != nil {
        log.Error().Err(qerr).Str("job_id", m.JobID).Msg("dlq push failed")
    }
    w.r.Fail(ctx, m.JobID, err)
    metrics.IncJobs("failed")
}

func (w *Worker) backoff(attempt int) time.Duration {
    return time.Duration(float64(w.cfg.RetryBaseDelay) * math.Pow(w.cfg.BackoffFactor, float64(attempt)))
}
