package queue

import (
    "context"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog/log"
)

// Options configures a RedisQueue.
type Options struct {
    URL    string
    Stream string
    Group  string
    // Poll is the delayed-entry promotion interval.
    Poll      time.Duration
    ClaimIdle time.Duration
    CancelTTL time.Duration
}

// Keys are the redis keys derived from a stream name.
type Keys struct {
    Stream  string
    Delayed string
    Dead    string
    cancel  string
}

func keysFor(stream string) Keys {
    return Keys{
        Stream:  stream,
        Delayed: stream + ":delayed",
        Dead:    stream + ":dlq",
        cancel:  stream + ":cancelled:",
    }
}

// Cancelled is the flag key for one job.
func (k Keys) Cancelled(jobID string) string { return k.cancel + jobID }

// Depth is a snapshot of queue sizes.
type Depth struct {
    Ready   int64
    Delayed int64
    Dead    int64
}

// RedisQueue carries conversion jobs over a Redis stream read by a consumer
// group. Retries wait in a sorted set until due.
type RedisQueue struct {
    client *redis.Client
    keys   Keys
    opts   Options
    stop   chan struct{}
}

// NewRedisQueue connects, bootstraps the consumer group and starts promoting
// delayed entries.
func NewRedisQueue(ctx context.Context, opts Options) (*RedisQueue, error) {
    ro, err := redis.ParseURL(opts.URL)
    if err != nil {
        return nil, fmt.Errorf("parse redis url: %w", err)
    }
    if opts.Poll <= 0 { opts.Poll = 200 * time.Millisecond }
    if opts.CancelTTL <= 0 { opts.CancelTTL = 24 * time.Hour }

    q := &RedisQueue{client: redis.NewClient(ro), keys: keysFor(opts.Stream), opts: opts, stop: make(chan struct{})}
    bootCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    if err := q.bootstrap(bootCtx); err != nil {
        _ = q.client.Close()
        return nil, err
    }
    go q.promoteLoop()
    return q, nil
}

func (q *RedisQueue) bootstrap(ctx context.Context) error {
    if err := q.client.Ping(ctx).Err(); err != nil {
        return fmt.Errorf("redis ping: %w", err)
    }
    err := q.client.XGroupCreateMkStream(ctx, q.keys.Stream, q.opts.Group, "$").Err()
    if err != nil && !isBusyGroupErr(err) {
        return fmt.Errorf("create group %s on %s: %w", q.opts.Group, q.keys.Stream, err)
    }
    return nil
}

func isBusyGroupErr(err error) bool {
    return err != nil && strings.HasPrefix(strings.ToUpper(err.Error()), "BUSYGROUP")
}

func (q *RedisQueue) Close() error {
    close(q.stop)
    return q.client.Close()
}

// Ping checks redis connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error { return q.client.Ping(ctx).Err() }

// Enqueue appends a job entry to the stream.
func (q *RedisQueue) Enqueue(ctx context.Context, m Message) error {
    return q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.keys.Stream, Values: entry(m)}).Err()
}

// EnqueueDelayed parks a job until executeAt.
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, m Message, executeAt time.Time) error {
    return q.client.ZAdd(ctx, q.keys.Delayed, redis.Z{Score: float64(executeAt.UnixMilli()), Member: string(m.Encode())}).Err()
}

func entry(m Message) map[string]any { return map[string]any{"data": string(m.Encode())} }

// Dequeue returns one entry for consumer, preferring entries abandoned by
// other consumers for longer than ClaimIdle. An empty id means nothing
// arrived within timeout.
func (q *RedisQueue) Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error) {
    if msg, ok := q.reclaim(ctx, consumer); ok {
        return msg.ID, payload(msg), nil
    }
    res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
        Group:    q.opts.Group,
        Consumer: consumer,
        Streams:  []string{q.keys.Stream, ">"},
        Count:    1,
        Block:    timeout,
    }).Result()
    if errors.Is(err, redis.Nil) {
        return "", nil, nil
    }
    if err != nil {
        return "", nil, err
    }
    if len(res) == 0 || len(res[0].Messages) == 0 {
        return "", nil, nil
    }
    msg := res[0].Messages[0]
    return msg.ID, payload(msg), nil
}

func (q *RedisQueue) reclaim(ctx context.Context, consumer string) (redis.XMessage, bool) {
    if q.opts.ClaimIdle <= 0 {
        return redis.XMessage{}, false
    }
    msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
        Stream:   q.keys.Stream,
        Group:    q.opts.Group,
        Consumer: consumer,
        MinIdle:  q.opts.ClaimIdle,
        Start:    "0-0",
        Count:    1,
    }).Result()
    if err != nil || len(msgs) == 0 {
        return redis.XMessage{}, false
    }
    log.Warn().Str("component", "queue").Str("msg_id", msgs[0].ID).Str("consumer", consumer).Msg("reclaimed stalled entry")
    return msgs[0], true
}

// payload extracts the data field of a stream entry.
func payload(msg redis.XMessage) []byte {
    switch v := msg.Values["data"].(type) {
    case string:
        return []byte(v)
    case []byte:
        return v
    }
    return nil
}

// Ack marks a message as processed.
func (q *RedisQueue) Ack(ctx context.Context, msgID string) error {
    if msgID == "" { return nil }
    return q.client.XAck(ctx, q.keys.Stream, q.opts.Group, msgID).Err()
}

// CancelJob flags a job as cancelled. The flag expires after CancelTTL.
func (q *RedisQueue) CancelJob(ctx context.Context, jobID string) error {
    return q.client.Set(ctx, q.keys.Cancelled(jobID), 1, q.opts.CancelTTL).Err()
}

func (q *RedisQueue) IsCancelled(ctx context.Context, jobID string) (bool, error) {
    n, err := q.client.Exists(ctx, q.keys.Cancelled(jobID)).Result()
    return n == 1, err
}

// AddDLQ records a job that will not be retried.
func (q *RedisQueue) AddDLQ(ctx context.Context, m Message, reason string) error {
    values := entry(m)
    values["reason"] = reason
    values["failed_at"] = time.Now().UTC().Format(time.RFC3339)
    return q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.keys.Dead, Values: values}).Err()
}

func (q *RedisQueue) promoteLoop() {
    ticker := time.NewTicker(q.opts.Poll)
    defer ticker.Stop()
    for {
        select {
        case <-q.stop:
            return
        case <-ticker.C:
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            if n, err := q.promoteDue(ctx, time.Now()); err != nil {
                log.Debug().Err(err).Str("component", "queue").Msg("promote delayed entries")
            } else if n > 0 {
                log.Debug().Int("count", n).Str("component", "queue").Msg("promoted delayed entries")
            }
            cancel()
        }
    }
}

// promoteDue moves delayed entries due at now onto the stream.
func (q *RedisQueue) promoteDue(ctx context.Context, now time.Time) (int, error) {
    due, err := q.client.ZRangeByScore(ctx, q.keys.Delayed, &redis.ZRangeBy{
        Min: "-inf", Max: strconv.FormatInt(now.UnixMilli(), 10), Count: 100,
    }).Result()
    if err != nil || len(due) == 0 {
        return 0, err
    }
    _, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
        for _, member := range due {
            pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.keys.Stream, Values: map[string]any{"data": member}})
            pipe.ZRem(ctx, q.keys.Delayed, member)
        }
        return nil
    })
    if err != nil {
        return 0, err
    }
    return len(due), nil
}

// Depths returns queue sizes for metrics.
func (q *RedisQueue) Depths(ctx context.Context) (Depth, error) {
    var d Depth
    pipe := q.client.Pipeline()
    ready := pipe.XLen(ctx, q.keys.Stream)
    delayed := pipe.ZCard(ctx, q.keys.Delayed)
    dead := pipe.XLen(ctx, q.keys.Dead)
    if _, err := pipe.Exec(ctx); err != nil { return d, err }
    d.Ready, d.Delayed, d.Dead = ready.Val(), delayed.Val(), dead.Val()
    return d, nil
}
