package statuscheck

import (
    "context"
    "errors"
    "sync"
    "time"
)

// Pinger models the minimal capability needed for a dependency check.
type Pinger interface {
    Ping(ctx context.Context) error
}

// StorageChecker is satisfied by every storage backend.
type StorageChecker interface {
    Name() string
    Check(ctx context.Context) error
}

// Options configures the Checker.
type Options struct {
    Redis   Pinger
    Queue   Pinger
    Storage StorageChecker
}

// Checker probes the service dependencies concurrently.
type Checker struct {
    opts Options
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK        bool   `json:"ok"`
    Message   string `json:"message"`
    LatencyMS int64  `json:"latency_ms"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Redis   Status `json:"redis"`
    Queue   Status `json:"queue"`
    Storage Status `json:"storage"`
}

// Healthy reports whether every subsystem is OK.
func (s Summary) Healthy() bool { return s.Redis.OK && s.Queue.OK && s.Storage.OK }

func New(opts Options) *Checker { return &Checker{opts: opts} }

// probe is one dependency check. A nil probe means the dependency is missing.
type probe struct {
    check   func(context.Context) error
    timeout time.Duration
    okMsg   string
    missing string
}

func pingProbe(p Pinger) probe {
    pr := probe{timeout: 2 * time.Second, okMsg: "Connected", missing: "client unavailable"}
    if p != nil {
        pr.check = p.Ping
    }
    return pr
}

func storageProbe(s StorageChecker) probe {
    pr := probe{timeout: 5 * time.Second, missing: "not configured"}
    if s != nil {
        pr.check = s.Check
        pr.okMsg = s.Name() + " available"
    }
    return pr
}

// Summary runs all probes and returns the snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    var sum Summary
    targets := []struct {
        p   probe
        out *Status
    }{
        {pingProbe(c.opts.Redis), &sum.Redis},
        {pingProbe(c.opts.Queue), &sum.Queue},
        {storageProbe(c.opts.Storage), &sum.Storage},
    }
    var wg sync.WaitGroup
    for _, t := range targets {
        wg.Add(1)
        go func(p probe, out *Status) {
            defer wg.Done()
            *out = p.run(ctx)
        }(t.p, t.out)
    }
    wg.Wait()
    return sum
}

func (p probe) run(ctx context.Context) Status {
    if p.check == nil {
        return Status{Message: p.missing}
    }
    ctx, cancel := context.WithTimeout(ctx, p.timeout)
    defer cancel()
    start := time.Now()
    err := p.check(ctx)
    st := Status{LatencyMS: time.Since(start).Milliseconds()}
    if err != nil {
        st.Message = describe(err)
        return st
    }
    st.OK, st.Message = true, p.okMsg
    return st
}

// describe shortens an error for the health payload.
func describe(err error) string {
    var netErr interface{ Timeout() bool }
    if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
