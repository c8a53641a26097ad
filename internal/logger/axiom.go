package logger

import (
    "context"
    "encoding/json"
    "sync"
    "sync/atomic"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
)

// AxiomOptions configures event forwarding to Axiom.
type AxiomOptions struct {
    Send     bool
    APIKey   string
    OrgID    string
    Dataset  string
    Flush    time.Duration
    MinLevel string
    Batch    int
}

func (o AxiomOptions) Enabled() bool { return o.Send && o.APIKey != "" }

type ingestFunc func(ctx context.Context, dataset string, events []axiom.Event) error

// axiomShipper is a zerolog.LevelWriter that batches events for Axiom.
// Events are dropped when the buffer is full.
type axiomShipper struct {
    dataset  string
    service  string
    minLevel zerolog.Level
    batch    int
    flush    time.Duration
    ingest   ingestFunc

    events  chan axiom.Event
    dropped atomic.Int64
    done    chan struct{}
    wg      sync.WaitGroup
    once    sync.Once
}

func newAxiomShipper(o AxiomOptions, service string) (*axiomShipper, error) {
    copts := []axiom.Option{axiom.SetToken(o.APIKey)}
    if o.OrgID != "" {
        copts = append(copts, axiom.SetOrganizationID(o.OrgID))
    }
    client, err := axiom.NewClient(copts...)
    if err != nil {
        return nil, err
    }
    send := func(ctx context.Context, dataset string, events []axiom.Event) error {
        _, err := client.IngestEvents(ctx, dataset, events)
        return err
    }
    return startShipper(o, service, send), nil
}

func startShipper(o AxiomOptions, service string, send ingestFunc) *axiomShipper {
    s := &axiomShipper{
        dataset:  o.Dataset,
        service:  service,
        minLevel: zerolog.InfoLevel,
        batch:    o.Batch,
        flush:    o.Flush,
        ingest:   send,
        done:     make(chan struct{}),
    }
    if s.dataset == "" {
        s.dataset = "dev_pdftables"
    }
    if lvl, err := zerolog.ParseLevel(o.MinLevel); err == nil && o.MinLevel != "" {
        s.minLevel = lvl
    }
    if s.batch <= 0 {
        s.batch = 200
    }
    if s.flush <= 0 {
        s.flush = 10 * time.Second
    }
    s.events = make(chan axiom.Event, s.batch*5)
    s.wg.Add(1)
    go s.run()
    return s
}

// Write is used for events without a level.
func (s *axiomShipper) Write(p []byte) (int, error) {
    return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *axiomShipper) WriteLevel(l zerolog.Level, p []byte) (int, error) {
    if l != zerolog.NoLevel && l < s.minLevel {
        return len(p), nil
    }
    ev := axiom.Event{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = axiom.Event{"message": string(p)}
    }
    ev["service"] = s.service
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now().UTC()
    }
    select {
    case s.events <- ev:
    default:
        s.dropped.Add(1)
    }
    return len(p), nil
}

func (s *axiomShipper) run() {
    defer s.wg.Done()
    ticker := time.NewTicker(s.flush)
    defer ticker.Stop()
    pending := make([]axiom.Event, 0, s.batch)
    ship := func() {
        if len(pending) == 0 {
            return
        }
        ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
        _ = s.ingest(ctx, s.dataset, pending)
        cancel()
        pending = make([]axiom.Event, 0, s.batch)
    }
    for {
        select {
        case ev := <-s.events:
            if pending = append(pending, ev); len(pending) >= s.batch {
                ship()
            }
        case <-ticker.C:
            ship()
        case <-s.done:
            for {
                select {
                case ev := <-s.events:
                    pending = append(pending, ev)
                default:
                    ship()
                    return
                }
            }
        }
    }
}

// Close ships buffered events and stops the background loop.
func (s *axiomShipper) Close() {
    s.once.Do(func() { close(s.done) })
    s.wg.Wait()
}
