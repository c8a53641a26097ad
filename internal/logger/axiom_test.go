package logger

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/rs/zerolog"
)

type recorder struct {
    mu      sync.Mutex
    batches [][]axiom.Event
}

func (r *recorder) ingest(_ context.Context, _ string, events []axiom.Event) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.batches = append(r.batches, events)
    return nil
}

func (r *recorder) events() []axiom.Event {
    r.mu.Lock()
    defer r.mu.Unlock()
    var out []axiom.Event
    for _, b := range r.batches {
        out = append(out, b...)
    }
    return out
}

func TestShipperFiltersAndTagsEvents(t *testing.T) {
    rec := &recorder{}
    s := startShipper(AxiomOptions{MinLevel: "warn", Flush: time.Hour, Batch: 10}, "svc", rec.ingest)
    l := zerolog.New(zerolog.MultiLevelWriter(s))
    l.Info().Msg("dropped")
    l.Error().Str("job_id", "j1").Msg("kept")
    s.Close()

    got := rec.events()
    if len(got) != 1 {
        t.Fatalf("events = %v", got)
    }
    if got[0]["message"] != "kept" || got[0]["service"] != "svc" || got[0]["job_id"] != "j1" {
        t.Errorf("event = %v", got[0])
    }
}

func TestShipperFlushesFullBatches(t *testing.T) {
    rec := &recorder{}
    s := startShipper(AxiomOptions{Flush: time.Hour, Batch: 2}, "svc", rec.ingest)
    for i := 0; i < 5; i++ {
        _, _ = s.WriteLevel(zerolog.InfoLevel, []byte(`{"message":"m"}`))
    }
    s.Close()
    s.Close()

    if n := len(rec.events()); n != 5 {
        t.Fatalf("shipped %d events, want 5", n)
    }
    rec.mu.Lock()
    defer rec.mu.Unlock()
    for _, b := range rec.batches {
        if len(b) > 2 {
            t.Errorf("batch of %d exceeds limit", len(b))
        }
    }
}

func TestShipperKeepsRawLines(t *testing.T) {
    rec := &recorder{}
    s := startShipper(AxiomOptions{Flush: time.Hour}, "svc", rec.ingest)
    _, _ = s.Write([]byte("not json"))
    s.Close()
    if got := rec.events(); len(got) != 1 || got[0]["message"] != "not json" {
        t.Errorf("events = %v", got)
    }
}
