package orchestrator

import (
    "context"
    "errors"
    "io"
    "strings"
    "testing"

    "github.com/local/pdftables/internal/convert"
    "github.com/local/pdftables/internal/dispatcher"
    "github.com/local/pdftables/internal/extract"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
    "github.com/local/pdftables/internal/tables"
)

var catalog = tables.RawTable{
    {"Product Catalog", "", "", ""},
    {"SNo", "Name", "Price", "Qty"},
    {"1", "Widget", "9.99", "10"},
    {"2", "Gadget", "19.99", "5"},
}

type fakeTables struct{ layout *extract.Layout }

func (f fakeTables) Extract(context.Context, string) (*extract.Layout, error) { return f.layout, nil }

type fakeDoc struct{ pages []string }

func (d fakeDoc) NumPage() int                 { return len(d.pages) }
func (d fakeDoc) Text(i int) (string, error)   { return d.pages[i], nil }
func (d fakeDoc) Close() error                 { return nil }

type fakeOpener struct{ pages []string }

func (o fakeOpener) Open(string) (extract.Doc, error) { return fakeDoc{pages: o.pages}, nil }

func newTestRunner(f *fixture, layout *extract.Layout) *Runner {
    r := NewRunner(f.deps, convert.New(nil), RunnerConfig{WorkDir: "", ProbeThreshold: 5})
    opener := fakeOpener{pages: []string{"Hello world\nSecond line", ""}}
    r.tables = fakeTables{layout: layout}
    r.opener = opener
    r.text = extract.NewTextExtractor(opener)
    r.pageCount = func(string) (int, error) { return 2, nil }
    return r
}

func seedUpload(t *testing.T, f *fixture, id, name string) {
    t.Helper()
    u := store.Upload{ID: id, Filename: name, Key: storage.UploadKey(id, name), Size: int64(len(minimalPDF))}
    if err := f.backend.Put(context.Background(), u.Key, strings.NewReader(minimalPDF), u.Size); err != nil {
        t.Fatal(err)
    }
    _ = f.store.SaveUpload(context.Background(), u)
}

func readStored(t *testing.T, b storage.Backend, key string) string {
    t.Helper()
    rc, err := b.Get(context.Background(), key)
    if err != nil { t.Fatal(err) }
    defer rc.Close()
    raw, _ := io.ReadAll(rc)
    return string(raw)
}

func TestRunConvertsAndRecordsMissingFiles(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seedUpload(t, f, "f1", "prices.pdf")
    _ = f.store.SaveJob(ctx, store.Job{ID: "j1", Status: StatusPending, FileIDs: []string{"f1", "gone"}, Merge: true, OutputFormat: "csv"})

    r := newTestRunner(f, &extract.Layout{Pages: 1, Tables: []tables.RawTable{catalog}})
    if err := r.Run(ctx, "j1", 0); err != nil {
        t.Fatal(err)
    }
    job := f.store.jobs["j1"]
    if job.Status != StatusCompleted || job.Progress != 100 || job.Attempts != 1 || job.End == nil {
        t.Fatalf("job = %+v", job)
    }
    if len(job.Errors) != 1 || job.Errors[0].FileID != "gone" {
        t.Errorf("errors = %+v", job.Errors)
    }
    if len(job.Converted) != 1 {
        t.Fatalf("converted = %+v", job.Converted)
    }
    cf := job.Converted[0]
    if cf.FileID != "f1_prices.csv" || cf.Key != "converted/j1/f1/prices.csv" || cf.TextFallback || cf.Size == 0 {
        t.Errorf("converted file = %+v", cf)
    }
    if _, ok := f.store.converted[cf.FileID]; !ok {
        t.Error("converted file not indexed")
    }
    if got := readStored(t, f.backend, cf.Key); !strings.HasPrefix(got, "SNo,Name,Price,Qty\n1,Widget,9.99,10\n") {
        t.Errorf("stored csv = %q", got)
    }
    if f.store.uploads["f1"].Pages != 2 {
        t.Errorf("page count not recorded: %+v", f.store.uploads["f1"])
    }
}

func TestRunTextFallback(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seedUpload(t, f, "f1", "letter.pdf")
    _ = f.store.SaveJob(ctx, store.Job{ID: "j1", Status: StatusPending, FileIDs: []string{"f1"}, OutputFormat: "json"})

    r := newTestRunner(f, &extract.Layout{Pages: 1, Lines: []string{"Dear customer,", "thanks for your order."}})
    if err := r.Run(ctx, "j1", 0); err != nil {
        t.Fatal(err)
    }
    job := f.store.jobs["j1"]
    if job.Status != StatusCompleted || len(job.Converted) != 1 {
        t.Fatalf("job = %+v", job)
    }
    cf := job.Converted[0]
    if cf.Filename != "letter.json" || !cf.TextFallback {
        t.Errorf("converted = %+v", cf)
    }
    if got := readStored(t, f.backend, cf.Key); !strings.Contains(got, `"document_type": "text"`) || !strings.Contains(got, "Second line") {
        t.Errorf("stored json = %s", got)
    }
}

func TestRunAllFilesMissingFails(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    _ = f.store.SaveJob(ctx, store.Job{ID: "j1", Status: StatusPending, FileIDs: []string{"gone"}, OutputFormat: "csv"})

    r := newTestRunner(f, &extract.Layout{})
    err := r.Run(ctx, "j1", 0)
    var fe *dispatcher.FatalError
    if !errors.As(err, &fe) {
        t.Fatalf("err = %v, want fatal", err)
    }
    r.Fail(ctx, "j1", err)
    job := f.store.jobs["j1"]
    if job.Status != StatusFailed || !strings.HasPrefix(job.Message, "Conversion failed") || len(job.Errors) != 1 {
        t.Errorf("job = %+v", job)
    }
}

func TestRunRetriesStoragePut(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seedUpload(t, f, "f1", "prices.pdf")
    flaky := &flakyBackend{Backend: f.backend, fails: 2}
    f.deps.Storage = flaky
    _ = f.store.SaveJob(ctx, store.Job{ID: "j1", Status: StatusPending, FileIDs: []string{"f1"}, Merge: true, OutputFormat: "text"})

    r := newTestRunner(f, &extract.Layout{Tables: []tables.RawTable{catalog}})
    if err := r.Run(ctx, "j1", 0); err != nil {
        t.Fatal(err)
    }
    if job := f.store.jobs["j1"]; job.Status != StatusCompleted || len(job.Converted) != 1 {
        t.Fatalf("job = %+v", job)
    }
    if flaky.fails != 0 {
        t.Errorf("flaky puts left: %d", flaky.fails)
    }
}

func TestRunSkipsFinishedAndCancelledJobs(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    seedUpload(t, f, "f1", "prices.pdf")
    _ = f.store.SaveJob(ctx, store.Job{ID: "done", Status: StatusCancelled, FileIDs: []string{"f1"}, OutputFormat: "csv"})
    _ = f.store.SaveJob(ctx, store.Job{ID: "flagged", Status: StatusPending, FileIDs: []string{"f1"}, OutputFormat: "csv"})
    f.queue.cancelled["flagged"] = true

    r := newTestRunner(f, &extract.Layout{Tables: []tables.RawTable{catalog}})
    for _, id := range []string{"done", "flagged"} {
        if err := r.Run(ctx, id, 0); err != nil {
            t.Errorf("%s: %v", id, err)
        }
    }
    if f.store.jobs["done"].Status != StatusCancelled {
        t.Error("finished job was modified")
    }
    if len(f.store.converted) != 0 {
        t.Errorf("cancelled jobs produced output: %v", f.store.converted)
    }
}

func TestRunUnknownJob(t *testing.T) {
    f := newFixture(t)
    err := newTestRunner(f, &extract.Layout{}).Run(context.Background(), "nope", 0)
    var fe *dispatcher.FatalError
    if !errors.As(err, &fe) {
        t.Errorf("err = %v", err)
    }
}
