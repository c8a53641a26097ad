package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "time"

    retry "github.com/avast/retry-go/v4"
    "github.com/rs/zerolog/log"

    "github.com/local/pdftables/internal/convert"
    "github.com/local/pdftables/internal/dispatcher"
    "github.com/local/pdftables/internal/extract"
    "github.com/local/pdftables/internal/filetype"
    "github.com/local/pdftables/internal/metrics"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
)

// TableExtractor finds positioned tables in a PDF on disk.
type TableExtractor interface {
    Extract(ctx context.Context, path string) (*extract.Layout, error)
}

type RunnerConfig struct {
    // WorkDir holds per-job scratch directories; empty means os.TempDir.
    WorkDir        string
    ProbeThreshold int
    PutAttempts    uint
    CancelPoll     time.Duration
}

// Runner converts every file of a job. It implements dispatcher.Runner.
type Runner struct {
    deps      Dependencies
    cfg       RunnerConfig
    conv      *convert.Converter
    tables    TableExtractor
    opener    extract.Opener
    text      *extract.TextExtractor
    pageCount func(path string) (int, error)
    sniffer   *filetype.Detector
}

func NewRunner(deps Dependencies, conv *convert.Converter, cfg RunnerConfig) *Runner {
    if cfg.PutAttempts == 0 { cfg.PutAttempts = 3 }
    if cfg.CancelPoll <= 0 { cfg.CancelPoll = 2 * time.Second }
    if conv == nil { conv = convert.New(nil) }
    opener := extract.FitzOpener{}
    return &Runner{
        deps:      deps,
        cfg:       cfg,
        conv:      conv,
        tables:    extract.NewGridExtractor(),
        opener:    opener,
        text:      extract.NewTextExtractor(opener),
        pageCount: extract.PageCount,
        sniffer:   filetype.New(0),
    }
}

// Run executes one attempt. Per-file problems with the document itself are
// recorded on the job; storage and store errors abort the attempt so the
// dispatcher can retry it.
func (r *Runner) Run(ctx context.Context, jobID string, attempt int) error {
    job, ok, err := r.deps.Jobs.GetJob(ctx, jobID)
    if err != nil { return fmt.Errorf("load job %s: %w", jobID, err) }
    if !ok { return dispatcher.Fatal("job not found", errors.New(jobID)) }
    if IsTerminal(job.Status) {
        log.Info().Str("job_id", jobID).Str("status", job.Status).Msg("job already finished; skipping")
        return nil
    }
    format, err := convert.ParseFormat(job.OutputFormat)
    if err != nil { return dispatcher.Fatal("invalid output format", err) }

    if err := transition(&job, StatusConverting, time.Now()); err != nil {
        return dispatcher.Fatal("start job", err)
    }
    job.Attempts = attempt + 1
    job.Message = "Converting"
    job.Errors = nil
    job.Converted = nil
    job.Progress = progress(0, len(job.FileIDs))
    if err := r.save(ctx, &job); err != nil { return err }

    ctx, stop := r.watchCancel(ctx, jobID)
    defer stop()

    workDir, err := os.MkdirTemp(r.cfg.WorkDir, tempPrefix+jobID+"-")
    if err != nil { return fmt.Errorf("create work dir: %w", err) }
    defer os.RemoveAll(workDir)

    log.Info().Str("job_id", jobID).Int("attempt", attempt).Int("files", len(job.FileIDs)).Str("format", string(format)).Msg("conversion started")
    for i, fileID := range job.FileIDs {
        if r.cancelled(jobID) {
            log.Info().Str("job_id", jobID).Msg("job cancelled; stopping")
            return nil
        }
        files, err := r.convertFile(ctx, &job, fileID, workDir, format)
        if err != nil {
            if r.cancelled(jobID) { return nil }
            var fe *dispatcher.FatalError
            if !errors.As(err, &fe) { return err }
            log.Warn().Err(err).Str("job_id", jobID).Str("file_id", fileID).Msg("file not converted")
            job.Errors = append(job.Errors, store.FileError{FileID: fileID, Error: err.Error()})
        }
        job.Converted = append(job.Converted, files...)
        job.Progress = progress(i+1, len(job.FileIDs))
        if err := r.save(ctx, &job); err != nil { return err }
    }

    if r.cancelled(jobID) { return nil }
    job.CurrentFile = ""
    if len(job.Converted) == 0 && len(job.Errors) > 0 {
        if err := r.save(ctx, &job); err != nil { return err }
        return dispatcher.Fatal("no file converted", errors.New(job.Errors[0].Error))
    }
    if err := transition(&job, StatusCompleted, time.Now()); err != nil {
        return dispatcher.Fatal("complete job", err)
    }
    job.Progress = 100
    job.Message = fmt.Sprintf("Successfully converted %d file(s)", len(job.Converted))
    if err := r.save(ctx, &job); err != nil { return err }
    log.Info().Str("job_id", jobID).Int("outputs", len(job.Converted)).Int("errors", len(job.Errors)).Msg("conversion completed")
    return nil
}

// Fail marks a job that will not be retried.
func (r *Runner) Fail(ctx context.Context, jobID string, cause error) {
    job, ok, err := r.deps.Jobs.GetJob(ctx, jobID)
    if err != nil || !ok {
        log.Error().Err(err).Str("job_id", jobID).Msg("cannot mark job failed")
        return
    }
    if err := transition(&job, StatusFailed, time.Now()); err != nil {
        log.Warn().Err(err).Str("job_id", jobID).Msg("job not marked failed")
        return
    }
    job.Progress = 100
    job.CurrentFile = ""
    if cause != nil {
        job.Message = "Conversion failed: " + cause.Error()
    } else {
        job.Message = "Conversion failed"
    }
    if err := r.save(ctx, &job); err != nil {
        log.Error().Err(err).Str("job_id", jobID).Msg("save failed job")
    }
}

func (r *Runner) save(ctx context.Context, job *store.Job) error {
    if err := r.deps.Jobs.SaveJob(context.WithoutCancel(ctx), *job); err != nil {
        return fmt.Errorf("save job %s: %w", job.ID, err)
    }
    return nil
}

func (r *Runner) cancelled(jobID string) bool {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    c, _ := r.deps.Queue.IsCancelled(ctx, jobID)
    return c
}

// convertFile runs one uploaded PDF through extraction and conversion and
// stores the outputs. Errors caused by the document are fatal errors.
func (r *Runner) convertFile(ctx context.Context, job *store.Job, fileID, workDir string, format convert.Format) ([]store.ConvertedFile, error) {
    up, ok, err := r.deps.Files.GetUpload(ctx, fileID)
    if err != nil { return nil, fmt.Errorf("load upload %s: %w", fileID, err) }
    if !ok { return nil, dispatcher.Fatal("file not found", errors.New(fileID)) }

    job.CurrentFile = up.Filename
    job.Message = "Converting " + up.Filename
    if err := r.save(ctx, job); err != nil { return nil, err }

    src := filepath.Join(workDir, fileID+".pdf")
    if err := r.fetch(ctx, up.Key, src); err != nil {
        if errors.Is(err, storage.ErrNotFound) { return nil, dispatcher.Fatal("file not found", errors.New(up.Filename)) }
        return nil, err
    }
    if _, err := r.sniffer.VerifyFile(src); err != nil {
        return nil, dispatcher.Fatal("unreadable document", err)
    }
    r.inspect(ctx, &up, src)

    started := time.Now()
    layout, err := r.tables.Extract(ctx, src)
    metrics.ObserveStage("extract", time.Since(started))
    if err != nil {
        if ctx.Err() != nil { return nil, ctx.Err() }
        return nil, dispatcher.Fatal("extract tables", err)
    }
    in := convert.Input{
        Tables: layout.RawTables(),
        Text: func(ctx context.Context) (extract.TextDocument, error) {
            return r.text.Structured(ctx, src)
        },
    }
    opts := convert.Options{
        Format:    format,
        Merge:     job.Merge,
        OutputDir: filepath.Join(workDir, fileID),
        BaseName:  strings.TrimSuffix(up.Filename, filepath.Ext(up.Filename)),
    }
    started = time.Now()
    res, err := r.conv.Convert(ctx, in, opts)
    metrics.ObserveStage("convert", time.Since(started))
    if err != nil {
        if ctx.Err() != nil { return nil, ctx.Err() }
        return nil, dispatcher.Fatal("convert", err)
    }
    if len(res.Files) == 0 {
        return nil, dispatcher.Fatal("no tables extracted", errors.New(up.Filename))
    }
    metrics.AddTables(res.Tables)
    metrics.AddRecords(res.Records)

    out := make([]store.ConvertedFile, 0, len(res.Files))
    for _, p := range res.Files {
        name := storage.SafeName(filepath.Base(p))
        cf := store.ConvertedFile{
            FileID:       fileID + "_" + name,
            JobID:        job.ID,
            SourceFileID: fileID,
            Filename:     name,
            Key:          storage.OutputKey(job.ID, fileID, name),
            Format:       string(format),
            TextFallback: res.Fallback,
        }
        size, err := r.put(ctx, p, cf.Key)
        if err != nil { return nil, fmt.Errorf("store %s: %w", name, err) }
        cf.Size = size
        if err := r.deps.Files.IndexConverted(ctx, cf); err != nil {
            return nil, fmt.Errorf("index %s: %w", cf.FileID, err)
        }
        metrics.IncConverted(string(format), res.Fallback)
        out = append(out, cf)
    }
    log.Info().Str("job_id", job.ID).Str("file_id", fileID).Int("tables", res.Tables).Int("records", res.Records).
        Bool("text_fallback", res.Fallback).Int("outputs", len(out)).Msg("file converted")
    return out, nil
}

// fetch copies a stored object to dst.
func (r *Runner) fetch(ctx context.Context, key, dst string) error {
    rc, err := r.deps.Storage.Get(ctx, key)
    if err != nil { return err }
    defer rc.Close()
    f, err := os.Create(dst)
    if err != nil { return fmt.Errorf("create %s: %w", dst, err) }
    if _, err := io.Copy(f, rc); err != nil {
        f.Close()
        return fmt.Errorf("copy %s: %w", key, err)
    }
    return f.Close()
}

// inspect records the page count and warns when the PDF has no text layer.
func (r *Runner) inspect(ctx context.Context, up *store.Upload, path string) {
    if n, err := r.pageCount(path); err == nil && n != up.Pages {
        up.Pages = n
        if err := r.deps.Files.SaveUpload(context.WithoutCancel(ctx), *up); err != nil {
            log.Warn().Err(err).Str("file_id", up.ID).Msg("failed to record page count")
        }
    } else if err != nil {
        log.Debug().Err(err).Str("file_id", up.ID).Msg("page count unavailable")
    }
    res, err := extract.Probe(r.opener, path, r.cfg.ProbeThreshold)
    if err != nil {
        log.Warn().Err(err).Str("file_id", up.ID).Msg("text probe failed")
        return
    }
    if !res.HasText {
        log.Warn().Str("file_id", up.ID).Int("chars", res.Chars).Ints("sampled", res.SampledPages).
            Msg("no text layer found; scanned PDFs yield no tables")
    }
}

// put uploads a local file, retrying transient storage errors.
func (r *Runner) put(ctx context.Context, path, key string) (int64, error) {
    var size int64
    err := retry.Do(
        func() error {
            f, err := os.Open(path)
            if err != nil { return retry.Unrecoverable(err) }
            defer f.Close()
            st, err := f.Stat()
            if err != nil { return retry.Unrecoverable(err) }
            size = st.Size()
            return r.deps.Storage.Put(ctx, key, f, size)
        },
        retry.Context(ctx),
        retry.Attempts(r.cfg.PutAttempts),
        retry.Delay(200*time.Millisecond),
        retry.LastErrorOnly(true),
        retry.OnRetry(func(n uint, err error) {
            log.Warn().Err(err).Str("key", key).Uint("attempt", n+1).Msg("storage put failed, retrying")
            metrics.IncStorageRetry()
        }),
    )
    return size, err
}
