package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    cfgpkg "github.com/local/pdftables/internal/config"
    "github.com/local/pdftables/internal/convert"
    "github.com/local/pdftables/internal/dispatcher"
    logpkg "github.com/local/pdftables/internal/logger"
    "github.com/local/pdftables/internal/metrics"
    "github.com/local/pdftables/internal/orchestrator"
    "github.com/local/pdftables/internal/queue"
    "github.com/local/pdftables/internal/statuscheck"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
    "github.com/local/pdftables/internal/tables"
)

func main() {
    cfg := cfgpkg.Load()

    // Init logging
    _ = logpkg.Init(logpkg.Options{
        Level:      cfg.Logging.Level,
        Pretty:     cfg.Logging.Pretty,
        File:       cfg.Logging.File,
        MaxSizeMB:  cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress:   cfg.Logging.Compress,
        Service:    "pdftables",
        Axiom: logpkg.AxiomOptions{
            Send:     cfg.Axiom.Send,
            APIKey:   cfg.Axiom.APIKey,
            OrgID:    cfg.Axiom.OrgID,
            Dataset:  cfg.Axiom.Dataset,
            Flush:    cfg.Axiom.FlushInterval,
            MinLevel: cfg.Axiom.MinLevel,
            Batch:    cfg.Axiom.BatchSize,
        },
    })
    defer logpkg.Close()
    metrics.Init()

    // Queue
    rq, err := queue.NewRedisQueue(context.Background(), queue.Options{
        URL:       cfg.Queue.RedisURL,
        Stream:    cfg.Queue.Stream,
        Group:     cfg.Queue.Group,
        Poll:      cfg.Queue.PollInterval,
        ClaimIdle: cfg.Queue.ClaimIdle,
        CancelTTL: cfg.Queue.CancelTTL,
    })
    if err != nil {
        log.Fatal().Err(err).Msg("failed to connect to redis")
    }
    defer rq.Close()

    // Job and file store
    rs, err := store.NewRedis(cfg.Queue.RedisURL, cfg.Server.Retention)
    if err != nil {
        log.Fatal().Err(err).Msg("failed to init redis store")
    }
    defer rs.Close()

    backend, err := newBackend(context.Background(), cfg.Storage)
    if err != nil {
        log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to init storage")
    }

    deps := orchestrator.Dependencies{
        Queue:   rq,
        Jobs:    rs,
        Files:   rs,
        Storage: backend,
        Health:  statuscheck.New(statuscheck.Options{Redis: rs, Queue: rq, Storage: backend}),
    }
    orch := orchestrator.New(deps, orchestrator.Config{MaxUploadBytes: cfg.Server.MaxUploadBytes})
    mux := http.NewServeMux()
    orch.RegisterRoutes(mux)

    analyzer := tables.New(tables.Options{
        HeaderMinScore:           cfg.Tables.HeaderMinScore,
        HeaderCellLookahead:      cfg.Tables.HeaderCellLookahead,
        SequenceLookahead:        cfg.Tables.SequenceLookahead,
        MinSequenceLength:        cfg.Tables.MinSequenceLength,
        ValidityMinRows:          cfg.Tables.ValidityMinRows,
        ValidityMinColumns:       cfg.Tables.ValidityMinColumns,
        ValidityMultiColumnRatio: cfg.Tables.ValidityMultiColumnRatio,
        TitleMinLength:           cfg.Tables.TitleMinLength,
    })
    runner := orchestrator.NewRunner(deps, convert.New(analyzer), orchestrator.RunnerConfig{
        WorkDir:        cfg.Server.WorkDir,
        ProbeThreshold: cfg.Tables.ProbeThreshold,
    })

    // Dispatcher worker (optional)
    runDispatcher := os.Getenv("RUN_DISPATCHER")
    if runDispatcher == "" || runDispatcher == "1" || runDispatcher == "true" {
        host, _ := os.Hostname()
        disp := dispatcher.New(dispatcher.Config{
            Concurrency:    cfg.Worker.Concurrency,
            Consumer:       host,
            JobTimeout:     cfg.Worker.JobTimeout,
            MaxAttempts:    cfg.Worker.JobMaxAttempts,
            RetryBaseDelay: cfg.Worker.RetryBaseDelay,
            BackoffFactor:  cfg.Worker.RetryBackoffFactor,
        }, rq, runner)
        disp.Start()
        defer func() {
            ctx, cancel := context.WithTimeout(context.Background(), cfg.Worker.JobTimeout)
            defer cancel()
            if err := disp.Stop(ctx); err != nil {
                log.Warn().Err(err).Msg("workers did not stop in time")
            }
        }()
    }

    bgCtx, stopBg := context.WithCancel(context.Background())
    defer stopBg()
    go housekeeping(bgCtx, rq, cfg.Server.WorkDir)

    srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

    go func() {
        log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}

func newBackend(ctx context.Context, c cfgpkg.StorageConfig) (storage.Backend, error) {
    switch c.Backend {
    case "s3":
        return storage.NewS3(ctx, storage.S3Options{
            Bucket:    c.Bucket,
            Prefix:    c.Prefix,
            Region:    c.Region,
            Endpoint:  c.Endpoint,
            AccessKey: c.AccessKey,
            SecretKey: c.SecretKey,
            Password:  c.EncryptionKey,
        })
    case "", "local":
        return storage.NewLocal(c.LocalRoot)
    }
    return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
}

// housekeeping publishes queue depths and sweeps stale scratch directories.
func housekeeping(ctx context.Context, rq *queue.RedisQueue, workDir string) {
    ticker := time.NewTicker(15 * time.Second)
    defer ticker.Stop()
    sweeps := 0
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            d, err := rq.Depths(ctx)
            if err != nil {
                log.Debug().Err(err).Msg("queue depth unavailable")
            } else {
                metrics.SetQueueDepth("stream", d.Ready)
                metrics.SetQueueDepth("delayed", d.Delayed)
                metrics.SetQueueDepth("dlq", d.Dead)
            }
            // roughly hourly
            if sweeps++; sweeps%240 == 0 {
                if n := orchestrator.CleanupTemps(workDir, time.Hour); n > 0 {
                    log.Info().Int("removed", n).Msg("removed stale scratch directories")
                }
            }
        }
    }
}
