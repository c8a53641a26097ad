package metrics

import (
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdftables"

var (
    uploads = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "uploads_total",
            Help:      "Uploaded files by result (ok, rejected, too_large, failed)",
        },
        []string{"result"},
    )

    jobs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "jobs_total",
            Help:      "Conversion jobs by terminal result",
        },
        []string{"result"},
    )

    jobLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "job_duration_seconds",
            Help:      "Wall time of successful conversion jobs",
            Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
        },
    )

    retriesTotal = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "retries_total",
            Help:      "Total number of job retries",
        },
    )

    files = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "files_converted_total",
            Help:      "Converted source files by output format and mode (tables, text)",
        },
        []string{"format", "mode"},
    )

    tablesFound = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "tables_detected_total",
            Help:      "Raw tables handed to the structure analyzer",
        },
    )

    records = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "records_written_total",
            Help:      "Data records written to converted outputs",
        },
    )

    stageLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "stage_duration_seconds",
            Help:      "Per-file wall time of the extract and convert stages",
            Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
        },
        []string{"stage"},
    )

    storageRetries = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "storage_put_retries_total",
            Help:      "Retried output uploads",
        },
    )

    queueDepth = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Namespace: namespace,
            Name:      "queue_depth",
            Help:      "Conversion queue sizes (stream, delayed, dlq)",
        },
        []string{"type"},
    )
)

// Init registers collectors.
func Init() {
    prometheus.MustRegister(uploads, jobs, jobLatency, retriesTotal, files, tablesFound, records, stageLatency, storageRetries, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncUpload(result string) { uploads.WithLabelValues(result).Inc() }
func IncJobs(result string)   { jobs.WithLabelValues(result).Inc() }
func IncRetry()               { retriesTotal.Inc() }
func ObserveJob(d time.Duration) { jobLatency.Observe(d.Seconds()) }

func IncConverted(format string, textFallback bool) {
    mode := "tables"
    if textFallback { mode = "text" }
    files.WithLabelValues(format, mode).Inc()
}

func AddTables(n int)  { tablesFound.Add(float64(n)) }
func AddRecords(n int) { records.Add(float64(n)) }

// ObserveStage records how long one file spent in stage.
func ObserveStage(stage string, d time.Duration) { stageLatency.WithLabelValues(stage).Observe(d.Seconds()) }

func IncStorageRetry() { storageRetries.Inc() }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
