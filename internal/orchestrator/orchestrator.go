package orchestrator

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/pdftables/internal/convert"
    "github.com/local/pdftables/internal/filetype"
    "github.com/local/pdftables/internal/metrics"
    "github.com/local/pdftables/internal/queue"
    "github.com/local/pdftables/internal/statuscheck"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
)

type Queue interface {
    Enqueue(ctx context.Context, m queue.Message) error
    CancelJob(ctx context.Context, jobID string) error
    IsCancelled(ctx context.Context, jobID string) (bool, error)
}

type JobStore interface {
    SaveJob(ctx context.Context, j store.Job) error
    GetJob(ctx context.Context, id string) (store.Job, bool, error)
    DeleteJob(ctx context.Context, id string) error
}

// FileStore indexes uploaded sources and converted outputs.
type FileStore interface {
    SaveUpload(ctx context.Context, u store.Upload) error
    GetUpload(ctx context.Context, id string) (store.Upload, bool, error)
    DeleteUpload(ctx context.Context, id string) error
    IndexConverted(ctx context.Context, f store.ConvertedFile) error
    GetConverted(ctx context.Context, fileID string) (store.ConvertedFile, bool, error)
    DeleteConverted(ctx context.Context, fileIDs ...string) error
}

type Dependencies struct {
    Queue   Queue
    Jobs    JobStore
    Files   FileStore
    Storage storage.Backend
    Health  *statuscheck.Checker
}

type Config struct {
    MaxUploadBytes int64
}

type Orchestrator struct {
    deps     Dependencies
    cfg      Config
    detector *filetype.Detector
}

func New(deps Dependencies, cfg Config) *Orchestrator {
    if cfg.MaxUploadBytes <= 0 { cfg.MaxUploadBytes = 50 << 20 }
    return &Orchestrator{deps: deps, cfg: cfg, detector: filetype.New(cfg.MaxUploadBytes)}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("GET /api/health", o.handleHealth)
    mux.Handle("GET /metrics", metrics.Handler())
    mux.HandleFunc("POST /api/upload", o.handleUpload)
    mux.HandleFunc("GET /api/files/{id}", o.handleFileInfo)
    mux.HandleFunc("DELETE /api/files/{id}", o.handleFileDelete)
    mux.HandleFunc("GET /api/files/{id}/info", o.handleConvertedInfo)
    mux.HandleFunc("POST /api/convert", o.handleConvert)
    mux.HandleFunc("GET /api/status/{jobId}", o.handleStatus)
    mux.HandleFunc("POST /api/cancel/{jobId}", o.handleCancel)
    mux.HandleFunc("GET /api/download/{fileId}", o.handleDownload)
    mux.HandleFunc("POST /api/download/batch", o.handleDownloadBatch)
    mux.HandleFunc("DELETE /api/cleanup/{jobId}", o.handleCleanup)
}

type apiError struct {
    Code    string         `json:"code"`
    Message string         `json:"message"`
    Details map[string]any `json:"details,omitempty"`
}

type envelope struct {
    Success   bool      `json:"success"`
    Data      any       `json:"data,omitempty"`
    Error     *apiError `json:"error,omitempty"`
    Timestamp string    `json:"timestamp"`
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339) }

func writeData(w http.ResponseWriter, status int, data any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Timestamp: timestamp()})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
    writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(envelope{Error: &apiError{Code: code, Message: msg, Details: details}, Timestamp: timestamp()})
}

// newID returns a dash-free uuid.
func newID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
    data := map[string]any{"status": "healthy", "service": "pdftables"}
    if o.deps.Health == nil {
        writeData(w, http.StatusOK, data)
        return
    }
    sum := o.deps.Health.Summary(r.Context())
    data["checks"] = sum
    if !sum.Healthy() {
        data["status"] = "degraded"
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(http.StatusServiceUnavailable)
        _ = json.NewEncoder(w).Encode(envelope{Success: false, Data: data, Timestamp: timestamp()})
        return
    }
    writeData(w, http.StatusOK, data)
}

type convertReq struct {
    FileIDs      []string `json:"fileIds"`
    Parser       string   `json:"parser"`
    Merge        bool     `json:"merge"`
    OutputFormat string   `json:"outputFormat"`
}

func (o *Orchestrator) handleConvert(w http.ResponseWriter, r *http.Request) {
    defer r.Body.Close()
    var req convertReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is required")
        return
    }
    if len(req.FileIDs) == 0 {
        writeError(w, http.StatusBadRequest, "NO_FILES", "No files provided for conversion")
        return
    }
    if req.OutputFormat == "" { req.OutputFormat = string(convert.CSV) }
    format, err := convert.ParseFormat(req.OutputFormat)
    if err != nil {
        writeError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
        return
    }
    if req.Parser == "" { req.Parser = "grid" }

    job := store.Job{
        ID:           newID(),
        Status:       StatusPending,
        Message:      "Conversion queued",
        FileIDs:      req.FileIDs,
        Parser:       req.Parser,
        Merge:        req.Merge,
        OutputFormat: string(format),
        Created:      time.Now(),
    }
    if err := o.deps.Jobs.SaveJob(r.Context(), job); err != nil {
        log.Error().Err(err).Msg("save job failed")
        writeError(w, http.StatusInternalServerError, "CONVERSION_FAILED", "could not create job")
        return
    }
    if err := o.deps.Queue.Enqueue(r.Context(), queue.Message{JobID: job.ID}); err != nil {
        log.Error().Err(err).Str("job_id", job.ID).Msg("enqueue failed")
        job.Status = StatusFailed
        job.Message = "queue unavailable"
        _ = o.deps.Jobs.SaveJob(r.Context(), job)
        writeError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "queue unavailable")
        return
    }
    log.Info().Str("job_id", job.ID).Int("files", len(job.FileIDs)).Str("format", job.OutputFormat).Bool("merge", job.Merge).Msg("job created")
    writeData(w, http.StatusOK, map[string]any{"jobId": job.ID, "status": job.Status, "message": "Conversion started"})
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("jobId")
    job, ok, err := o.deps.Jobs.GetJob(r.Context(), id)
    if err != nil {
        writeError(w, http.StatusInternalServerError, "STATUS_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Conversion job not found")
        return
    }
    if job.Errors == nil { job.Errors = []store.FileError{} }
    if job.Converted == nil { job.Converted = []store.ConvertedFile{} }
    writeData(w, http.StatusOK, job)
}

func (o *Orchestrator) handleCancel(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("jobId")
    job, ok, err := o.deps.Jobs.GetJob(r.Context(), id)
    if err != nil {
        writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Conversion job not found")
        return
    }
    if err := transition(&job, StatusCancelled, time.Now()); err != nil {
        var te *ErrTransition
        if errors.As(err, &te) {
            writeError(w, http.StatusConflict, "JOB_FINISHED", fmt.Sprintf("job is already %s", job.Status))
            return
        }
        writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", err.Error())
        return
    }
    if err := o.deps.Queue.CancelJob(r.Context(), id); err != nil {
        writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", "cancel failed")
        return
    }
    job.Message = "Cancelled"
    job.CurrentFile = ""
    if err := o.deps.Jobs.SaveJob(r.Context(), job); err != nil {
        writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", err.Error())
        return
    }
    log.Info().Str("job_id", id).Msg("job cancelled")
    metrics.IncJobs("cancelled")
    writeData(w, http.StatusOK, map[string]any{"jobId": id, "status": job.Status})
}
