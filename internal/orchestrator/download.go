package orchestrator

import (
    "archive/zip"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "path"
    "strconv"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pdftables/internal/filetype"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
)

func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("fileId")
    f, ok, err := o.deps.Files.GetConverted(r.Context(), id)
    if err != nil {
        writeError(w, http.StatusInternalServerError, "DOWNLOAD_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", fmt.Sprintf("File %s not found", id))
        return
    }
    rc, err := o.deps.Storage.Get(r.Context(), f.Key)
    if errors.Is(err, storage.ErrNotFound) {
        writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", fmt.Sprintf("File %s not found", id))
        return
    }
    if err != nil {
        writeError(w, http.StatusInternalServerError, "DOWNLOAD_FAILED", err.Error())
        return
    }
    defer rc.Close()

    w.Header().Set("Content-Type", filetype.ContentType(f.Filename))
    w.Header().Set("Content-Disposition", attachment(f.Filename))
    if f.Size > 0 { w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10)) }
    if _, err := io.Copy(w, rc); err != nil {
        log.Warn().Err(err).Str("file_id", id).Msg("download interrupted")
    }
}

type batchReq struct {
    FileIDs   []string          `json:"fileIds"`
    FileNames map[string]string `json:"fileNames"`
    ZipName   string            `json:"zipName"`
}

// handleDownloadBatch streams the requested converted files as one ZIP.
// Missing ids are skipped unless none are found.
func (o *Orchestrator) handleDownloadBatch(w http.ResponseWriter, r *http.Request) {
    defer r.Body.Close()
    var req batchReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is required")
        return
    }
    if len(req.FileIDs) == 0 {
        writeError(w, http.StatusBadRequest, "NO_FILES", "No file IDs provided")
        return
    }

    var found []store.ConvertedFile
    var missing []string
    for _, id := range req.FileIDs {
        f, ok, err := o.deps.Files.GetConverted(r.Context(), id)
        if err != nil {
            writeError(w, http.StatusInternalServerError, "ZIP_CREATION_FAILED", err.Error())
            return
        }
        if !ok {
            missing = append(missing, id)
            continue
        }
        found = append(found, f)
    }
    if len(found) == 0 {
        writeErrorDetails(w, http.StatusNotFound, "NO_FILES_FOUND", "None of the requested files were found",
            map[string]any{"missingFiles": missing})
        return
    }

    zipName := req.ZipName
    if zipName == "" { zipName = fmt.Sprintf("converted_files_%s.zip", time.Now().Format("20060102_150405")) }
    w.Header().Set("Content-Type", "application/zip")
    w.Header().Set("Content-Disposition", attachment(zipName))

    zw := zip.NewWriter(w)
    used := map[string]int{}
    for _, f := range found {
        name := f.Filename
        if alt := req.FileNames[f.FileID]; alt != "" { name = storage.SafeName(alt) }
        name = dedupeName(name, used)
        if err := o.copyToZip(r, zw, f, name); err != nil {
            log.Warn().Err(err).Str("file_id", f.FileID).Msg("skipping file in zip")
        }
    }
    if err := zw.Close(); err != nil {
        log.Error().Err(err).Msg("zip finalize failed")
    }
    log.Info().Int("files", len(found)).Int("missing", len(missing)).Msg("batch download served")
}

func (o *Orchestrator) copyToZip(r *http.Request, zw *zip.Writer, f store.ConvertedFile, name string) error {
    rc, err := o.deps.Storage.Get(r.Context(), f.Key)
    if err != nil { return err }
    defer rc.Close()
    dst, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
    if err != nil { return err }
    _, err = io.Copy(dst, rc)
    return err
}

// dedupeName suffixes repeated names inside one archive.
func dedupeName(name string, used map[string]int) string {
    n := used[name]
    used[name] = n + 1
    if n == 0 { return name }
    ext := path.Ext(name)
    return fmt.Sprintf("%s_%d%s", name[:len(name)-len(ext)], n, ext)
}

func attachment(name string) string {
    return fmt.Sprintf("attachment; filename=%q", name)
}

// handleCleanup removes the stored outputs of a job and their download index.
func (o *Orchestrator) handleCleanup(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("jobId")
    job, ok, err := o.deps.Jobs.GetJob(r.Context(), id)
    if err != nil {
        writeError(w, http.StatusInternalServerError, "CLEANUP_FAILED", err.Error())
        return
    }
    removed, err := o.deps.Storage.DeletePrefix(r.Context(), storage.OutputPrefix(id))
    if err != nil {
        writeError(w, http.StatusInternalServerError, "CLEANUP_FAILED", err.Error())
        return
    }
    if !ok && removed == 0 {
        writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", fmt.Sprintf("Job %s not found", id))
        return
    }
    if ok && len(job.Converted) > 0 {
        ids := make([]string, len(job.Converted))
        for i, f := range job.Converted { ids[i] = f.FileID }
        if err := o.deps.Files.DeleteConverted(r.Context(), ids...); err != nil {
            log.Warn().Err(err).Str("job_id", id).Msg("failed to drop converted index")
        }
        job.Converted = nil
        if err := o.deps.Jobs.SaveJob(r.Context(), job); err != nil {
            log.Warn().Err(err).Str("job_id", id).Msg("failed to save job after cleanup")
        }
    }
    log.Info().Str("job_id", id).Int("removed", removed).Msg("job outputs cleaned up")
    writeData(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("Job %s cleaned up successfully", id), "removed": removed})
}
