package orchestrator

import (
    "errors"
    "fmt"
    "io"
    "net/http"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pdftables/internal/filetype"
    "github.com/local/pdftables/internal/metrics"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
)

// handleUpload accepts a single multipart PDF in the "file" field and stores
// it under a fresh file id.
func (o *Orchestrator) handleUpload(w http.ResponseWriter, r *http.Request) {
    r.Body = http.MaxBytesReader(w, r.Body, o.cfg.MaxUploadBytes+(1<<20))
    if err := r.ParseMultipartForm(32 << 20); err != nil {
        var mbe *http.MaxBytesError
        if errors.As(err, &mbe) {
            metrics.IncUpload("too_large")
            writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", sizeMessage(o.cfg.MaxUploadBytes))
            return
        }
        writeError(w, http.StatusBadRequest, "NO_FILE", "No file provided")
        return
    }
    file, hdr, err := r.FormFile("file")
    if err != nil {
        writeError(w, http.StatusBadRequest, "NO_FILE", "No file provided")
        return
    }
    defer file.Close()
    if strings.TrimSpace(hdr.Filename) == "" {
        writeError(w, http.StatusBadRequest, "EMPTY_FILENAME", "No file selected")
        return
    }

    if _, err := o.detector.ValidatePDF(hdr.Filename, file, hdr.Size); err != nil {
        switch {
        case errors.Is(err, filetype.ErrTooLarge):
            metrics.IncUpload("too_large")
            writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", sizeMessage(o.cfg.MaxUploadBytes))
        case errors.Is(err, filetype.ErrNotPDF):
            metrics.IncUpload("rejected")
            writeError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PDF files are allowed")
        default:
            metrics.IncUpload("failed")
            writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
        }
        return
    }
    if _, err := file.Seek(0, io.SeekStart); err != nil {
        writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
        return
    }

    name := storage.SafeName(hdr.Filename)
    u := store.Upload{
        ID:          newID(),
        Filename:    name,
        Size:        hdr.Size,
        ContentType: "application/pdf",
        Uploaded:    time.Now().UTC(),
    }
    u.Key = storage.UploadKey(u.ID, name)
    if err := o.deps.Storage.Put(r.Context(), u.Key, file, hdr.Size); err != nil {
        log.Error().Err(err).Str("file", name).Msg("store upload failed")
        metrics.IncUpload("failed")
        writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
        return
    }
    if err := o.deps.Files.SaveUpload(r.Context(), u); err != nil {
        _ = o.deps.Storage.Delete(r.Context(), u.Key)
        metrics.IncUpload("failed")
        writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
        return
    }
    metrics.IncUpload("ok")
    log.Info().Str("file_id", u.ID).Str("file", name).Int64("size", u.Size).Msg("file uploaded")
    writeData(w, http.StatusOK, map[string]any{
        "fileId":     u.ID,
        "filename":   u.Filename,
        "size":       u.Size,
        "uploadedAt": u.Uploaded.Format(time.RFC3339),
    })
}

func sizeMessage(max int64) string {
    return fmt.Sprintf("File size exceeds %dMB limit", max>>20)
}

func (o *Orchestrator) handleFileInfo(w http.ResponseWriter, r *http.Request) {
    u, ok, err := o.deps.Files.GetUpload(r.Context(), r.PathValue("id"))
    if err != nil {
        writeError(w, http.StatusInternalServerError, "LOOKUP_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
        return
    }
    writeData(w, http.StatusOK, map[string]any{
        "fileId":     u.ID,
        "filename":   u.Filename,
        "size":       u.Size,
        "pages":      u.Pages,
        "uploadedAt": u.Uploaded.Format(time.RFC3339),
        "status":     "uploaded",
    })
}

func (o *Orchestrator) handleFileDelete(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("id")
    u, ok, err := o.deps.Files.GetUpload(r.Context(), id)
    if err != nil {
        writeError(w, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
        return
    }
    if err := o.deps.Storage.Delete(r.Context(), u.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
        writeError(w, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
        return
    }
    if err := o.deps.Files.DeleteUpload(r.Context(), id); err != nil {
        writeError(w, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
        return
    }
    log.Info().Str("file_id", id).Msg("upload deleted")
    writeData(w, http.StatusOK, map[string]any{"message": "File deleted successfully"})
}

// handleConvertedInfo describes a converted output file.
func (o *Orchestrator) handleConvertedInfo(w http.ResponseWriter, r *http.Request) {
    f, ok, err := o.deps.Files.GetConverted(r.Context(), r.PathValue("id"))
    if err != nil {
        writeError(w, http.StatusInternalServerError, "INFO_FAILED", err.Error())
        return
    }
    if !ok {
        writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", fmt.Sprintf("File %s not found", r.PathValue("id")))
        return
    }
    writeData(w, http.StatusOK, map[string]any{
        "fileId":       f.FileID,
        "filename":     f.Filename,
        "size":         f.Size,
        "format":       f.Format,
        "contentType":  filetype.ContentType(f.Filename),
        "extension":    strings.TrimPrefix(filepath.Ext(f.Filename), "."),
        "textFallback": f.TextFallback,
    })
}
