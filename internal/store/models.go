package store

import "time"

// Upload is a PDF accepted by the upload endpoint.
type Upload struct {
    ID          string    `json:"fileId"`
    Filename    string    `json:"filename"`
    Key         string    `json:"key"`
    Size        int64     `json:"size"`
    ContentType string    `json:"contentType"`
    Pages       int       `json:"pages,omitempty"`
    Uploaded    time.Time `json:"uploadedAt"`
}

// ConvertedFile is one output produced by a job.
type ConvertedFile struct {
    FileID       string `json:"fileId"`
    JobID        string `json:"jobId"`
    SourceFileID string `json:"sourceFileId"`
    Filename     string `json:"filename"`
    Key          string `json:"key"`
    Size         int64  `json:"size"`
    Format       string `json:"format"`
    TextFallback bool   `json:"textFallback,omitempty"`
}

// FileError records a per-file failure inside a job.
type FileError struct {
    FileID string `json:"fileId"`
    Error  string `json:"error"`
}

// Job is the persisted state of a conversion job.
type Job struct {
    ID           string          `json:"jobId"`
    Status       string          `json:"status"`
    Progress     int             `json:"progress"`
    Message      string          `json:"message"`
    CurrentFile  string          `json:"currentFile,omitempty"`
    FileIDs      []string        `json:"fileIds"`
    Parser       string          `json:"parser"`
    Merge        bool            `json:"merge"`
    OutputFormat string          `json:"outputFormat"`
    Attempts     int             `json:"attempts"`
    Created      time.Time       `json:"createdAt"`
    Start        *time.Time      `json:"startedAt,omitempty"`
    End          *time.Time      `json:"completedAt,omitempty"`
    Errors       []FileError     `json:"errors"`
    Converted    []ConvertedFile `json:"convertedFiles"`
}
