package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Backend stores uploaded PDFs and converted outputs by slash separated key.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key below prefix and reports how many were
	// removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Check verifies the backend is reachable and writable.
	Check(ctx context.Context) error
}

// UploadKey is where an uploaded file lives.
func UploadKey(fileID, name string) string {
	return path.Join("uploads", fileID+"_"+SafeName(name))
}

// OutputPrefix is the directory of a job's converted files.
func OutputPrefix(jobID string) string { return path.Join("converted", jobID) }

// OutputKey is where a converted file for one source file of a job lives.
func OutputKey(jobID, fileID, name string) string {
	return path.Join(OutputPrefix(jobID), fileID, SafeName(name))
}

// SafeName strips directories and characters that are unsafe in file names.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + key)
	if k == "/" {
		return "", fmt.Errorf("storage: empty key")
	}
	return strings.TrimPrefix(k, "/"), nil
}
