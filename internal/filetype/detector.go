package filetype

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const pdfMIME = "application/pdf"

var (
	// ErrNotPDF is returned when the extension or the content is not PDF.
	ErrNotPDF = errors.New("only PDF files are allowed")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType  string
	Extension string
	Size      int64
}

// Detector validates uploads by extension, magic bytes and size.
type Detector struct {
	maxBytes int64
}

// New creates a detector rejecting files larger than maxBytes (0 disables
// the limit).
func New(maxBytes int64) *Detector {
	return &Detector{maxBytes: maxBytes}
}

// AllowedName reports whether the file name carries a .pdf extension.
func AllowedName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// VerifyFile sniffs a file on disk and returns ErrNotPDF unless it is a PDF.
func (d *Detector) VerifyFile(path string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, mtype.String())
	}
	return &FileTypeInfo{MIMEType: mtype.String(), Extension: mtype.Extension()}, nil
}

// ValidatePDF checks name and content of an upload of the given size. r is
// only read for its leading bytes.
func (d *Detector) ValidatePDF(name string, r io.Reader, size int64) (*FileTypeInfo, error) {
	if !AllowedName(name) {
		return nil, ErrNotPDF
	}
	if d.maxBytes > 0 && size > d.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, d.maxBytes)
	}
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	log.Debug().Str("mime", mtype.String()).Str("file", name).Int64("size", size).Msg("detected file type")
	if !mtype.Is(pdfMIME) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, mtype.String())
	}
	return &FileTypeInfo{MIMEType: pdfMIME, Extension: mtype.Extension(), Size: size}, nil
}

// ContentType maps an output file name to the MIME type used for download.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return pdfMIME
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}
