package extract

import (
	fitz "github.com/gen2brain/go-fitz"
)

// Doc is an open PDF that can return plain text per page (0-based).
type Doc interface {
	NumPage() int
	Text(page int) (string, error)
	Close() error
}

// Opener opens a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// FitzOpener opens documents with MuPDF through go-fitz.
type FitzOpener struct{}

func (FitzOpener) Open(path string) (Doc, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
