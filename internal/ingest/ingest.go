// Package ingest turns researcher-supplied reference materials (pasted
// text, plain-text or PDF files, and web pages) into the plain-text form
// persona generation consumes.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apresai/interviewer/internal/session"
)

type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"

	// maxSourceSize is the maximum allowed size for one material (25 MB).
	maxSourceSize = 25 * 1024 * 1024
)

func (s SourceType) String() string {
	return string(s)
}

// Loader extracts one reference material from a source path or URL.
type Loader interface {
	Load(ctx context.Context, source string) (session.ReferenceMaterial, error)
}

// DetectSource classifies a source string by shape.
func DetectSource(source string) SourceType {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(source), ".pdf") {
		return SourcePDF
	}
	return SourceText
}

// NewLoader picks the loader matching the source shape.
func NewLoader(source string) Loader {
	switch DetectSource(source) {
	case SourceURL:
		return &URLLoader{}
	case SourcePDF:
		return &PDFLoader{}
	default:
		return &TextLoader{}
	}
}

// LoadAll resolves every source, failing fast on the first bad one.
func LoadAll(ctx context.Context, sources []string) ([]session.ReferenceMaterial, error) {
	var materials []session.ReferenceMaterial
	for _, src := range sources {
		m, err := NewLoader(src).Load(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("load material %s: %w", src, err)
		}
		materials = append(materials, m)
	}
	return materials, nil
}

func newMaterial(kind session.MaterialKind, name, content, mimeType string) session.ReferenceMaterial {
	return session.ReferenceMaterial{
		ID:       session.NewID(),
		Kind:     kind,
		Name:     name,
		Content:  content,
		MIMEType: mimeType,
	}
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxSourceSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxSourceSize/(1024*1024))
	}
	return nil
}
