package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/apresai/interviewer/internal/session"
)

// PDFLoader extracts text from a PDF file. Pages that fail extraction are
// skipped rather than failing the whole material.
type PDFLoader struct{}

func (p *PDFLoader) Load(ctx context.Context, source string) (session.ReferenceMaterial, error) {
	if err := validateFile(source); err != nil {
		return session.ReferenceMaterial{}, err
	}

	f, r, err := pdf.Open(source)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("could not read PDF %s: %w", source, err)
	}
	defer f.Close()

	var sb strings.Builder
	numPages := r.NumPage()

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if len(text) == 0 {
		return session.ReferenceMaterial{}, fmt.Errorf("could not extract text from PDF %s: it may be scanned or image-based", source)
	}

	return newMaterial(session.MaterialFile, filepath.Base(source), text, "application/pdf"), nil
}
