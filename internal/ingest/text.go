package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apresai/interviewer/internal/session"
)

// TextLoader reads a plain-text or markdown file as a reference material.
type TextLoader struct{}

func (t *TextLoader) Load(ctx context.Context, source string) (session.ReferenceMaterial, error) {
	if err := validateFile(source); err != nil {
		return session.ReferenceMaterial{}, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("could not read file %s: %w", source, err)
	}
	if len(data) == 0 {
		return session.ReferenceMaterial{}, fmt.Errorf("file %s is empty", source)
	}

	return newMaterial(session.MaterialFile, filepath.Base(source), string(data), "text/plain"), nil
}
