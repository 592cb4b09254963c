package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/interviewer/internal/session"
)

func TestDetectSource(t *testing.T) {
	tests := []struct {
		source string
		want   SourceType
	}{
		{"https://example.com/article", SourceURL},
		{"http://example.com", SourceURL},
		{"survey.pdf", SourcePDF},
		{"reports/Q3.PDF", SourcePDF},
		{"notes.txt", SourceText},
		{"notes.md", SourceText},
		{"plainfile", SourceText},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectSource(tt.source))
		})
	}
}

func TestTextLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("competitor pricing notes"), 0o644))

	m, err := (&TextLoader{}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, session.MaterialFile, m.Kind)
	assert.Equal(t, "notes.txt", m.Name)
	assert.Equal(t, "competitor pricing notes", m.Content)
	assert.Equal(t, "text/plain", m.MIMEType)
}

func TestTextLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := (&TextLoader{}).Load(context.Background(), filepath.Join(dir, "absent.txt"))
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := (&TextLoader{}).Load(context.Background(), path)
		require.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := (&TextLoader{}).Load(context.Background(), dir)
		require.Error(t, err)
	})
}

func TestURLLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>Dorm Coffee Trends</title></head>
			<body><article><h1>Dorm Coffee Trends</h1>
			<p>Students increasingly brew in their rooms to save money. Compact machines
			under fifty dollars dominate the category, and capsule systems are losing
			ground to refillable filters among budget-conscious buyers.</p>
			<p>Retailers report that dorm-size machines sell out every September.</p>
			</article></body></html>`))
	}))
	defer srv.Close()

	m, err := (&URLLoader{}).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, session.MaterialText, m.Kind)
	assert.Contains(t, m.Name, "Dorm Coffee Trends")
	assert.Contains(t, m.Content, "save money")
	assert.Equal(t, "text/html", m.MIMEType)
}

func TestURLLoader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := (&URLLoader{}).Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestLoadAll_FailsFast(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("fine"), 0o644))

	materials, err := LoadAll(context.Background(), []string{good, filepath.Join(dir, "missing.txt")})
	require.Error(t, err)
	assert.Nil(t, materials)

	materials, err = LoadAll(context.Background(), []string{good})
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "fine", materials[0].Content)
}

func TestNewLoader_PicksByShape(t *testing.T) {
	assert.IsType(t, &URLLoader{}, NewLoader("https://example.com"))
	assert.IsType(t, &PDFLoader{}, NewLoader("report.pdf"))
	assert.IsType(t, &TextLoader{}, NewLoader("notes.md"))
}
