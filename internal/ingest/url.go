package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/apresai/interviewer/internal/session"
)

// URLLoader fetches a web page and keeps only its readable article text.
type URLLoader struct{}

func (u *URLLoader) Load(ctx context.Context, source string) (session.ReferenceMaterial, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("invalid URL %s: %w", source, err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("create request for %s: %w", source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("could not fetch URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.ReferenceMaterial{}, fmt.Errorf("could not fetch URL %s: HTTP %d", source, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxSourceSize)
	article, err := readability.FromReader(limited, parsed)
	if err != nil {
		return session.ReferenceMaterial{}, fmt.Errorf("could not extract article from %s: %w", source, err)
	}

	if len(article.TextContent) == 0 {
		return session.ReferenceMaterial{}, fmt.Errorf("no readable content extracted from %s", source)
	}

	name := article.Title
	if name == "" {
		name = source
	}

	return newMaterial(session.MaterialText, name, article.TextContent, "text/html"), nil
}
