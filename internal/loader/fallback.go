package loader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Fetcher reads a source as raw bytes for the fallback path.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// HTTPFetcher fetches a source with caching disabled.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher using client, or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	rc, err := openSource(ctx, f.Client, source, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	b, err := decodeText(rc)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	return b, nil
}

// splitCSV is the manual fallback split: lines on line endings, fields on commas,
// the three wanted columns located by header name. Quoted or comma-containing
// values are not supported.
func splitCSV(text string) ([]Record, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, ErrNoRows
	}

	header := strings.Split(strings.TrimPrefix(lines[0], "\ufeff"), ",")
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{ColumnYear, ColumnCounty, ColumnPercentage} {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols = append(cols, i)
	}

	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		rec := Record{}
		for j, name := range []string{ColumnYear, ColumnCounty, ColumnPercentage} {
			if cols[j] < len(fields) {
				rec[name] = fields[cols[j]]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
