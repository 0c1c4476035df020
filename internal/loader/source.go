package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsRemote reports whether source is an HTTP(S) URL rather than a local path.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// openSource opens an HTTP(S) URL or a local file. With noCache set, HTTP requests
// ask every cache on the way to revalidate.
func openSource(ctx context.Context, client *http.Client, source string, noCache bool) (io.ReadCloser, error) {
	if source == "" {
		return nil, &FetchError{Source: source, Err: fmt.Errorf("source is empty")}
	}
	if !IsRemote(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, &FetchError{Source: source, Err: err}
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("User-Agent", "gaelchart")
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &FetchError{Source: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}
	return resp.Body, nil
}

// decodeText reads the whole body, strips a UTF-8 BOM and transcodes legacy
// single-byte input to UTF-8. The full body is checked so a late non-ASCII byte
// is not missed.
func decodeText(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(body, utf8BOM) {
		return body[len(utf8BOM):], nil
	}
	if utf8.Valid(body) {
		return body, nil
	}
	enc := detectEncoding(body)
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	return out, nil
}

func detectEncoding(sample []byte) encoding.Encoding {
	det, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || det == nil {
		return charmap.Windows1252
	}
	switch strings.ToLower(det.Charset) {
	case "iso-8859-1":
		return charmap.ISO8859_1
	case "iso-8859-15":
		return charmap.ISO8859_15
	case "windows-1250":
		return charmap.Windows1250
	default:
		// Irish county names only need Latin-1 letters; 1252 is its superset.
		return charmap.Windows1252
	}
}
