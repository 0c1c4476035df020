package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Record is one CSV data line keyed by header name.
type Record map[string]string

// ParseResult is what a parser hands back on completion. RowErrors are
// per-line problems that do not abort the parse.
type ParseResult struct {
	Records   []Record
	RowErrors []error
}

// Parser is the primary CSV parsing collaborator.
type Parser interface {
	Parse(ctx context.Context, source string) (ParseResult, error)
}

// CSVParser downloads (or opens) a source and parses it with header-row interpretation.
type CSVParser struct {
	Client *http.Client
}

// NewCSVParser returns a CSVParser using client, or http.DefaultClient when nil.
func NewCSVParser(client *http.Client) *CSVParser {
	if client == nil {
		client = http.DefaultClient
	}
	return &CSVParser{Client: client}
}

// Parse implements Parser.
func (p *CSVParser) Parse(ctx context.Context, source string) (ParseResult, error) {
	rc, err := openSource(ctx, p.Client, source, false)
	if err != nil {
		return ParseResult{}, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			// Best-effort close for a read-only body.
			_ = cerr
		}
	}()
	body, err := decodeText(rc)
	if err != nil {
		return ParseResult{}, err
	}
	return parseCSV(bytes.NewReader(body))
}

func parseCSV(r io.Reader) (ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var result ParseResult
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			result.RowErrors = append(result.RowErrors, perr)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to read csv: %w", err)
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			}
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}
