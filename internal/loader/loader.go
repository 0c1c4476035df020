// Package loader fetches and normalizes the speaker-percentage dataset, falling
// back to a manual fetch-and-split when the primary parser fails or yields nothing.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/model"
)

// DefaultStallTimeout is how long the primary parse may run before a warning is shown.
const DefaultStallTimeout = 8 * time.Second

// Reporter receives status updates at each phase transition.
type Reporter interface {
	Report(model.Status)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(model.Status)

// Report implements Reporter.
func (f ReporterFunc) Report(s model.Status) { f(s) }

// Policy configures the stall warning and the fallback path.
type Policy struct {
	StallTimeout time.Duration
	Fallback     bool
}

// DefaultPolicy returns the stock policy: 8 s stall warning, fallback enabled.
func DefaultPolicy() Policy {
	return Policy{StallTimeout: DefaultStallTimeout, Fallback: true}
}

// Loader runs the two-tier load.
type Loader struct {
	parser   Parser
	fetcher  Fetcher
	policy   Policy
	reporter Reporter
	now      func() time.Time
}

// New builds a Loader from its collaborators. A nil reporter discards statuses.
func New(parser Parser, fetcher Fetcher, policy Policy, reporter Reporter) *Loader {
	if reporter == nil {
		reporter = ReporterFunc(func(model.Status) {})
	}
	return &Loader{
		parser:   parser,
		fetcher:  fetcher,
		policy:   policy,
		reporter: reporter,
		now:      time.Now,
	}
}

// NewHTTP builds a Loader with the CSV parser and HTTP fetcher sharing client.
func NewHTTP(client *http.Client, policy Policy, reporter Reporter) *Loader {
	return New(NewCSVParser(client), NewHTTPFetcher(client), policy, reporter)
}

type parseOutcome struct {
	result ParseResult
	err    error
}

// Load returns a non-empty Dataset or a *LoadError. It never returns an empty
// dataset without an error.
func (l *Loader) Load(ctx context.Context, source string) (model.Dataset, error) {
	l.report(model.PhaseStarting, fmt.Sprintf("Loading %s...", source))

	rows, err := l.loadPrimary(ctx, source)
	if err == nil {
		ds := NewDataset(rows, source, model.PathPrimary)
		l.report(model.PhaseLoaded, fmt.Sprintf("Loaded %d rows across %d years", len(ds.Rows), len(ds.Years)))
		return ds, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return l.fail(&LoadError{Source: source, Err: ctxErr})
	}
	if !l.policy.Fallback {
		return l.fail(&LoadError{Source: source, Err: err})
	}

	reason := err.Error()
	logging.Warnf("primary parse of %s failed, falling back: %v", source, err)
	l.report(model.PhaseFallingBack, fmt.Sprintf("Primary parser failed (%s); trying direct download", reason))

	rows, err = l.loadFallback(ctx, source)
	if err != nil {
		return l.fail(&LoadError{Source: source, Reason: reason, Err: err})
	}
	ds := NewDataset(rows, source, model.PathFallback)
	l.report(model.PhaseLoaded, fmt.Sprintf("Loaded %d rows across %d years (fallback)", len(ds.Rows), len(ds.Years)))
	return ds, nil
}

// loadPrimary runs the parser while a stall timer may emit a warning. Any failure is
// returned as a *ParseError.
func (l *Loader) loadPrimary(ctx context.Context, source string) ([]model.Row, error) {
	outcomes := make(chan parseOutcome, 1)
	go func() {
		res, err := l.parser.Parse(ctx, source)
		outcomes <- parseOutcome{result: res, err: err}
	}()

	var stallC <-chan time.Time
	if l.policy.StallTimeout > 0 {
		stall := time.NewTimer(l.policy.StallTimeout)
		defer stall.Stop()
		stallC = stall.C
	}

	for {
		select {
		case <-stallC:
			stallC = nil
			l.report(model.PhaseStalled, "Loading is taking longer than expected...")
		case out := <-outcomes:
			if out.err != nil {
				return nil, &ParseError{Source: source, Err: out.err}
			}
			for _, rowErr := range out.result.RowErrors {
				logging.Warnf("csv row error in %s: %v", source, rowErr)
			}
			rows, dropped := Normalize(out.result.Records)
			l.report(model.PhaseParsed, fmt.Sprintf("Parsed %d rows (%d discarded, %d row errors)", len(rows), dropped, len(out.result.RowErrors)))
			if len(rows) == 0 {
				return nil, &ParseError{Source: source, Err: ErrNoRows}
			}
			return rows, nil
		case <-ctx.Done():
			return nil, &ParseError{Source: source, Err: ctx.Err()}
		}
	}
}

func (l *Loader) loadFallback(ctx context.Context, source string) ([]model.Row, error) {
	body, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	records, err := splitCSV(string(body))
	if err != nil {
		return nil, fmt.Errorf("fallback split: %w", err)
	}
	rows, dropped := Normalize(records)
	logging.Infof("fallback parsed %d rows from %s (%d discarded)", len(rows), source, dropped)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func (l *Loader) fail(err *LoadError) (model.Dataset, error) {
	msg := "Failed to load data: " + err.Error()
	if errors.Is(err, ErrNoRows) {
		msg = fmt.Sprintf("Failed to load data: %s contained no usable rows", err.Source)
	}
	logging.Errorf("%v", err)
	l.report(model.PhaseFailed, msg)
	return model.Dataset{}, err
}

func (l *Loader) report(phase model.Phase, msg string) {
	l.reporter.Report(model.Status{Phase: phase, Message: msg, At: l.now()})
}
