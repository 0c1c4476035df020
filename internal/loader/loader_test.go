package loader

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/gaelchart/internal/model"
)

const sampleCSV = "Year,County,PercentageIrishSpeakers\n" +
	"2016,Galway County,48.0\n" +
	"2011,Galway County,50.1\n" +
	"2016,Dublin City,33.5\n" +
	"2022,Galway County,45.2\n" +
	"2011,Dublin City,34.0\n"

type fakeParser struct {
	result ParseResult
	err    error
	block  chan struct{}
	calls  int
}

func (p *fakeParser) Parse(ctx context.Context, _ string) (ParseResult, error) {
	p.calls++
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ParseResult{}, ctx.Err()
		}
	}
	return p.result, p.err
}

type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

type statusLog struct {
	mu       sync.Mutex
	statuses []model.Status
}

func (s *statusLog) Report(st model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
}

func (s *statusLog) phases() []model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Phase, len(s.statuses))
	for i, st := range s.statuses {
		out[i] = st.Phase
	}
	return out
}

func records(rows ...[3]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{ColumnYear: r[0], ColumnCounty: r[1], ColumnPercentage: r[2]})
	}
	return out
}

func TestLoadPrimarySortsUniqueYears(t *testing.T) {
	parser := &fakeParser{result: ParseResult{Records: records(
		[3]string{"2016", "Cork City", "40"},
		[3]string{"2011", "Cork City", "42"},
		[3]string{"2016", "Kerry", "55"},
		[3]string{"2022", "Kerry", "51"},
		[3]string{"", "Kerry", "51"},
		[3]string{"2022", "", "51"},
		[3]string{"2022", "Clare", ""},
	)}}
	fetcher := &fakeFetcher{}
	log := &statusLog{}
	l := New(parser, fetcher, DefaultPolicy(), log)

	ds, err := l.Load(context.Background(), "data.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fallback should not run, got %d calls", fetcher.calls)
	}
	if len(ds.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(ds.Rows))
	}
	want := []string{"2011", "2016", "2022"}
	if strings.Join(ds.Years, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected years: %v", ds.Years)
	}
	if ds.Path != model.PathPrimary {
		t.Fatalf("expected primary path, got %s", ds.Path)
	}
	phases := log.phases()
	if phases[0] != model.PhaseStarting || phases[len(phases)-1] != model.PhaseLoaded {
		t.Fatalf("unexpected phases: %v", phases)
	}
}

func TestLoadFallsBackOnceWhenPrimaryFails(t *testing.T) {
	parser := &fakeParser{err: errors.New("network down")}
	fetcher := &fakeFetcher{body: sampleCSV}
	log := &statusLog{}
	l := New(parser, fetcher, DefaultPolicy(), log)

	ds, err := l.Load(context.Background(), "data.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one fallback fetch, got %d", fetcher.calls)
	}
	if ds.Path != model.PathFallback {
		t.Fatalf("expected fallback path, got %s", ds.Path)
	}
	if len(ds.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(ds.Rows))
	}
	found := false
	for _, st := range log.statuses {
		if st.Phase == model.PhaseFallingBack {
			found = true
			if !strings.Contains(st.Message, "network down") {
				t.Fatalf("fallback status should carry the primary error, got %q", st.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected falling-back status, got %v", log.phases())
	}
}

func TestLoadFallsBackWhenPrimaryReturnsNothing(t *testing.T) {
	parser := &fakeParser{}
	fetcher := &fakeFetcher{body: sampleCSV}
	l := New(parser, fetcher, DefaultPolicy(), nil)

	ds, err := l.Load(context.Background(), "data.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fetcher.calls != 1 || len(ds.Rows) == 0 {
		t.Fatalf("expected fallback rows, calls=%d rows=%d", fetcher.calls, len(ds.Rows))
	}
}

func TestLoadFailsWhenBothPathsEmpty(t *testing.T) {
	parser := &fakeParser{}
	fetcher := &fakeFetcher{body: "Year,County,PercentageIrishSpeakers\n"}
	log := &statusLog{}
	l := New(parser, fetcher, DefaultPolicy(), log)

	ds, err := l.Load(context.Background(), "data.csv")
	if err == nil {
		t.Fatalf("expected fatal error, got dataset with %d rows", len(ds.Rows))
	}
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows cause, got %v", err)
	}
	if len(ds.Rows) != 0 || len(ds.Years) != 0 {
		t.Fatalf("expected zero dataset on failure")
	}
	phases := log.phases()
	if phases[len(phases)-1] != model.PhaseFailed {
		t.Fatalf("expected failed status last, got %v", phases)
	}
}

func TestLoadFailsOnFallbackFetchError(t *testing.T) {
	parser := &fakeParser{err: errors.New("boom")}
	fetcher := &fakeFetcher{err: &FetchError{Source: "data.csv", StatusCode: 404, Err: errors.New("unexpected status: 404 Not Found")}}
	l := New(parser, fetcher, DefaultPolicy(), nil)

	_, err := l.Load(context.Background(), "data.csv")
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.StatusCode != 404 {
		t.Fatalf("expected wrapped 404 FetchError, got %v", err)
	}
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Reason == "" {
		t.Fatalf("expected LoadError with fallback reason, got %v", err)
	}
}

func TestLoadWithoutFallbackPolicy(t *testing.T) {
	parser := &fakeParser{err: errors.New("boom")}
	fetcher := &fakeFetcher{body: sampleCSV}
	l := New(parser, fetcher, Policy{StallTimeout: time.Second, Fallback: false}, nil)

	if _, err := l.Load(context.Background(), "data.csv"); err == nil {
		t.Fatalf("expected error without fallback")
	}
	if fetcher.calls != 0 {
		t.Fatalf("fallback must not run when disabled")
	}
}

func TestLoadReportsStallWithoutAborting(t *testing.T) {
	parser := &fakeParser{
		result: ParseResult{Records: records([3]string{"2022", "Mayo", "38.1"})},
		block:  make(chan struct{}),
	}
	stalled := make(chan struct{})
	var once sync.Once
	log := &statusLog{}
	reporter := ReporterFunc(func(st model.Status) {
		log.Report(st)
		if st.Phase == model.PhaseStalled {
			once.Do(func() { close(stalled) })
		}
	})
	l := New(parser, &fakeFetcher{}, Policy{StallTimeout: 10 * time.Millisecond, Fallback: true}, reporter)

	go func() {
		<-stalled
		close(parser.block)
	}()
	ds, err := l.Load(context.Background(), "slow.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Rows) != 1 {
		t.Fatalf("expected parse to finish after stall, got %d rows", len(ds.Rows))
	}
	want := []model.Phase{model.PhaseStarting, model.PhaseStalled, model.PhaseParsed, model.PhaseLoaded}
	got := log.phases()
	if len(got) != len(want) {
		t.Fatalf("unexpected phases: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected phases: %v", got)
		}
	}
}

func TestLoadFastParseDoesNotStall(t *testing.T) {
	parser := &fakeParser{result: ParseResult{Records: records([3]string{"2022", "Mayo", "38.1"})}}
	log := &statusLog{}
	l := New(parser, &fakeFetcher{}, Policy{StallTimeout: time.Hour, Fallback: true}, log)
	if _, err := l.Load(context.Background(), "fast.csv"); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, p := range log.phases() {
		if p == model.PhaseStalled {
			t.Fatalf("unexpected stall status")
		}
	}
}

func TestRowErrorsAreNotFatal(t *testing.T) {
	body := "Year,County,PercentageIrishSpeakers\n" +
		"2022,Sligo,41.0\n" +
		"2022,\"Bad\"Quote,12\n" +
		"2022,Leitrim,44.5\n"
	res, err := parseCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("expected one row error, got %d", len(res.RowErrors))
	}
	rows, _ := Normalize(res.Records)
	if len(rows) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(rows))
	}
}

func TestParseCSVIgnoresColumnOrderAndExtras(t *testing.T) {
	body := "County,Notes,PercentageIrishSpeakers,Year\nDonegal,gaeltacht,59.2,2022\n"
	res, err := parseCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rows, _ := Normalize(res.Records)
	if len(rows) != 1 || rows[0] != (model.Row{Year: "2022", County: "Donegal", Percentage: 59.2}) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestNormalizeDropsOutOfRange(t *testing.T) {
	rows, dropped := Normalize(records(
		[3]string{"2022", "Louth", "101"},
		[3]string{"2022", "Louth", "-1"},
		[3]string{"2022", "Louth", "n/a"},
		[3]string{"2022", "Mayo", "NaN"},
		[3]string{"2022", "Mayo", "+Inf"},
		[3]string{" 2022 ", " Louth ", " 0 "},
		[3]string{"2022", "Meath", "100"},
	))
	if dropped != 5 || len(rows) != 2 {
		t.Fatalf("expected 2 rows / 5 dropped, got %d / %d", len(rows), dropped)
	}
	for _, row := range rows {
		if math.IsNaN(row.Percentage) {
			t.Fatalf("NaN percentage kept: %+v", row)
		}
	}
	if rows[0].Year != "2022" || rows[0].County != "Louth" {
		t.Fatalf("expected trimmed fields, got %+v", rows[0])
	}
}

func TestSplitCSV(t *testing.T) {
	body := "PercentageIrishSpeakers,Year,County\r\n12.5,2011,Fingal\r\n\r\n13.0,2016\r\n"
	recs, err := splitCSV(body)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0][ColumnCounty] != "Fingal" || recs[0][ColumnYear] != "2011" || recs[0][ColumnPercentage] != "12.5" {
		t.Fatalf("unexpected record: %v", recs[0])
	}
	if recs[1][ColumnCounty] != "" {
		t.Fatalf("short line should leave county empty, got %v", recs[1])
	}
	if _, err := splitCSV("Year,Region,Pct\n2011,x,1\n"); err == nil {
		t.Fatalf("expected missing column error")
	}
}

func TestCSVParserOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	l := NewHTTP(srv.Client(), DefaultPolicy(), nil)
	ds, err := l.Load(context.Background(), srv.URL+"/historical_irish_data.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Path != model.PathPrimary || len(ds.Rows) != 5 {
		t.Fatalf("unexpected dataset: path=%s rows=%d", ds.Path, len(ds.Rows))
	}
}

func TestHTTPFetcherDisablesCaching(t *testing.T) {
	var cacheControl, pragma string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl = r.Header.Get("Cache-Control")
		pragma = r.Header.Get("Pragma")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != sampleCSV {
		t.Fatalf("unexpected body: %q", body)
	}
	if cacheControl != "no-cache" || pragma != "no-cache" {
		t.Fatalf("expected no-cache headers, got %q / %q", cacheControl, pragma)
	}
}

func TestHTTPFetcherBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
}

func TestLoadFromLatin1File(t *testing.T) {
	// "Dún Laoghaire-Rathdown" encoded as ISO-8859-1.
	body := []byte("Year,County,PercentageIrishSpeakers\n2022,D\xfan Laoghaire-Rathdown,31.4\n")
	path := filepath.Join(t.TempDir(), "latin1.csv")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := NewHTTP(nil, DefaultPolicy(), nil)
	ds, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Rows[0].County != "Dún Laoghaire-Rathdown" {
		t.Fatalf("expected transcoded county, got %q", ds.Rows[0].County)
	}
}

func TestLoadTranscodesLateLatin1Byte(t *testing.T) {
	var b strings.Builder
	b.WriteString("Year,County,PercentageIrishSpeakers\n")
	for b.Len() < 5000 {
		b.WriteString("2022,Galway County,45.0\n")
	}
	b.WriteString("2022,D\xfan Laoghaire-Rathdown,31.4\n")
	path := filepath.Join(t.TempDir(), "late-latin1.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := NewHTTP(nil, DefaultPolicy(), nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	last := ds.Rows[len(ds.Rows)-1]
	if last.County != "Dún Laoghaire-Rathdown" || !utf8.ValidString(last.County) {
		t.Fatalf("expected transcoded county, got %q", last.County)
	}
	for _, row := range ds.Rows {
		if !utf8.ValidString(row.County) {
			t.Fatalf("invalid UTF-8 county: %q", row.County)
		}
	}
}

func TestLoadStripsUTF8BOM(t *testing.T) {
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...)
	path := filepath.Join(t.TempDir(), "bom.csv")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := NewHTTP(nil, DefaultPolicy(), nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Path != model.PathPrimary || len(ds.Rows) != 5 {
		t.Fatalf("BOM should not break the header, path=%s rows=%d", ds.Path, len(ds.Rows))
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := NewHTTP(nil, DefaultPolicy(), nil).Load(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError cause, got %v", err)
	}
}
