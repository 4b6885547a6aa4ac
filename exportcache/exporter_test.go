package exportcache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-export-cache/cache"
	"github.com/goliatone/go-export-cache/export"
	"github.com/goliatone/go-export-cache/record"
)

// countingEncoder wraps an encoder and records how often it runs
type countingEncoder struct {
	export.Encoder
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingEncoder) Encode(rows []record.Record) (string, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return "", c.err
	}
	return c.Encoder.Encode(rows)
}

// gatedStore holds every fetch until release is closed.
type gatedStore struct {
	*cache.TTLCache
	enter   sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(t *testing.T) *gatedStore {
	t.Helper()
	inner, err := cache.NewTTLCache(time.Hour, 10)
	if err != nil {
		t.Fatalf("NewTTLCache() error = %v", err)
	}
	return &gatedStore{TTLCache: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	s.enter.Do(func() { close(s.entered) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := fetch(ctx)
	if err == nil {
		s.Put(key, v)
	}
	return v, err
}

func newCounting(t *testing.T, f export.Format) *countingEncoder {
	t.Helper()
	enc, err := export.Lookup(f)
	if err != nil {
		t.Fatalf("Lookup(%s) error = %v", f, err)
	}
	return &countingEncoder{Encoder: enc}
}

func newExporter(t *testing.T, ttl time.Duration, size int, opts ...Option) *Exporter {
	t.Helper()
	store, err := cache.NewTTLCache(ttl, size)
	if err != nil {
		t.Fatalf("NewTTLCache() error = %v", err)
	}
	e, err := New(store, cache.NewFingerprintKeyer(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func people() []record.Record {
	return []record.Record{
		record.New(record.F("id", record.Int(1)), record.F("name", record.String("A"))),
		record.New(record.F("id", record.Int(2)), record.F("name", record.String("B"))),
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	store, _ := cache.NewTTLCache(time.Hour, 10)

	tests := []struct {
		name  string
		store cache.Store
		keyer cache.Keyer
		field string
	}{
		{name: "nil store", store: nil, keyer: cache.NewFingerprintKeyer(), field: "store"},
		{name: "nil keyer", store: store, keyer: nil, field: "keyer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.store, tt.keyer)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if e != nil {
				t.Error("expected nil exporter on error")
			}
			fields, _ := goerrors.GetValidationErrors(err)
			if len(fields) != 1 || fields[0].Field != tt.field {
				t.Errorf("expected field error for %s, got %+v", tt.field, fields)
			}
		})
	}
}

func TestExport_CacheHitSkipsEncoding(t *testing.T) {
	enc := newCounting(t, export.FormatJSON)
	e := newExporter(t, time.Hour, 10, WithEncoder(enc))
	ctx := context.Background()

	first, err := e.Export(ctx, people(), export.FormatJSON)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := e.Export(ctx, people(), export.FormatJSON)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if first != second {
		t.Errorf("cached output differs: %q != %q", first, second)
	}
	if n := enc.calls.Load(); n != 1 {
		t.Errorf("expected encoder to run once, ran %d times", n)
	}

	s := e.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Requests != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.Entries != 1 {
		t.Errorf("expected 1 cached entry, got %d", s.Entries)
	}
	if s.Cache == nil || s.Cache.Hits != 1 {
		t.Errorf("expected store counters, got %+v", s.Cache)
	}
}

func TestExport_FieldOrderSharesKey(t *testing.T) {
	enc := newCounting(t, export.FormatJSON)
	e := newExporter(t, time.Hour, 10, WithEncoder(enc))
	ctx := context.Background()

	a := []record.Record{record.New(record.F("id", record.Int(1)), record.F("name", record.String("A")))}
	b := []record.Record{record.New(record.F("name", record.String("A")), record.F("id", record.Int(1)))}

	if e.Key(a, export.FormatJSON) != e.Key(b, export.FormatJSON) {
		t.Fatal("expected identical keys for permuted fields")
	}

	outA, _ := e.Export(ctx, a, export.FormatJSON)
	outB, _ := e.Export(ctx, b, export.FormatJSON)
	if enc.calls.Load() != 1 {
		t.Errorf("expected the permuted export to hit the cache")
	}
	if outA != outB {
		t.Errorf("expected the cached output for the permuted export")
	}
}

func TestExport_FormatsDoNotCollide(t *testing.T) {
	e := newExporter(t, time.Hour, 10)
	ctx := context.Background()

	if e.Key(people(), export.FormatJSON) == e.Key(people(), export.FormatCSV) {
		t.Fatal("expected different keys per format")
	}

	js, err := e.Export(ctx, people(), export.FormatJSON)
	if err != nil {
		t.Fatalf("Export(json) error = %v", err)
	}
	csv, err := e.Export(ctx, people(), export.FormatCSV)
	if err != nil {
		t.Fatalf("Export(csv) error = %v", err)
	}
	if js != `[{"id":1,"name":"A"},{"id":2,"name":"B"}]` {
		t.Errorf("unexpected json: %q", js)
	}
	if csv != "id,name\r\n1,A\r\n2,B\r\n" {
		t.Errorf("unexpected csv: %q", csv)
	}
	if e.Stats().Entries != 2 {
		t.Errorf("expected one entry per format, got %d", e.Stats().Entries)
	}
}

func TestExport_InvalidUTF8ValuesDoNotShareOutput(t *testing.T) {
	e := newExporter(t, time.Hour, 10)
	ctx := context.Background()

	a := []record.Record{record.New(record.F("v", record.String("\xff")))}
	b := []record.Record{record.New(record.F("v", record.String("\xfe")))}

	outA, err := e.Export(ctx, a, export.FormatCSV)
	if err != nil {
		t.Fatalf("Export(a) error = %v", err)
	}
	outB, err := e.Export(ctx, b, export.FormatCSV)
	if err != nil {
		t.Fatalf("Export(b) error = %v", err)
	}
	if outA != "v\r\n\xff\r\n" {
		t.Errorf("Export(a) = %q", outA)
	}
	if outB != "v\r\n\xfe\r\n" {
		t.Errorf("Export(b) = %q", outB)
	}
	if hits := e.Stats().Hits; hits != 0 {
		t.Errorf("expected no hits, got %d", hits)
	}
}

func TestExport_ZeroTTLAlwaysRecomputes(t *testing.T) {
	enc := newCounting(t, export.FormatCSV)
	e := newExporter(t, 0, 10, WithEncoder(enc))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Export(ctx, people(), export.FormatCSV); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
	}
	if n := enc.calls.Load(); n != 3 {
		t.Errorf("expected 3 encodings with zero TTL, got %d", n)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := newExporter(t, time.Hour, 10)
	_, err := e.Export(context.Background(), people(), export.Format("xml"))
	if !export.IsUnsupportedFormat(err) {
		t.Errorf("expected unsupported format error, got %v", err)
	}
	if e.Stats().Failures != 1 {
		t.Errorf("expected failure to be counted")
	}
}

func TestExport_EncodeErrorNotCached(t *testing.T) {
	enc := newCounting(t, export.FormatJSON)
	enc.err = errors.New("boom")
	e := newExporter(t, time.Hour, 10, WithEncoder(enc))

	for i := 0; i < 2; i++ {
		if _, err := e.Export(context.Background(), people(), export.FormatJSON); err == nil {
			t.Fatal("expected encode error")
		}
	}
	if enc.calls.Load() != 2 {
		t.Errorf("expected failed encodings to be retried, got %d calls", enc.calls.Load())
	}
	if e.Stats().Entries != 0 {
		t.Errorf("expected nothing cached after failure")
	}
}

func TestExport_CanceledContext(t *testing.T) {
	e := newExporter(t, time.Hour, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Export(ctx, people(), export.FormatJSON); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExport_CanceledLeaderDoesNotFailFollowers(t *testing.T) {
	store := newGatedStore(t)
	e, err := New(store, cache.NewFingerprintKeyer())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := e.Export(ctx, people(), export.FormatJSON)
		leader <- err
	}()
	<-store.entered

	type result struct {
		out string
		err error
	}
	follower := make(chan result, 1)
	go func() {
		out, err := e.Export(context.Background(), people(), export.FormatJSON)
		follower <- result{out, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(store.release)

	if err := <-leader; !errors.Is(err, context.Canceled) {
		t.Errorf("leader: expected context.Canceled, got %v", err)
	}
	got := <-follower
	if got.err != nil {
		t.Fatalf("follower: Export() error = %v", got.err)
	}
	if want := `[{"id":1,"name":"A"},{"id":2,"name":"B"}]`; got.out != want {
		t.Errorf("follower: got %q, want %q", got.out, want)
	}
	if _, ok := store.Get(e.Key(people(), export.FormatJSON)); !ok {
		t.Error("expected the shared result to be cached")
	}
}

func TestExport_BypassAndRefresh(t *testing.T) {
	enc := newCounting(t, export.FormatJSON)
	e := newExporter(t, time.Hour, 10, WithEncoder(enc))
	ctx := context.Background()

	if _, err := e.Export(WithCacheBypass(ctx), people(), export.FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if e.Stats().Entries != 0 {
		t.Error("bypass must not populate the cache")
	}

	if _, err := e.Export(ctx, people(), export.FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := e.Export(WithCacheRefresh(ctx), people(), export.FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n := enc.calls.Load(); n != 3 {
		t.Errorf("expected bypass, miss and refresh to encode, got %d calls", n)
	}

	if _, err := e.Export(ctx, people(), export.FormatJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n := enc.calls.Load(); n != 3 {
		t.Errorf("expected hit after refresh, got %d calls", n)
	}
	if e.Stats().Bypassed != 1 {
		t.Errorf("expected 1 bypassed call, got %d", e.Stats().Bypassed)
	}
}

func TestExport_ConcurrentMissesEncodeOnce(t *testing.T) {
	enc := newCounting(t, export.FormatJSON)
	enc.delay = 50 * time.Millisecond
	e := newExporter(t, time.Hour, 10, WithEncoder(enc))

	const callers = 16
	var wg sync.WaitGroup
	outs := make([]string, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			out, err := e.Export(context.Background(), people(), export.FormatJSON)
			if err != nil {
				t.Errorf("Export() error = %v", err)
			}
			outs[i] = out
		}(i)
	}
	close(start)
	wg.Wait()

	if n := enc.calls.Load(); n != 1 {
		t.Errorf("expected a single encoding for concurrent misses, got %d", n)
	}
	for i, out := range outs {
		if out != outs[0] {
			t.Errorf("caller %d got different output", i)
		}
	}

	s := e.Stats()
	if s.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", s.Misses)
	}
	if s.Hits+s.Misses+s.Shared != callers {
		t.Errorf("expected every caller accounted for once, got %+v", s)
	}
}

func TestExportMaps(t *testing.T) {
	e := newExporter(t, time.Hour, 10)
	ctx := context.Background()

	out, err := e.ExportMaps(ctx, []map[string]any{{"b": 2, "a": "x"}}, export.FormatJSON)
	if err != nil {
		t.Fatalf("ExportMaps() error = %v", err)
	}
	if out != `[{"a":"x","b":2}]` {
		t.Errorf("unexpected output %q", out)
	}

	_, err = e.ExportMaps(ctx, []map[string]any{{"a": []int{1}}}, export.FormatJSON)
	if !goerrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExport_LogsHitsAndMisses(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	e := newExporter(t, time.Hour, 10, WithLogger(logger))
	ctx := context.Background()

	e.Export(ctx, people(), export.FormatCSV)
	e.Export(ctx, people(), export.FormatCSV)

	out := buf.String()
	if !strings.Contains(out, "export cache miss") || !strings.Contains(out, "export cache hit") {
		t.Errorf("expected hit and miss log lines, got:\n%s", out)
	}
}

func TestExport_EvictionThroughExporter(t *testing.T) {
	e := newExporter(t, time.Hour, 2)
	ctx := context.Background()

	row := func(id int64) []record.Record {
		return []record.Record{record.New(record.F("id", record.Int(id)))}
	}

	e.Export(ctx, row(1), export.FormatJSON)
	e.Export(ctx, row(2), export.FormatJSON)
	e.Export(ctx, row(1), export.FormatJSON) // promote 1
	e.Export(ctx, row(3), export.FormatJSON) // evicts 2

	store := e.Store()
	if _, ok := store.Get(e.Key(row(2), export.FormatJSON)); ok {
		t.Error("expected row 2 export to be evicted")
	}
	if _, ok := store.Get(e.Key(row(1), export.FormatJSON)); !ok {
		t.Error("expected row 1 export to survive")
	}

	e.Clear()
	if store.Len() != 0 {
		t.Errorf("expected empty store after Clear, got %d", store.Len())
	}
}
